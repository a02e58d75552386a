package export

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Any TTF works for checking the encoding path; CJK coverage only affects
// which glyphs are drawn, not how the text is encoded.
const testFontPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"

func cjkDataset() Dataset {
	return Dataset{
		Headers: []string{"學號", "姓名"},
		Rows: []map[string]string{
			{"學號": "B10901001", "姓名": "王小明"},
		},
	}
}

func TestPDFExporterRequiresFont(t *testing.T) {
	exporter := NewPDFExporter("")
	_, err := exporter.Render(cjkDataset(), "成績")
	require.ErrorIs(t, err, ErrNoFont)

	exporter = NewPDFExporter("/nonexistent/font.ttf")
	_, err = exporter.Render(cjkDataset(), "成績")
	require.ErrorIs(t, err, ErrNoFont)
}

func TestPDFExporterEncodesUnicodeText(t *testing.T) {
	if _, err := os.Stat(testFontPath); err != nil {
		t.Skipf("font not available: %v", err)
	}

	exporter := NewPDFExporter(testFontPath)
	content, err := exporter.Render(cjkDataset(), "期末成績")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))

	// The registered font must be embedded as a composite font with a
	// character map, so the Chinese text survives as real characters instead
	// of being squeezed byte by byte through a single-byte encoding.
	assert.Contains(t, string(content), "Identity-H")
	assert.Contains(t, string(content), "ToUnicode")
}
