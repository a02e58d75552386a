package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLayoutHeaderless(t *testing.T) {
	rows := [][]string{{"S001", "Alice"}, {"S002", "Bob"}}
	layout := DetectLayout(rows)

	assert.False(t, layout.HasHeader)
	assert.Equal(t, 0, layout.IDColumn)
	assert.Equal(t, 1, layout.NameColumn)
	assert.Equal(t, 0, layout.DataStart)
}

func TestDetectLayoutEnglishHeader(t *testing.T) {
	rows := [][]string{{"student_id", "name"}, {"S001", "Alice"}}
	layout := DetectLayout(rows)

	assert.True(t, layout.HasHeader)
	assert.Equal(t, 0, layout.IDColumn)
	assert.Equal(t, 1, layout.NameColumn)
	assert.Equal(t, 1, layout.DataStart)
}

func TestDetectLayoutChineseHeader(t *testing.T) {
	rows := [][]string{{"學號", "姓名"}, {"S001", "Alice"}}
	layout := DetectLayout(rows)

	assert.True(t, layout.HasHeader)
	assert.Equal(t, 0, layout.IDColumn)
	assert.Equal(t, 1, layout.NameColumn)
}

func TestDetectLayoutReorderedColumns(t *testing.T) {
	rows := [][]string{{"姓名", "學號", "備註"}, {"Alice", "S001", "x"}}
	layout := DetectLayout(rows)

	assert.True(t, layout.HasHeader)
	assert.Equal(t, 1, layout.IDColumn)
	assert.Equal(t, 0, layout.NameColumn)
}

func TestDetectLayoutHeaderCaseAndPadding(t *testing.T) {
	rows := [][]string{{"  Student_ID ", "remarks"}, {"S001", "Alice"}}
	layout := DetectLayout(rows)

	assert.True(t, layout.HasHeader)
	assert.Equal(t, 0, layout.IDColumn)
	// no name label present, falls back to position 1
	assert.Equal(t, 1, layout.NameColumn)
}

func TestDetectLayoutEmpty(t *testing.T) {
	layout := DetectLayout(nil)
	assert.False(t, layout.HasHeader)
	assert.Equal(t, 0, layout.DataStart)
}

func TestExtract(t *testing.T) {
	layout := Layout{IDColumn: 0, NameColumn: 1}

	rec, ok := Extract([]string{" S001 ", " Alice "}, layout)
	require.True(t, ok)
	assert.Equal(t, "S001", rec.StudentID)
	assert.Equal(t, "Alice", rec.Name)

	_, ok = Extract([]string{"S001"}, layout)
	assert.False(t, ok)

	_, ok = Extract([]string{"S001", "   "}, layout)
	assert.False(t, ok)

	_, ok = Extract([]string{"", "Alice"}, layout)
	assert.False(t, ok)
}

func TestInitialPassword(t *testing.T) {
	assert.Equal(t, "5678", InitialPassword("B1012345678"))
	assert.Equal(t, "S001", InitialPassword("S001"))
	assert.Equal(t, "abc", InitialPassword("abc"))
}
