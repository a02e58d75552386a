// Package roster decides how to read uploaded roster files. The files come
// from spreadsheets maintained by hand: sometimes with a header row, sometimes
// without, with column labels in English or Chinese.
package roster

import "strings"

var (
	idLabels   = []string{"student_id", "studentid", "學號", "学号"}
	nameLabels = []string{"name", "full_name", "姓名"}
)

// Layout describes where student id and name live in a parsed roster file.
type Layout struct {
	HasHeader  bool
	IDColumn   int
	NameColumn int
	DataStart  int
}

// Record is one extracted roster row.
type Record struct {
	StudentID string
	Name      string
}

// DetectLayout inspects the first row. It is a header when any trimmed,
// case-folded cell equals a recognized student-id label; column positions are
// then taken from the labels, with the name column falling back to index 1.
// Otherwise the file is headerless with id at column 0 and name at column 1.
func DetectLayout(rows [][]string) Layout {
	layout := Layout{IDColumn: 0, NameColumn: 1, DataStart: 0}
	if len(rows) == 0 {
		return layout
	}

	header := rows[0]
	idCol := findLabel(header, idLabels)
	if idCol < 0 {
		return layout
	}

	layout.HasHeader = true
	layout.IDColumn = idCol
	layout.DataStart = 1
	if nameCol := findLabel(header, nameLabels); nameCol >= 0 {
		layout.NameColumn = nameCol
	} else {
		layout.NameColumn = 1
	}
	return layout
}

// Extract pulls a record out of a data row. It reports false for rows that are
// too short or whose id or name is empty after trimming; such rows are skipped
// silently by the importer.
func Extract(row []string, layout Layout) (Record, bool) {
	max := layout.IDColumn
	if layout.NameColumn > max {
		max = layout.NameColumn
	}
	if len(row) <= max {
		return Record{}, false
	}

	id := strings.TrimSpace(row[layout.IDColumn])
	name := strings.TrimSpace(row[layout.NameColumn])
	if id == "" || name == "" {
		return Record{}, false
	}
	return Record{StudentID: id, Name: name}, true
}

// InitialPassword derives the initial password handed to imported students:
// the last four characters of the student id, or the whole id when shorter.
func InitialPassword(studentID string) string {
	runes := []rune(studentID)
	if len(runes) <= 4 {
		return studentID
	}
	return string(runes[len(runes)-4:])
}

func findLabel(row []string, labels []string) int {
	for i, cell := range row {
		folded := strings.ToLower(strings.TrimSpace(cell))
		for _, label := range labels {
			if folded == label {
				return i
			}
		}
	}
	return -1
}
