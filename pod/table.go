package pod

import (
	"fmt"
	"io"
	"strings"
)

// FormatFunc colorizes a cell after its width has been measured
type FormatFunc func(value string) string

// ColumnSpec defines a column's properties
type ColumnSpec struct {
	Header     string
	BlankValue string // default "-"
	FormatFunc FormatFunc
	MinWidth   int
	AlignRight bool
}

// Table collects rows and renders them as aligned columns
type Table struct {
	columns []ColumnSpec
	rows    [][]string
	widths  []int
}

func NewTable(cols ...ColumnSpec) *Table {
	t := &Table{
		columns: cols,
		widths:  make([]int, len(cols)),
	}

	for i := range t.columns {
		t.widths[i] = max(cols[i].MinWidth, len(cols[i].Header))
		if t.columns[i].BlankValue == "" {
			t.columns[i].BlankValue = "-"
		}
	}

	return t
}

// AddRow appends a row. Missing or empty cells show the column's BlankValue.
func (t *Table) AddRow(data ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(data) && data[i] != "" {
			row[i] = data[i]
		} else {
			row[i] = t.columns[i].BlankValue
		}
		t.widths[i] = max(t.widths[i], visibleLength(row[i]))
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the header, a dashed rule and every row to w
func (t *Table) Render(w io.Writer) error {
	cells := make([]string, len(t.columns))

	for i, col := range t.columns {
		cells[i] = t.pad(i, col.Header)
	}
	if err := writeLine(w, cells); err != nil {
		return err
	}

	for i := range cells {
		cells[i] = strings.Repeat("-", t.widths[i])
	}
	if err := writeLine(w, cells); err != nil {
		return err
	}

	for _, row := range t.rows {
		for i, val := range row {
			cells[i] = t.pad(i, val)
			if f := t.columns[i].FormatFunc; f != nil {
				// pad first so escape codes do not count toward the width
				cells[i] = strings.Replace(cells[i], val, f(val), 1)
			}
		}
		if err := writeLine(w, cells); err != nil {
			return err
		}
	}

	return nil
}

func writeLine(w io.Writer, cells []string) error {
	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " "))
	return err
}

func (t *Table) pad(col int, s string) string {
	n := t.widths[col] - visibleLength(s)
	if n <= 0 {
		return s
	}
	if t.columns[col].AlignRight {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}

// visibleLength counts runes outside ANSI escape sequences
func visibleLength(s string) int {
	length := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			length++
		}
	}
	return length
}
