package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Table is a tabular tool result. It marshals to a JSON array of objects
// whose keys keep column order.
type Table struct {
	Columns []string
	Rows    [][]any
}

// AddRow appends a row. It panics when the width does not match the columns.
func (t *Table) AddRow(values ...any) {
	if len(values) != len(t.Columns) {
		panic(fmt.Sprintf("table row has %d values, want %d", len(values), len(t.Columns)))
	}
	t.Rows = append(t.Rows, values)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Value returns the cell at row i for the named column, or nil.
func (t *Table) Value(i int, column string) any {
	if i < 0 || i >= len(t.Rows) {
		return nil
	}
	for c, name := range t.Columns {
		if name == column {
			return t.Rows[i][c]
		}
	}
	return nil
}

func (t Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for c, name := range t.Columns {
			if c > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(&buf, name); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			if err := writeJSON(&buf, row[c]); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
