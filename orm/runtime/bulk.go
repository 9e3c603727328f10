package runtime

import (
	"fmt"
	"strings"
)

// BulkInsertSpec describes a multi-row INSERT.
type BulkInsertSpec struct {
	Table     string
	Columns   []string
	Returning []string
	Rows      [][]any
}

// BuildBulkInsertSQL renders spec as one INSERT with a VALUES tuple per row.
func BuildBulkInsertSQL(spec BulkInsertSpec) (string, []any, error) {
	if spec.Table == "" {
		return "", nil, fmt.Errorf("runtime: insert table is required")
	}
	if len(spec.Columns) == 0 {
		return "", nil, fmt.Errorf("runtime: insert into %s has no columns", spec.Table)
	}
	if len(spec.Rows) == 0 {
		return "", nil, fmt.Errorf("runtime: insert into %s has no rows", spec.Table)
	}
	w := NewWriter()
	w.WriteString("INSERT INTO ")
	w.WriteString(spec.Table)
	w.WriteString(" (")
	w.WriteString(strings.Join(spec.Columns, ", "))
	w.WriteString(") VALUES ")
	for i, row := range spec.Rows {
		if len(row) != len(spec.Columns) {
			return "", nil, fmt.Errorf("runtime: row %d has %d values, expected %d", i, len(row), len(spec.Columns))
		}
		if i > 0 {
			w.WriteString(", ")
		}
		w.WriteString("(")
		for j, value := range row {
			if j > 0 {
				w.WriteString(", ")
			}
			w.Bind(value)
		}
		w.WriteString(")")
	}
	if len(spec.Returning) > 0 {
		w.WriteString(" RETURNING ")
		w.WriteString(strings.Join(spec.Returning, ", "))
	}
	return w.String(), w.Args(), nil
}

// BulkDeleteSpec deletes rows by primary key.
type BulkDeleteSpec struct {
	Table         string
	PrimaryColumn string
	IDs           []any
}

// BuildBulkDeleteSQL renders spec as DELETE ... WHERE pk IN (...).
func BuildBulkDeleteSQL(spec BulkDeleteSpec) (string, []any, error) {
	if spec.Table == "" {
		return "", nil, fmt.Errorf("runtime: delete table is required")
	}
	if spec.PrimaryColumn == "" {
		return "", nil, fmt.Errorf("runtime: delete from %s has no primary column", spec.Table)
	}
	if len(spec.IDs) == 0 {
		return "", nil, fmt.Errorf("runtime: delete from %s has no ids", spec.Table)
	}
	w := NewWriter()
	w.WriteString("DELETE FROM ")
	w.WriteString(spec.Table)
	w.WriteString(" WHERE ")
	w.Write(inNode{left: rawNode(spec.PrimaryColumn), values: spec.IDs})
	return w.String(), w.Args(), nil
}
