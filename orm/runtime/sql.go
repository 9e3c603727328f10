package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// Writer accumulates SQL text alongside the positional arguments bound to it.
type Writer struct {
	sb   strings.Builder
	args []any
}

// NewWriter returns an empty writer.
func NewWriter() *Writer { return &Writer{} }

// WriteString appends raw SQL.
func (w *Writer) WriteString(s string) { w.sb.WriteString(s) }

// Bind appends a $n placeholder and records value as its argument.
func (w *Writer) Bind(value any) {
	w.args = append(w.args, value)
	w.sb.WriteByte('$')
	w.sb.WriteString(strconv.Itoa(len(w.args)))
}

// Write renders expr into the writer. Nil expressions render nothing.
func (w *Writer) Write(expr Expression) {
	if expr == nil {
		return
	}
	expr.WriteSQL(w)
}

// WriteList renders exprs separated by sep.
func (w *Writer) WriteList(exprs []Expression, sep string) {
	for i, expr := range exprs {
		if i > 0 {
			w.sb.WriteString(sep)
		}
		w.Write(expr)
	}
}

// String returns the SQL text written so far.
func (w *Writer) String() string { return w.sb.String() }

// Args returns the bound arguments in placeholder order.
func (w *Writer) Args() []any { return w.args }

// Render renders expr with fresh placeholder numbering.
func Render(expr Expression) (string, []any) {
	w := NewWriter()
	w.Write(expr)
	return w.String(), w.Args()
}

// renderKey identifies expr by its SQL text and bound arguments.
func renderKey(expr Expression) string {
	sql, args := Render(expr)
	if len(args) == 0 {
		return sql
	}
	return fmt.Sprintf("%s\x00%#v", sql, args)
}
