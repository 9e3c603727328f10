package runtime

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// NullOrdering places NULL values ahead of or behind the others.
type NullOrdering string

const (
	NullOrderDefault NullOrdering = ""
	NullOrderFirst   NullOrdering = "NULLS FIRST"
	NullOrderLast    NullOrdering = "NULLS LAST"
)

// OrderSpecifier is a single ORDER BY item.
type OrderSpecifier struct {
	Target    Expression
	Direction SortDirection
	Nulls     NullOrdering
}

// NullsFirst sorts NULL values first.
func (o OrderSpecifier) NullsFirst() OrderSpecifier {
	o.Nulls = NullOrderFirst
	return o
}

// NullsLast sorts NULL values last.
func (o OrderSpecifier) NullsLast() OrderSpecifier {
	o.Nulls = NullOrderLast
	return o
}

// WriteSQL implements Expression.
func (o OrderSpecifier) WriteSQL(w *Writer) {
	w.Write(o.Target)
	dir := o.Direction
	if dir == "" {
		dir = SortAsc
	}
	w.WriteString(" ")
	w.WriteString(string(dir))
	if o.Nulls != NullOrderDefault {
		w.WriteString(" ")
		w.WriteString(string(o.Nulls))
	}
}
