package runtime

import (
	"context"
	"fmt"
)

type assignment struct {
	column string
	value  Expression
}

// UpdateClause is a bulk UPDATE. It writes straight to the database and does
// not touch entities already loaded through an identity map.
type UpdateClause struct {
	exec   Executor
	target Source
	sets   []assignment
	preds  []Predicate
	err    error
}

// Update starts a bulk update of target.
func Update(exec Executor, target Source) *UpdateClause {
	return &UpdateClause{exec: exec, target: target}
}

// Set assigns value to the column path. value may be a plain Go value or an
// expression such as age.Add(1). path must be an unaliased column of the
// update target.
func (u *UpdateClause) Set(path Expression, value any) *UpdateClause {
	col, err := u.column(path)
	if err != nil && u.err == nil {
		u.err = err
	}
	u.sets = append(u.sets, assignment{column: col.name, value: operand(value)})
	return u
}

func (u *UpdateClause) column(path Expression) (columnNode, error) {
	if alias := aliasOf(path); alias != "" {
		return columnNode{}, fmt.Errorf("runtime: update target %q carries a select alias", alias)
	}
	col, ok := columnOf(path)
	if !ok {
		return columnNode{}, fmt.Errorf("runtime: update target is not a column")
	}
	if u.target != nil && col.qualifier != qualifierOf(u.target) {
		return columnNode{}, fmt.Errorf("runtime: column %s.%s does not belong to %s", col.qualifier, col.name, u.target.TableName())
	}
	return col, nil
}

// SetNull assigns NULL to the column path.
func (u *UpdateClause) SetNull(path Expression) *UpdateClause {
	return u.Set(path, rawNode("NULL"))
}

// Where restricts the updated rows. Nil predicates are skipped.
func (u *UpdateClause) Where(preds ...Predicate) *UpdateClause {
	for _, p := range preds {
		if !isEmpty(p) {
			u.preds = append(u.preds, p)
		}
	}
	return u
}

// SQL renders the statement.
func (u *UpdateClause) SQL() (string, []any, error) {
	if u.err != nil {
		return "", nil, u.err
	}
	if u.target == nil {
		return "", nil, fmt.Errorf("runtime: update requires a target")
	}
	if len(u.sets) == 0 {
		return "", nil, fmt.Errorf("runtime: update of %s has no assignments", u.target.TableName())
	}
	w := NewWriter()
	w.WriteString("UPDATE ")
	w.Write(u.target)
	w.WriteString(" SET ")
	for i, set := range u.sets {
		if i > 0 {
			w.WriteString(", ")
		}
		w.WriteString(set.column)
		w.WriteString(" = ")
		w.Write(set.value)
	}
	writeWhere(w, " WHERE ", u.preds)
	return w.String(), w.Args(), nil
}

// Execute runs the update and returns the number of affected rows.
func (u *UpdateClause) Execute(ctx context.Context) (int64, error) {
	sql, args, err := u.SQL()
	if err != nil {
		return 0, err
	}
	tag, err := u.exec.Exec(ctx, OperationUpdate, u.target.TableName(), sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteClause is a bulk DELETE.
type DeleteClause struct {
	exec   Executor
	target Source
	preds  []Predicate
}

// Delete starts a bulk delete from target.
func Delete(exec Executor, target Source) *DeleteClause {
	return &DeleteClause{exec: exec, target: target}
}

// Where restricts the deleted rows. Nil predicates are skipped.
func (d *DeleteClause) Where(preds ...Predicate) *DeleteClause {
	for _, p := range preds {
		if !isEmpty(p) {
			d.preds = append(d.preds, p)
		}
	}
	return d
}

// SQL renders the statement.
func (d *DeleteClause) SQL() (string, []any, error) {
	if d.target == nil {
		return "", nil, fmt.Errorf("runtime: delete requires a target")
	}
	w := NewWriter()
	w.WriteString("DELETE FROM ")
	w.Write(d.target)
	writeWhere(w, " WHERE ", d.preds)
	return w.String(), w.Args(), nil
}

// Execute runs the delete and returns the number of affected rows.
func (d *DeleteClause) Execute(ctx context.Context) (int64, error) {
	sql, args, err := d.SQL()
	if err != nil {
		return 0, err
	}
	tag, err := d.exec.Exec(ctx, OperationDelete, d.target.TableName(), sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
