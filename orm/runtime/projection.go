package runtime

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Projection selects a list of expressions and assembles each row into a T.
type Projection[T any] interface {
	Expressions() []Selectable
	Build(ctx context.Context, values []any) (T, error)
}

// Tuple is a row of heterogeneous values keyed by the expressions that
// produced them. Use Expr.Get to read values back with their static type.
type Tuple struct {
	keys    []string
	aliases []string
	values  []any
}

// Size returns the number of values.
func (t Tuple) Size() int { return len(t.values) }

// At returns the i-th value.
func (t Tuple) At(i int) any {
	if i < 0 || i >= len(t.values) {
		return nil
	}
	return t.values[i]
}

// lookup prefers the column selected with the same alias as expr and falls
// back to the first column rendering the same SQL and arguments.
func (t Tuple) lookup(expr Expression) (any, bool) {
	key, alias := renderKey(expr), aliasOf(expr)
	found := -1
	for i, k := range t.keys {
		if k != key {
			continue
		}
		if t.aliases[i] == alias {
			return t.values[i], true
		}
		if found < 0 {
			found = i
		}
	}
	if found < 0 {
		return nil, false
	}
	return t.values[found], true
}

type tupleProjection struct {
	exprs   []Selectable
	keys    []string
	aliases []string
}

// TupleOf selects several expressions into a Tuple per row.
func TupleOf(exprs ...Selectable) Projection[Tuple] {
	keys := make([]string, len(exprs))
	aliases := make([]string, len(exprs))
	for i, expr := range exprs {
		keys[i], aliases[i] = renderKey(expr), aliasOf(expr)
	}
	return tupleProjection{exprs: exprs, keys: keys, aliases: aliases}
}

func (p tupleProjection) Expressions() []Selectable { return p.exprs }

func (p tupleProjection) Build(_ context.Context, values []any) (Tuple, error) {
	if len(values) != len(p.keys) {
		return Tuple{}, fmt.Errorf("runtime: tuple expects %d values, got %d", len(p.keys), len(values))
	}
	return Tuple{keys: p.keys, aliases: p.aliases, values: append([]any(nil), values...)}, nil
}

// Fields assigns each selected value to the struct field whose db tag or name
// matches the expression's column name or alias. T may be a struct or a
// pointer to one.
func Fields[T any](exprs ...Selectable) Projection[T] {
	return reflectProjection[T]{exprs: exprs, assign: assignField}
}

// Bean calls the Set<Name> method matching each expression's column name or
// alias. The setters must be declared on the pointer receiver.
func Bean[T any](exprs ...Selectable) Projection[T] {
	return reflectProjection[T]{exprs: exprs, assign: assignSetter}
}

type reflectProjection[T any] struct {
	exprs  []Selectable
	assign func(target reflect.Value, name string, value any) error
}

func (p reflectProjection[T]) Expressions() []Selectable { return p.exprs }

func (p reflectProjection[T]) Build(_ context.Context, values []any) (T, error) {
	var out T
	typ := reflect.TypeOf(out)
	isPtr := typ != nil && typ.Kind() == reflect.Pointer
	structType := typ
	if isPtr {
		structType = typ.Elem()
	}
	if structType == nil || structType.Kind() != reflect.Struct {
		return out, fmt.Errorf("runtime: projection target %v is not a struct", typ)
	}
	if len(values) != len(p.exprs) {
		return out, fmt.Errorf("runtime: projection expects %d values, got %d", len(p.exprs), len(values))
	}
	target := reflect.New(structType)
	for i, expr := range p.exprs {
		name := ColumnName(expr)
		if name == "" {
			return out, fmt.Errorf("runtime: projection expression %d needs an alias", i)
		}
		if err := p.assign(target, name, values[i]); err != nil {
			return out, err
		}
	}
	if isPtr {
		return target.Interface().(T), nil
	}
	return target.Elem().Interface().(T), nil
}

func normaliseName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

func assignField(target reflect.Value, name string, value any) error {
	elem := target.Elem()
	typ := elem.Type()
	want := normaliseName(name)
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		if tag == "-" {
			continue
		}
		if normaliseName(tag) == want || normaliseName(field.Name) == want {
			if err := assignValue(elem.Field(i), value); err != nil {
				return fmt.Errorf("runtime: field %s: %w", field.Name, err)
			}
			return nil
		}
	}
	return fmt.Errorf("runtime: %v has no field for %q", typ, name)
}

func assignSetter(target reflect.Value, name string, value any) error {
	want := "set" + normaliseName(name)
	typ := target.Type()
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		if strings.ToLower(method.Name) != want {
			continue
		}
		if method.Type.NumIn() != 2 {
			return fmt.Errorf("runtime: setter %s must take exactly one argument", method.Name)
		}
		arg := reflect.New(method.Type.In(1)).Elem()
		if err := assignValue(arg, value); err != nil {
			return fmt.Errorf("runtime: setter %s: %w", method.Name, err)
		}
		target.Method(i).Call([]reflect.Value{arg})
		return nil
	}
	return fmt.Errorf("runtime: %v has no setter for %q", typ, name)
}

// assignValue stores value in dst, dereferencing or taking the address of
// pointers and converting between numeric kinds as needed.
func assignValue(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(value)
	if src.Kind() == reflect.Pointer && dst.Kind() != reflect.Pointer {
		if src.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		src = src.Elem()
	}
	if dst.Kind() == reflect.Pointer && src.Kind() != reflect.Pointer {
		ptr := reflect.New(dst.Type().Elem())
		if err := assignValue(ptr.Elem(), src.Interface()); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	}
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case isNumeric(src.Kind()) && isNumeric(dst.Kind()):
		dst.Set(src.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %v to %v", src.Type(), dst.Type())
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

type constructor2[A, B, T any] struct {
	a  Projection[A]
	b  Projection[B]
	fn func(A, B) T
}

// Constructor2 passes two typed expressions to fn for every row.
func Constructor2[A, B, T any](a Projection[A], b Projection[B], fn func(A, B) T) Projection[T] {
	return constructor2[A, B, T]{a: a, b: b, fn: fn}
}

func (c constructor2[A, B, T]) Expressions() []Selectable {
	return concatSelectables(c.a.Expressions(), c.b.Expressions())
}

func (c constructor2[A, B, T]) Build(ctx context.Context, values []any) (T, error) {
	var zero T
	parts, err := splitValues(values, len(c.a.Expressions()), len(c.b.Expressions()))
	if err != nil {
		return zero, err
	}
	a, err := c.a.Build(ctx, parts[0])
	if err != nil {
		return zero, err
	}
	b, err := c.b.Build(ctx, parts[1])
	if err != nil {
		return zero, err
	}
	return c.fn(a, b), nil
}

type constructor3[A, B, C, T any] struct {
	a  Projection[A]
	b  Projection[B]
	c  Projection[C]
	fn func(A, B, C) T
}

// Constructor3 passes three typed expressions to fn for every row.
func Constructor3[A, B, C, T any](a Projection[A], b Projection[B], c Projection[C], fn func(A, B, C) T) Projection[T] {
	return constructor3[A, B, C, T]{a: a, b: b, c: c, fn: fn}
}

func (k constructor3[A, B, C, T]) Expressions() []Selectable {
	return concatSelectables(k.a.Expressions(), k.b.Expressions(), k.c.Expressions())
}

func (k constructor3[A, B, C, T]) Build(ctx context.Context, values []any) (T, error) {
	var zero T
	parts, err := splitValues(values, len(k.a.Expressions()), len(k.b.Expressions()), len(k.c.Expressions()))
	if err != nil {
		return zero, err
	}
	a, err := k.a.Build(ctx, parts[0])
	if err != nil {
		return zero, err
	}
	b, err := k.b.Build(ctx, parts[1])
	if err != nil {
		return zero, err
	}
	c, err := k.c.Build(ctx, parts[2])
	if err != nil {
		return zero, err
	}
	return k.fn(a, b, c), nil
}

func concatSelectables(groups ...[]Selectable) []Selectable {
	var out []Selectable
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func splitValues(values []any, sizes ...int) ([][]any, error) {
	total := 0
	for _, n := range sizes {
		total += n
	}
	if len(values) != total {
		return nil, fmt.Errorf("runtime: constructor expects %d values, got %d", total, len(values))
	}
	parts := make([][]any, len(sizes))
	offset := 0
	for i, n := range sizes {
		parts[i] = values[offset : offset+n]
		offset += n
	}
	return parts, nil
}
