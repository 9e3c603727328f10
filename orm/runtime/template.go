package runtime

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	templatePlaceholder = regexp.MustCompile(`\{(\d+)\}`)
	// function('name', args...) is accepted as an alias for name(args...).
	templateFunctionCall = regexp.MustCompile(`(?s)^\s*function\(\s*'(\w+)'\s*,\s*(.*)\)\s*$`)
)

type templateSegment struct {
	text string
	arg  int
}

type templateNode struct {
	segments []templateSegment
	args     []Expression
}

func (t templateNode) WriteSQL(w *Writer) {
	for _, seg := range t.segments {
		if seg.arg < 0 {
			w.WriteString(seg.text)
			continue
		}
		w.Write(t.args[seg.arg])
	}
}

// parseTemplate panics on placeholders that reference missing arguments, in
// the manner of regexp.MustCompile: templates are program constants.
func parseTemplate(tmpl string, args []any) templateNode {
	if m := templateFunctionCall.FindStringSubmatch(tmpl); m != nil {
		tmpl = m[1] + "(" + m[2] + ")"
	}
	node := templateNode{args: make([]Expression, len(args))}
	for i, arg := range args {
		node.args[i] = operand(arg)
	}
	last := 0
	for _, loc := range templatePlaceholder.FindAllStringSubmatchIndex(tmpl, -1) {
		idx, err := strconv.Atoi(tmpl[loc[2]:loc[3]])
		if err != nil || idx >= len(args) {
			panic(fmt.Sprintf("runtime: template %q references argument {%s} but only %d given", tmpl, tmpl[loc[2]:loc[3]], len(args)))
		}
		if loc[0] > last {
			node.segments = append(node.segments, templateSegment{text: tmpl[last:loc[0]], arg: -1})
		}
		node.segments = append(node.segments, templateSegment{arg: idx})
		last = loc[1]
	}
	if rest := tmpl[last:]; rest != "" || len(node.segments) == 0 {
		node.segments = append(node.segments, templateSegment{text: rest, arg: -1})
	}
	return node
}

// StringTemplate builds a nullable text expression from a SQL template such as
// "replace({0}, {1}, {2})". Expression arguments render inline; other values
// are bound as parameters.
func StringTemplate(tmpl string, args ...any) StringExpr[*string] {
	return StringExpr[*string]{Expr[*string]{node: parseTemplate(tmpl, args)}}
}

// NumberTemplate builds a numeric expression from a SQL template.
func NumberTemplate[T Number](tmpl string, args ...any) NumberExpr[T] {
	return NumberExpr[T]{Expr[T]{node: parseTemplate(tmpl, args)}}
}

// BooleanTemplate builds a predicate from a SQL template.
func BooleanTemplate(tmpl string, args ...any) Predicate {
	return BooleanExpr{node: parseTemplate(tmpl, args)}
}
