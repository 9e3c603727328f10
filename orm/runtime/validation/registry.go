package validation

import (
	"context"
	"sync"
)

// Operation identifies which ORM mutation triggered validation.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

// Record holds the column values of a mutation keyed by column name.
type Record map[string]any

// Subject exposes contextual information to validation rules.
type Subject struct {
	Entity    string
	Operation Operation
	Record    Record
	Input     any
}

// Rule represents a validation constraint applied to an entity mutation.
type Rule interface {
	Validate(context.Context, Subject) error
}

// RuleFunc adapts a plain function into a validation Rule.
type RuleFunc func(context.Context, Subject) error

func (fn RuleFunc) Validate(ctx context.Context, subject Subject) error {
	return fn(ctx, subject)
}

// Registry stores the validation rules of each entity, per operation.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]map[Operation][]Rule
}

// NewRegistry constructs an empty validation registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]map[Operation][]Rule)}
}

// Entity returns a handle for registering rules on the named entity.
func (r *Registry) Entity(name string) *EntityRules {
	return &EntityRules{registry: r, entity: name}
}

func (r *Registry) add(entity string, op Operation, rules ...Rule) {
	if entity == "" || len(rules) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rules == nil {
		r.rules = make(map[string]map[Operation][]Rule)
	}
	byOp, ok := r.rules[entity]
	if !ok {
		byOp = make(map[Operation][]Rule)
		r.rules[entity] = byOp
	}
	byOp[op] = append(byOp[op], rules...)
}

func (r *Registry) snapshot(entity string, op Operation) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.rules[entity][op]
	if len(src) == 0 {
		return nil
	}
	return append([]Rule(nil), src...)
}

// Validate runs every rule registered for entity and op. All violations are
// collected into a single Errors value.
func (r *Registry) Validate(ctx context.Context, entity string, op Operation, record Record, input any) error {
	if r == nil {
		return nil
	}
	rules := r.snapshot(entity, op)
	if len(rules) == 0 {
		return nil
	}
	subject := Subject{Entity: entity, Operation: op, Record: record, Input: input}
	var errs Errors
	for _, rule := range rules {
		errs = appendErrors(errs, rule.Validate(ctx, subject))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// EntityRules registers rules on a single entity.
type EntityRules struct {
	registry *Registry
	entity   string
}

// OnCreate appends rules executed before inserts.
func (e *EntityRules) OnCreate(rules ...Rule) *EntityRules {
	e.registry.add(e.entity, OpCreate, rules...)
	return e
}

// OnUpdate appends rules executed before updates.
func (e *EntityRules) OnUpdate(rules ...Rule) *EntityRules {
	e.registry.add(e.entity, OpUpdate, rules...)
	return e
}

// OnSave appends rules executed before both inserts and updates.
func (e *EntityRules) OnSave(rules ...Rule) *EntityRules {
	return e.OnCreate(rules...).OnUpdate(rules...)
}
