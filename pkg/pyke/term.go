package pyke

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Term is the sum type underlying every pattern in the engine: a Literal,
// a Variable, an Anonymous wildcard, or a Tuple. It generalizes the
// two-variant Term interface of the teacher's unification core (Var/Atom/
// Pair) to the four pattern variants the rule-base compiler emits.
type Term interface {
	// String returns a human-readable representation of the term.
	String() string

	// Equal reports whether this term is structurally identical to other —
	// a strict syntactic check, not unification.
	Equal(other Term) bool

	// IsVar reports whether this term is a logic variable (bound or not).
	IsVar() bool

	// IsData reports whether, in the given context, this term resolves to
	// fully ground data with no free variables remaining.
	IsData(ctx *Context) bool

	// AsData fully resolves this term to concrete Go data in the given
	// context. If allowVars is false, encountering an unbound variable
	// anywhere in the structure is an *UnboundVariableError. If allowVars
	// is true, unbound variables are rendered as the sentinel "$name".
	// memo, when non-nil, gives repeated (name, ctx) lookups stable
	// identity within one resolution.
	AsData(ctx *Context, allowVars bool, memo map[memoKey]interface{}) (interface{}, error)

	// MatchData unifies this pattern, interpreted in myCtx, against ground
	// data, recording any bindings via trail (the controlling context).
	MatchData(trail, myCtx *Context, data interface{}) bool

	// MatchPattern unifies this pattern against another pattern, two-sided,
	// recording bindings via trail.
	MatchPattern(trail, myCtx *Context, other Term, otherCtx *Context) bool
}

// memoKey identifies a (variable name, owning context) pair for the
// resolution memo passed to AsData, giving cyclic plan references across
// a single resolution pass a stable identity.
type memoKey struct {
	name string
	ctx  *Context
}

// Literal wraps an opaque ground scalar: a number, string, boolean, nil,
// or symbol. Literals never contain variables.
type Literal struct {
	value interface{}
}

// NewLiteral creates a Literal wrapping the given Go value.
func NewLiteral(v interface{}) *Literal {
	return &Literal{value: v}
}

func (l *Literal) String() string { return fmt.Sprintf("%v", l.value) }

// Value returns the wrapped Go value.
func (l *Literal) Value() interface{} { return l.value }

func (l *Literal) Equal(other Term) bool {
	o, ok := other.(*Literal)
	return ok && reflect.DeepEqual(l.value, o.value)
}

func (l *Literal) IsVar() bool                  { return false }
func (l *Literal) IsData(ctx *Context) bool     { return true }
func (l *Literal) MatchData(trail, myCtx *Context, data interface{}) bool {
	return reflect.DeepEqual(l.value, data)
}

func (l *Literal) MatchPattern(trail, myCtx *Context, other Term, otherCtx *Context) bool {
	switch o := other.(type) {
	case *Variable:
		return o.MatchPattern(trail, otherCtx, l, myCtx)
	case *Anonymous:
		return true
	case *Literal:
		return reflect.DeepEqual(l.value, o.value)
	default:
		return false
	}
}

func (l *Literal) AsData(ctx *Context, allowVars bool, memo map[memoKey]interface{}) (interface{}, error) {
	return l.value, nil
}

// varRegistry interns Variable instances by name so that two variables
// sharing a name are the same Go pointer everywhere in the process, as
// required by the data model (name equality == reference equality).
var varRegistry = struct {
	mu    sync.RWMutex
	table map[string]*Variable
}{table: make(map[string]*Variable)}

// Variable is a logic variable identified by name. Variables with the
// same name are interned to the same instance.
type Variable struct {
	name string
}

// NewVariable returns the (possibly pre-existing) interned Variable with
// the given name.
func NewVariable(name string) *Variable {
	varRegistry.mu.RLock()
	if v, ok := varRegistry.table[name]; ok {
		varRegistry.mu.RUnlock()
		return v
	}
	varRegistry.mu.RUnlock()

	varRegistry.mu.Lock()
	defer varRegistry.mu.Unlock()
	if v, ok := varRegistry.table[name]; ok {
		return v
	}
	v := &Variable{name: name}
	varRegistry.table[name] = v
	return v
}

// Name returns the variable's name.
func (v *Variable) Name() string { return v.name }

func (v *Variable) String() string { return "$" + v.name }

func (v *Variable) Equal(other Term) bool {
	o, ok := other.(*Variable)
	return ok && o.name == v.name
}

func (v *Variable) IsVar() bool { return true }

func (v *Variable) IsData(ctx *Context) bool {
	if !ctx.isBound(v) {
		return false
	}
	val, where, _ := ctx.Lookup(v, true)
	if term, ok := val.(Term); ok && where != nil {
		return term.IsData(where)
	}
	return true
}

func (v *Variable) MatchData(trail, myCtx *Context, data interface{}) bool {
	val, where, err := myCtx.Lookup(v, true)
	if err != nil {
		return false
	}
	if vv, ok := val.(*Variable); ok {
		trail.Bind(vv.name, where, data, nil)
		return true
	}
	if where == nil {
		return reflect.DeepEqual(val, data)
	}
	term, ok := val.(Term)
	if !ok {
		return reflect.DeepEqual(val, data)
	}
	return term.MatchData(trail, where, data)
}

func (v *Variable) MatchPattern(trail, myCtx *Context, other Term, otherCtx *Context) bool {
	val, where, err := myCtx.Lookup(v, true)
	if err != nil {
		return false
	}
	if vv, ok := val.(*Variable); ok {
		trail.Bind(vv.name, where, other, otherCtx)
		return true
	}
	if where == nil {
		return other.MatchData(trail, otherCtx, val)
	}
	term, ok := val.(Term)
	if !ok {
		return other.MatchData(trail, otherCtx, val)
	}
	return term.MatchPattern(trail, where, other, otherCtx)
}

func (v *Variable) AsData(ctx *Context, allowVars bool, memo map[memoKey]interface{}) (interface{}, error) {
	return ctx.LookupData(v.name, allowVars, memo)
}

// Anonymous is a wildcard variable whose name begins with '_'. Binding
// requests on it are always silently discarded and it never appears as
// data.
type Anonymous struct {
	name string
}

// NewAnonymous creates an anonymous variable. name must begin with '_'.
func NewAnonymous(name string) *Anonymous {
	if len(name) == 0 || name[0] != '_' {
		panic(fmt.Sprintf("pyke: anonymous variable name must start with '_', got %q", name))
	}
	return &Anonymous{name: name}
}

func (a *Anonymous) Name() string   { return a.name }
func (a *Anonymous) String() string { return "$" + a.name }

func (a *Anonymous) Equal(other Term) bool {
	o, ok := other.(*Anonymous)
	return ok && o.name == a.name
}

func (a *Anonymous) IsVar() bool                                          { return true }
func (a *Anonymous) IsData(ctx *Context) bool                             { return false }
func (a *Anonymous) MatchData(trail, myCtx *Context, data interface{}) bool { return true }
func (a *Anonymous) MatchPattern(trail, myCtx *Context, other Term, otherCtx *Context) bool {
	return true
}

func (a *Anonymous) AsData(ctx *Context, allowVars bool, memo map[memoKey]interface{}) (interface{}, error) {
	if allowVars {
		return "$" + a.name, nil
	}
	return nil, &UnboundVariableError{Name: a.name}
}

// Tuple is a fixed prefix of sub-patterns plus an optional tail variable
// (Rest) capturing the remainder, analogous to a head/tail list pattern.
type Tuple struct {
	head []Term
	rest Term
}

// NewTuple builds a Tuple from the given head patterns and optional rest
// variable (nil for a fixed-arity tuple).
func NewTuple(head []Term, rest Term) *Tuple {
	return &Tuple{head: head, rest: rest}
}

// Head returns the tuple's fixed prefix patterns.
func (t *Tuple) Head() []Term { return t.head }

// Rest returns the tuple's tail variable, or nil if the tuple has fixed
// arity.
func (t *Tuple) Rest() Term { return t.rest }

// Arity returns the number of fixed prefix elements.
func (t *Tuple) Arity() int { return len(t.head) }

func (t *Tuple) String() string {
	parts := make([]string, len(t.head))
	for i, h := range t.head {
		parts[i] = h.String()
	}
	rest := ""
	if t.rest != nil {
		rest = " . " + t.rest.String()
	}
	return "(" + strings.Join(parts, ", ") + rest + ")"
}

func (t *Tuple) Equal(other Term) bool {
	o, ok := other.(*Tuple)
	if !ok || len(t.head) != len(o.head) {
		return false
	}
	for i := range t.head {
		if !t.head[i].Equal(o.head[i]) {
			return false
		}
	}
	if (t.rest == nil) != (o.rest == nil) {
		return false
	}
	if t.rest != nil {
		return t.rest.Equal(o.rest)
	}
	return true
}

func (t *Tuple) IsVar() bool { return false }

func (t *Tuple) IsData(ctx *Context) bool {
	for _, h := range t.head {
		if !h.IsData(ctx) {
			return false
		}
	}
	if t.rest != nil {
		return t.rest.IsData(ctx)
	}
	return true
}

func (t *Tuple) AsData(ctx *Context, allowVars bool, memo map[memoKey]interface{}) (interface{}, error) {
	result := make([]interface{}, 0, len(t.head))
	for _, h := range t.head {
		v, err := h.AsData(ctx, allowVars, memo)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if t.rest == nil {
		return result, nil
	}
	restVal, err := t.rest.AsData(ctx, allowVars, memo)
	if err != nil {
		return nil, err
	}
	if rv, ok := restVal.([]interface{}); ok {
		result = append(result, rv...)
		return result, nil
	}
	result = append(result, restVal)
	return result, nil
}

func (t *Tuple) MatchData(trail, myCtx *Context, data interface{}) bool {
	elems, ok := data.([]interface{})
	if !ok {
		return false
	}
	if t.rest == nil {
		if len(elems) != len(t.head) {
			return false
		}
	} else if len(elems) < len(t.head) {
		return false
	}
	for i, h := range t.head {
		if !h.MatchData(trail, myCtx, elems[i]) {
			return false
		}
	}
	if t.rest == nil {
		return true
	}
	remainder := make([]interface{}, len(elems)-len(t.head))
	copy(remainder, elems[len(t.head):])
	return t.rest.MatchData(trail, myCtx, remainder)
}

func (t *Tuple) MatchPattern(trail, myCtx *Context, other Term, otherCtx *Context) bool {
	switch o := other.(type) {
	case *Variable:
		return o.MatchPattern(trail, otherCtx, t, myCtx)
	case *Anonymous:
		return true
	case *Tuple:
		return matchTuples(trail, t, myCtx, o, otherCtx)
	default:
		return false
	}
}

func matchTuples(trail *Context, a *Tuple, aCtx *Context, b *Tuple, bCtx *Context) bool {
	n := len(a.head)
	if len(b.head) < n {
		n = len(b.head)
	}
	for i := 0; i < n; i++ {
		if !a.head[i].MatchPattern(trail, aCtx, b.head[i], bCtx) {
			return false
		}
	}
	switch {
	case len(a.head) == len(b.head):
		return matchRest(trail, a.rest, aCtx, b.rest, bCtx)
	case len(a.head) < len(b.head):
		residual := NewTuple(append([]Term(nil), b.head[len(a.head):]...), b.rest)
		return matchRestAgainstTuple(trail, a.rest, aCtx, residual, bCtx)
	default:
		residual := NewTuple(append([]Term(nil), a.head[len(b.head):]...), a.rest)
		return matchRestAgainstTuple(trail, b.rest, bCtx, residual, aCtx)
	}
}

func matchRest(trail *Context, aRest Term, aCtx *Context, bRest Term, bCtx *Context) bool {
	switch {
	case aRest == nil && bRest == nil:
		return true
	case aRest == nil:
		return matchRestAgainstTuple(trail, bRest, bCtx, NewTuple(nil, nil), aCtx)
	case bRest == nil:
		return matchRestAgainstTuple(trail, aRest, aCtx, NewTuple(nil, nil), bCtx)
	default:
		return aRest.MatchPattern(trail, aCtx, bRest, bCtx)
	}
}

func matchRestAgainstTuple(trail *Context, rest Term, restCtx *Context, residual *Tuple, residualCtx *Context) bool {
	if rest == nil {
		return len(residual.head) == 0 && residual.rest == nil
	}
	return rest.MatchPattern(trail, restCtx, residual, residualCtx)
}
