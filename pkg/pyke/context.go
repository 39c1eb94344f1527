package pyke

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var contextSeq int64

// binding records what a variable name is currently bound to within one
// Context's namespace: either another Term (interpreted in valueCtx), or
// raw ground Go data (valueCtx nil).
type binding struct {
	value    interface{}
	valueCtx *Context
}

// trailEntry is one undo-log record: binding name within owner is to be
// removed when the trail is unwound past this entry.
type trailEntry struct {
	owner *Context
	name  string
	had   bool
	prior binding
}

// Context is a shallow-binding namespace for logic variables, paired with
// an undo trail. This mirrors contexts.py's simple_context: rather than
// building a fresh substitution on every binding (the teacher's
// copy-on-write Substitution), a Context mutates its own binding table in
// place and records what it overwrote so the change can be undone later
// in LIFO order. Every proof attempt allocates its own rule-local
// Context; Unify and the premise combinators are always handed a
// "controlling" context (the trail parameter) responsible for logging
// undo entries for bindings made anywhere during that attempt.
//
// The mutex exists for parity with the teacher's pervasively
// mutex-guarded structs; proof search itself is single-threaded and
// cooperative, so contention is not expected in practice.
type Context struct {
	mu       sync.Mutex
	id       int64
	name     string
	bindings map[string]binding
	trail    []trailEntry
	saveUndo bool
}

// NewContext creates a fresh, empty Context. name is used only for
// diagnostics (String, log fields).
func NewContext(name string) *Context {
	return &Context{
		id:       atomic.AddInt64(&contextSeq, 1),
		name:     name,
		bindings: make(map[string]binding),
		saveUndo: true,
	}
}

func (c *Context) String() string {
	return fmt.Sprintf("context(%s#%d)", c.name, c.id)
}

// Bind binds name within owner's namespace to value (interpreted, if it
// is a Term, within valueCtx; pass nil valueCtx for raw ground data). c
// is the controlling context: the undo entry, if recording is active, is
// appended to c's trail even when owner is a different Context. This is
// the Go analogue of contexts.py's "B_context.bind(name, ..., data,
// context)" convention, where B_context is the binding/controlling
// context passed as the first argument throughout MatchPattern.
//
// Binding a variable to itself (same name, same owner and valueCtx) is a
// no-op, matching contexts.py's bind() identity check — otherwise
// Equal{A: x, B: x} on a still-unbound x would create a self-referential
// binding that Lookup's derefToEnd walk could never resolve past. A name
// beginning with '_' (an anonymous variable's) is never bound.
func (c *Context) Bind(name string, owner *Context, value interface{}, valueCtx *Context) {
	if len(name) > 0 && name[0] == '_' {
		return
	}
	if valueCtx == owner {
		if vv, ok := value.(*Variable); ok && vv.name == name {
			return
		}
	}

	owner.mu.Lock()
	prior, had := owner.bindings[name]
	owner.bindings[name] = binding{value: value, valueCtx: valueCtx}
	owner.mu.Unlock()

	if !c.saveUndo {
		return
	}
	c.mu.Lock()
	c.trail = append(c.trail, trailEntry{owner: owner, name: name, had: had, prior: prior})
	c.mu.Unlock()
}

// Lookup resolves v within c, chasing bound-to-variable chains across
// contexts until it reaches either an unbound variable or a non-variable
// value. It returns the terminal value, the context that value should be
// interpreted in (nil if the value is raw ground Go data rather than a
// Term), and an error only in pathological cases (never for a simple
// unbound variable, which is a normal, expected outcome).
func (c *Context) Lookup(v *Variable, derefToEnd bool) (interface{}, *Context, error) {
	cur := c
	name := v.Name()
	seen := 0
	for {
		cur.mu.Lock()
		b, ok := cur.bindings[name]
		cur.mu.Unlock()
		if !ok {
			return NewVariable(name), cur, nil
		}
		nextVar, isVar := b.value.(*Variable)
		if !isVar || !derefToEnd {
			return b.value, b.valueCtx, nil
		}
		seen++
		if seen > 100000 {
			return nil, nil, fmt.Errorf("pyke: binding chain too long for %q, possible cycle", v.Name())
		}
		if b.valueCtx == nil {
			return nextVar, cur, nil
		}
		cur = b.valueCtx
		name = nextVar.Name()
	}
}

// isBound reports whether v resolves to anything other than a still-free
// variable within c.
func (c *Context) isBound(v *Variable) bool {
	val, _, err := c.Lookup(v, true)
	if err != nil {
		return false
	}
	_, stillVar := val.(*Variable)
	return !stillVar
}

// LookupData resolves name fully to ground data. allowVars controls
// whether an unbound variable is an error (false) or rendered as a
// "$name" placeholder string (true). memo gives repeated resolution of
// the same (name, context) pair — as happens when a captured Plan
// fragment is read back more than once — stable identity instead of
// re-deriving it.
func (c *Context) LookupData(name string, allowVars bool, memo map[memoKey]interface{}) (interface{}, error) {
	key := memoKey{name: name, ctx: c}
	if memo != nil {
		if v, ok := memo[key]; ok {
			return v, nil
		}
	}

	val, where, err := c.Lookup(NewVariable(name), true)
	if err != nil {
		return nil, err
	}

	var result interface{}
	if v, isVar := val.(*Variable); isVar {
		if !allowVars {
			return nil, &UnboundVariableError{Name: v.Name()}
		}
		result = "$" + v.Name()
	} else if term, isTerm := val.(Term); isTerm && where != nil {
		result, err = term.AsData(where, allowVars, memo)
		if err != nil {
			return nil, err
		}
	} else {
		result = val
	}

	if memo != nil {
		memo[key] = result
	}
	return result, nil
}

// Mark returns a restore point for UndoToMark, capturing the current
// trail length.
func (c *Context) Mark() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.trail)
}

// EndSaveAllUndo stops recording further undo entries on c. Bindings
// made through c after this call are permanent: used once a rule
// candidate has fully succeeded and its bindings should survive as if
// they were ground facts, rather than being rolled back on backtrack.
func (c *Context) EndSaveAllUndo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveUndo = false
}

// UndoToMark rolls c's trail back to mark, restoring every binding it
// recorded (on whichever owner context each entry names) to what it was
// before, in LIFO order.
func (c *Context) UndoToMark(mark int) {
	c.mu.Lock()
	trail := c.trail
	if mark > len(trail) {
		mark = len(trail)
	}
	toUndo := append([]trailEntry(nil), trail[mark:]...)
	c.trail = trail[:mark]
	c.mu.Unlock()

	for i := len(toUndo) - 1; i >= 0; i-- {
		e := toUndo[i]
		e.owner.mu.Lock()
		if e.had {
			e.owner.bindings[e.name] = e.prior
		} else {
			delete(e.owner.bindings, e.name)
		}
		e.owner.mu.Unlock()
	}
}

// Done fully unwinds c's trail, undoing every binding recorded on it
// (in c or in any other owner context). It is called
// once a Context that owned a now-exhausted or abandoned proof attempt
// is no longer needed.
func (c *Context) Done() {
	c.UndoToMark(0)
}
