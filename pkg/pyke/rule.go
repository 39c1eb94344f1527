package pyke

import "context"

// RuleKind distinguishes a forward-chaining rule from a backward-chaining
// one.
type RuleKind int

const (
	// FC identifies a forward-chaining rule (foreach/assert).
	FC RuleKind = iota
	// BC identifies a backward-chaining rule (goal/when/with).
	BC
)

// Premise is a single step of a rule's premise list: it either queries
// another goal or applies a control combinator (first, notany, forall),
// or invokes an external hook (equality, membership, boolean check, a
// side-effecting block). Every Premise variant compiles to a goalFunc
// through eval, sharing the same resumable-iterator contract used by FC
// and BC premise walking alike (§4.5/§4.6 of the design spec).
type Premise interface {
	eval(ctx context.Context, e *Engine, trail *Context) *Cursor
}

// PositiveGoal proves kb.entity(args...) as a subgoal, optionally
// capturing a plan fragment under PlanVar when the owning rule declares
// a "with" clause referencing this premise.
type PositiveGoal struct {
	KBName  string
	Entity  string
	Pattern *Tuple
	PlanVar *Variable
	Step    PlanFragment // Source/Step/HasStep/References set by the rule author; Source left blank if this premise contributes no fragment of its own
	HasPlan bool
}

func (p *PositiveGoal) eval(ctx context.Context, e *Engine, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		sub := e.proveEntity(ctx, p.KBName, p.Entity, p.Pattern, trail)
		defer sub.Close()
		for sub.Next(ctx) {
			if p.PlanVar != nil {
				trail.Bind(p.PlanVar.Name(), trail, sub.Plan(), nil)
			}
			if p.HasPlan {
				self.plan = composePlan([]*Plan{sub.Plan()}, &p.Step)
			} else {
				self.plan = sub.Plan()
			}
			if !emit() {
				return
			}
		}
		self.err = sub.Err()
	})
}

// Equal unifies A (in the rule's trail context) against B directly,
// without consulting any knowledge base — the premise form of a bare
// "==" comparison.
type Equal struct {
	A, B Term
}

func (p *Equal) eval(ctx context.Context, e *Engine, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		mark := trail.Mark()
		if Unify(trail, p.A, trail, p.B, trail) {
			if !emit() {
				trail.UndoToMark(mark)
				return
			}
		}
		trail.UndoToMark(mark)
	})
}

// Membership succeeds once for every element of Items that unifies
// against Elem, binding Elem's variables to that element on each
// success — the premise form of testing membership in a fixed, ground
// list of alternatives.
type Membership struct {
	Elem  Term
	Items []interface{}
}

func (p *Membership) eval(ctx context.Context, e *Engine, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		for _, item := range p.Items {
			mark := trail.Mark()
			if p.Elem.MatchData(trail, trail, item) {
				if !emit() {
					trail.UndoToMark(mark)
					return
				}
			}
			trail.UndoToMark(mark)
		}
	})
}

// Check runs Fn once against the rule's current bindings. It succeeds at
// most once, binding nothing. If Required is set and Fn returns false (or
// an error), the whole enclosing rule aborts with *RequiredClauseFailedError
// instead of this candidate simply failing.
type Check struct {
	Label    string
	Fn       func(trail *Context) (bool, error)
	Required bool
	RuleName string
}

func (p *Check) eval(ctx context.Context, e *Engine, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		ok, err := p.Fn(trail)
		if err != nil || !ok {
			if p.Required {
				self.err = &RequiredClauseFailedError{Rule: p.RuleName, Clause: p.Label}
			}
			return
		}
		emit()
	})
}

// Block runs Fn once for its side effect (typically an assert or an
// external call). It succeeds at most once and binds nothing on its own,
// though Fn is free to bind trail directly.
type Block struct {
	Label    string
	Fn       func(trail *Context) error
	Required bool
	RuleName string
}

func (p *Block) eval(ctx context.Context, e *Engine, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		if err := p.Fn(trail); err != nil {
			if p.Required {
				self.err = &RequiredClauseFailedError{Rule: p.RuleName, Clause: p.Label}
			}
			return
		}
		emit()
	})
}

// First enumerates Inner only up to its first success, then stops —
// a cut over that subtree. Any further successes Inner could have
// produced are never tried.
type First struct {
	Inner []Premise
}

func (p *First) eval(ctx context.Context, e *Engine, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		inner := seq(p.Inner)
		cur := inner(ctx, e, trail)
		defer cur.Close()
		if cur.Next(ctx) {
			self.plan = cur.Plan()
			self.stopped = cur.Stopped()
			self.err = cur.Err()
			emit()
		} else {
			self.stopped = cur.Stopped()
			self.err = cur.Err()
		}
	})
}

// NotAny succeeds, with no bindings, iff Inner has zero solutions
// (negation as failure, syntactic only — no occurs-check, no general
// logical negation).
type NotAny struct {
	Inner []Premise
}

func (p *NotAny) eval(ctx context.Context, e *Engine, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		mark := trail.Mark()
		inner := seq(p.Inner)
		cur := inner(ctx, e, trail)
		hasSolution := cur.Next(ctx)
		cur.Close()
		trail.UndoToMark(mark)
		self.err = cur.Err()
		if !hasSolution {
			emit()
		}
	})
}

// ForAll succeeds, with no bindings from either side, iff every solution
// of Generator makes Require succeed at least once.
type ForAll struct {
	Generator []Premise
	Require   []Premise
}

func (p *ForAll) eval(ctx context.Context, e *Engine, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		outerMark := trail.Mark()
		gen := seq(p.Generator)
		genCur := gen(ctx, e, trail)
		defer genCur.Close()

		ok := true
		for genCur.Next(ctx) {
			innerMark := trail.Mark()
			req := seq(p.Require)
			reqCur := req(ctx, e, trail)
			satisfied := reqCur.Next(ctx)
			reqCur.Close()
			trail.UndoToMark(innerMark)
			if reqCur.Err() != nil {
				self.err = reqCur.Err()
				ok = false
				break
			}
			if !satisfied {
				ok = false
				break
			}
		}
		trail.UndoToMark(outerMark)
		if self.err == nil && genCur.Err() != nil {
			self.err = genCur.Err()
			ok = false
		}
		if ok {
			emit()
		}
	})
}

// Assertion is an action an FC rule takes once its premises succeed:
// either inserting a fact into a KB's FactStore, or invoking an external
// side effect.
type Assertion interface {
	apply(e *Engine, kbName string, trail *Context) error
}

// FactAssertion inserts a ground tuple, resolved from Pattern against
// trail, under Entity in the rule's rule base.
type FactAssertion struct {
	Entity  string
	Pattern *Tuple
}

func (a *FactAssertion) apply(e *Engine, kbName string, trail *Context) error {
	data, err := a.Pattern.AsData(trail, false, nil)
	if err != nil {
		return err
	}
	tuple, _ := data.([]interface{})
	store, err := e.factStore(kbName)
	if err != nil {
		return err
	}
	_, err = store.Assert(a.Entity, tuple, true)
	return err
}

// ExternalAssertion invokes Fn for its side effect once the rule's
// premises have succeeded, passing the rule-local context so Fn can
// resolve any bound variables it needs.
type ExternalAssertion struct {
	Fn func(trail *Context) error
}

func (a *ExternalAssertion) apply(e *Engine, kbName string, trail *Context) error {
	return a.Fn(trail)
}

// FCRule is a forward-chaining rule: when every premise in Foreach
// succeeds, every assertion in Assert fires once per successful
// combination.
type FCRule struct {
	Name     string
	RuleBase string
	Foreach  []Premise
	Assert   []Assertion
}

// BCRule is a backward-chaining rule: it answers goals for Entity. Its
// Goal head pattern is unified against a caller's argument tuple, then,
// on success, its When premises are walked in order.
type BCRule struct {
	Name     string
	RuleBase string
	Entity   string
	Goal     *Tuple
	When     []Premise
	HasPlan  bool
	OwnPlan  PlanFragment
}
