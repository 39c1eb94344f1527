package pyke

import "context"

// goalFunc is a compiled goal: given a trail/rule-local context, it
// returns a Cursor enumerating every way that goal can succeed. Every
// Premise compiles to a goalFunc via eval; combinators in this file
// compose goalFuncs the way the teacher's control_flow.go composes
// Goal values, but sequentially and in registration order rather than
// by fanning branches out across goroutines.
type goalFunc func(ctx context.Context, e *Engine, trail *Context) *Cursor

// seq conjoins premises left to right: the resulting goalFunc succeeds
// once for every combination of successes across all premises, trying
// alternatives of the rightmost premise first (standard Prolog-style
// backtracking order), and composes each combination's plan fragments
// in premise order.
func seq(premises []Premise) goalFunc {
	return func(ctx context.Context, e *Engine, trail *Context) *Cursor {
		return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
			seqWalk(ctx, e, trail, premises, nil, self, emit)
		})
	}
}

// seqWalk recursively walks premises, accumulating the Plan each already
// proved premise captured, and calls emit once all premises have
// succeeded for the current combination of bindings. It returns false
// once the caller (via emit) has signalled it wants no more solutions,
// so outer recursion levels stop trying further alternatives too.
func seqWalk(ctx context.Context, e *Engine, trail *Context, premises []Premise, plans []*Plan, self *Cursor, emit func() bool) bool {
	if len(premises) == 0 {
		self.plan = composePlan(plans, nil)
		return emit()
	}

	cur := premises[0].eval(ctx, e, trail)
	defer cur.Close()

	for cur.Next(ctx) {
		keepGoing := seqWalk(ctx, e, trail, premises[1:], append(plans, cur.Plan()), self, emit)
		if cur.Stopped() {
			self.stopped = true
		}
		if cur.Err() != nil {
			self.err = cur.Err()
		}
		if !keepGoing || self.stopped || self.err != nil {
			return false
		}
	}
	if cur.Stopped() {
		self.stopped = true
		return false
	}
	if cur.Err() != nil {
		self.err = cur.Err()
		return false
	}
	return true
}

// disjOrdered tries each branch's goalFunc in order, exhausting one
// branch's alternatives entirely before moving to the next — the
// sequential analogue of the teacher's concurrently-fanned Disj/Conde.
// Used by the backward-chaining prover to try a goal's matching BCRule
// candidates in registration order.
func disjOrdered(branches []goalFunc) goalFunc {
	return func(ctx context.Context, e *Engine, trail *Context) *Cursor {
		return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
			for _, branch := range branches {
				cur := branch(ctx, e, trail)
				for cur.Next(ctx) {
					self.plan = cur.Plan()
					if !emit() {
						cur.Close()
						return
					}
				}
				stopped := cur.Stopped()
				err := cur.Err()
				cur.Close()
				if err != nil {
					self.err = err
					return
				}
				if stopped {
					self.stopped = true
					return
				}
			}
		})
	}
}
