package pyke

import (
	"context"
	"sync/atomic"
)

// proveEntity dispatches entity(pattern...) to the named knowledge base
// and returns a Cursor enumerating its successes. It is the single
// choke point every PositiveGoal premise and every top-level
// Engine.ProveGoal call goes through, which is what makes a claim_goal
// signal's scope exactly "one KnowledgeBase.Prove call for one goal": the
// stopped flag set deep inside a rule's premise tree is consulted right
// here and ends this goal's enumeration. It is also copied onto the
// returned cursor, but PositiveGoal never reads it, so it does not
// surface to whatever premise invoked this goal as a subgoal.
func (e *Engine) proveEntity(ctx context.Context, kbName, entity string, pattern *Tuple, trail *Context) *Cursor {
	atomic.AddInt64(&e.stats.NumProveCalls, 1)

	kb, err := e.kb(kbName)
	if err != nil {
		return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
			self.err = err
		})
	}

	inner := kb.Prove(ctx, entity, pattern, trail)
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		defer inner.Close()
		for inner.Next(ctx) {
			self.plan = inner.Plan()
			if !emit() {
				return
			}
			if inner.Stopped() {
				self.stopped = true
				return
			}
		}
		if inner.Stopped() {
			self.stopped = true
		}
		self.err = inner.Err()
	})
}

// tryBCRule attempts a single BCRule as a candidate for a goal: it
// allocates the rule's own local Context (the controlling context for
// the rule's whole body, per the contexts.py doctest convention), unifies
// the rule's Goal head against pattern, and, on success, walks When in
// order via seq. The rule-local context is released (Done) once this
// cursor is exhausted or closed, undoing every binding it ever made.
func (e *Engine) tryBCRule(ctx context.Context, rule *BCRule, pattern *Tuple, trail *Context) *Cursor {
	atomic.AddInt64(&e.stats.NumBCRulesMatched, 1)

	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		r := NewContext(rule.RuleBase + "." + rule.Name)
		defer r.Done()

		if rule.Goal.Rest() == nil && pattern.Rest() == nil && rule.Goal.Arity() != pattern.Arity() {
			atomic.AddInt64(&e.stats.NumBCRuleFailures, 1)
			self.err = &ArityMismatchError{Expected: rule.Goal.Arity(), Got: pattern.Arity(), Context: "goal head of rule " + rule.RuleBase + "." + rule.Name}
			return
		}

		headMark := r.Mark()
		if !Unify(r, rule.Goal, r, pattern, trail) {
			r.UndoToMark(headMark)
			atomic.AddInt64(&e.stats.NumBCRuleFailures, 1)
			return
		}

		body := seq(rule.When)
		cur := body(ctx, e, r)
		defer cur.Close()

		succeeded := false
		for cur.Next(ctx) {
			succeeded = true
			atomic.AddInt64(&e.stats.NumBCRuleSuccesses, 1)
			if rule.HasPlan {
				self.plan = composePlan([]*Plan{cur.Plan()}, &rule.OwnPlan)
			} else {
				self.plan = cur.Plan()
			}
			if !emit() {
				return
			}
			if cur.Stopped() {
				self.stopped = true
				return
			}
		}
		if !succeeded {
			atomic.AddInt64(&e.stats.NumBCRuleFailures, 1)
		}
		if cur.Stopped() {
			self.stopped = true
		}
		self.err = cur.Err()
		r.UndoToMark(headMark)
	})
}
