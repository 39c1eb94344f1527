package pyke

// Unify attempts to make pattern a (interpreted in aCtx) and pattern b
// (interpreted in bCtx) describe the same data, recording any bindings
// this requires against trail, the controlling context. It returns false
// on failure, in which case any bindings already made during this call
// are still present in trail's undo log — callers are expected to have
// taken a Mark beforehand and to UndoToMark on failure, exactly as the
// teacher's unifier leaves substitution rollback to its caller.
//
// This is the two-sided generalization of the teacher's single
// unify(Term, Term, *Substitution) function: either side may be a
// Literal, Variable, Anonymous, or Tuple, and either side may itself
// still contain unresolved variables bound in a third context.
func Unify(trail *Context, a Term, aCtx *Context, b Term, bCtx *Context) bool {
	return a.MatchPattern(trail, aCtx, b, bCtx)
}

// UnifyData attempts to match pattern a (interpreted in aCtx) against
// already-ground Go data, as when checking a candidate fact tuple
// against a goal pattern.
func UnifyData(trail *Context, a Term, aCtx *Context, data interface{}) bool {
	return a.MatchData(trail, aCtx, data)
}
