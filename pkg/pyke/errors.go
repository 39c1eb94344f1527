package pyke

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// UnboundVariableError is returned when AsData (or a caller expecting
// fully ground data, such as an assertion or an external command
// argument) encounters a variable with no binding.
type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("pyke: variable %q is not bound to data", e.Name)
}

// ArityMismatchError is returned when a goal pattern and a BC rule's goal
// head, neither having a rest variable, disagree on arity, and by
// RegisterRule for a rule record of unknown kind.
type ArityMismatchError struct {
	Expected int
	Got      int
	Context  string
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("pyke: %s: expected arity %d, got %d", e.Context, e.Expected, e.Got)
}

// InconsistentKBError reports that a fact store or rule base was asked
// to do something that would leave the knowledge base in a contradictory
// state, such as asserting a fact with the wrong arity for its name.
type InconsistentKBError struct {
	KB     string
	Reason string
}

func (e *InconsistentKBError) Error() string {
	return fmt.Sprintf("pyke: inconsistent knowledge base %q: %s", e.KB, e.Reason)
}

// RequiredClauseFailedError reports that a rule's with_clause (a Check or
// Block premise flagged as required) did not hold, aborting the whole
// rule rather than merely failing this candidate.
type RequiredClauseFailedError struct {
	Rule   string
	Clause string
}

func (e *RequiredClauseFailedError) Error() string {
	return fmt.Sprintf("pyke: rule %q: required clause %q failed", e.Rule, e.Clause)
}

// PlanError reports a problem synthesizing or composing a proof plan.
// No function in this package returns it: a plan-capturing premise whose
// subgoal proof produced no plan (for example because that goal was
// proved entirely from facts) binds a nil *Plan, and composePlan orders
// fragments sharing a step number stably rather than rejecting them.
type PlanError struct {
	Reason string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("pyke: plan composition error: %s", e.Reason)
}

// ExternalError wraps a failure surfaced by a CommandRunner invoking an
// external command special predicate.
type ExternalError struct {
	Command string
	Cause   error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("pyke: external command %q failed: %v", e.Command, e.Cause)
}

func (e *ExternalError) Unwrap() error { return e.Cause }

// wrapf is a thin helper around pkg/errors.Wrapf kept in one place so
// every call site in the package adds stack context the same way.
func wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// appendErr folds err into a *multierror.Error accumulator, creating one
// if acc is nil. Used where §7 allows more than one failure to coexist:
// Engine.RegisterRules reports every record of a batch that failed to
// register instead of stopping at the first.
func appendErr(acc *multierror.Error, err error) *multierror.Error {
	if err == nil {
		return acc
	}
	return multierror.Append(acc, err)
}
