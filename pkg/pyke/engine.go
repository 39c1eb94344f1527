package pyke

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Stats holds the counters §4.7/§6 require the Engine to expose:
// num_fc_rules_triggered, num_bc_rules_matched, num_bc_rule_successes,
// num_bc_rule_failures, num_prove_calls. Every field is updated with
// sync/atomic so a caller reading Stats concurrently with an in-flight
// proof (from another goroutine, e.g. a monitoring endpoint) never
// observes a torn value, even though proof search itself never runs two
// goals at once.
type Stats struct {
	NumFCRulesTriggered int64
	NumBCRulesMatched   int64
	NumBCRuleSuccesses  int64
	NumBCRuleFailures   int64
	NumProveCalls       int64
}

// snapshot returns a copy of s safe to hand to a caller.
func (s *Stats) snapshot() Stats {
	return Stats{
		NumFCRulesTriggered: atomic.LoadInt64(&s.NumFCRulesTriggered),
		NumBCRulesMatched:   atomic.LoadInt64(&s.NumBCRulesMatched),
		NumBCRuleSuccesses:  atomic.LoadInt64(&s.NumBCRuleSuccesses),
		NumBCRuleFailures:   atomic.LoadInt64(&s.NumBCRuleFailures),
		NumProveCalls:       atomic.LoadInt64(&s.NumProveCalls),
	}
}

// Engine owns every KnowledgeBase in a running system and is the single
// dispatch point §4.7 describes: it routes prove/lookup/assert requests
// to the right backend (fact store, BC rule base, or the special-
// predicates pseudo-KB), runs forward-chaining closure on activation,
// and tracks the statistics counters described in §6.
//
// Modeled on the teacher's highlevel_api.go convenience layer over its
// raw Goal/Stream primitives, generalized from a single global store to
// a registry of named knowledge bases.
type Engine struct {
	mu        sync.Mutex
	kbs       map[string]KnowledgeBase
	rbs       map[string]*RuleBaseKB
	activated map[string]bool

	special *specialKB

	stats Stats

	logger hclog.Logger
}

// NewEngine creates an empty Engine with no registered knowledge bases
// except the built-in special-predicates KB (§4.8). logger is used as
// the base for per-component named sub-loggers the way nomad's server
// and client wire one logger.Named(...) child per subsystem; pass
// hclog.NewNullLogger() in tests that don't care about log output.
func NewEngine(logger hclog.Logger) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := &Engine{
		kbs:       make(map[string]KnowledgeBase),
		rbs:       make(map[string]*RuleBaseKB),
		activated: make(map[string]bool),
		logger:    logger.Named("engine"),
	}
	e.special = newSpecialKB(e, logger.Named("special"))
	e.kbs[e.special.Name()] = e.special
	return e
}

// GetKB returns the knowledge base registered under name, or an error if
// none exists.
func (e *Engine) GetKB(name string) (KnowledgeBase, error) {
	return e.kb(name)
}

func (e *Engine) kb(name string) (KnowledgeBase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kb, ok := e.kbs[name]
	if !ok {
		return nil, fmt.Errorf("pyke: unknown knowledge base %q", name)
	}
	return kb, nil
}

// factStore returns the FactStore backing the named knowledge base,
// whether it is a plain FactKB or a RuleBaseKB's own store — both
// FactAssertion (an FC rule asserting into its own rule base) and Assert
// need a fact-capable KB of either shape, not just a bare FactKB.
func (e *Engine) factStore(name string) (*FactStore, error) {
	kb, err := e.kb(name)
	if err != nil {
		return nil, err
	}
	switch k := kb.(type) {
	case *FactKB:
		return k.store, nil
	case *RuleBaseKB:
		return k.store, nil
	default:
		return nil, &InconsistentKBError{KB: name, Reason: "knowledge base does not hold facts"}
	}
}

// GetCreateFactKB returns the named FactKB, creating it if it does not
// yet exist. Idempotent: calling it twice for the same name returns the
// same instance.
func (e *Engine) GetCreateFactKB(name string) *FactKB {
	e.mu.Lock()
	defer e.mu.Unlock()
	if kb, ok := e.kbs[name]; ok {
		if fkb, ok := kb.(*FactKB); ok {
			return fkb
		}
	}
	fkb := NewFactKB(name)
	e.kbs[name] = fkb
	return fkb
}

// GetCreateRuleBase returns the named RuleBaseKB, creating it (with the
// given parent and excludedSymbols) if it does not yet exist. If name
// already names a plain FactKB, the new rule base takes over that
// FactKB's facts. A second call naming a different parent or exclusion
// set fails with *InconsistentKBError, per §4.7's "re-registering must
// be consistent with prior declaration" contract.
func (e *Engine) GetCreateRuleBase(name string, parent string, excludedSymbols []string) (*RuleBaseKB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rb, ok := e.rbs[name]; ok {
		if rb.parentName != parent || !sameSet(rb.excludedSymbols, excludedSymbols) {
			return nil, &InconsistentKBError{
				KB:     name,
				Reason: fmt.Sprintf("rule base already declared with parent %q (excluding %v); re-registration requested parent %q (excluding %v)", rb.parentName, rb.excludedSymbols, parent, excludedSymbols),
			}
		}
		return rb, nil
	}

	var parentKB *RuleBaseKB
	if parent != "" {
		p, ok := e.rbs[parent]
		if !ok {
			return nil, &InconsistentKBError{KB: name, Reason: fmt.Sprintf("parent rule base %q not yet registered", parent)}
		}
		parentKB = p
	}

	rb := NewRuleBaseKB(name, parentKB)
	if fkb, ok := e.kbs[name].(*FactKB); ok {
		rb.store = fkb.store
	}
	rb.parentName = parent
	rb.excludedSymbols = append([]string(nil), excludedSymbols...)
	rb.engine = e
	e.rbs[name] = rb
	e.kbs[name] = rb
	return rb, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			return false
		}
	}
	return true
}

// RegisterRule adds rec to the named rule base, creating the rule base
// (with no parent) if it does not already exist.
func (e *Engine) RegisterRule(rbName string, rec RuleRecord) error {
	e.mu.Lock()
	rb, ok := e.rbs[rbName]
	e.mu.Unlock()
	if !ok {
		var err error
		rb, err = e.GetCreateRuleBase(rbName, "", nil)
		if err != nil {
			return wrapf(err, "registering rule %q in rule base %q", rec.Name, rbName)
		}
	}

	switch rec.Kind {
	case FC:
		rb.addFCRule(&FCRule{
			Name:     rec.Name,
			RuleBase: rbName,
			Foreach:  rec.Premises,
			Assert:   rec.Assertions,
		})
	case BC:
		bc := &BCRule{
			Name:     rec.Name,
			RuleBase: rbName,
			Entity:   rec.Entity,
			Goal:     rec.GoalPatterns,
			When:     rec.When,
		}
		if rec.Plan != nil {
			bc.HasPlan = true
			bc.OwnPlan = *rec.Plan
		}
		rb.addBCRule(bc)
	default:
		return &ArityMismatchError{Context: fmt.Sprintf("unknown rule kind for rule %q", rec.Name)}
	}
	return nil
}

// RegisterRules registers a batch of rule records in one call, the shape
// the (external) rule-base compiler actually hands the engine once a
// `.krb` source file compiles to more than one rule. Unlike RegisterRule,
// a failure on one record does not stop the batch: every record is
// attempted, and every failure (such as the ArityMismatch RegisterRule
// returns for a record of unknown kind) is collected into a single
// *multierror.Error, so the caller sees every problem in the batch at
// once instead of just the first — the batch-registration aggregation
// §7 and SPEC_FULL.md §1.1 call for go-multierror to cover.
func (e *Engine) RegisterRules(rbName string, recs []RuleRecord) error {
	var result *multierror.Error
	for _, rec := range recs {
		if err := e.RegisterRule(rbName, rec); err != nil {
			result = appendErr(result, err)
		}
	}
	return result.ErrorOrNil()
}

// AddUniversalFact asserts a ground fact that survives Reset, per §6's
// "consumed from the fact loader" contract. kbName may name either a
// plain FactKB or a RuleBaseKB; it is created as a FactKB if unknown.
func (e *Engine) AddUniversalFact(kbName, entity string, tuple []interface{}) error {
	e.mu.Lock()
	_, ok := e.kbs[kbName]
	e.mu.Unlock()

	store, err := e.factStore(kbName)
	if err != nil {
		if ok {
			return err
		}
		store = e.GetCreateFactKB(kbName).store
	}

	_, err = store.Assert(entity, tuple, false)
	return err
}

// Assert inserts a case-specific fact into the named knowledge base, as
// an FC rule's assertion or a caller reacting to a proof does mid-session
// (§4.7 "assert"). Like AddUniversalFact, it creates kbName as a FactKB
// if unknown.
func (e *Engine) Assert(kbName, entity string, args []interface{}) error {
	e.mu.Lock()
	_, ok := e.kbs[kbName]
	e.mu.Unlock()

	store, err := e.factStore(kbName)
	if err != nil {
		if ok {
			return err
		}
		store = e.GetCreateFactKB(kbName).store
	}
	_, err = store.Assert(entity, args, true)
	return err
}

// Activate runs the forward-chaining closure of rbName and, recursively,
// every ancestor in its parent chain (innermost ancestor first, per
// §4.7), then marks rbName activated so a repeat call is a no-op —
// the idempotent-flag guard §5 requires ("re-activation is a no-op").
func (e *Engine) Activate(ctx context.Context, rbName string) error {
	e.mu.Lock()
	rb, ok := e.rbs[rbName]
	already := e.activated[rbName]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("pyke: unknown rule base %q", rbName)
	}
	if already {
		return nil
	}

	if rb.parent != nil {
		if err := e.Activate(ctx, rb.parent.name); err != nil {
			return err
		}
	}

	e.logger.Debug("activating rule base", "rule_base", rbName)
	triggered, err := e.RunForward(ctx, rb)
	atomic.AddInt64(&e.stats.NumFCRulesTriggered, int64(triggered))
	if err != nil {
		return wrapf(err, "activating rule base %q", rbName)
	}

	e.mu.Lock()
	e.activated[rbName] = true
	e.mu.Unlock()
	e.logger.Info("rule base activated", "rule_base", rbName, "fc_rules_triggered", triggered)
	return nil
}

// ProveGoal is the application-facing entry point of §6:
// prove_goal(goal_string_or_structure, **bindings) -> iterator of
// (bindings_dict, plan_or_none). It parses goal (the flat
// "kb.entity(arg, ...)" shape described in SPEC_FULL.md §6), binds any
// caller-supplied initial bindings into a fresh top-level Context, and
// returns a *Solution resolving each of the goal's own variables back to
// ground data on every success.
func (e *Engine) ProveGoal(ctx context.Context, goal string, bindings map[string]interface{}) (*Solution, error) {
	kbName, entity, args, err := parseGoal(goal)
	if err != nil {
		return nil, err
	}

	top := NewContext("prove_goal:" + goal)
	for name, val := range bindings {
		top.Bind(name, top, val, nil)
	}

	names := goalVariableNames(args)
	cur := e.proveEntity(ctx, kbName, entity, NewTuple(args, nil), top)
	return &Solution{cur: cur, top: top, names: names}, nil
}

// goalVariableNames collects the name of every non-anonymous Variable
// appearing at the top level of a parsed goal's argument list, in
// first-appearance order with duplicates removed — the set Solution.
// Bindings resolves on each success.
func goalVariableNames(args []Term) []string {
	var names []string
	seen := make(map[string]bool)
	for _, a := range args {
		v, ok := a.(*Variable)
		if !ok || seen[v.Name()] {
			continue
		}
		seen[v.Name()] = true
		names = append(names, v.Name())
	}
	return names
}

// Solution is the resumable result of ProveGoal: each Next advances to
// the next way the goal can succeed, after which Bindings and Plan
// describe that success. Modeled on the "thin wrapper over the lower-level
// primitives" shape of the teacher's highlevel_api.go, generalized here
// from a plain bindings map to one that also carries the captured proof
// plan.
type Solution struct {
	cur   *Cursor
	top   *Context
	names []string
}

// Next advances to the next success, returning false once the goal is
// exhausted or ctx is cancelled.
func (s *Solution) Next(ctx context.Context) bool { return s.cur.Next(ctx) }

// Bindings resolves every variable named in the original goal string to
// ground data as of the current success. An unbound variable is rendered
// as the "$name" placeholder rather than raising *UnboundVariableError,
// since a goal may legitimately leave some of its own variables free.
func (s *Solution) Bindings() (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(s.names))
	for _, name := range s.names {
		val, err := s.top.LookupData(name, true, nil)
		if err != nil {
			return nil, err
		}
		result[name] = val
	}
	return result, nil
}

// Plan returns the proof plan captured by the current success, or nil.
func (s *Solution) Plan() *Plan { return s.cur.Plan() }

// Err returns an error (such as a *RequiredClauseFailedError or an
// *ExternalError) detected while producing the current or a prior
// success, if any.
func (s *Solution) Err() error { return s.cur.Err() }

// Close abandons the solution, unwinding its underlying proof attempt.
func (s *Solution) Close() { s.cur.Close() }

// Prove proves kb.entity(pattern...) against trail directly, without the
// goal-string convenience parsing ProveGoal performs. It is the exported
// form of proveEntity, the dispatch every PositiveGoal premise uses.
func (e *Engine) Prove(ctx context.Context, kbName, entity string, pattern *Tuple, trail *Context) *Cursor {
	return e.proveEntity(ctx, kbName, entity, pattern, trail)
}

// Reset clears every case-specific fact, deactivates every rule base,
// and zeroes the statistics counters — §4.7's reset() contract. Universal
// facts are untouched.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, kb := range e.kbs {
		switch k := kb.(type) {
		case *FactKB:
			k.store.ClearCaseSpecific()
		case *RuleBaseKB:
			k.store.ClearCaseSpecific()
		}
	}
	for name := range e.activated {
		delete(e.activated, name)
	}
	e.stats = Stats{}
	e.logger.Debug("engine reset")
}

// Stats returns a point-in-time snapshot of the Engine's statistics
// counters (§6).
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// RuleRecord is the registration-time shape the external rule-base
// compiler hands the Engine (§6): either an FC rule's foreach/assert
// pair or a BC rule's goal/when/optional-plan triple.
type RuleRecord struct {
	Kind         RuleKind
	Name         string
	Entity       string
	GoalPatterns *Tuple
	Premises     []Premise   // FC only (foreach)
	Assertions   []Assertion // FC only
	When         []Premise   // BC only
	Plan         *PlanFragment
}
