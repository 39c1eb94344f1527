package pyke

import "context"

// RunForward drives every FCRule registered on rb to quiescence (§4.5):
// each pass attempts every rule's Foreach premise conjunction against
// the current FactStore, firing Assert for each successful combination,
// and the driver repeats until a full pass asserts nothing new. It
// returns how many individual rule firings occurred across every pass,
// the value folded into Stats.NumFCRulesTriggered by Engine.Activate.
//
// Modeled on the teacher's tabling.go fixpoint-iteration idiom
// (AnswerTrie/SubgoalTable convergence loop), generalized here from
// memoized-answer convergence to fact-store convergence: rb's own
// FactStore.factCount before and after a pass is the convergence signal
// instead of a table's answer count.
func (e *Engine) RunForward(ctx context.Context, rb *RuleBaseKB) (int, error) {
	totalFirings := 0

	for {
		before := rb.store.factCount()
		passFirings := 0

		for _, rule := range rb.fcRules {
			n, err := e.fireFCRule(ctx, rb, rule)
			if err != nil {
				return totalFirings, wrapf(err, "firing rule %q", rule.Name)
			}
			passFirings += n
		}

		totalFirings += passFirings
		if rb.store.factCount() == before {
			break
		}
	}

	return totalFirings, nil
}

// fireFCRule enumerates every combination of successes across rule's
// Foreach premises (using the same seq-conjunction walker BC rule
// bodies use, per §4.5 "use the same resumable-iterator contract as
// BC") and applies every Assertion once per combination. It returns the
// number of combinations that fired.
func (e *Engine) fireFCRule(ctx context.Context, rb *RuleBaseKB, rule *FCRule) (int, error) {
	trail := NewContext(rule.RuleBase + "." + rule.Name + ".foreach")
	defer trail.Done()

	body := seq(rule.Foreach)
	cur := body(ctx, e, trail)
	defer cur.Close()

	fired := 0
	for cur.Next(ctx) {
		for _, assertion := range rule.Assert {
			if err := assertion.apply(e, rb.name, trail); err != nil {
				return fired, err
			}
		}
		fired++
	}
	return fired, cur.Err()
}
