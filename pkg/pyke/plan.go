package pyke

import (
	"sort"
	"strings"
)

// PlanFragment is one piece of a proof plan: a rendering of the premise
// that produced it (the "source" text a premise author wrote, such as
// the name and bound arguments of a subgoal), an optional explicit step
// number (premises may say "step 3:" to force ordering), and the names
// of variables the fragment's source text references, which the owning
// rule's declared premises resolve at composition time.
type PlanFragment struct {
	Step       int
	HasStep    bool
	Source     string
	References []string
}

// Plan is a composed sequence of plan fragments, gathered in step order
// (explicitly numbered fragments first, ordered by number, then
// unnumbered fragments in the order their premises ran) and rendered as
// readable, ground proof text — the Go analogue of the original
// system's "plan rule" bookkeeping, which narrates how a backward-chain
// derivation reached its answer.
type Plan struct {
	Fragments []PlanFragment
}

// composePlan merges subordinate plans captured by a rule's own premises
// (in left-to-right premise order) with any fragment the rule itself
// contributes, producing the single Plan that rule candidate yields on
// success. Fragments carrying an explicit step number are sorted ahead
// of unnumbered ones, by that number; unnumbered fragments keep their
// relative order of appearance.
func composePlan(subPlans []*Plan, own *PlanFragment) *Plan {
	var all []PlanFragment
	for _, p := range subPlans {
		if p != nil {
			all = append(all, p.Fragments...)
		}
	}
	if own != nil {
		all = append(all, *own)
	}
	if len(all) == 0 {
		return nil
	}

	numbered := make([]PlanFragment, 0, len(all))
	unnumbered := make([]PlanFragment, 0, len(all))
	for _, f := range all {
		if f.HasStep {
			numbered = append(numbered, f)
		} else {
			unnumbered = append(unnumbered, f)
		}
	}
	sort.SliceStable(numbered, func(i, j int) bool { return numbered[i].Step < numbered[j].Step })

	merged := make([]PlanFragment, 0, len(all))
	merged = append(merged, numbered...)
	merged = append(merged, unnumbered...)
	return &Plan{Fragments: merged}
}

// String renders the plan as newline-separated proof steps, in the
// fragment order composePlan settled on, regardless of what step number
// (if any) a fragment originally carried.
func (p *Plan) String() string {
	if p == nil || len(p.Fragments) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range p.Fragments {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Source)
	}
	return b.String()
}
