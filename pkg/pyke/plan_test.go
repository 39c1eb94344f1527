package pyke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposePlanNilWhenEmpty(t *testing.T) {
	assert.Nil(t, composePlan(nil, nil))
}

func TestComposePlanOrdersNumberedBeforeUnnumbered(t *testing.T) {
	sub1 := &Plan{Fragments: []PlanFragment{{Source: "first unnumbered"}}}
	sub2 := &Plan{Fragments: []PlanFragment{{Step: 2, HasStep: true, Source: "step two"}}}
	own := &PlanFragment{Step: 1, HasStep: true, Source: "step one"}

	plan := composePlan([]*Plan{sub1, sub2}, own)
	require.NotNil(t, plan)
	require.Len(t, plan.Fragments, 3)

	assert.Equal(t, "step one", plan.Fragments[0].Source)
	assert.Equal(t, "step two", plan.Fragments[1].Source)
	assert.Equal(t, "first unnumbered", plan.Fragments[2].Source)
}

func TestComposePlanUnnumberedKeepAppearanceOrder(t *testing.T) {
	sub1 := &Plan{Fragments: []PlanFragment{{Source: "a"}, {Source: "b"}}}
	sub2 := &Plan{Fragments: []PlanFragment{{Source: "c"}}}

	plan := composePlan([]*Plan{sub1, sub2}, nil)
	require.NotNil(t, plan)
	require.Len(t, plan.Fragments, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{
		plan.Fragments[0].Source, plan.Fragments[1].Source, plan.Fragments[2].Source,
	})
}

func TestPlanStringJoinsFragmentsWithNewlines(t *testing.T) {
	plan := &Plan{Fragments: []PlanFragment{{Source: "one"}, {Source: "two"}}}
	assert.Equal(t, "one\ntwo", plan.String())
}

func TestPlanStringNilIsEmpty(t *testing.T) {
	var plan *Plan
	assert.Equal(t, "", plan.String())
}
