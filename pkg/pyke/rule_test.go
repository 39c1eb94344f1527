package pyke

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualPremiseUnifiesAndUndoes(t *testing.T) {
	trail := NewContext("eq")
	x := NewVariable("rp_x")
	p := &Equal{A: x, B: NewLiteral(int64(10))}

	cur := p.eval(context.Background(), nil, trail)
	defer cur.Close()
	require.True(t, cur.Next(context.Background()))

	val, err := x.AsData(trail, false, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), val)

	require.False(t, cur.Next(context.Background()))
	_, _, lookupErr := trail.Lookup(x, true)
	require.NoError(t, lookupErr)
}

func TestEqualPremiseFailsOnMismatch(t *testing.T) {
	trail := NewContext("eq2")
	p := &Equal{A: NewLiteral(int64(1)), B: NewLiteral(int64(2))}
	cur := p.eval(context.Background(), nil, trail)
	defer cur.Close()
	assert.False(t, cur.Next(context.Background()))
}

func TestMembershipPremiseEnumeratesAndUndoesBetweenSolutions(t *testing.T) {
	trail := NewContext("mem")
	elem := NewVariable("rp_elem")
	p := &Membership{Elem: elem, Items: []interface{}{"a", "b", "c"}}

	cur := p.eval(context.Background(), nil, trail)
	defer cur.Close()

	var got []interface{}
	for cur.Next(context.Background()) {
		v, err := elem.AsData(trail, false, nil)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []interface{}{"a", "b", "c"}, got)
}

func TestCheckPremiseRequiredFailureEscalates(t *testing.T) {
	trail := NewContext("chk")
	p := &Check{
		Label:    "must-hold",
		Fn:       func(trail *Context) (bool, error) { return false, nil },
		Required: true,
		RuleName: "some_rule",
	}
	cur := p.eval(context.Background(), nil, trail)
	defer cur.Close()
	assert.False(t, cur.Next(context.Background()))
	require.Error(t, cur.Err())
	var rerr *RequiredClauseFailedError
	assert.ErrorAs(t, cur.Err(), &rerr)
	assert.Equal(t, "some_rule", rerr.Rule)
}

func TestCheckPremiseOptionalFailureJustFails(t *testing.T) {
	trail := NewContext("chk2")
	p := &Check{Fn: func(trail *Context) (bool, error) { return false, nil }}
	cur := p.eval(context.Background(), nil, trail)
	defer cur.Close()
	assert.False(t, cur.Next(context.Background()))
	assert.NoError(t, cur.Err())
}

func TestBlockPremiseRunsSideEffectOnce(t *testing.T) {
	trail := NewContext("blk")
	calls := 0
	p := &Block{Fn: func(trail *Context) error { calls++; return nil }}
	cur := p.eval(context.Background(), nil, trail)
	defer cur.Close()
	require.True(t, cur.Next(context.Background()))
	assert.False(t, cur.Next(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestFirstCutsAfterFirstSuccess(t *testing.T) {
	trail := NewContext("first")
	elem := NewVariable("rp_first_elem")
	p := &First{Inner: []Premise{&Membership{Elem: elem, Items: []interface{}{"x", "y"}}}}

	cur := p.eval(context.Background(), nil, trail)
	defer cur.Close()
	require.True(t, cur.Next(context.Background()))
	val, err := elem.AsData(trail, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", val)
	assert.False(t, cur.Next(context.Background()), "First must not try the second Membership alternative")
}

func TestNotAnySucceedsOnlyWhenInnerHasNoSolutions(t *testing.T) {
	trail := NewContext("notany")
	failing := &NotAny{Inner: []Premise{&Equal{A: NewLiteral(int64(1)), B: NewLiteral(int64(2))}}}
	cur := failing.eval(context.Background(), nil, trail)
	defer cur.Close()
	assert.True(t, cur.Next(context.Background()))

	succeeding := &NotAny{Inner: []Premise{&Equal{A: NewLiteral(int64(1)), B: NewLiteral(int64(1))}}}
	cur2 := succeeding.eval(context.Background(), nil, trail)
	defer cur2.Close()
	assert.False(t, cur2.Next(context.Background()))
}

func TestNotAnyBindsNothing(t *testing.T) {
	trail := NewContext("notany2")
	x := NewVariable("rp_notany_x")
	p := &NotAny{Inner: []Premise{&Equal{A: x, B: NewLiteral(int64(1))}}}
	cur := p.eval(context.Background(), nil, trail)
	defer cur.Close()
	cur.Next(context.Background())

	val, _, err := trail.Lookup(x, true)
	require.NoError(t, err)
	_, stillVar := val.(*Variable)
	assert.True(t, stillVar, "NotAny must not leak bindings from its Inner premises")
}

func TestForAllSucceedsWhenEveryGeneratorSolutionSatisfiesRequire(t *testing.T) {
	trail := NewContext("forall")
	elem := NewVariable("rp_forall_elem")
	gen := []Premise{&Membership{Elem: elem, Items: []interface{}{int64(2), int64(4), int64(6)}}}
	require_ := []Premise{&Check{Fn: func(trail *Context) (bool, error) {
		v, err := elem.AsData(trail, false, nil)
		if err != nil {
			return false, err
		}
		return v.(int64)%2 == 0, nil
	}}}

	p := &ForAll{Generator: gen, Require: require_}
	cur := p.eval(context.Background(), nil, trail)
	defer cur.Close()
	assert.True(t, cur.Next(context.Background()))
}

func TestForAllFailsWhenOneGeneratorSolutionFailsRequire(t *testing.T) {
	trail := NewContext("forall2")
	elem := NewVariable("rp_forall_elem2")
	gen := []Premise{&Membership{Elem: elem, Items: []interface{}{int64(2), int64(3), int64(6)}}}
	require_ := []Premise{&Check{Fn: func(trail *Context) (bool, error) {
		v, err := elem.AsData(trail, false, nil)
		if err != nil {
			return false, err
		}
		return v.(int64)%2 == 0, nil
	}}}

	p := &ForAll{Generator: gen, Require: require_}
	cur := p.eval(context.Background(), nil, trail)
	defer cur.Close()
	assert.False(t, cur.Next(context.Background()))
}
