package pyke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifyTwoPatterns(t *testing.T) {
	trail := NewContext("unify1")
	x := NewVariable("uf_x")
	ok := Unify(trail, x, trail, NewLiteral("hi"), trail)
	require.True(t, ok)

	val, err := x.AsData(trail, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", val)
}

func TestUnifyFailureLeavesCallerToUndo(t *testing.T) {
	trail := NewContext("unify2")
	mark := trail.Mark()
	ok := Unify(trail, NewLiteral(int64(1)), trail, NewLiteral(int64(2)), trail)
	assert.False(t, ok)
	trail.UndoToMark(mark) // no-op here, but exercises the expected caller contract
}

func TestUnifyDataAgainstGroundTuple(t *testing.T) {
	trail := NewContext("unify3")
	y := NewVariable("uf_y")
	pat := NewTuple([]Term{NewLiteral(int64(1)), y}, nil)

	ok := UnifyData(trail, pat, trail, []interface{}{int64(1), "bound"})
	require.True(t, ok)

	val, err := y.AsData(trail, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "bound", val)
}
