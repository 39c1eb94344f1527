package pyke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextBindAndLookup(t *testing.T) {
	ctx := NewContext("c1")
	ctx.Bind("a", ctx, int64(42), nil)

	val, where, err := ctx.Lookup(NewVariable("a"), true)
	require.NoError(t, err)
	assert.Nil(t, where)
	assert.Equal(t, int64(42), val)
}

func TestContextLookupUnboundReturnsVariable(t *testing.T) {
	ctx := NewContext("c2")
	v := NewVariable("never_bound")
	val, where, err := ctx.Lookup(v, true)
	require.NoError(t, err)
	assert.Same(t, ctx, where)
	assert.Equal(t, v, val)
}

func TestContextMarkUndoToMark(t *testing.T) {
	ctx := NewContext("c3")
	ctx.Bind("mark_a", ctx, int64(1), nil)
	mark := ctx.Mark()
	ctx.Bind("mark_b", ctx, int64(2), nil)

	ctx.UndoToMark(mark)

	val, _, err := ctx.Lookup(NewVariable("mark_a"), true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val, "bindings made before the mark survive UndoToMark")

	val, _, err = ctx.Lookup(NewVariable("mark_b"), true)
	require.NoError(t, err)
	_, stillVar := val.(*Variable)
	assert.True(t, stillVar, "bindings made after the mark are undone")
}

func TestContextUndoRestoresPriorBinding(t *testing.T) {
	ctx := NewContext("c4")
	v := NewVariable("reboundvar")
	ctx.Bind(v.Name(), ctx, int64(1), nil)
	mark := ctx.Mark()
	ctx.Bind(v.Name(), ctx, int64(2), nil)

	val, _, err := ctx.Lookup(v, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), val)

	ctx.UndoToMark(mark)
	val, _, err = ctx.Lookup(v, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

func TestContextDoneFullyUnwinds(t *testing.T) {
	ctx := NewContext("c5")
	v := NewVariable("donevar")
	ctx.Bind(v.Name(), ctx, int64(7), nil)
	ctx.Done()

	val, _, err := ctx.Lookup(v, true)
	require.NoError(t, err)
	_, stillVar := val.(*Variable)
	assert.True(t, stillVar, "Done must undo every binding the context ever made")
}

func TestLookupUnboundReturnsChainEndVariableNotOriginal(t *testing.T) {
	ctx := NewContext("chainend")
	ctx.Bind("x", ctx, NewVariable("y"), ctx)

	val, where, err := ctx.Lookup(NewVariable("x"), true)
	require.NoError(t, err)
	assert.Same(t, ctx, where)

	v, ok := val.(*Variable)
	require.True(t, ok)
	assert.Equal(t, "y", v.Name(), "Lookup must return the variable at the chain's current position, not the original query variable")
}

func TestBindSelfReferenceIsNoOp(t *testing.T) {
	ctx := NewContext("selfbind")
	x := NewVariable("selfvar")
	mark := ctx.Mark()

	ctx.Bind(x.Name(), ctx, x, ctx)

	val, where, err := ctx.Lookup(x, true)
	require.NoError(t, err)
	assert.Same(t, ctx, where)
	assert.Equal(t, x, val, "binding a variable to itself must be a no-op, not a self-referential chain")
	assert.Equal(t, mark, ctx.Mark(), "a no-op self-bind must not log an undo entry")
}

func TestContextBindCrossContextLogsOnController(t *testing.T) {
	owner := NewContext("owner")
	controller := NewContext("controller")

	mark := controller.Mark()
	v := NewVariable("crossvar")
	controller.Bind(v.Name(), owner, "value", nil)

	val, where, err := owner.Lookup(v, true)
	require.NoError(t, err)
	assert.Nil(t, where)
	assert.Equal(t, "value", val)

	controller.UndoToMark(mark)
	val, _, err = owner.Lookup(v, true)
	require.NoError(t, err)
	_, stillVar := val.(*Variable)
	assert.True(t, stillVar, "undoing the controller must roll back the owner's binding too")
}

func TestEndSaveAllUndoMakesBindingsPermanent(t *testing.T) {
	ctx := NewContext("permanent")
	v := NewVariable("permvar")
	mark := ctx.Mark()
	ctx.EndSaveAllUndo()
	ctx.Bind(v.Name(), ctx, int64(5), nil)

	// Binding after EndSaveAllUndo is not logged, so winding back to the
	// pre-call mark must not disturb it.
	ctx.UndoToMark(mark)
	val, _, err := ctx.Lookup(v, true)
	require.NoError(t, err)
	assert.Equal(t, int64(5), val)
}
