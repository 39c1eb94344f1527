package pyke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGoalNoArgs(t *testing.T) {
	kbName, entity, args, err := parseGoal("kb.entity()")
	require.NoError(t, err)
	assert.Equal(t, "kb", kbName)
	assert.Equal(t, "entity", entity)
	assert.Nil(t, args)
}

func TestParseGoalMixedArgTypes(t *testing.T) {
	kbName, entity, args, err := parseGoal(`family.parent($p, "bart", 42, 3.5, true, null, $_ignored)`)
	require.NoError(t, err)
	assert.Equal(t, "family", kbName)
	assert.Equal(t, "parent", entity)
	require.Len(t, args, 7)

	v, ok := args[0].(*Variable)
	require.True(t, ok)
	assert.Equal(t, "p", v.Name())

	lit, ok := args[1].(*Literal)
	require.True(t, ok)
	assert.Equal(t, "bart", lit.Value())

	assert.Equal(t, int64(42), args[2].(*Literal).Value())
	assert.Equal(t, 3.5, args[3].(*Literal).Value())
	assert.Equal(t, true, args[4].(*Literal).Value())
	assert.Nil(t, args[5].(*Literal).Value())

	anon, ok := args[6].(*Anonymous)
	require.True(t, ok)
	assert.Equal(t, "_ignored", anon.Name())
}

func TestParseGoalMissingDotErrors(t *testing.T) {
	_, _, _, err := parseGoal("entity(1)")
	assert.Error(t, err)
}

func TestParseGoalMalformedParensErrors(t *testing.T) {
	_, _, _, err := parseGoal("kb.entity(1")
	assert.Error(t, err)
}

func TestSplitArgsIgnoresCommasInsideParens(t *testing.T) {
	parts := splitArgs(`$x, foo(1, 2), "a,b"`)
	require.Len(t, parts, 3)
	assert.Equal(t, ` foo(1, 2)`, parts[1])
}
