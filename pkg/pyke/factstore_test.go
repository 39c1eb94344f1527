package pyke

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactStoreAssertAndCount(t *testing.T) {
	fs := NewFactStore()
	_, err := fs.Assert("parent", []interface{}{"alice", "bob"}, false)
	require.NoError(t, err)
	_, err = fs.Assert("parent", []interface{}{"bob", "carol"}, true)
	require.NoError(t, err)

	assert.Equal(t, 2, fs.Count("parent"))
}

func TestFactStoreAssertSameTupleTwiceIsIdempotent(t *testing.T) {
	fs := NewFactStore()
	f1, err := fs.Assert("parent", []interface{}{"alice", "bob"}, false)
	require.NoError(t, err)
	f2, err := fs.Assert("parent", []interface{}{"alice", "bob"}, false)
	require.NoError(t, err)

	assert.Same(t, f1, f2)
	assert.Equal(t, 1, fs.Count("parent"))
}

func TestFactStoreArityMismatchRejected(t *testing.T) {
	fs := NewFactStore()
	_, err := fs.Assert("likes", []interface{}{"alice", "pizza"}, false)
	require.NoError(t, err)

	_, err = fs.Assert("likes", []interface{}{"bob"}, false)
	require.Error(t, err)
	var kerr *InconsistentKBError
	assert.ErrorAs(t, err, &kerr)
}

func TestFactStoreClearCaseSpecificKeepsUniversal(t *testing.T) {
	fs := NewFactStore()
	_, err := fs.Assert("fact", []interface{}{int64(1)}, false)
	require.NoError(t, err)
	_, err = fs.Assert("fact", []interface{}{int64(2)}, true)
	require.NoError(t, err)

	fs.ClearCaseSpecific()
	assert.Equal(t, 1, fs.Count("fact"))
}

func TestFactStoreQueryEnumeratesMatches(t *testing.T) {
	fs := NewFactStore()
	_, _ = fs.Assert("parent", []interface{}{"alice", "bob"}, false)
	_, _ = fs.Assert("parent", []interface{}{"alice", "carol"}, false)
	_, _ = fs.Assert("parent", []interface{}{"dave", "erin"}, false)

	patCtx := NewContext("query")
	child := NewVariable("fs_child")
	pattern := NewTuple([]Term{NewLiteral("alice"), child}, nil)

	cur := fs.Query(context.Background(), "parent", pattern, patCtx)
	defer cur.Close()

	var got []interface{}
	for cur.Next(context.Background()) {
		val, err := child.AsData(patCtx, false, nil)
		require.NoError(t, err)
		got = append(got, val)
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, []interface{}{"bob", "carol"}, got)
}

func TestFactStoreQueryUnwindsBetweenSolutions(t *testing.T) {
	fs := NewFactStore()
	_, _ = fs.Assert("color", []interface{}{"red"}, false)
	_, _ = fs.Assert("color", []interface{}{"blue"}, false)

	patCtx := NewContext("query2")
	v := NewVariable("fs_color")
	pattern := NewTuple([]Term{v}, nil)

	cur := fs.Query(context.Background(), "color", pattern, patCtx)
	defer cur.Close()

	require.True(t, cur.Next(context.Background()))
	val1, err := v.AsData(patCtx, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "red", val1)

	require.True(t, cur.Next(context.Background()))
	val2, err := v.AsData(patCtx, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "blue", val2, "the prior binding must be undone before the next candidate binds")

	assert.False(t, cur.Next(context.Background()))
}
