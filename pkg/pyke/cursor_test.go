package pyke

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorYieldsInOrderAndExhausts(t *testing.T) {
	cur := runCursor(context.Background(), func(ctx context.Context, self *Cursor, emit func() bool) {
		for i := 0; i < 3; i++ {
			if !emit() {
				return
			}
		}
	})
	defer cur.Close()

	for i := 0; i < 3; i++ {
		require.True(t, cur.Next(context.Background()))
	}
	assert.False(t, cur.Next(context.Background()))
}

func TestCursorStopsEarlyWhenConsumerStops(t *testing.T) {
	produced := 0
	cur := runCursor(context.Background(), func(ctx context.Context, self *Cursor, emit func() bool) {
		for i := 0; i < 5; i++ {
			produced++
			if !emit() {
				return
			}
		}
	})
	require.True(t, cur.Next(context.Background()))
	cur.Close()
	assert.Equal(t, 1, produced)
}

func TestCursorCloseIsIdempotent(t *testing.T) {
	cur := runCursor(context.Background(), func(ctx context.Context, self *Cursor, emit func() bool) {
		emit()
	})
	cur.Close()
	assert.NotPanics(t, func() { cur.Close() })
}

func TestCursorPropagatesStoppedAndErr(t *testing.T) {
	sentinel := &RequiredClauseFailedError{Rule: "r", Clause: "c"}
	cur := runCursor(context.Background(), func(ctx context.Context, self *Cursor, emit func() bool) {
		emit()
		self.stopped = true
		self.err = sentinel
	})
	defer cur.Close()

	require.True(t, cur.Next(context.Background()))
	assert.False(t, cur.Next(context.Background()))
	assert.True(t, cur.Stopped())
	assert.Equal(t, sentinel, cur.Err())
}

func TestCursorContextCancellationStopsIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cur := runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		for {
			if !emit() {
				return
			}
		}
	})
	require.True(t, cur.Next(ctx))
	cancel()
	assert.False(t, cur.Next(ctx))
}
