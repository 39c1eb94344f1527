package pyke

import "context"

// cursorBody is the function a Cursor runs as its single producer
// goroutine. It yields zero or more successes by calling emit, and
// returns when exhausted. self is handed back so the body can stash a
// captured Plan on the Cursor at the moment a yield happens, without
// threading plan values through the channel protocol itself.
type cursorBody func(ctx context.Context, self *Cursor, emit func() bool)

// Cursor is a single resumable iterator over the successive ways a goal
// can succeed. It generalizes the teacher's channel-backed Stream from a
// concurrently-produced, unordered bag of constraint stores into a
// strictly sequential, pull-driven generator: exactly one candidate
// binding state is live at a time, and the next one is not computed
// until Next is called again. This is what lets backtracking undo the
// current candidate's bindings before advancing to the next, which the
// prover's correctness depends on.
//
// A Cursor's producer goroutine and its consumer hand off control
// through an unbuffered channel, the same handshake idiom the teacher
// uses for Stream.Put/Take, but restricted to one in-flight value.
type Cursor struct {
	resume  chan struct{}
	msg     chan cursorMsg
	closeCh chan struct{}
	doneCh  chan struct{}
	plan    *Plan
	started bool

	// stopped is set by a claim_goal premise's body (or propagated up from
	// a child cursor by a combinator) to record that no further
	// alternatives should be tried for the goal this cursor belongs to,
	// once the caller is done with the success already produced. It is a
	// plain flag rather than a panic/recover signal because each Premise
	// combinator runs its own producer goroutine; propagating control
	// this way keeps the signal inside the normal data-flow instead of
	// relying on a panic crossing goroutine boundaries.
	stopped bool

	// err records an error (a *RequiredClauseFailedError, an
	// *ExternalError, an unknown knowledge base, ...) detected while
	// producing the current or a prior success. Like stopped, it
	// propagates upward through combinators rather than panicking, and is
	// surfaced to the caller by Solution.Err.
	err error
}

type cursorMsg struct {
	ok bool
}

// runCursor starts a Cursor whose producer executes body in its own
// goroutine. The returned Cursor is not yet advanced; call Next to pull
// the first success.
func runCursor(ctx context.Context, body cursorBody) *Cursor {
	c := &Cursor{
		resume:  make(chan struct{}),
		msg:     make(chan cursorMsg),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	emit := func() bool {
		select {
		case c.msg <- cursorMsg{ok: true}:
		case <-c.closeCh:
			return false
		}
		select {
		case <-c.resume:
			return true
		case <-c.closeCh:
			return false
		}
	}

	go func() {
		defer close(c.doneCh)
		select {
		case <-c.resume:
		case <-c.closeCh:
			return
		}
		body(ctx, c, emit)
		select {
		case c.msg <- cursorMsg{ok: false}:
		case <-c.closeCh:
		}
	}()

	return c
}

// Next advances the cursor to its next success, returning false when the
// underlying goal has no further ways to succeed or ctx is cancelled.
// Every call after the first implicitly discards the bindings the prior
// success made, by resuming the producer goroutine so it can continue
// unwinding past them.
func (c *Cursor) Next(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		c.Close()
		return false
	default:
	}
	if c.started {
		select {
		case c.resume <- struct{}{}:
		case <-c.doneCh:
			return false
		case <-ctx.Done():
			return false
		}
	}
	c.started = true

	select {
	case m := <-c.msg:
		return m.ok
	case <-c.doneCh:
		return false
	case <-ctx.Done():
		c.Close()
		return false
	}
}

// Plan returns the proof plan fragment captured by the current success,
// or nil if this proof produced none.
func (c *Cursor) Plan() *Plan {
	return c.plan
}

// Stopped reports whether a claim_goal premise anywhere inside this
// cursor's subtree has signalled that no further alternatives should be
// tried for the enclosing goal.
func (c *Cursor) Stopped() bool {
	return c.stopped
}

// Err returns the error (such as a required-clause failure) detected
// while this cursor was producing, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Close abandons the cursor, signalling its producer goroutine to unwind
// immediately (running any deferred trail cleanup) without producing
// further successes. Close is idempotent.
func (c *Cursor) Close() {
	select {
	case <-c.closeCh:
	default:
		close(c.closeCh)
	}
	<-c.doneCh
}
