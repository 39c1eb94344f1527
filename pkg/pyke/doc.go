// Package pyke implements the hybrid forward/backward-chaining inference
// core described by a Pyke-style rule engine: immutable terms and patterns,
// a shallow-binding context/trail for variable bindings, a two-sided
// unifier, an indexed per-knowledge-base fact store, a forward-chaining
// driver that fires rules to quiescence, and a backward-chaining prover
// that interleaves rule resolution with on-the-fly plan synthesis.
//
// This package does not parse rule-base source text or .kfb fact files —
// it is fed already-constructed patterns and rule records by an external
// compiler, and already-resolved fact tuples by an external loader. See
// RuleRecord, NewLiteral, NewVariable, NewAnonymous and NewTuple for the
// construction surface those collaborators use.
//
// Proof search is single-threaded and cooperative: goroutines are used
// only as the suspension mechanism for one resumable iterator (Cursor) at
// a time, never to explore independent branches of the search space in
// parallel. Enumeration order is always deterministic — rule registration
// order, then fact insertion order.
package pyke
