package pyke

import (
	"context"
	"fmt"
	"reflect"
)

// Fact is one ground tuple asserted under a name within a FactStore.
// Universal facts are loaded through Engine.AddUniversalFact and
// survive a Reset; CaseSpecific facts are asserted during a single
// proof session (typically by a forward-chaining rule, or through
// Engine.Assert) and are discarded by ClearCaseSpecific, mirroring the
// distinction the original system draws between facts loaded from a
// .kfb file and facts asserted while reasoning about one case.
type Fact struct {
	Name         string
	Data         []interface{}
	CaseSpecific bool
}

func (f *Fact) String() string {
	return fmt.Sprintf("%s%v", f.Name, f.Data)
}

// FactIndex speeds up fact lookup by indexing entries on the value of
// their first argument, the position most goal patterns bind first.
// A query whose first pattern element is not a Literal, or whose tuple
// is empty, falls back to a linear scan of the name's full entry list.
type FactIndex struct {
	byFirstArg map[interface{}][]*Fact
}

func newFactIndex() *FactIndex {
	return &FactIndex{byFirstArg: make(map[interface{}][]*Fact)}
}

func (fi *FactIndex) add(f *Fact) {
	if len(f.Data) == 0 {
		return
	}
	key, ok := indexKey(f.Data[0])
	if !ok {
		return
	}
	fi.byFirstArg[key] = append(fi.byFirstArg[key], f)
}

// indexKey reports whether v is usable as a map key (comparable scalar
// data), and if so returns it.
func indexKey(v interface{}) (interface{}, bool) {
	switch v.(type) {
	case []interface{}, map[string]interface{}:
		return nil, false
	default:
		return v, true
	}
}

// FactStore holds every fact asserted under one knowledge base, indexed
// by name and by first argument.
type FactStore struct {
	byName map[string][]*Fact
	index  map[string]*FactIndex
}

// NewFactStore creates an empty FactStore.
func NewFactStore() *FactStore {
	return &FactStore{
		byName: make(map[string][]*Fact),
		index:  make(map[string]*FactIndex),
	}
}

// Assert adds a fact under name, unless an identical one (same name and
// data) is already present, in which case the existing *Fact is returned
// unchanged — asserting the same tuple twice is a no-op, per §8's
// idempotence property, and is what lets RunForward's fixpoint loop ever
// reach quiescence when a pass re-derives a fact it already holds.
// Assert returns an *InconsistentKBError if the store already holds facts
// under name with a different arity.
func (fs *FactStore) Assert(name string, data []interface{}, caseSpecific bool) (*Fact, error) {
	existing := fs.byName[name]
	if len(existing) > 0 && len(existing[0].Data) != len(data) {
		return nil, &InconsistentKBError{
			KB:     name,
			Reason: fmt.Sprintf("fact %q asserted with arity %d, existing facts have arity %d", name, len(data), len(existing[0].Data)),
		}
	}
	for _, f := range existing {
		if dataEqual(f.Data, data) {
			return f, nil
		}
	}

	f := &Fact{Name: name, Data: data, CaseSpecific: caseSpecific}
	fs.byName[name] = append(fs.byName[name], f)
	if fs.index[name] == nil {
		fs.index[name] = newFactIndex()
	}
	fs.index[name].add(f)
	return f, nil
}

func dataEqual(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// factCount returns the total number of facts stored across every name,
// the convergence signal RunForward's fixpoint loop watches.
func (fs *FactStore) factCount() int {
	n := 0
	for _, facts := range fs.byName {
		n += len(facts)
	}
	return n
}

// ClearCaseSpecific removes every fact asserted as case-specific,
// leaving universal facts untouched. This is what Engine.Reset calls
// between independent cases sharing one rule base.
func (fs *FactStore) ClearCaseSpecific() {
	for name, facts := range fs.byName {
		kept := facts[:0]
		for _, f := range facts {
			if !f.CaseSpecific {
				kept = append(kept, f)
			}
		}
		fs.byName[name] = kept
		fs.index[name] = newFactIndex()
		for _, f := range kept {
			fs.index[name].add(f)
		}
	}
}

// Count returns the number of facts currently stored under name.
func (fs *FactStore) Count(name string) int {
	return len(fs.byName[name])
}

// Query returns a Cursor enumerating every fact stored under name whose
// data unifies against pattern, interpreted in patCtx, binding patCtx's
// variables as the controlling context. Enumeration order is fact
// insertion order, so behavior is deterministic across runs.
func (fs *FactStore) Query(ctx context.Context, name string, pattern *Tuple, patCtx *Context) *Cursor {
	candidates := fs.candidatesFor(name, pattern)
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		for _, f := range candidates {
			select {
			case <-ctx.Done():
				return
			default:
			}
			mark := patCtx.Mark()
			if pattern.MatchData(patCtx, patCtx, f.Data) {
				if !emit() {
					patCtx.UndoToMark(mark)
					return
				}
			}
			patCtx.UndoToMark(mark)
		}
	})
}

// candidatesFor returns the facts stored under name worth trying against
// pattern, using the first-argument index when pattern's first element
// is a Literal. A Variable in that position is not resolved for the
// index, even when it is bound.
func (fs *FactStore) candidatesFor(name string, pattern *Tuple) []*Fact {
	all := fs.byName[name]
	if len(all) == 0 {
		return nil
	}
	if pattern.Arity() == 0 {
		return all
	}
	lit, ok := pattern.Head()[0].(*Literal)
	if !ok {
		return all
	}
	key, ok := indexKey(lit.Value())
	if !ok {
		return all
	}
	if idx := fs.index[name]; idx != nil {
		if entries, ok := idx.byFirstArg[key]; ok {
			return entries
		}
		return nil
	}
	return all
}
