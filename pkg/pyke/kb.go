package pyke

import "context"

// KnowledgeBase is anything the Engine can dispatch a goal to: a plain
// fact base, a rule base mixing BC rules with its own facts, or the
// special-predicates pseudo-KB (§4.8).
type KnowledgeBase interface {
	Name() string
	// Prove returns a Cursor enumerating every way entity(pattern...) can
	// succeed against this knowledge base, binding pattern's variables
	// (interpreted in trail) on each success.
	Prove(ctx context.Context, entity string, pattern *Tuple, trail *Context) *Cursor
}

// FactKB is a knowledge base containing only ground facts — no rules of
// its own. Its Prove is a direct FactStore.Query.
type FactKB struct {
	name  string
	store *FactStore
}

// NewFactKB creates an empty FactKB named name.
func NewFactKB(name string) *FactKB {
	return &FactKB{name: name, store: NewFactStore()}
}

func (kb *FactKB) Name() string { return kb.name }

func (kb *FactKB) Prove(ctx context.Context, entity string, pattern *Tuple, trail *Context) *Cursor {
	return kb.store.Query(ctx, entity, pattern, trail)
}

// RuleBaseKB holds forward- and backward-chaining rules plus the facts
// those rules read and write, with an optional parent rule base
// consulted for a goal whose entity has neither facts nor rules in this
// KB (§4.7's rule-base parent chain).
type RuleBaseKB struct {
	name    string
	store   *FactStore
	fcRules []*FCRule
	bcRules map[string][]*BCRule // keyed by entity, registration order preserved
	parent  *RuleBaseKB
	engine  *Engine

	// parentName and excludedSymbols record the declaration a
	// get_create-style re-registration is checked against (§4.7
	// "inconsistent-kb"); excludedSymbols lists the parent's rules this
	// rule base does not inherit.
	parentName      string
	excludedSymbols []string
}

// NewRuleBaseKB creates an empty RuleBaseKB named name, optionally
// chained to parent.
func NewRuleBaseKB(name string, parent *RuleBaseKB) *RuleBaseKB {
	return &RuleBaseKB{
		name:    name,
		store:   NewFactStore(),
		bcRules: make(map[string][]*BCRule),
		parent:  parent,
	}
}

func (kb *RuleBaseKB) Name() string { return kb.name }

func (kb *RuleBaseKB) addFCRule(r *FCRule) { kb.fcRules = append(kb.fcRules, r) }
func (kb *RuleBaseKB) addBCRule(r *BCRule) { kb.bcRules[r.Entity] = append(kb.bcRules[r.Entity], r) }

// Prove implements the BC state machine of §4.6: it first tries every
// fact stored locally under entity, then every BCRule declared for
// entity in registration order, then falls back to the parent rule base
// if entity has neither facts nor rules here. Enumeration order and
// trail discipline follow the same Cursor contract throughout, so a
// caller sees one deterministic, resumable sequence of successes.
func (kb *RuleBaseKB) Prove(ctx context.Context, entity string, pattern *Tuple, trail *Context) *Cursor {
	var branches []goalFunc

	if kb.store.Count(entity) > 0 {
		branches = append(branches, func(ctx context.Context, e *Engine, trail *Context) *Cursor {
			return kb.store.Query(ctx, entity, pattern, trail)
		})
	}

	for _, rule := range kb.bcRules[entity] {
		rule := rule
		branches = append(branches, func(ctx context.Context, e *Engine, trail *Context) *Cursor {
			return e.tryBCRule(ctx, rule, pattern, trail)
		})
	}

	if len(branches) == 0 && kb.parent != nil && !kb.excludes(entity) {
		return kb.parent.Prove(ctx, entity, pattern, trail)
	}

	return disjOrdered(branches)(ctx, kb.engine, trail)
}

// excludes reports whether entity is named in this rule base's
// excludedSymbols, meaning it must not be inherited from parent even
// though this rule base declares no rules of its own for it (§3 "a KB
// may declare a parent KB from which rules are inherited except for a
// listed excluded_symbols set").
func (kb *RuleBaseKB) excludes(entity string) bool {
	for _, s := range kb.excludedSymbols {
		if s == entity {
			return true
		}
	}
	return false
}
