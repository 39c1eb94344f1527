package pyke

import (
	"fmt"
	"strconv"
	"strings"
)

// parseGoal parses the flat "kb.entity(arg, arg, ...)" goal-reference
// shape SPEC_FULL.md §6 describes as the one convenience the core
// offers callers that don't already hold Terms of their own — not the
// `.krb` rule-base source grammar itself, which stays out of scope per
// §1. Arguments beginning with "$" name a Variable (or an Anonymous
// wildcard if the name starts "$_"); anything else is parsed as a
// Literal: a decimal integer, a float, true/false, null, or — falling
// through all of those — a bare string (quotes, if present, stripped).
func parseGoal(goal string) (kbName, entity string, args []Term, err error) {
	goal = strings.TrimSpace(goal)
	open := strings.IndexByte(goal, '(')
	if open < 0 || !strings.HasSuffix(goal, ")") {
		return "", "", nil, fmt.Errorf("pyke: malformed goal reference %q", goal)
	}
	head := strings.TrimSpace(goal[:open])
	body := strings.TrimSpace(goal[open+1 : len(goal)-1])

	dot := strings.IndexByte(head, '.')
	if dot < 0 {
		return "", "", nil, fmt.Errorf("pyke: goal reference %q missing kb.entity", goal)
	}
	kbName = strings.TrimSpace(head[:dot])
	entity = strings.TrimSpace(head[dot+1:])
	if kbName == "" || entity == "" {
		return "", "", nil, fmt.Errorf("pyke: goal reference %q missing kb.entity", goal)
	}

	if body == "" {
		return kbName, entity, nil, nil
	}
	for _, tok := range splitArgs(body) {
		args = append(args, parseArgTerm(strings.TrimSpace(tok)))
	}
	return kbName, entity, args, nil
}

// splitArgs splits a goal's argument-list body on top-level commas,
// treating parenthesized sub-expressions and quoted strings as opaque so
// a nested tuple literal's or a quoted string's commas don't split the
// outer argument list.
func splitArgs(s string) []string {
	var parts []string
	depth := 0
	start := 0
	var quote rune
	for i, r := range s {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseArgTerm(tok string) Term {
	switch {
	case strings.HasPrefix(tok, "$_"):
		return NewAnonymous(tok[1:])
	case strings.HasPrefix(tok, "$"):
		return NewVariable(tok[1:])
	case tok == "true" || tok == "false":
		return NewLiteral(tok == "true")
	case tok == "null" || tok == "nil":
		return NewLiteral(nil)
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return NewLiteral(n)
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return NewLiteral(f)
	}
	return NewLiteral(strings.Trim(tok, `"'`))
}
