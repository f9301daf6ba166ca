// Package position expands compact position strings such as "D/M (RLC), ST (C)"
// into flat position tags like D(R), D(L), D(C), M(R), M(L), M(C), ST(C).
package position

import (
	"regexp"
	"strings"
)

// Normalizer expands position strings. It is safe for concurrent use.
type Normalizer struct {
	compound *regexp.Regexp
}

// NewNormalizer returns a Normalizer with its pattern compiled.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		// Field codes separated by "/", an optional space, then side letters in parens.
		compound: regexp.MustCompile(`^([A-Z/]+) ?\(([A-Z]+)\)$`),
	}
}

// Expand returns the position tags for s. Bare tokens are kept as-is (trimmed);
// compound tokens produce one field(side) tag per field code and side letter.
// Parenthesized tokens that do not have exactly that shape, or that name no
// field code, are dropped.
func (n *Normalizer) Expand(s string) []string {
	tags, _ := n.ExpandReport(s)
	return tags
}

// ExpandReport is Expand, also returning the tokens that were dropped.
func (n *Normalizer) ExpandReport(s string) (tags, dropped []string) {
	tags = []string{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !strings.Contains(tok, "(") {
			tags = append(tags, tok)
			continue
		}

		m := n.compound.FindStringSubmatch(tok)
		if m == nil {
			dropped = append(dropped, tok)
			continue
		}
		before := len(tags)
		for _, field := range strings.Split(m[1], "/") {
			if field == "" {
				continue
			}
			for _, side := range m[2] {
				tags = append(tags, field+"("+string(side)+")")
			}
		}
		if len(tags) == before {
			dropped = append(dropped, tok)
		}
	}
	return tags, dropped
}
