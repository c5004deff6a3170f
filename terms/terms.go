// Package terms normalizes redaction term lists and talks to the external
// term-identification collaborators that produce them.
package terms

import "strings"

// List is an ordered, deduplicated collection of literal redaction terms.
type List []string

// Normalize trims raw terms, drops empties, and deduplicates
// case-insensitively while preserving the first spelling and input order.
// Matching downstream is case-insensitive, so keeping one spelling per term
// is lossless.
func Normalize(raw []string) List {
	seen := make(map[string]bool, len(raw))
	out := make(List, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// Merge appends extra terms to the list, applying the same dedup policy.
func (l List) Merge(extra []string) List {
	return Normalize(append(append([]string(nil), l...), extra...))
}
