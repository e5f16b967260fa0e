// Package resolver maps free-form textual references onto entries of a live
// job namespace. It never fails hard: a reference that cannot be resolved
// degrades to a folder the caller can list, so the end user always gets a
// navigable result instead of a dead end.
package resolver

import (
	"strings"
	"unicode"

	"github.com/jenkins-mcp-integ/internal/namespace"
)

// Resolution is the outcome of resolving one query against one snapshot.
// Either Resolved is true and Path/Kind are set, or FallbackFolder names
// the nearest existing folder to list (Recursive always true on fallback).
type Resolution struct {
	Resolved  bool
	Path      []string
	Kind      namespace.Kind
	Fallback  []string
	Recursive bool
}

// Stop words discarded from descriptive queries: action verbs and generic
// nouns that never name a job. A token that happens to equal an actual
// segment in the snapshot is kept regardless.
var stopWords = map[string]struct{}{
	"run": {}, "build": {}, "builds": {}, "trigger": {}, "start": {},
	"list": {}, "show": {}, "get": {}, "status": {}, "log": {}, "logs": {},
	"job": {}, "jobs": {}, "folder": {}, "folders": {}, "project": {},
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "for": {}, "from": {},
	"please": {}, "me": {}, "my": {}, "all": {}, "latest": {}, "last": {},
	"recent": {}, "what": {}, "is": {}, "was": {}, "console": {}, "output": {},
}

// Resolve determines the best-matching namespace entry for query. The
// snapshot should be recursive when fallback listings are meant to show the
// whole subtree; Resolve itself only classifies and never consults the
// caller's intended action.
func Resolve(query string, snap *namespace.Snapshot) Resolution {
	query = strings.TrimSpace(query)
	if query == "" {
		return unresolved(snap.Root())
	}
	if !strings.ContainsFunc(query, unicode.IsSpace) {
		return resolveSpecific(query, snap)
	}
	return resolveDescriptive(query, snap)
}

// resolveSpecific handles queries already shaped like a path: one or more
// segments joined by "/". Matching is exact and case-sensitive; a miss
// falls back to the longest strict prefix that exists in the snapshot.
func resolveSpecific(query string, snap *namespace.Snapshot) Resolution {
	segs := namespace.Split(query)
	if snap.Contains(segs) {
		return resolved(segs, snap)
	}
	for end := len(segs) - 1; end > 0; end-- {
		prefix := segs[:end]
		if snap.Contains(prefix) {
			return unresolved(prefix)
		}
	}
	return unresolved(snap.Root())
}

// resolveDescriptive applies longest-valid-path matching over normalized
// tokens. Candidates are contiguous token runs in their original order; a
// candidate is valid when it exactly matches a snapshot path or is a strict
// prefix of one, compared case-insensitively but resolved back to the
// snapshot's casing. Longest candidate wins; ties prefer exact matches,
// then shorter token spans, then discovery order.
func resolveDescriptive(query string, snap *namespace.Snapshot) Resolution {
	tokens := tokenize(query, snap)
	if len(tokens) == 0 {
		return unresolved(snap.Root())
	}

	type match struct {
		path  []string
		exact bool
		span  int
	}
	var best *match
	better := func(m match) bool {
		switch {
		case best == nil:
			return true
		case len(m.path) != len(best.path):
			return len(m.path) > len(best.path)
		case m.exact != best.exact:
			return m.exact
		case m.span != best.span:
			return m.span < best.span
		}
		return false
	}

	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j <= len(tokens); j++ {
			candidate := tokens[i:j]
			actual, exact, ok := snap.MatchFold(candidate)
			if !ok {
				continue
			}
			m := match{path: actual, exact: exact, span: j - i}
			if better(m) {
				best = &m
			}
		}
	}

	if best == nil {
		return unresolved(snap.Root())
	}
	return resolved(best.path, snap)
}

// tokenize splits a descriptive query into candidate segments. Slashes
// inside a token expand into separate segments so "run A/B now" still
// yields ["A","B"]. Stop words are dropped unless they name an actual
// snapshot segment.
func tokenize(query string, snap *namespace.Snapshot) []string {
	known := snap.Segments()
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '"' || r == '\'' || r == '?' || r == '!'
	})

	var tokens []string
	for _, f := range fields {
		for _, seg := range strings.Split(f, "/") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			lower := strings.ToLower(seg)
			if _, stop := stopWords[lower]; stop {
				if _, actual := known[lower]; !actual {
					continue
				}
			}
			tokens = append(tokens, seg)
		}
	}
	return tokens
}

func resolved(path []string, snap *namespace.Snapshot) Resolution {
	return Resolution{
		Resolved: true,
		Path:     append([]string(nil), path...),
		Kind:     snap.Kind(path),
	}
}

func unresolved(fallback []string) Resolution {
	return Resolution{
		Fallback:  append([]string(nil), fallback...),
		Recursive: true,
	}
}
