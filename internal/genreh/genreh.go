// Package genreh provides the compile-time-embedded genre hierarchy: a
// static lookup from genre name to its direct parent genres, plus the
// reflexive-transitive closure used to enrich a release's genre set for
// indexing and rule matching.
package genreh

import "strings"

// parents maps a lower-cased genre name to its direct parents, in their
// canonical display casing. Unknown genres are absent from the map and
// resolve to an empty parent set, never an error (spec.md §4.B).
var parents = map[string][]string{
	"k-pop":         {"pop"},
	"j-pop":         {"pop"},
	"c-pop":         {"pop"},
	"dance-pop":     {"pop", "dance"},
	"synth-pop":     {"pop", "electronic"},
	"electropop":    {"pop", "electronic"},
	"pop":           {},
	"dance":         {"electronic"},
	"house":         {"electronic", "dance"},
	"deep house":    {"house"},
	"tech house":    {"house", "techno"},
	"techno":        {"electronic", "dance"},
	"trance":        {"electronic", "dance"},
	"electronic":    {},
	"edm":           {"electronic", "dance"},
	"hip hop":       {},
	"trap":          {"hip hop"},
	"rap":           {"hip hop"},
	"r&b":           {},
	"contemporary r&b": {"R&B"},
	"soul":          {},
	"neo soul":      {"soul", "R&B"},
	"rock":          {},
	"indie rock":    {"rock", "indie"},
	"alternative rock": {"rock", "alternative"},
	"punk rock":     {"rock", "punk"},
	"punk":          {},
	"indie":         {},
	"alternative":   {},
	"metal":         {"rock"},
	"heavy metal":   {"metal"},
	"folk":          {},
	"indie folk":    {"folk", "indie"},
	"jazz":          {},
	"classical":     {},
	"ambient":       {"electronic"},
	"soundtrack":    {},
	"city pop":      {"pop", "jazz"},
}

// canonical holds the preferred display casing for every genre name known to
// the hierarchy, keyed by its lower-cased form. Lookups are case-insensitive
// but the canonical casing of the stored genre is what's returned.
var canonical = func() map[string]string {
	m := make(map[string]string, len(parents))
	for k := range parents {
		m[k] = k
	}
	// a handful of names carry non-lowercase canonical forms
	for _, c := range []string{"K-Pop", "J-Pop", "C-Pop", "R&B", "EDM"} {
		m[strings.ToLower(c)] = c
	}
	return m
}()

// Canonicalize returns the canonical display casing for a genre name,
// falling back to the input verbatim if the genre is unknown.
func Canonicalize(genre string) string {
	if c, ok := canonical[strings.ToLower(genre)]; ok {
		return c
	}
	return genre
}

// Known reports whether genre is present in the compile-time hierarchy.
func Known(genre string) bool {
	_, ok := parents[strings.ToLower(genre)]
	return ok
}

// Parents returns the direct parent genres of genre, in their canonical
// casing. An unknown genre yields an empty, non-nil slice.
func Parents(genre string) []string {
	ps, ok := parents[strings.ToLower(genre)]
	if !ok {
		return []string{}
	}
	out := make([]string, len(ps))
	copy(out, ps)
	return out
}

// TransitiveParents returns the reflexive-transitive closure of genre's
// ancestry: genre itself (canonicalized) plus every ancestor, each once,
// in depth-first (pre-order) discovery order.
func TransitiveParents(genre string) []string {
	seen := map[string]bool{}
	var order []string

	var visit func(g string)
	visit = func(g string) {
		key := strings.ToLower(g)
		if seen[key] {
			return
		}
		seen[key] = true
		order = append(order, Canonicalize(g))
		for _, p := range Parents(g) {
			visit(p)
		}
	}
	visit(genre)
	return order
}

// EnrichSet returns the union of TransitiveParents over every genre in
// genres, de-duplicated, preserving first-seen order. This is what the
// release scanner uses to enrich a release's genre set (spec.md §4.E.6).
func EnrichSet(genres []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range genres {
		for _, anc := range TransitiveParents(g) {
			key := strings.ToLower(anc)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, anc)
		}
	}
	return out
}
