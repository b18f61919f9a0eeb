package cache

import "strings"

// tokenize lowercases and splits on whitespace, the same normalization the
// in-process index and the reranker both use so token sets line up.
func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// tokenOverlap computes |query ∩ cached| / |query|, spec.md §4.G's
// similarity function. An empty query has no similarity to anything.
func tokenOverlap(query, cached string) float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}
	cachedTokens := tokenize(cached)
	var overlap int
	for t := range queryTokens {
		if _, ok := cachedTokens[t]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTokens))
}
