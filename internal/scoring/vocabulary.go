package scoring

import (
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/samber/lo"
)

// vocabulary finds which of a fixed set of lowercase terms occur in a text in
// a single pass.
type vocabulary struct {
	terms   []string
	mu      sync.Mutex // Matcher.Match keeps per-call state inside the automaton
	matcher *ahocorasick.Matcher
}

func newVocabulary(terms []string) *vocabulary {
	normalized := lo.Uniq(lo.Compact(lo.Map(terms, func(term string, _ int) string {
		return normalize(term)
	})))
	sort.Strings(normalized)

	v := &vocabulary{terms: normalized}
	if len(normalized) > 0 {
		v.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return v
}

// find returns the distinct terms contained in text, which must already be
// normalized.
func (v *vocabulary) find(text string) []string {
	if v.matcher == nil || text == "" {
		return nil
	}

	v.mu.Lock()
	hits := v.matcher.Match([]byte(text))
	v.mu.Unlock()

	found := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit < len(v.terms) {
			found = append(found, v.terms[hit])
		}
	}
	return lo.Uniq(found)
}

func (v *vocabulary) size() int {
	return len(v.terms)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
