package extractor

import "strings"

// KeywordExtractor reports which vocabulary terms occur in a text.
type KeywordExtractor struct {
	terms []string
	lower []string
}

// NewKeywordExtractor builds an extractor over v.Keywords (or the default
// list when empty).
func NewKeywordExtractor(v Vocabulary) *KeywordExtractor {
	v = v.WithDefaults()
	k := &KeywordExtractor{
		terms: clone(v.Keywords),
		lower: make([]string, len(v.Keywords)),
	}
	for i, t := range v.Keywords {
		k.lower[i] = strings.ToLower(t)
	}
	return k
}

// Extract returns the matched terms in vocabulary order, each at most once.
// Matching is case-insensitive substring containment, so "test" is found
// inside "latest".
func (k *KeywordExtractor) Extract(text string) []string {
	found := []string{}
	if text == "" {
		return found
	}
	lower := strings.ToLower(text)
	seen := make(map[string]struct{}, len(k.lower))
	for i, term := range k.lower {
		if _, dup := seen[term]; dup || term == "" {
			continue
		}
		if strings.Contains(lower, term) {
			seen[term] = struct{}{}
			found = append(found, k.terms[i])
		}
	}
	return found
}

// Terms returns the vocabulary in canonical order.
func (k *KeywordExtractor) Terms() []string {
	return clone(k.terms)
}
