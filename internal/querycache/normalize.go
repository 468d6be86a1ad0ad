package querycache

import (
	"sort"
	"strings"
)

// Normalize reduces a search string to a word-order- and
// punctuation-independent cache key: lowercase, strip everything outside
// [a-z0-9\s], split on whitespace, sort tokens, rejoin with single spaces.
//
// Known limitation: semantically different queries sharing a bag of words
// ("live and let die" vs "die and let live") normalize to the same key and
// can produce false-positive hits. This is a deliberate trade-off for
// resilience to punctuation and word order.
func Normalize(terms string) string {
	lower := strings.ToLower(terms)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
