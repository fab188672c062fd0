package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lowercases text, removes whole-word stopwords, strips
// punctuation, drops pure-number tokens and collapses whitespace. Stopwords
// are page-specific terms (place, county, zip, service name) so templated
// prose about different places normalizes to the same string.
func Normalize(text string, stopwords []string) string {
	s := strings.ToLower(text)

	for _, re := range stopwordPatterns(stopwords) {
		// Matches consume their boundary characters, so adjacent repeats
		// need another pass.
		for {
			next := re.ReplaceAllString(s, "${1} ${2}")
			if next == s {
				break
			}
			s = next
		}
	}

	s = nonAlnum.ReplaceAllString(s, " ")

	tokens := strings.Fields(s)
	kept := tokens[:0]
	for _, tok := range tokens {
		if isNumeral(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// Hash returns the hex SHA-1 of normalized text, or "" when there is nothing to hash.
func Hash(normalized string) string {
	if normalized == "" {
		return ""
	}
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Stopwords collects the page-context terms excluded from a fingerprint.
// Values are kept whole; splitting "New Town" would strip "new" from one
// page's prose but not from its siblings.
func Stopwords(values ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func stopwordPatterns(stopwords []string) []*regexp.Regexp {
	words := make([]string, 0, len(stopwords))
	for _, w := range stopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			words = append(words, w)
		}
	}
	// Longest first so "cook county" goes before "cook".
	sort.SliceStable(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })

	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		patterns = append(patterns, regexp.MustCompile(`(^|[^a-z0-9])`+regexp.QuoteMeta(w)+`($|[^a-z0-9])`))
	}
	return patterns
}

func isNumeral(tok string) bool {
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return tok != ""
}
