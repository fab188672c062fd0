package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
	zipPattern  = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	slugPath    = regexp.MustCompile(`^/\S+$`)
)

// GenerateSlug creates a URL-friendly slug from a display name
func GenerateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, "&", " and ")
	slug = strings.ReplaceAll(slug, "'", "")

	slug = slugInvalid.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}

	return slug
}

// JoinPath builds a leading-slash URL path from slug segments, skipping empty ones
func JoinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/ ")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return "/" + strings.Join(parts, "/")
}

// IsSlugPath reports whether p is a leading-slash path without whitespace
func IsSlugPath(p string) bool {
	return slugPath.MatchString(p)
}

// IsZip reports whether s looks like a US postal code
func IsZip(s string) bool {
	return zipPattern.MatchString(strings.TrimSpace(s))
}

// Truncate shortens s to at most max runes, cutting on a word boundary and
// appending an ellipsis when anything was removed.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}

	runes := []rune(s)[:max-3]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-") + "..."
}

// UniqueStrings trims, drops empties and removes duplicates keeping first-seen order
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
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
