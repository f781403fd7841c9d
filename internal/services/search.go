package services

import (
	"strings"
	"unicode"
)

// Free-text search treats "ana-maria", "ana maria" and "AnaMaria" as the
// same thing: both the query and the searched fields are lower-cased and
// stripped of spaces and hyphens before substring comparison. The same
// normalization is expressed in SQL (see normalizedColumn) so filtering and
// pagination stay database-side, and here in Go to map matches back onto
// the original text for highlighting.

// Normalize lowercases s and strips spaces and hyphens.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// normalizedColumn returns the SQL expression matching Normalize for a
// column. LOWER and REPLACE behave identically across the supported
// dialects.
func normalizedColumn(col string) string {
	return "REPLACE(REPLACE(LOWER(" + col + "), ' ', ''), '-', '')"
}

// Matches reports whether the normalized query occurs in the normalized
// text. An empty query matches everything.
func Matches(query, text string) bool {
	nq := Normalize(query)
	if nq == "" {
		return true
	}
	return strings.Contains(Normalize(text), nq)
}

// Highlight wraps every span of text whose normalized form matches the
// normalized query in <mark> tags. The wrapped span covers the original
// characters, including any spaces or hyphens the normalization skipped.
// Purely presentational; persisted values are never touched.
func Highlight(query, text string) string {
	nq := []rune(Normalize(query))
	if len(nq) == 0 {
		return text
	}

	runes := []rune(text)

	// Normalized rune stream plus a map back to positions in runes.
	norm := make([]rune, 0, len(runes))
	pos := make([]int, 0, len(runes))
	for i, r := range runes {
		if r == ' ' || r == '-' {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		pos = append(pos, i)
	}

	type span struct{ start, end int } // rune offsets, end exclusive
	var spans []span
	for i := 0; i+len(nq) <= len(norm); i++ {
		matched := true
		for j := range nq {
			if norm[i+j] != nq[j] {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		start := pos[i]
		end := pos[i+len(nq)-1] + 1
		if n := len(spans); n > 0 && start <= spans[n-1].end {
			// overlapping or adjacent matches merge into one span
			if end > spans[n-1].end {
				spans[n-1].end = end
			}
			continue
		}
		spans = append(spans, span{start: start, end: end})
	}

	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(string(runes[prev:sp.start]))
		b.WriteString("<mark>")
		b.WriteString(string(runes[sp.start:sp.end]))
		b.WriteString("</mark>")
		prev = sp.end
	}
	b.WriteString(string(runes[prev:]))
	return b.String()
}
