package util

import (
	"sort"
	"strings"
	"unicode"
)

// Truncate trims s to at most maxRunes runes, appending "..." when cut.
func Truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// DisplaySnippet cleans s for single-line display.
func DisplaySnippet(s string, maxRunes int) string {
	s = normalizeWhitespace(SanitizeText(s))
	return Truncate(s, maxRunes)
}

// RelevantSentences returns up to limit sentences of text that share the most
// terms with query, kept in document order.
func RelevantSentences(text, query string, limit int) []string {
	if limit <= 0 {
		limit = 3
	}
	sentences := splitSentences(normalizeWhitespace(SanitizeText(text)))
	if len(sentences) == 0 {
		return nil
	}
	terms := meaningfulTerms(query)
	if len(terms) == 0 {
		if len(sentences) > limit {
			sentences = sentences[:limit]
		}
		return sentences
	}

	type scored struct {
		pos   int
		score int
	}
	list := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		low := strings.ToLower(s)
		score := 0
		for _, term := range terms {
			if strings.Contains(low, term) {
				score++
			}
		}
		if score > 0 {
			list = append(list, scored{pos: i, score: score})
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })
	if len(list) > limit {
		list = list[:limit]
	}
	sort.Slice(list, func(i, j int) bool { return list[i].pos < list[j].pos })
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, sentences[s.pos])
	}
	return out
}

func splitSentences(s string) []string {
	out := make([]string, 0, 8)
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？' {
			if x := strings.TrimSpace(b.String()); x != "" {
				out = append(out, x)
			}
			b.Reset()
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "is": {}, "are": {}, "was": {}, "were": {}, "what": {}, "how": {}, "why": {},
	"which": {}, "that": {}, "this": {}, "these": {}, "those": {}, "with": {}, "from": {}, "does": {},
}

func meaningfulTerms(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	uniq := map[string]struct{}{}
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		if _, ok := uniq[f]; ok {
			continue
		}
		uniq[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
