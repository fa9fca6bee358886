package agent

import (
	"regexp"
	"strings"
)

type stepKind int

const (
	stepInvalid stepKind = iota
	stepAction
	stepFinal
)

type step struct {
	kind   stepKind
	text   string
	action string
	input  string
	answer string
}

var (
	actionRe      = regexp.MustCompile(`(?i)Action\s*\d*\s*:[ \t]*(.*?)[ \t]*\n`)
	actionInputRe = regexp.MustCompile(`(?is)Action\s*\d*\s*Input\s*\d*\s*:[ \t]*(.*)`)
	finalRe       = regexp.MustCompile(`(?is)Final Answer\s*:\s*(.*)`)
)

const invalidStepObservation = "Invalid Format: reply with either 'Action:' and 'Action Input:' lines, or a 'Final Answer:' line."

// parseStep reads one model turn. Text after a model-written "Observation:"
// is discarded since observations come from tools.
func parseStep(raw string) step {
	text := raw
	if i := strings.Index(text, "\nObservation:"); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	s := step{text: text}

	finalAt := -1
	if loc := finalRe.FindStringSubmatchIndex(text); loc != nil {
		finalAt = loc[0]
	}
	actionAt := -1
	if loc := actionRe.FindStringSubmatchIndex(text + "\n"); loc != nil {
		actionAt = loc[0]
	}

	switch {
	case actionAt >= 0 && (finalAt < 0 || actionAt < finalAt):
		m := actionRe.FindStringSubmatch(text + "\n")
		s.action = strings.Trim(strings.TrimSpace(m[1]), "`\"'")
		if in := actionInputRe.FindStringSubmatch(text); in != nil {
			s.input = cleanInput(in[1])
		}
		if s.action != "" {
			s.kind = stepAction
		}
	case finalAt >= 0:
		s.answer = strings.TrimSpace(finalRe.FindStringSubmatch(text)[1])
		s.kind = stepFinal
	case looksLikeEnvelope(text):
		// Models sometimes skip the keywords and reply with the JSON alone.
		s.answer = text
		s.kind = stepFinal
	}
	return s
}

func cleanInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

func looksLikeEnvelope(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "```")
}
