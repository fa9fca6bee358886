package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrNoEnvelope = errors.New("output has no answer, table, bar or line")

// Parse decodes agent output into an Envelope. Code fences are stripped and
// text trailing the outermost JSON object is ignored; output that does not
// start with an object is rejected.
func Parse(raw string) (Envelope, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if cleaned == "" {
		return Envelope{}, fmt.Errorf("parse envelope: empty output")
	}
	fields, err := decodeObject(cleaned)
	if err != nil {
		return Envelope{}, err
	}

	var env Envelope
	if v, ok := fields["answer"]; ok {
		s := answerString(v)
		env.Answer = &s
	}
	if v, ok := fields["table"]; ok {
		var t Table
		if err := json.Unmarshal(v, &t); err != nil {
			return Envelope{}, fmt.Errorf("parse envelope table: %w", err)
		}
		env.Table = &t
	}
	if v, ok := fields["bar"]; ok {
		s, err := parseSeries(v)
		if err != nil {
			return Envelope{}, fmt.Errorf("parse envelope bar: %w", err)
		}
		env.Bar = s
	}
	if v, ok := fields["line"]; ok {
		s, err := parseSeries(v)
		if err != nil {
			return Envelope{}, fmt.Errorf("parse envelope line: %w", err)
		}
		env.Line = s
	}
	if env.IsEmpty() {
		return Envelope{}, ErrNoEnvelope
	}
	return env, nil
}

func decodeObject(s string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	err := json.Unmarshal([]byte(s), &fields)
	if err == nil {
		return fields, nil
	}
	end := strings.LastIndex(s, "}")
	if strings.HasPrefix(s, "{") && end > 0 {
		if err2 := json.Unmarshal([]byte(s[:end+1]), &fields); err2 == nil {
			return fields, nil
		}
	}
	return nil, fmt.Errorf("parse envelope: %w", err)
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// answerString keeps string answers verbatim and renders anything else
// (numbers, lists) as compact JSON text.
func answerString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v))
}

func parseSeries(v json.RawMessage) (*Series, error) {
	var loose struct {
		Columns []any `json:"columns"`
		Data    []any `json:"data"`
	}
	if err := json.Unmarshal(v, &loose); err != nil {
		return nil, err
	}
	if len(loose.Columns) != len(loose.Data) {
		return nil, fmt.Errorf("columns has %d labels but data has %d values", len(loose.Columns), len(loose.Data))
	}
	s := &Series{
		Columns: make([]string, len(loose.Columns)),
		Data:    make([]float64, len(loose.Data)),
	}
	for i, c := range loose.Columns {
		s.Columns[i] = label(c)
	}
	for i, d := range loose.Data {
		f, err := number(d)
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		s.Data[i] = f
	}
	return s, nil
}

func label(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// number accepts JSON numbers and numeric strings. Non-finite values cannot
// be encoded back to JSON and are rejected.
func number(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%q is not a finite number", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%v is not numeric", v)
	}
}
