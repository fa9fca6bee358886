// Package envelope defines the structured result an agent answers with.
package envelope

import (
	"encoding/json"
	"fmt"
)

const (
	FallbackMessage = "Result unavailable, please retry later."
	NoDataMessage   = "Please upload a data file first."
)

// Envelope is the tagged {answer | table | bar | line} result. Absent fields
// mean "not applicable".
type Envelope struct {
	Answer *string `json:"answer,omitempty"`
	Table  *Table  `json:"table,omitempty"`
	Bar    *Series `json:"bar,omitempty"`
	Line   *Series `json:"line,omitempty"`
}

type Table struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

// Series is chart data: category labels and one numeric value per label.
type Series struct {
	Columns []string  `json:"columns"`
	Data    []float64 `json:"data"`
}

type Visual string

const (
	VisualNone  Visual = ""
	VisualBar   Visual = "bar"
	VisualLine  Visual = "line"
	VisualTable Visual = "table"
)

func Text(s string) Envelope {
	return Envelope{Answer: &s}
}

func Fallback() Envelope { return Text(FallbackMessage) }

func NoData() Envelope { return Text(NoDataMessage) }

// Visual picks the single visual to render: bar, then line, then table.
func (e Envelope) Visual() Visual {
	switch {
	case e.Bar != nil:
		return VisualBar
	case e.Line != nil:
		return VisualLine
	case e.Table != nil:
		return VisualTable
	default:
		return VisualNone
	}
}

// Chart returns the series of the selected chart visual, if any.
func (e Envelope) Chart() (*Series, Visual) {
	switch v := e.Visual(); v {
	case VisualBar:
		return e.Bar, v
	case VisualLine:
		return e.Line, v
	default:
		return nil, v
	}
}

func (e Envelope) AnswerText() string {
	if e.Answer == nil {
		return ""
	}
	return *e.Answer
}

func (e Envelope) IsEmpty() bool {
	return e.Answer == nil && e.Table == nil && e.Bar == nil && e.Line == nil
}

// Summary is a one-line description used by history and cache listings.
func (e Envelope) Summary() string {
	if e.Answer != nil {
		return *e.Answer
	}
	switch e.Visual() {
	case VisualBar:
		return "bar chart"
	case VisualLine:
		return "line chart"
	case VisualTable:
		return "table"
	}
	return ""
}

func (e Envelope) JSON() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	return string(b), nil
}
