package workflows

import "dataagent/internal/agent"

type AnswerInput struct {
	DatasetPath    string       `json:"dataset_path"`
	Query          string       `json:"query"`
	History        []agent.Turn `json:"history,omitempty"`
	TimeoutSeconds int          `json:"timeout_seconds"`
}

type AnswerStatus struct {
	State string `json:"state"`
	Steps int    `json:"steps"`
	Error string `json:"error,omitempty"`
}
