package activities

import "dataagent/internal/agent"

// RunAgentInput points at a dataset staged on the shared data dir; tables are
// too large to pass through workflow history.
type RunAgentInput struct {
	DatasetPath string       `json:"dataset_path"`
	Query       string       `json:"query"`
	History     []agent.Turn `json:"history,omitempty"`
}

type RunAgentOutput struct {
	Raw      string `json:"raw"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Steps    int    `json:"steps"`
}

// Application error types surfaced to the workflow caller.
const (
	ErrTypeIterationLimit = "IterationLimit"
	ErrTypeNoDataset      = "NoDataset"
)
