// Package agent runs a bounded tool-using reasoning loop over a dataset and
// returns the model's final answer text.
package agent

import (
	"context"
	"sync"

	"dataagent/internal/dataset"
)

// Turn is one prior exchange replayed to the model as conversation memory.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Output is the raw final answer plus bookkeeping for audit.
type Output struct {
	Raw      string `json:"raw"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Steps    int    `json:"steps"`
}

// Agent answers a query about a dataset. A returned error is an agent fault;
// Raw is not validated.
type Agent interface {
	Run(ctx context.Context, ds *dataset.Dataset, query string, history []Turn) (Output, error)
}

// Memory is the per-session conversation buffer.
type Memory struct {
	mu    sync.Mutex
	turns []Turn
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Add(t Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
}

// Turns returns a copy of the buffered turns, oldest first.
func (m *Memory) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}
