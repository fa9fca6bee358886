package models

import (
	"time"

	"dataagent/internal/dataset"
	"dataagent/internal/envelope"
)

const (
	CallStatusSuccess      = "success"
	CallStatusAgentFailure = "agent_failure"
	CallStatusParseFailure = "parse_failure"
)

// AgentCall is one audited agent invocation. Cache hits are not audited.
type AgentCall struct {
	CallID      string    `json:"call_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Query       string    `json:"query"`
	Provider    string    `json:"provider,omitempty"`
	Model       string    `json:"model,omitempty"`
	Status      string    `json:"status"`
	ErrorType   string    `json:"error_type,omitempty"`
	Steps       int       `json:"steps"`
	LatencyMS   int64     `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type AskRequest struct {
	Query string `json:"query"`
}

type AskResponse struct {
	Question    string            `json:"question"`
	Envelope    envelope.Envelope `json:"envelope"`
	Outcome     string            `json:"outcome"`
	Cached      bool              `json:"cached"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	HTML        string            `json:"html"`
}

type SheetRequest struct {
	Sheet string `json:"sheet"`
}

type UploadResponse struct {
	Dataset dataset.Preview `json:"dataset"`
}

type HistoryEntry struct {
	Index    int               `json:"index"`
	Role     string            `json:"role"`
	Content  string            `json:"content,omitempty"`
	Envelope envelope.Envelope `json:"envelope,omitempty"`
}

type QuestionItem struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
	Query  string `json:"query"`
}

type HistoryResponse struct {
	Entries   []HistoryEntry `json:"entries"`
	Questions []QuestionItem `json:"questions"`
}

type CacheItem struct {
	Fingerprint string    `json:"fingerprint"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	StoredAt    time.Time `json:"stored_at"`
}

type CacheResponse struct {
	Size   int         `json:"size"`
	Recent []CacheItem `json:"recent"`
}
