// Package session keeps per-user state: the loaded dataset, the agent's
// conversation memory and the displayed history.
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"dataagent/internal/agent"
	"dataagent/internal/dataset"
	"dataagent/internal/envelope"
	"dataagent/internal/util"
)

const (
	RoleUser   = "user"
	RoleResult = "ai"

	questionLabelRunes = 30
)

// Upload is the last uploaded file as stored on disk, kept so another sheet
// can be selected without uploading again.
type Upload struct {
	Name   string
	Kind   dataset.Kind
	Path   string
	Digest string
}

type Entry struct {
	Role     string
	Content  string
	Envelope envelope.Envelope
}

// History is append-only; user entries are followed by their result.
type History struct {
	entries []Entry
}

func (h *History) AddExchange(question string, env envelope.Envelope) {
	h.entries = append(h.entries,
		Entry{Role: RoleUser, Content: question},
		Entry{Role: RoleResult, Envelope: env},
	)
}

func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Clear() { h.entries = nil }

func (h *History) Len() int { return len(h.entries) / 2 }

func (h *History) Contains(question string) bool {
	for _, e := range h.entries {
		if e.Role == RoleUser && e.Content == question {
			return true
		}
	}
	return false
}

type Question struct {
	Number int
	Label  string
	Query  string
}

// Questions numbers asked questions Q1..Qn with short labels for browsing.
func (h *History) Questions() []Question {
	out := make([]Question, 0, h.Len())
	for _, e := range h.entries {
		if e.Role != RoleUser {
			continue
		}
		n := len(out) + 1
		out = append(out, Question{
			Number: n,
			Label:  fmt.Sprintf("Q%d: %s", n, util.Truncate(e.Content, questionLabelRunes)),
			Query:  e.Content,
		})
	}
	return out
}

// Question returns the n-th (1-based) question.
func (h *History) Question(n int) (string, bool) {
	qs := h.Questions()
	if n < 1 || n > len(qs) {
		return "", false
	}
	return qs[n-1].Query, true
}

// Session must be locked by callers for the duration of one action.
type Session struct {
	sync.Mutex
	ID      string
	Dataset *dataset.Dataset
	Upload  *Upload
	Memory  *agent.Memory
	History History
}

func newSession(id string) *Session {
	return &Session{ID: id, Memory: agent.NewMemory()}
}

// SetDataset replaces the dataset. Memory and history are kept.
func (s *Session) SetDataset(ds *dataset.Dataset, up *Upload) {
	s.Dataset = ds
	s.Upload = up
}

// ClearHistory drops both the displayed history and the agent's memory.
func (s *Session) ClearHistory() {
	s.History.Clear()
	s.Memory.Reset()
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: map[string]*Session{}}
}

// Get returns the session for id, creating one with a fresh id when id is
// empty or unknown. The bool reports whether a new session was created.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok && id != "" {
		return sess, false
	}
	sess := newSession(uuid.NewString())
	s.sessions[sess.ID] = sess
	return sess, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
