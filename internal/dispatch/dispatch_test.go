package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dataagent/internal/agent"
	"dataagent/internal/cache"
	"dataagent/internal/dataset"
	"dataagent/internal/envelope"
	"dataagent/internal/models"
	"dataagent/internal/util"
)

type fakeAgent struct {
	mu      sync.Mutex
	raw     string
	err     error
	calls   int
	history [][]agent.Turn
}

func (f *fakeAgent) Run(ctx context.Context, ds *dataset.Dataset, query string, history []agent.Turn) (agent.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.history = append(f.history, history)
	return agent.Output{Raw: f.raw, Provider: "fake", Model: "fake-1", Steps: 1}, f.err
}

type auditMock struct {
	mock.Mock
}

func (m *auditMock) RecordAgentCall(ctx context.Context, call models.AgentCall) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func salesData() *dataset.Dataset {
	return &dataset.Dataset{
		Name:    "sales.csv",
		Kind:    dataset.KindCSV,
		Columns: []string{"name", "sales"},
		Rows: [][]dataset.Value{
			{dataset.Text("A"), dataset.Number(200)},
			{dataset.Text("B"), dataset.Number(150)},
			{dataset.Text("C"), dataset.Number(80)},
		},
	}
}

func TestAnswerCachesAndIsIdempotent(t *testing.T) {
	a := &fakeAgent{raw: `{"answer": "430"}`}
	d := New(a, cache.NewMapCache())
	mem := agent.NewMemory()

	first, err := d.Answer(context.Background(), salesData(), "what is total sales", mem)
	require.NoError(t, err)
	assert.Equal(t, Success, first.Kind)
	assert.False(t, first.Cached)
	assert.Equal(t, "430", first.Envelope.AnswerText())

	second, err := d.Answer(context.Background(), salesData(), "what is total sales", mem)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, mustJSON(t, first.Envelope), mustJSON(t, second.Envelope))
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, mem.Len())

	entry, ok := d.Lookup(salesData(), "what is total sales")
	require.True(t, ok)
	assert.Equal(t, "what is total sales", entry.Question)
}

func TestAnswerPassesMemoryToAgent(t *testing.T) {
	a := &fakeAgent{raw: `{"answer": "ok"}`}
	d := New(a, cache.NewMapCache())
	mem := agent.NewMemory()

	_, err := d.Answer(context.Background(), salesData(), "first", mem)
	require.NoError(t, err)
	_, err = d.Answer(context.Background(), salesData(), "second", mem)
	require.NoError(t, err)

	require.Len(t, a.history, 2)
	assert.Empty(t, a.history[0])
	require.Len(t, a.history[1], 1)
	assert.Equal(t, agent.Turn{Question: "first", Answer: `{"answer":"ok"}`}, a.history[1][0])
}

func TestAnswerParseFailureFallsBack(t *testing.T) {
	a := &fakeAgent{raw: "The total is 430."}
	c := cache.NewMapCache()
	d := New(a, c)

	out, err := d.Answer(context.Background(), salesData(), "total", nil)
	require.NoError(t, err)
	assert.Equal(t, ParseFailure, out.Kind)
	assert.Equal(t, envelope.FallbackMessage, out.Envelope.AnswerText())
	assert.Equal(t, "The total is 430.", out.Raw)
	assert.Equal(t, 0, c.Len())

	_, err = d.Answer(context.Background(), salesData(), "total", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, a.calls, "failures are not cached")
}

func TestAnswerRejectsNonFiniteSeries(t *testing.T) {
	a := &fakeAgent{raw: `{"bar":{"columns":["a","b"],"data":["NaN","Inf"]}}`}
	audit := &auditMock{}
	audit.On("RecordAgentCall", mock.Anything, mock.MatchedBy(func(c models.AgentCall) bool {
		return c.Status == models.CallStatusParseFailure && c.ErrorType == "parse"
	})).Return(nil).Once()
	d := New(a, cache.NewMapCache(), WithAudit(audit))
	mem := agent.NewMemory()

	out, err := d.Answer(context.Background(), salesData(), "chart it", mem)
	require.NoError(t, err)
	assert.Equal(t, ParseFailure, out.Kind)
	assert.Equal(t, envelope.FallbackMessage, out.Envelope.AnswerText())
	assert.Equal(t, 0, d.Cache().Len())
	assert.Equal(t, 0, mem.Len())
	assert.NotEmpty(t, mustJSON(t, out.Envelope))
	audit.AssertExpectations(t)
}

func mustJSON(t *testing.T, env envelope.Envelope) string {
	t.Helper()
	s, err := env.JSON()
	require.NoError(t, err)
	return s
}

func TestAnswerAgentFailureFallsBack(t *testing.T) {
	a := &fakeAgent{err: errors.New("503 service unavailable")}
	audit := &auditMock{}
	audit.On("RecordAgentCall", mock.Anything, mock.MatchedBy(func(c models.AgentCall) bool {
		return c.Status == models.CallStatusAgentFailure && c.ErrorType == "transient" && c.Provider == "fake"
	})).Return(errors.New("db down")).Once()

	c := cache.NewMapCache()
	d := New(a, c, WithAudit(audit))
	mem := agent.NewMemory()

	out, err := d.Answer(context.Background(), salesData(), "total", mem)
	require.NoError(t, err)
	assert.Equal(t, AgentFailure, out.Kind)
	assert.Equal(t, envelope.Fallback(), out.Envelope)
	assert.Contains(t, out.Reason, "unavailable")
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, mem.Len())
	audit.AssertExpectations(t)
}

func TestAnswerIterationLimitIsTagged(t *testing.T) {
	a := &fakeAgent{err: util.ErrIterationLimit}
	audit := &auditMock{}
	audit.On("RecordAgentCall", mock.Anything, mock.MatchedBy(func(c models.AgentCall) bool {
		return c.ErrorType == "iteration_limit"
	})).Return(nil).Once()

	out, err := New(a, cache.NewMapCache(), WithAudit(audit)).Answer(context.Background(), salesData(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, AgentFailure, out.Kind)
	audit.AssertExpectations(t)
}

func TestAnswerAuditsSuccessWithSession(t *testing.T) {
	audit := &auditMock{}
	audit.On("RecordAgentCall", mock.Anything, mock.MatchedBy(func(c models.AgentCall) bool {
		return c.Status == models.CallStatusSuccess && c.SessionID == "s-1" && c.Query == "q" && len(c.Fingerprint) == 64
	})).Return(nil).Once()

	d := New(&fakeAgent{raw: `{"answer":"x"}`}, cache.NewMapCache(), WithAudit(audit))
	_, err := d.Answer(WithSessionID(context.Background(), "s-1"), salesData(), "q", nil)
	require.NoError(t, err)
	// A cache hit is not audited.
	_, err = d.Answer(context.Background(), salesData(), "q", nil)
	require.NoError(t, err)
	audit.AssertExpectations(t)
}

func TestAnswerRejectsEmptyQuery(t *testing.T) {
	a := &fakeAgent{raw: `{"answer":"x"}`}
	_, err := New(a, cache.NewMapCache()).Answer(context.Background(), salesData(), "  \t", nil)
	assert.ErrorIs(t, err, util.ErrEmptyQuery)
	assert.Equal(t, 0, a.calls)
}

func TestAnswerWithoutDataset(t *testing.T) {
	a := &fakeAgent{raw: `{"answer":"x"}`}
	out, err := New(a, cache.NewMapCache()).Answer(context.Background(), nil, "total", nil)
	require.NoError(t, err)
	assert.Equal(t, NoData, out.Kind)
	assert.Equal(t, envelope.NoDataMessage, out.Envelope.AnswerText())
	assert.Equal(t, 0, a.calls)
}

func TestClearCacheForcesAgent(t *testing.T) {
	a := &fakeAgent{raw: `{"bar":{"columns":["A","B","C"],"data":[200,150,80]}}`}
	d := New(a, cache.NewMapCache())

	out, err := d.Answer(context.Background(), salesData(), "chart it", nil)
	require.NoError(t, err)
	assert.Equal(t, envelope.VisualBar, out.Envelope.Visual())

	d.Cache().Clear()
	assert.Equal(t, 0, d.Cache().Len())
	out, err = d.Answer(context.Background(), salesData(), "chart it", nil)
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Equal(t, 2, a.calls)
}

func TestAnswerTimeoutReachesAgent(t *testing.T) {
	blocking := agentFunc(func(ctx context.Context) (agent.Output, error) {
		<-ctx.Done()
		return agent.Output{}, ctx.Err()
	})
	out, err := New(blocking, cache.NewMapCache(), WithTimeout(10*time.Millisecond)).Answer(context.Background(), salesData(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, AgentFailure, out.Kind)
	assert.Contains(t, out.Reason, "deadline")
}

type agentFunc func(ctx context.Context) (agent.Output, error)

func (f agentFunc) Run(ctx context.Context, _ *dataset.Dataset, _ string, _ []agent.Turn) (agent.Output, error) {
	return f(ctx)
}
