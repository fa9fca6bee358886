package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataagent/internal/dataset"
	"dataagent/internal/providers"
	"dataagent/internal/util"
)

// scriptedLLM replays canned replies and records every request.
type scriptedLLM struct {
	replies  []string
	err      error
	requests []providers.GenerateRequest
}

func (s *scriptedLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	s.requests = append(s.requests, req)
	info := providers.ProviderInfo{Name: "scripted", Model: "test"}
	if s.err != nil {
		return providers.GenerateResponse{}, info, s.err
	}
	i := len(s.requests) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return providers.GenerateResponse{Text: s.replies[i]}, info, nil
}

func salesData() *dataset.Dataset {
	return &dataset.Dataset{
		Name:    "sales.csv",
		Kind:    dataset.KindCSV,
		Columns: []string{"name", "region", "sales"},
		Rows: [][]dataset.Value{
			{dataset.Text("A001"), dataset.Text("north"), dataset.Number(200)},
			{dataset.Text("A002"), dataset.Text("south"), dataset.Number(150)},
			{dataset.Text("A003"), dataset.Text("north"), dataset.Number(80)},
		},
	}
}

func TestExecutorToolThenFinalAnswer(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"I should total the sales column.\nAction: aggregate\nAction Input: {\"op\":\"sum\",\"column\":\"sales\"}\nObservation: made up",
		"Thought: I now know the final answer\nFinal Answer: {\"answer\": \"Total sales are 430\"}",
	}}
	e := NewExecutor(llm)
	out, err := e.Run(context.Background(), salesData(), "what is total sales", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"answer": "Total sales are 430"}`, out.Raw)
	assert.Equal(t, 2, out.Steps)
	assert.Equal(t, "scripted", out.Provider)

	require.Len(t, llm.requests, 2)
	second := llm.requests[1].Prompt
	assert.Contains(t, second, `Observation: {"sum":430,"rows":3}`)
	assert.NotContains(t, second, "made up")
	assert.Contains(t, llm.requests[0].Prompt, DefaultInstructions+"what is total sales")
	assert.Contains(t, llm.requests[0].System, "aggregate")
	assert.Equal(t, DefaultMaxTokens, llm.requests[0].MaxTokens)
}

func TestExecutorFeedsBackInvalidSteps(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"Let me think about it without following the format.",
		"Final Answer: {\"answer\": \"3 rows\"}",
	}}
	out, err := NewExecutor(llm).Run(context.Background(), salesData(), "how many rows", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"answer": "3 rows"}`, out.Raw)
	assert.Contains(t, llm.requests[1].Prompt, invalidStepObservation)
}

func TestExecutorUnknownToolIsObservation(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"Action: python_repl_ast\nAction Input: df.sum()",
		"Final Answer: {\"answer\": \"ok\"}",
	}}
	_, err := NewExecutor(llm).Run(context.Background(), salesData(), "q", nil)
	require.NoError(t, err)
	assert.Contains(t, llm.requests[1].Prompt, "python_repl_ast is not a valid tool")
}

func TestExecutorIterationLimit(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"Action: schema\nAction Input: "}}
	_, err := NewExecutor(llm, WithMaxIterations(3)).Run(context.Background(), salesData(), "q", nil)
	require.ErrorIs(t, err, util.ErrIterationLimit)
	assert.Len(t, llm.requests, 3)
}

func TestExecutorProviderErrorIsAgentFault(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("503 unavailable")}
	_, err := NewExecutor(llm).Run(context.Background(), salesData(), "q", nil)
	assert.ErrorContains(t, err, "unavailable")
}

func TestExecutorRendersHistoryAndHonorsOptions(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"answer":"north"}`}}
	e := NewExecutor(llm, WithInstructions("Be brief. "), WithTemperature(0.2), WithMaxTokens(256))
	history := []Turn{{Question: "top region?", Answer: `{"answer":"north"}`}}
	out, err := e.Run(context.Background(), salesData(), "and again?", history)
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"north"}`, out.Raw)

	req := llm.requests[0]
	assert.Contains(t, req.Prompt, "Human: top region?\nAI: {\"answer\":\"north\"}")
	assert.Contains(t, req.Prompt, "Question: Be brief. and again?")
	assert.InDelta(t, 0.2, req.Temperature, 1e-9)
	assert.Equal(t, 256, req.MaxTokens)
}

func TestExecutorRejectsEmptyDataset(t *testing.T) {
	_, err := NewExecutor(&scriptedLLM{}).Run(context.Background(), &dataset.Dataset{}, "q", nil)
	assert.ErrorIs(t, err, util.ErrNoDataset)
}

func TestExecutorStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	llm := &scriptedLLM{replies: []string{"Final Answer: {}"}}
	_, err := NewExecutor(llm).Run(ctx, salesData(), "q", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, llm.requests)
}

func TestParseStep(t *testing.T) {
	s := parseStep("Thought: need groups\nAction: aggregate\nAction Input: ```json\n{\"op\":\"count\"}\n```")
	assert.Equal(t, stepAction, s.kind)
	assert.Equal(t, "aggregate", s.action)
	assert.Equal(t, `{"op":"count"}`, s.input)

	s = parseStep("Action: distinct\nAction Input: \"region\"")
	assert.Equal(t, "region", s.input)

	s = parseStep("Thought: done\nFinal Answer: {\"bar\":{\"columns\":[\"a\"],\"data\":[1]}}")
	assert.Equal(t, stepFinal, s.kind)
	assert.True(t, strings.HasPrefix(s.answer, `{"bar"`))

	s = parseStep("```json\n{\"answer\":\"x\"}\n```")
	assert.Equal(t, stepFinal, s.kind)

	assert.Equal(t, stepInvalid, parseStep("no idea").kind)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.Add(Turn{Question: "q1", Answer: "a1"})
	turns := m.Turns()
	turns[0].Question = "mutated"
	assert.Equal(t, "q1", m.Turns()[0].Question)
	assert.Equal(t, 1, m.Len())
	m.Reset()
	assert.Equal(t, 0, m.Len())
}
