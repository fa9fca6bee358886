package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dataagent/internal/dataset"
	"dataagent/internal/providers"
	"dataagent/internal/util"
)

const (
	DefaultMaxIterations = 32
	DefaultMaxTokens     = 8192
	maxObservationRunes  = 4000
)

// Executor is the in-process Agent. Each iteration is one model call that
// either invokes a tool or returns the final answer.
type Executor struct {
	llm           providers.LLMProvider
	instructions  string
	maxIterations int
	temperature   float64
	maxTokens     int
	tools         func(*dataset.Dataset) []Tool
	log           *zap.Logger
}

type Option func(*Executor)

func WithInstructions(s string) Option {
	return func(e *Executor) {
		if strings.TrimSpace(s) != "" {
			e.instructions = s
		}
	}
}

func WithMaxIterations(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

func WithTemperature(t float64) Option {
	return func(e *Executor) { e.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

func WithTools(f func(*dataset.Dataset) []Tool) Option {
	return func(e *Executor) { e.tools = f }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Executor) { e.log = log }
}

func NewExecutor(llm providers.LLMProvider, opts ...Option) *Executor {
	e := &Executor{
		llm:           llm,
		instructions:  DefaultInstructions,
		maxIterations: DefaultMaxIterations,
		maxTokens:     DefaultMaxTokens,
		tools:         DefaultTools,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Run(ctx context.Context, ds *dataset.Dataset, query string, history []Turn) (Output, error) {
	var out Output
	if ds.Empty() {
		return out, util.ErrNoDataset
	}
	tools := e.tools(ds)
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[strings.ToLower(t.Name())] = t
	}
	system := systemPrompt(ds, tools)

	var scratch strings.Builder
	for i := 1; i <= e.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		resp, info, err := e.llm.Generate(ctx, providers.GenerateRequest{
			Operation:   "agent_step",
			System:      system,
			Prompt:      userPrompt(e.instructions, query, history, scratch.String()),
			Temperature: e.temperature,
			MaxTokens:   e.maxTokens,
		})
		out.Provider, out.Model, out.Steps = info.Name, info.Model, i
		if err != nil {
			return out, fmt.Errorf("agent step %d: %w", i, err)
		}

		st := parseStep(resp.Text)
		var observation string
		switch st.kind {
		case stepFinal:
			out.Raw = st.answer
			e.log.Debug("agent finished", zap.Int("steps", i), zap.String("provider", info.Name))
			return out, nil
		case stepAction:
			observation = e.callTool(byName, tools, ds, st.action, st.input)
			e.log.Debug("agent tool call", zap.Int("step", i), zap.String("tool", st.action))
		default:
			observation = invalidStepObservation
			e.log.Debug("agent step unparseable", zap.Int("step", i))
		}
		scratch.WriteString(" ")
		scratch.WriteString(st.text)
		scratch.WriteString("\nObservation: ")
		scratch.WriteString(observation)
		scratch.WriteString("\n")
	}
	return out, fmt.Errorf("%w after %d steps", util.ErrIterationLimit, e.maxIterations)
}

// callTool never fails the run; tool errors are reported to the model.
func (e *Executor) callTool(byName map[string]Tool, tools []Tool, ds *dataset.Dataset, name, input string) string {
	t, ok := byName[strings.ToLower(name)]
	if !ok {
		return fmt.Sprintf("%v: %s is not a valid tool, try one of [%s].", util.ErrUnknownTool, name, strings.Join(toolNames(tools), ", "))
	}
	result, err := t.Call(ds, input)
	if err != nil {
		return "Error: " + err.Error()
	}
	return util.Truncate(result, maxObservationRunes)
}
