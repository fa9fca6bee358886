package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"dataagent/internal/agent"
	"dataagent/internal/dataset"
	"dataagent/internal/util"
)

type Activities struct {
	agent agent.Agent
}

func New(a agent.Agent) *Activities {
	return &Activities{agent: a}
}

// RunAgentActivity runs one agent invocation on the worker. Deterministic
// failures are returned non-retryable so the workflow fails fast.
func (a *Activities) RunAgentActivity(ctx context.Context, in RunAgentInput) (RunAgentOutput, error) {
	logger := activity.GetLogger(ctx)
	var ds dataset.Dataset
	if err := util.ReadJSON(in.DatasetPath, &ds); err != nil {
		return RunAgentOutput{}, temporal.NewNonRetryableApplicationError(fmt.Sprintf("load staged dataset: %v", err), ErrTypeNoDataset, err)
	}

	out, err := a.agent.Run(ctx, &ds, in.Query, in.History)
	res := RunAgentOutput{Raw: out.Raw, Provider: out.Provider, Model: out.Model, Steps: out.Steps}
	switch {
	case err == nil:
		logger.Info("agent run complete", "steps", out.Steps, "provider", out.Provider)
		return res, nil
	case errors.Is(err, util.ErrIterationLimit):
		return res, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeIterationLimit, err)
	case errors.Is(err, util.ErrNoDataset):
		return res, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoDataset, err)
	default:
		return res, err
	}
}
