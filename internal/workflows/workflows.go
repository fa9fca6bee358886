package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"dataagent/internal/activities"
)

const (
	QueryGetStatus = "GetStatus"

	defaultAnswerTimeout = 5 * time.Minute
)

// AnswerWorkflow runs the agent once. A failed run is not retried: the caller
// falls back to a placeholder result instead.
func AnswerWorkflow(ctx workflow.Context, input AnswerInput) (activities.RunAgentOutput, error) {
	status := AnswerStatus{State: "running"}
	if err := workflow.SetQueryHandler(ctx, QueryGetStatus, func() (AnswerStatus, error) {
		return status, nil
	}); err != nil {
		return activities.RunAgentOutput{}, err
	}

	timeout := defaultAnswerTimeout
	if input.TimeoutSeconds > 0 {
		timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out activities.RunAgentOutput
	err := workflow.ExecuteActivity(ctx, "RunAgentActivity", activities.RunAgentInput{
		DatasetPath: input.DatasetPath,
		Query:       input.Query,
		History:     input.History,
	}).Get(ctx, &out)
	status.Steps = out.Steps
	if err != nil {
		status.State = "failed"
		status.Error = err.Error()
		workflow.GetLogger(ctx).Warn("answer failed", "query", input.Query, "error", err)
		return out, err
	}
	status.State = "completed"
	return out, nil
}
