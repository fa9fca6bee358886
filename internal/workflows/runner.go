package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"dataagent/internal/activities"
	"dataagent/internal/agent"
	"dataagent/internal/dataset"
	"dataagent/internal/util"
)

// Runner is an agent.Agent that executes each run as an AnswerWorkflow on a
// Temporal worker. The dataset is staged under dataDir/staged, which the
// worker must be able to read.
type Runner struct {
	client    client.Client
	taskQueue string
	dataDir   string
	timeout   time.Duration
}

func NewRunner(c client.Client, taskQueue, dataDir string, timeout time.Duration) *Runner {
	return &Runner{client: c, taskQueue: taskQueue, dataDir: dataDir, timeout: timeout}
}

func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, query string, history []agent.Turn) (agent.Output, error) {
	if ds.Empty() {
		return agent.Output{}, util.ErrNoDataset
	}
	path, digest, err := r.stage(ds)
	if err != nil {
		return agent.Output{}, err
	}

	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("answer-%s-%s", digest[:12], uuid.NewString()),
		TaskQueue: r.taskQueue,
	}
	run, err := r.client.ExecuteWorkflow(ctx, opts, AnswerWorkflow, AnswerInput{
		DatasetPath:    path,
		Query:          query,
		History:        history,
		TimeoutSeconds: int(r.timeout / time.Second),
	})
	if err != nil {
		return agent.Output{}, fmt.Errorf("start answer workflow: %w", err)
	}
	var out activities.RunAgentOutput
	err = run.Get(ctx, &out)
	res := agent.Output{Raw: out.Raw, Provider: out.Provider, Model: out.Model, Steps: out.Steps}
	if err != nil {
		return res, translateWorkflowError(err)
	}
	return res, nil
}

// stage writes ds once per content digest.
func (r *Runner) stage(ds *dataset.Dataset) (string, string, error) {
	b, err := json.Marshal(ds)
	if err != nil {
		return "", "", fmt.Errorf("encode dataset: %w", err)
	}
	digest := util.SHA256Hex(b)
	path := filepath.Join(r.dataDir, "staged", digest+".json")
	if util.FileExists(path) {
		return path, digest, nil
	}
	if err := util.WriteJSONAtomic(path, ds); err != nil {
		return "", "", fmt.Errorf("stage dataset: %w", err)
	}
	return path, digest, nil
}

// translateWorkflowError restores the sentinel errors the activity reported.
func translateWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		switch appErr.Type() {
		case activities.ErrTypeIterationLimit:
			return fmt.Errorf("%w: %s", util.ErrIterationLimit, appErr.Error())
		case activities.ErrTypeNoDataset:
			return fmt.Errorf("%w: %s", util.ErrNoDataset, appErr.Error())
		}
	}
	return err
}
