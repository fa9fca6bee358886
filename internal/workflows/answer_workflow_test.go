package workflows

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"dataagent/internal/activities"
	"dataagent/internal/agent"
	"dataagent/internal/dataset"
	"dataagent/internal/util"
)

func newAnswerEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(AnswerWorkflow)
	env.RegisterActivityWithOptions(func(context.Context, activities.RunAgentInput) (activities.RunAgentOutput, error) {
		return activities.RunAgentOutput{}, nil
	}, activity.RegisterOptions{Name: "RunAgentActivity"})
	return env
}

func TestAnswerWorkflowSuccess(t *testing.T) {
	env := newAnswerEnv(t)
	in := AnswerInput{
		DatasetPath: "/data/staged/abc.json",
		Query:       "what is total sales",
		History:     []agent.Turn{{Question: "rows?", Answer: `{"answer":"3"}`}},
	}
	env.OnActivity("RunAgentActivity", mock.Anything, activities.RunAgentInput{
		DatasetPath: in.DatasetPath,
		Query:       in.Query,
		History:     in.History,
	}).Return(activities.RunAgentOutput{Raw: `{"answer":"430"}`, Provider: "mock", Steps: 2}, nil).Once()

	env.ExecuteWorkflow(AnswerWorkflow, in)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out activities.RunAgentOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, `{"answer":"430"}`, out.Raw)
	assert.Equal(t, 2, out.Steps)

	q, err := env.QueryWorkflow(QueryGetStatus)
	require.NoError(t, err)
	var status AnswerStatus
	require.NoError(t, q.Get(&status))
	assert.Equal(t, "completed", status.State)
	env.AssertExpectations(t)
}

func TestAnswerWorkflowDoesNotRetry(t *testing.T) {
	env := newAnswerEnv(t)
	env.OnActivity("RunAgentActivity", mock.Anything, mock.Anything).
		Return(activities.RunAgentOutput{}, temporal.NewApplicationError("provider unavailable", "Transient")).Once()

	env.ExecuteWorkflow(AnswerWorkflow, AnswerInput{DatasetPath: "x.json", Query: "q"})
	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unavailable")
	env.AssertExpectations(t)
}

func TestAnswerWorkflowIterationLimitMapsToSentinel(t *testing.T) {
	env := newAnswerEnv(t)
	env.OnActivity("RunAgentActivity", mock.Anything, mock.Anything).
		Return(activities.RunAgentOutput{Steps: 32}, temporal.NewNonRetryableApplicationError("limit", activities.ErrTypeIterationLimit, nil))

	env.ExecuteWorkflow(AnswerWorkflow, AnswerInput{DatasetPath: "x.json", Query: "q"})
	require.True(t, env.IsWorkflowCompleted())
	err := translateWorkflowError(env.GetWorkflowError())
	assert.ErrorIs(t, err, util.ErrIterationLimit)
}

func salesDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Name:    "sales.csv",
		Kind:    dataset.KindCSV,
		Columns: []string{"name", "sales"},
		Rows: [][]dataset.Value{
			{dataset.Text("A001"), dataset.Number(200)},
			{dataset.Text("A002"), dataset.Number(150)},
		},
	}
}

func TestRunnerStagesDatasetAndExecutesWorkflow(t *testing.T) {
	dir := t.TempDir()
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	var started AnswerInput
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { started = args.Get(3).(AnswerInput) }).
		Return(run, nil)
	run.On("Get", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(1).(*activities.RunAgentOutput) = activities.RunAgentOutput{Raw: `{"answer":"350"}`, Provider: "mock", Steps: 1}
		}).
		Return(nil)

	r := NewRunner(c, "dataagent", dir, 30*time.Second)
	out, err := r.Run(context.Background(), salesDataset(), "total?", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"350"}`, out.Raw)
	assert.Equal(t, 30, started.TimeoutSeconds)
	assert.Equal(t, "total?", started.Query)

	assert.Equal(t, filepath.Join(dir, "staged"), filepath.Dir(started.DatasetPath))
	var staged dataset.Dataset
	require.NoError(t, util.ReadJSON(started.DatasetPath, &staged))
	assert.Equal(t, salesDataset().Columns, staged.Columns)
	assert.Equal(t, 200.0, staged.Rows[0][1].Num)
	assert.True(t, staged.Rows[0][1].IsNum)

	entries, err := os.ReadDir(filepath.Join(dir, "staged"))
	require.NoError(t, err)
	_, err = r.Run(context.Background(), salesDataset(), "again", nil)
	require.NoError(t, err)
	again, err := os.ReadDir(filepath.Join(dir, "staged"))
	require.NoError(t, err)
	assert.Len(t, again, len(entries))
}

func TestRunnerRejectsEmptyDataset(t *testing.T) {
	r := NewRunner(&mocks.Client{}, "q", t.TempDir(), time.Minute)
	_, err := r.Run(context.Background(), &dataset.Dataset{}, "q", nil)
	assert.ErrorIs(t, err, util.ErrNoDataset)
}
