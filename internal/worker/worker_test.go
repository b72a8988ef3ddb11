package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/service"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type fakeRecorder struct {
	todos []service.TodoRequest
}

func (f *fakeRecorder) RecordTodo(_ context.Context, todo service.TodoRequest) error {
	f.todos = append(f.todos, todo)
	return nil
}

type fakeSweeper struct {
	calls int
	err   error
}

func (f *fakeSweeper) SweepSLABreaches(context.Context) (int, error) {
	f.calls++
	return 2, f.err
}

func TestSchedulerEnqueuesTodo(t *testing.T) {
	client := &fakeEnqueuer{}
	scheduler := NewScheduler(client, config.WorkerConfig{Queue: "field", TodoDelayHours: 1}, nil)

	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	todo := service.TodoRequest{RecordType: "call", RecordID: "c-1", UserID: "u-1", Summary: "Service Call: REP-202603-00001", DueAt: due}
	require.NoError(t, scheduler.ScheduleTodo(context.Background(), todo))

	require.Len(t, client.tasks, 1)
	assert.Equal(t, TypeActivityTodo, client.tasks[0].Type())

	var decoded service.TodoRequest
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &decoded))
	assert.Equal(t, "c-1", decoded.RecordID)
	assert.Contains(t, client.opts[0], asynq.ProcessAt(due.Add(time.Hour)))
	assert.Contains(t, client.opts[0], asynq.Queue("field"))
}

func TestSchedulerWrapsEnqueueError(t *testing.T) {
	scheduler := NewScheduler(&fakeEnqueuer{err: errors.New("redis down")}, config.WorkerConfig{}, nil)
	err := scheduler.ScheduleTodo(context.Background(), service.TodoRequest{RecordID: "c-1", Summary: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestMuxRoutesTodoTask(t *testing.T) {
	recorder := &fakeRecorder{}
	mux := NewServeMux(Handlers{Todos: recorder, Calls: &fakeSweeper{}})

	task, _, err := NewTodoTask(service.TodoRequest{RecordType: "call", RecordID: "c-9", Summary: "Follow up"}, "", time.Now())
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))

	require.Len(t, recorder.todos, 1)
	assert.Equal(t, "c-9", recorder.todos[0].RecordID)
}

func TestMuxSkipsRetryOnBadPayload(t *testing.T) {
	mux := NewServeMux(Handlers{Todos: &fakeRecorder{}, Calls: &fakeSweeper{}})
	err := mux.ProcessTask(context.Background(), asynq.NewTask(TypeActivityTodo, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMuxRunsSLASweep(t *testing.T) {
	sweeper := &fakeSweeper{}
	mux := NewServeMux(Handlers{Todos: &fakeRecorder{}, Calls: sweeper})
	require.NoError(t, mux.ProcessTask(context.Background(), NewSLASweepTask()))
	assert.Equal(t, 1, sweeper.calls)

	sweeper.err = errors.New("db down")
	assert.Error(t, mux.ProcessTask(context.Background(), NewSLASweepTask()))
}
