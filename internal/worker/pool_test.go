package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTask for testing
type mockTask struct {
	id       string
	duration time.Duration
	err      error
}

func (t *mockTask) ID() string { return t.id }
func (t *mockTask) Execute(ctx context.Context) error {
	select {
	case <-time.After(t.duration):
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestPool_BasicExecution(t *testing.T) {
	pool := NewPool(context.Background(), Config{Workers: 2, QueueSize: 10})
	pool.Start()
	defer pool.Stop()

	for i := 0; i < 5; i++ {
		task := &mockTask{
			id:       fmt.Sprintf("task-%d", i),
			duration: 10 * time.Millisecond,
		}
		require.NoError(t, pool.Submit(task))
	}

	results := 0
	timeout := time.After(time.Second)
	for results < 5 {
		select {
		case r := <-pool.Results():
			assert.NoError(t, r.Error)
			results++
		case <-timeout:
			t.Fatal("timeout waiting for results")
		}
	}

	assert.Equal(t, int64(5), pool.Stats().Processed)
}

func TestPool_ErrorHandling(t *testing.T) {
	pool := NewPool(context.Background(), Config{Workers: 2})
	pool.Start()
	defer pool.Stop()

	expectedErr := errors.New("task failed")
	require.NoError(t, pool.Submit(&mockTask{id: "failing-task", duration: 10 * time.Millisecond, err: expectedErr}))

	result := <-pool.Results()
	assert.Equal(t, "failing-task", result.TaskID)
	assert.ErrorIs(t, result.Error, expectedErr)
	assert.Equal(t, int64(1), pool.Stats().Errors)
}

func TestPool_Cancellation(t *testing.T) {
	pool := NewPool(context.Background(), Config{Workers: 2})
	pool.Start()

	require.NoError(t, pool.Submit(&mockTask{id: "long-task", duration: 10 * time.Second}))

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a running task")
	}

	assert.Error(t, pool.Submit(&mockTask{id: "late"}))
}

func TestPool_ParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, Config{Workers: 1})
	pool.Start()
	defer pool.Stop()

	cancel()
	assert.ErrorIs(t, pool.Submit(&mockTask{id: "x"}), context.Canceled)
}

func TestPool_NotStarted(t *testing.T) {
	pool := NewPool(context.Background(), Config{Workers: 2})
	assert.Error(t, pool.Submit(&mockTask{id: "test"}))
}

func TestPool_DoubleStartAndStop(t *testing.T) {
	pool := NewPool(context.Background(), Config{Workers: 2})
	pool.Start()
	pool.Start()
	pool.Stop()
	pool.Stop()
}

func TestPool_DefaultConfig(t *testing.T) {
	pool := NewPool(context.Background(), Config{})
	assert.Equal(t, runtime.GOMAXPROCS(0), pool.workers)
	assert.Equal(t, pool.workers*2, cap(pool.tasks))
}

func TestStats_String(t *testing.T) {
	stats := Stats{Workers: 4, Processed: 100, Errors: 5, Pending: 10}
	assert.Equal(t, "workers=4 processed=100 errors=5 pending=10", stats.String())
}

func TestFuncTask(t *testing.T) {
	executed := false
	task := NewFuncTask("func-task", func(ctx context.Context) error {
		executed = true
		return nil
	})

	assert.Equal(t, "func-task", task.ID())
	require.NoError(t, task.Execute(context.Background()))
	assert.True(t, executed)
}

func TestRun(t *testing.T) {
	t.Run("all tasks run", func(t *testing.T) {
		var ran atomic.Int64
		tasks := make([]Task, 50)
		for i := range tasks {
			tasks[i] = NewFuncTask(fmt.Sprintf("t%d", i), func(context.Context) error {
				ran.Add(1)
				return nil
			})
		}

		stats, err := Run(context.Background(), Config{Workers: 4, QueueSize: 3}, tasks)
		require.NoError(t, err)
		assert.Equal(t, int64(50), ran.Load())
		assert.Equal(t, int64(50), stats.Processed)
	})

	t.Run("earliest failure in task order wins", func(t *testing.T) {
		errSecond := errors.New("second")
		errFourth := errors.New("fourth")
		tasks := []Task{
			&mockTask{id: "1", duration: 5 * time.Millisecond},
			&mockTask{id: "2", duration: 20 * time.Millisecond, err: errSecond},
			&mockTask{id: "3"},
			&mockTask{id: "4", err: errFourth},
		}

		_, err := Run(context.Background(), Config{Workers: 4}, tasks)
		assert.ErrorIs(t, err, errSecond)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Run(ctx, Config{Workers: 2}, []Task{&mockTask{id: "a", duration: time.Second}})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("no tasks", func(t *testing.T) {
		stats, err := Run(context.Background(), Config{}, nil)
		require.NoError(t, err)
		assert.Zero(t, stats.Processed)
	})
}

func BenchmarkRun(b *testing.B) {
	tasks := make([]Task, 256)
	for i := range tasks {
		tasks[i] = &mockTask{id: fmt.Sprintf("task-%d", i)}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Run(context.Background(), Config{}, tasks)
	}
}
