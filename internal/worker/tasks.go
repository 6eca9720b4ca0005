package worker

import (
	"context"
)

// FuncTask wraps a function as a task.
type FuncTask struct {
	id string
	fn func(ctx context.Context) error
}

// NewFuncTask creates a task from a function.
func NewFuncTask(id string, fn func(ctx context.Context) error) *FuncTask {
	return &FuncTask{
		id: id,
		fn: fn,
	}
}

// ID returns the task identifier.
func (f *FuncTask) ID() string {
	return f.id
}

// Execute executes the function.
func (f *FuncTask) Execute(ctx context.Context) error {
	return f.fn(ctx)
}

// Run executes tasks on a fresh pool and waits for all of them. Task ids
// must be unique. It returns ctx.Err() when the context ends first, and
// otherwise the error of the earliest failing task in slice order, so the
// outcome does not depend on scheduling.
func Run(ctx context.Context, cfg Config, tasks []Task) (Stats, error) {
	if len(tasks) == 0 {
		return Stats{}, ctx.Err()
	}

	pool := NewPool(ctx, cfg)
	pool.Start()

	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for _, task := range tasks {
			if err := pool.Submit(task); err != nil {
				return
			}
		}
	}()

	failed := make(map[string]error)
	for received := 0; received < len(tasks); {
		select {
		case r := <-pool.Results():
			received++
			if r.Error != nil {
				failed[r.TaskID] = r.Error
			}
		case <-pool.ctx.Done():
			received = len(tasks)
		}
	}

	<-submitted
	stats := pool.Stats()
	pool.Stop()

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	for _, task := range tasks {
		if err, ok := failed[task.ID()]; ok {
			return stats, err
		}
	}
	return stats, nil
}
