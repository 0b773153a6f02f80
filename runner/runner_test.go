package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepFunc adapts a function into an Agent for tests.
type stepFunc struct {
	id string
	fn func(ctx context.Context, step int) (bool, error)
}

func (s stepFunc) ID() string { return s.id }

func (s stepFunc) Step(ctx context.Context, step int) (bool, error) { return s.fn(ctx, step) }

func TestRun_Completed(t *testing.T) {
	r := New(func(o *Options) { o.MaxSteps = 10 })

	a := stepFunc{id: "a", fn: func(_ context.Context, step int) (bool, error) {
		return step >= 3, nil
	}}
	results := r.Run(context.Background(), []Agent{a})

	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].AgentID)
	assert.Equal(t, StatusCompleted, results[0].Status)
	assert.Equal(t, 3, results[0].Steps)
	assert.NoError(t, results[0].Err)
}

func TestRun_ForcedStopAtBudget(t *testing.T) {
	r := New(func(o *Options) { o.MaxSteps = 5 })

	a := stepFunc{id: "a", fn: func(context.Context, int) (bool, error) {
		return false, nil
	}}
	results := r.Run(context.Background(), []Agent{a})

	assert.Equal(t, StatusForcedStop, results[0].Status)
	assert.Equal(t, 5, results[0].Steps)
	assert.NoError(t, results[0].Err, "a forced stop is reported, not an error")
}

func TestRun_FailureIsolation(t *testing.T) {
	r := New(func(o *Options) { o.MaxSteps = 10 })

	boom := errors.New("decider unavailable")
	failing := stepFunc{id: "bad", fn: func(_ context.Context, step int) (bool, error) {
		if step == 2 {
			return false, boom
		}
		return false, nil
	}}
	healthy := stepFunc{id: "good", fn: func(_ context.Context, step int) (bool, error) {
		return step >= 4, nil
	}}

	results := r.Run(context.Background(), []Agent{failing, healthy})

	require.Len(t, results, 2)
	assert.Equal(t, StatusErrored, results[0].Status)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.Equal(t, 2, results[0].Steps)

	assert.Equal(t, StatusCompleted, results[1].Status, "one agent's failure never stops its siblings")
	assert.Equal(t, 4, results[1].Steps)
}

func TestRun_ResultsInInputOrder(t *testing.T) {
	r := New(func(o *Options) { o.MaxSteps = 3 })

	var agents []Agent
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		agents = append(agents, stepFunc{id: id, fn: func(context.Context, int) (bool, error) {
			return true, nil
		}})
	}
	results := r.Run(context.Background(), agents)

	require.Len(t, results, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, results[i].AgentID)
	}
}

func TestRun_ConcurrencyBound(t *testing.T) {
	const limit = 3
	r := New(func(o *Options) {
		o.MaxSteps = 4
		o.Concurrency = limit
	})

	var inStep atomic.Int32
	var maxSeen atomic.Int32

	agent := func(id string) Agent {
		return stepFunc{id: id, fn: func(context.Context, int) (bool, error) {
			n := inStep.Add(1)
			for {
				seen := maxSeen.Load()
				if n <= seen || maxSeen.CompareAndSwap(seen, n) {
					break
				}
			}
			inStep.Add(-1)
			return false, nil
		}}
	}
	var agents []Agent
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		agents = append(agents, agent(id))
	}

	r.Run(context.Background(), agents)
	assert.LessOrEqual(t, maxSeen.Load(), int32(limit), "no more than Concurrency agents may be mid-step")
}

func TestRun_ContextCancellation(t *testing.T) {
	r := New(func(o *Options) {
		o.MaxSteps = 100
		o.Concurrency = 1
	})

	ctx, cancel := context.WithCancel(context.Background())
	blocker := stepFunc{id: "blocker", fn: func(ctx context.Context, step int) (bool, error) {
		if step == 2 {
			cancel()
		}
		return false, nil
	}}
	starved := stepFunc{id: "starved", fn: func(ctx context.Context, _ int) (bool, error) {
		return false, ctx.Err()
	}}

	results := r.Run(ctx, []Agent{blocker, starved})
	for _, res := range results {
		if res.Status == StatusErrored {
			assert.ErrorIs(t, res.Err, context.Canceled)
		}
	}
}
