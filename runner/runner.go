package runner

import (
	"context"
	"sync"
	"time"

	"github.com/openagora/agora/logging"
)

// Agent is one sequential step loop driven by the Runner. Step executes a
// single think → act → observe cycle and reports whether the agent is done.
// A Step error is scoped to that agent only.
type Agent interface {
	ID() string
	Step(ctx context.Context, step int) (done bool, err error)
}

// Status is the terminal state of one agent's run.
type Status string

const (
	// StatusCompleted means the agent ended its run explicitly.
	StatusCompleted Status = "completed"
	// StatusForcedStop means the step budget ran out first. Reported, not
	// treated as an error.
	StatusForcedStop Status = "forced_stop"
	// StatusErrored means a step failed; sibling agents keep running.
	StatusErrored Status = "errored"
)

// AgentResult is the per-agent outcome of a run.
type AgentResult struct {
	AgentID string
	Status  Status
	Steps   int
	Err     error
}

// Options configure the Runner.
type Options struct {
	// MaxSteps bounds each agent's step loop. The budget is a step count,
	// not a wall-clock timeout: a slow decision delays only its own agent.
	MaxSteps int
	// Concurrency caps how many agents may be mid-step simultaneously.
	// Zero or negative means no cap beyond the number of agents.
	Concurrency int
	// Logger receives per-step and summary records. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Runner drives many agents to completion with bounded concurrency. Each
// agent's own steps are strictly sequential; steps of different agents
// interleave arbitrarily. One agent's failure never cancels its siblings or
// the run. The runner is the only component that spawns concurrent work.
type Runner struct {
	maxSteps    int
	concurrency int
	logger      logging.Logger
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxSteps:    20,
		Concurrency: 8,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{
		maxSteps:    opts.MaxSteps,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

// Run executes all agents to termination and returns their results in input
// order. It blocks until every agent reached a terminal status or the
// context was cancelled; cancellation surfaces as an errored result on the
// agents that had not yet terminated.
func (r *Runner) Run(ctx context.Context, agents []Agent) []AgentResult {
	start := time.Now()
	results := make([]AgentResult, len(agents))

	sem := newSemaphore(r.concurrency, len(agents))

	var wg sync.WaitGroup
	for i, a := range agents {
		wg.Add(1)
		go func(i int, a Agent) {
			defer wg.Done()
			results[i] = r.runAgent(ctx, a, sem)
		}(i, a)
	}
	wg.Wait()

	var completed, forced, errored int
	for _, res := range results {
		switch res.Status {
		case StatusCompleted:
			completed++
		case StatusForcedStop:
			forced++
		case StatusErrored:
			errored++
		}
	}
	r.logger.Info("run completed",
		"agents", len(agents),
		"completed", completed,
		"forced_stop", forced,
		"errored", errored,
		"duration", time.Since(start),
	)
	return results
}

// runAgent drives one agent's strictly sequential step loop. The semaphore
// is acquired around each individual step, so at most Concurrency agents are
// mid-step at any moment while waiting agents hold no slot.
func (r *Runner) runAgent(ctx context.Context, a Agent, sem *semaphore) AgentResult {
	res := AgentResult{AgentID: a.ID()}

	for step := 1; step <= r.maxSteps; step++ {
		if err := sem.acquire(ctx); err != nil {
			res.Status = StatusErrored
			res.Err = err
			return res
		}

		done, err := a.Step(ctx, step)
		sem.release()
		res.Steps = step

		if err != nil {
			r.logger.Warn("agent step failed", "agent_id", a.ID(), "step", step, "error", err.Error())
			res.Status = StatusErrored
			res.Err = err
			return res
		}
		if done {
			r.logger.Debug("agent completed", "agent_id", a.ID(), "steps", step)
			res.Status = StatusCompleted
			return res
		}
	}

	r.logger.Info("agent forced stop", "agent_id", a.ID(), "steps", r.maxSteps)
	res.Status = StatusForcedStop
	res.Steps = r.maxSteps
	return res
}

// semaphore is a counting semaphore over a buffered channel.
type semaphore struct {
	slots chan struct{}
}

func newSemaphore(limit, fallback int) *semaphore {
	if limit <= 0 {
		limit = fallback
	}
	if limit <= 0 {
		limit = 1
	}
	return &semaphore{slots: make(chan struct{}, limit)}
}

func (s *semaphore) acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *semaphore) release() { <-s.slots }
