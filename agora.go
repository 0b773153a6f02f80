// Package agora provides a high-level façade over the marketplace protocol,
// the agent orchestrator and the analytics engine. Most applications interact
// with this package by:
//  1. Creating an Agora via New() (optionally overriding the action log and
//     logger)
//  2. Adding businesses and customers with their deciders
//  3. Running the simulation (Run) and computing the report (Analyze)
//
// The façade delegates message validation to protocol.Marketplace and
// scheduling to runner.Runner while keeping setup ergonomics concise. All
// defaults are safe for local development and testing; larger experiments
// typically supply a durable action log and a structured logger.
package agora

import (
	"context"

	"github.com/openagora/agora/actionlog"
	"github.com/openagora/agora/agent"
	"github.com/openagora/agora/analytics"
	"github.com/openagora/agora/config"
	"github.com/openagora/agora/core"
	"github.com/openagora/agora/logging"
	"github.com/openagora/agora/protocol"
	"github.com/openagora/agora/runner"
)

// Options configures the Agora instance.
type Options struct {
	// Experiment names the run in logs and the analytics report.
	Experiment string

	// MaxSteps bounds each agent's step loop.
	MaxSteps int

	// Concurrency caps how many agents may be mid-step simultaneously.
	// Zero or negative means no cap beyond the number of agents.
	Concurrency int

	// FuzzyMatchDistance is the maximum edit distance tolerated when the
	// analytics engine resolves proposal item names against menus. Zero
	// requires exact matches.
	FuzzyMatchDistance int

	// ActionLog defaults to an in-memory store if not provided.
	ActionLog core.ActionLog

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Agora is the high-level façade aggregating the marketplace, its agent
// population and the run configuration.
type Agora struct {
	opts       Options
	market     *protocol.Marketplace
	agents     []runner.Agent
	businesses []core.BusinessProfile
	customers  []core.CustomerProfile
}

// New creates a new Agora instance with optional overrides. An unset action
// log is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Agora {
	opts := Options{
		MaxSteps:    20,
		Concurrency: 8,
		ActionLog:   actionlog.NewInMemoryStore(),
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	market := protocol.New(opts.ActionLog, func(o *protocol.Options) {
		o.Logger = opts.Logger
	})

	return &Agora{opts: opts, market: market}
}

// FromExperiment creates an Agora preconfigured from a loaded experiment
// definition. Deciders are looked up per agent id; a missing entry falls
// back to the def decider, which must not be nil in that case.
func FromExperiment(exp *config.Experiment, deciders map[string]core.Decider, def core.Decider, optFns ...func(o *Options)) *Agora {
	a := New(append([]func(o *Options){func(o *Options) {
		o.Experiment = exp.Name
		o.MaxSteps = exp.MaxSteps
		o.Concurrency = exp.Concurrency
		o.FuzzyMatchDistance = exp.FuzzyMatchDistance
	}}, optFns...)...)

	pick := func(id string) core.Decider {
		if d, ok := deciders[id]; ok {
			return d
		}
		return def
	}
	for _, b := range exp.Businesses {
		a.AddBusiness(b, pick(b.ID))
	}
	for _, c := range exp.Customers {
		a.AddCustomer(c, pick(c.ID))
	}
	return a
}

// Marketplace exposes the underlying protocol layer, mainly for tests and
// custom agent implementations.
func (a *Agora) Marketplace() *protocol.Marketplace { return a.market }

// AddBusiness registers a business agent driven by the given decider.
func (a *Agora) AddBusiness(profile core.BusinessProfile, decider core.Decider) *agent.Business {
	b := agent.NewBusiness(profile, a.market, decider, a.agentOptions())
	a.agents = append(a.agents, b)
	a.businesses = append(a.businesses, profile)
	return b
}

// AddCustomer registers a customer agent driven by the given decider.
func (a *Agora) AddCustomer(profile core.CustomerProfile, decider core.Decider) *agent.Customer {
	c := agent.NewCustomer(profile, a.market, decider, a.agentOptions())
	a.agents = append(a.agents, c)
	a.customers = append(a.customers, profile)
	return c
}

func (a *Agora) agentOptions() func(o *agent.Options) {
	return func(o *agent.Options) {
		o.MaxSteps = a.opts.MaxSteps
		o.Logger = a.opts.Logger
	}
}

// Run drives every registered agent to termination and returns the per-agent
// results in registration order.
func (a *Agora) Run(ctx context.Context) []runner.AgentResult {
	r := runner.New(func(o *runner.Options) {
		o.MaxSteps = a.opts.MaxSteps
		o.Concurrency = a.opts.Concurrency
		o.Logger = a.opts.Logger
	})
	return r.Run(ctx, a.agents)
}

// Analyze computes the post-hoc report over the action log. It reads only;
// calling it repeatedly over an unchanged log yields identical reports, so it
// is safe both after Run and on a log loaded from durable storage.
func (a *Agora) Analyze(ctx context.Context) (*analytics.Report, error) {
	engine := analytics.NewEngine(a.opts.ActionLog, a.businesses, a.customers, func(o *analytics.Options) {
		o.Experiment = a.opts.Experiment
		o.FuzzyMatchDistance = a.opts.FuzzyMatchDistance
	})
	return engine.Report(ctx)
}

// RunAndAnalyze is a synchronous helper combining Run and Analyze.
func (a *Agora) RunAndAnalyze(ctx context.Context) ([]runner.AgentResult, *analytics.Report, error) {
	results := a.Run(ctx)
	report, err := a.Analyze(ctx)
	return results, report, err
}

// RunExperiment drives a set of pre-built agents to termination. It is the
// plain-function form for callers that construct their own agents instead of
// registering them through an Agora.
func RunExperiment(ctx context.Context, agents []runner.Agent, optFns ...func(o *runner.Options)) []runner.AgentResult {
	return runner.New(optFns...).Run(ctx, agents)
}

// RunAnalytics computes a report over an existing action log, for example one
// loaded from durable storage after the run that produced it.
func RunAnalytics(ctx context.Context, log core.ActionLog, businesses []core.BusinessProfile, customers []core.CustomerProfile, fuzzyMatchDistance int) (*analytics.Report, error) {
	engine := analytics.NewEngine(log, businesses, customers, func(o *analytics.Options) {
		o.FuzzyMatchDistance = fuzzyMatchDistance
	})
	return engine.Report(ctx)
}
