package agent

import (
	"context"

	"github.com/openagora/agora/core"
	"github.com/openagora/agora/logging"
	"github.com/openagora/agora/protocol"
)

// Customer is a marketplace customer: it inquires with businesses, evaluates
// incoming order proposals and pays for the ones it accepts.
type Customer struct {
	baseAgent
	profile  core.CustomerProfile
	maxSteps int
}

// NewCustomer constructs a customer agent and registers its identity with
// the marketplace.
func NewCustomer(profile core.CustomerProfile, market *protocol.Marketplace, decider core.Decider, optFns ...func(o *Options)) *Customer {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	market.Register(core.AgentInfo{ID: profile.ID, Role: core.RoleCustomer})
	return &Customer{
		baseAgent: baseAgent{
			id:      profile.ID,
			market:  market,
			decider: decider,
			logger:  opts.Logger,
		},
		profile:  profile,
		maxSteps: opts.MaxSteps,
	}
}

// Profile returns the customer's immutable configuration.
func (c *Customer) Profile() core.CustomerProfile { return c.profile }

// Step implements runner.Agent.
func (c *Customer) Step(ctx context.Context, step int) (bool, error) {
	state := core.AgentState{
		Role:     core.RoleCustomer,
		Customer: &c.profile,
		Step:     step,
		MaxSteps: c.maxSteps,
	}
	c.observations(&state)
	return c.step(ctx, state)
}

// Options configure the step agents.
type Options struct {
	// MaxSteps mirrors the orchestrator budget so deciders can pace
	// themselves; it does not enforce anything.
	MaxSteps int
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

func defaultOptions() Options {
	return Options{MaxSteps: 20, Logger: logging.NoOpLogger{}}
}
