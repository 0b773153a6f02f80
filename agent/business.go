package agent

import (
	"context"

	"github.com/openagora/agora/core"
	"github.com/openagora/agora/protocol"
)

// Business is a marketplace business: it waits for customer inquiries,
// answers them, sends order proposals and confirms settled payments.
//
// Confirmation of a settled payment is an orchestration contract, not a
// protocol-enforced write: the decider is expected to answer an accepted
// payment with a confirmation text message, but a missing confirmation
// leaves the transaction accepted and still counted as settled.
type Business struct {
	baseAgent
	profile  core.BusinessProfile
	maxSteps int
}

// NewBusiness constructs a business agent and registers its identity with
// the marketplace.
func NewBusiness(profile core.BusinessProfile, market *protocol.Marketplace, decider core.Decider, optFns ...func(o *Options)) *Business {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	market.Register(core.AgentInfo{ID: profile.ID, Role: core.RoleBusiness})
	return &Business{
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

// Profile returns the business's immutable configuration.
func (b *Business) Profile() core.BusinessProfile { return b.profile }

// Step implements runner.Agent.
func (b *Business) Step(ctx context.Context, step int) (bool, error) {
	state := core.AgentState{
		Role:     core.RoleBusiness,
		Business: &b.profile,
		Step:     step,
		MaxSteps: b.maxSteps,
	}
	b.observations(&state)
	return b.step(ctx, state)
}
