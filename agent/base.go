package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openagora/agora/core"
	"github.com/openagora/agora/logging"
	"github.com/openagora/agora/protocol"
)

// ErrDecision classifies a failed decider call. It is that agent's step
// error only; sibling agents and the run keep going.
var ErrDecision = errors.New("decision failed")

// baseAgent bundles the plumbing shared by both roles: the marketplace
// handle, the decider, the incremental mail cursor and the feedback from the
// previous step. A baseAgent is driven by exactly one goroutine (the
// runner's per-agent loop), so its fields need no locking.
type baseAgent struct {
	id      string
	market  *protocol.Marketplace
	decider core.Decider
	logger  logging.Logger

	lastSeq    int64
	inbox      []core.InboundMessage
	lastErrors []string
}

// ID implements runner.Agent.
func (b *baseAgent) ID() string { return b.id }

// step executes one think → act → observe cycle with the given state.
func (b *baseAgent) step(ctx context.Context, state core.AgentState) (bool, error) {
	start := time.Now()
	decision, err := b.decider.Decide(ctx, state)
	if err != nil {
		return false, fmt.Errorf("%w: agent %s: %v", ErrDecision, b.id, err)
	}
	b.logger.Debug("decision made", "agent_id", b.id, "kind", string(decision.Kind), "step", state.Step, "duration", time.Since(start))

	// The decider consumed the pending observations; reset before acting.
	b.inbox = nil
	b.lastErrors = nil

	switch decision.Kind {
	case core.DecideEnd:
		if err := b.market.End(ctx, b.id, decision.Reason); err != nil {
			return false, err
		}
		return true, nil

	case core.DecideCheckMessages:
		msgs, lastSeq, err := b.market.FetchMessages(ctx, b.id, b.lastSeq, 0)
		if err != nil {
			return false, err
		}
		b.lastSeq = lastSeq
		b.inbox = append(b.inbox, msgs...)
		return false, nil

	case core.DecideSendMessages:
		for _, send := range decision.Sends {
			_, err := b.market.SendMessage(ctx, b.id, send.ToAgentID, send.Message)
			var verr *protocol.ValidationError
			switch {
			case errors.As(err, &verr):
				// Protocol rejections are observations, not step failures.
				b.lastErrors = append(b.lastErrors, verr.Error())
			case err != nil:
				return false, err
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("%w: agent %s: unknown decision kind %q", ErrDecision, b.id, decision.Kind)
	}
}

// observations drains the pending mail and send rejections into a state.
func (b *baseAgent) observations(state *core.AgentState) {
	state.NewMessages = b.inbox
	state.LastErrors = b.lastErrors
}
