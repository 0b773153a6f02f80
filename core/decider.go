package core

import "context"

// DecisionKind enumerates the moves an agent can make in one step.
type DecisionKind string

const (
	// DecideSendMessages sends one or more messages to other agents.
	DecideSendMessages DecisionKind = "send_messages"
	// DecideCheckMessages fetches new mail before deciding further.
	DecideCheckMessages DecisionKind = "check_messages"
	// DecideEnd finishes the agent's run.
	DecideEnd DecisionKind = "end"
)

// OutboundMessage is one message a decision wants delivered.
type OutboundMessage struct {
	ToAgentID string  `json:"to_agent_id"`
	Message   Message `json:"-"`
}

// Decision is the structured outcome of one think step.
type Decision struct {
	Kind   DecisionKind      `json:"kind"`
	Reason string            `json:"reason,omitempty"`
	Sends  []OutboundMessage `json:"sends,omitempty"`
}

// AgentState is the snapshot handed to a Decider: the agent's immutable
// profile, the mail observed since the last step, and loop bookkeeping.
// Exactly one of Business or Customer is set.
type AgentState struct {
	Role     Role
	Business *BusinessProfile
	Customer *CustomerProfile
	// NewMessages holds mail fetched since the previous step, in delivery
	// order.
	NewMessages []InboundMessage
	// LastErrors carries the rejections from the previous step's sends so
	// the decider can react (a protocol rejection is terminal for that
	// attempt; retrying is the agent's decision, never the protocol's).
	LastErrors []string
	// Step is the 1-based index of the current step.
	Step int
	// MaxSteps is the orchestrator's step budget for this agent.
	MaxSteps int
}

// AgentID returns the id of whichever profile is set.
func (s AgentState) AgentID() string {
	if s.Business != nil {
		return s.Business.ID
	}
	if s.Customer != nil {
		return s.Customer.ID
	}
	return ""
}

// Decider produces the next decision for an agent. It is the single
// collaborator abstraction for decision content: LLM-backed implementations
// live behind it, and tests plug in deterministic ones. A Decide failure is
// that agent's step error, never a protocol error.
type Decider interface {
	Decide(ctx context.Context, state AgentState) (Decision, error)
}
