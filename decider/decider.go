// Package decider contains the decision-content layer: shared prompt and
// wire-format helpers used by the LLM-backed adapters in the subpackages,
// and a deterministic Mock for tests. The contract is core.Decider; nothing
// in the protocol or orchestrator knows which implementation is behind it.
package decider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/openagora/agora/core"
)

// wireSend is the JSON shape a decider backend emits for one outgoing
// message. The message object carries the usual discriminated encoding.
type wireSend struct {
	ToAgentID string          `json:"to_agent_id"`
	Message   json.RawMessage `json:"message"`
}

type wireDecision struct {
	Kind   string     `json:"kind"`
	Reason string     `json:"reason,omitempty"`
	Sends  []wireSend `json:"sends,omitempty"`
}

// ParseDecision decodes a backend's JSON reply into a Decision. It tolerates
// the markdown code fences chat models like to wrap JSON in.
func ParseDecision(raw string) (core.Decision, error) {
	raw = stripFences(raw)

	var wire wireDecision
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return core.Decision{}, fmt.Errorf("decode decision: %w", err)
	}

	d := core.Decision{Kind: core.DecisionKind(wire.Kind), Reason: wire.Reason}
	switch d.Kind {
	case core.DecideSendMessages:
		if len(wire.Sends) == 0 {
			return core.Decision{}, fmt.Errorf("decision %q carries no messages", wire.Kind)
		}
		for i, send := range wire.Sends {
			if send.ToAgentID == "" {
				return core.Decision{}, fmt.Errorf("send %d is missing to_agent_id", i)
			}
			msg, err := core.DecodeMessage(send.Message)
			if err != nil {
				return core.Decision{}, fmt.Errorf("send %d: %w", i, err)
			}
			d.Sends = append(d.Sends, core.OutboundMessage{ToAgentID: send.ToAgentID, Message: msg})
		}
	case core.DecideCheckMessages, core.DecideEnd:
	default:
		return core.Decision{}, fmt.Errorf("unknown decision kind %q", wire.Kind)
	}
	return d, nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

// statePrompt is the JSON snapshot of the agent state handed to a backend.
type statePrompt struct {
	Role        core.Role             `json:"role"`
	Business    *core.BusinessProfile `json:"business,omitempty"`
	Customer    *core.CustomerProfile `json:"customer,omitempty"`
	NewMessages []core.InboundMessage `json:"new_messages,omitempty"`
	LastErrors  []string              `json:"last_errors,omitempty"`
	Step        int                   `json:"step"`
	MaxSteps    int                   `json:"max_steps"`
}

// BuildPrompt renders the system and user prompts shared by the LLM-backed
// adapters.
func BuildPrompt(state core.AgentState) (system string, user string, err error) {
	snapshot, err := json.Marshal(statePrompt{
		Role:        state.Role,
		Business:    state.Business,
		Customer:    state.Customer,
		NewMessages: state.NewMessages,
		LastErrors:  state.LastErrors,
		Step:        state.Step,
		MaxSteps:    state.MaxSteps,
	})
	if err != nil {
		return "", "", fmt.Errorf("encode agent state: %w", err)
	}

	switch state.Role {
	case core.RoleBusiness:
		system = businessInstructions
	case core.RoleCustomer:
		system = customerInstructions
	default:
		return "", "", fmt.Errorf("unknown role %q", state.Role)
	}
	user = fmt.Sprintf("Current state:\n%s\n\nReply with a single JSON object and nothing else.", snapshot)
	return system, user, nil
}

const customerInstructions = `You are a customer agent in a marketplace simulation.
You want to buy the items listed in your wtp map, ideally from a business that
offers all of your required amenities, for as little money as possible.

Each turn reply with one JSON decision:
  {"kind": "check_messages", "reason": "..."} to read new mail,
  {"kind": "send_messages", "reason": "...", "sends": [{"to_agent_id": "...",
    "message": {"type": "text", "content": "..."}}]} to contact businesses,
  {"kind": "send_messages", ..., "message": {"type": "payment",
    "proposal_message_id": "..."}} to accept an order proposal you received,
  {"kind": "end", "reason": "..."} when you are done.

A payment must reference the id of an order proposal sent to you. Rejected
payments appear in last_errors; decide yourself whether to retry or move on.`

const businessInstructions = `You are a business agent in a marketplace simulation.
You answer customer inquiries and send order proposals priced from your menu.

Each turn reply with one JSON decision:
  {"kind": "check_messages", "reason": "..."} to read new mail,
  {"kind": "send_messages", "reason": "...", "sends": [{"to_agent_id": "...",
    "message": {"type": "text", "content": "..."}}]} to answer a customer,
  {"kind": "send_messages", ..., "message": {"type": "order_proposal",
    "id": "<unique id>", "items": [{"name": "...", "quantity": 1,
    "unit_price": 0.0}], "total_price": 0.0}} to make an offer,
  {"kind": "end", "reason": "..."} when you are done.

When a customer pays for one of your proposals, confirm with a short text
message before ending. Quote prices exactly as listed on your menu.`

// Mock is a deterministic Decider replaying a scripted sequence of
// decisions. When the script is exhausted it ends the agent's run. Safe for
// concurrent use so one script can be inspected after a run.
type Mock struct {
	mu        sync.Mutex
	script    []core.Decision
	next      int
	SeenState []core.AgentState
}

// NewMock constructs a Mock replaying the given decisions in order.
func NewMock(script ...core.Decision) *Mock {
	return &Mock{script: script}
}

// Decide implements core.Decider.
func (m *Mock) Decide(_ context.Context, state core.AgentState) (core.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SeenState = append(m.SeenState, state)
	if m.next >= len(m.script) {
		return core.Decision{Kind: core.DecideEnd, Reason: "script exhausted"}, nil
	}
	d := m.script[m.next]
	m.next++
	return d, nil
}

// DecideFunc adapts a plain function to core.Decider.
type DecideFunc func(ctx context.Context, state core.AgentState) (core.Decision, error)

// Decide implements core.Decider.
func (f DecideFunc) Decide(ctx context.Context, state core.AgentState) (core.Decision, error) {
	return f(ctx, state)
}
