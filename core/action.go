package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action kinds recorded in the log.
const (
	// ActionSendMessage delivers a message to another agent.
	ActionSendMessage = "send_message"
	// ActionFetchMessages reads messages addressed to the issuing agent.
	ActionFetchMessages = "fetch_messages"
	// ActionEnd signals the issuing agent has finished its run.
	ActionEnd = "end"
)

// ActionRequest is the request half of an action record: the operation name
// and its JSON-encoded parameters.
type ActionRequest struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// ActionResult is the result half of an action record. Exactly one of
// Content or Error is meaningful depending on IsError.
type ActionResult struct {
	IsError bool            `json:"is_error"`
	Content json.RawMessage `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Action is an immutable record of one agent operation, request and result
// together. Actions are appended to the log once and never mutated; they are
// the sole source of truth for everything downstream (protocol state,
// message delivery, analytics).
type Action struct {
	ID        string        `json:"id"`
	AgentID   string        `json:"agent_id"`
	CreatedAt time.Time     `json:"created_at"`
	Request   ActionRequest `json:"request"`
	Result    ActionResult  `json:"result"`
}

// SendMessageParams are the parameters of a send_message action.
type SendMessageParams struct {
	FromAgentID string          `json:"from_agent_id"`
	ToAgentID   string          `json:"to_agent_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Message     json.RawMessage `json:"message"`
}

// DecodedMessage decodes the embedded message union.
func (p SendMessageParams) DecodedMessage() (Message, error) {
	return DecodeMessage(p.Message)
}

// NewSendMessageAction builds an unexecuted send_message action record
// stamped with the wall clock. The result half is filled in by the protocol
// when the action is processed.
func NewSendMessageAction(fromAgentID, toAgentID string, msg Message) (Action, error) {
	return NewSendMessageActionAt(fromAgentID, toAgentID, msg, time.Now().UTC())
}

// NewSendMessageActionAt is NewSendMessageAction with an explicit creation
// time, so callers owning a clock stamp the record from it.
func NewSendMessageActionAt(fromAgentID, toAgentID string, msg Message, now time.Time) (Action, error) {
	encoded, err := EncodeMessage(msg)
	if err != nil {
		return Action{}, err
	}
	params, err := json.Marshal(SendMessageParams{
		FromAgentID: fromAgentID,
		ToAgentID:   toAgentID,
		CreatedAt:   now,
		Message:     encoded,
	})
	if err != nil {
		return Action{}, fmt.Errorf("encode send_message parameters: %w", err)
	}
	return Action{
		ID:        NewActionID(),
		AgentID:   fromAgentID,
		CreatedAt: now,
		Request:   ActionRequest{Name: ActionSendMessage, Parameters: params},
	}, nil
}

// SendMessageParamsOf extracts send_message parameters from an action. It
// fails if the action is not a send_message.
func SendMessageParamsOf(a Action) (SendMessageParams, error) {
	if a.Request.Name != ActionSendMessage {
		return SendMessageParams{}, fmt.Errorf("action %s is %q, not %q", a.ID, a.Request.Name, ActionSendMessage)
	}
	var p SendMessageParams
	if err := json.Unmarshal(a.Request.Parameters, &p); err != nil {
		return SendMessageParams{}, fmt.Errorf("decode send_message parameters of action %s: %w", a.ID, err)
	}
	return p, nil
}

// FetchMessagesParams are the parameters of a fetch_messages action.
// AfterSeq limits the result to messages recorded after the given log
// sequence number, letting agents poll incrementally.
type FetchMessagesParams struct {
	AgentID  string `json:"agent_id"`
	AfterSeq int64  `json:"after_seq,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// InboundMessage is one delivered message as seen by its recipient.
type InboundMessage struct {
	Seq         int64           `json:"seq"`
	FromAgentID string          `json:"from_agent_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Message     Message         `json:"-"`
	RawMessage  json.RawMessage `json:"message"`
}
