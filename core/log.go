package core

import (
	"context"
	"errors"
)

// ErrActionNotFound is returned when a log lookup by id misses.
var ErrActionNotFound = errors.New("action not found")

// Direction selects which side of a send_message an agent filter applies to.
type Direction string

const (
	// DirectionSent matches actions issued by the agent.
	DirectionSent Direction = "sent"
	// DirectionReceived matches send_message actions addressed to the agent.
	DirectionReceived Direction = "received"
)

// Filter narrows a log query. Zero values mean "any". ProposalID and
// MessageType only apply to send_message actions; actions whose parameters
// cannot be decoded never match them.
type Filter struct {
	AgentID     string
	Direction   Direction
	ActionKind  string
	MessageType MessageType
	ProposalID  string
	// AfterSeq restricts results to records appended after the given
	// sequence number.
	AfterSeq int64
	// SuccessOnly drops actions whose result is an error.
	SuccessOnly bool
	// Limit caps the number of returned records; 0 means unlimited.
	Limit int
}

// AppendResult reports where in the total append order a record landed.
type AppendResult struct {
	Seq int64
}

// Record pairs an action with its position in the append order.
type Record struct {
	Seq    int64
	Action Action
}

// ActionLog is the append-only, queryable store of every agent action. It is
// the only shared mutable resource in the system: all writes are appends,
// records are never edited in place, and Query observes records in durable
// append order.
//
// Implementations must be safe for concurrent use. The read-then-append
// critical sections the protocol needs are scoped per proposal id and are
// owned by the protocol layer, not the log.
type ActionLog interface {
	// Append durably records an action and returns its position in the
	// total append order.
	Append(ctx context.Context, a Action) (AppendResult, error)

	// Query returns matching records in append order.
	Query(ctx context.Context, f Filter) ([]Record, error)
}
