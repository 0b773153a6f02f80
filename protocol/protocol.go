// Package protocol implements the marketplace transaction protocol: the
// synchronous gate every send_message action passes through before it is
// durably recorded, and the derived proposal state machine
// (pending → accepted | expired | rejected) replayed from the action log.
//
// Proposal and transaction state is never stored as mutable rows. Both are
// computed views over the append-only log, which removes concurrent-update
// races on shared state; the one place true mutual exclusion is required is
// the validator's read-then-append sequence for a single proposal id.
package protocol

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openagora/agora/core"
	"github.com/openagora/agora/logging"
)

// ProposalStatus is the derived lifecycle state of an order proposal.
type ProposalStatus string

const (
	// StatusPending means the proposal exists and nothing settled or expired it.
	StatusPending ProposalStatus = "pending"
	// StatusAccepted means a validated payment settled the proposal. Terminal.
	StatusAccepted ProposalStatus = "accepted"
	// StatusExpired means the expiry time passed without settlement. Terminal.
	StatusExpired ProposalStatus = "expired"
	// StatusRejected marks proposals superseded by a more recent proposal
	// carrying the same id. Terminal.
	StatusRejected ProposalStatus = "rejected"
)

// Options configure the marketplace protocol.
type Options struct {
	// Logger receives validation outcomes. Defaults to NoOpLogger.
	Logger logging.Logger
	// Now supplies the clock stamped onto recorded actions and used for
	// expiry decisions; override in tests.
	Now func() time.Time
}

// Marketplace validates and records agent actions against the shared action
// log. It owns the per-proposal-id critical sections and the registry of
// agent identities used for recipient checks. All methods are safe for
// concurrent use.
type Marketplace struct {
	log    core.ActionLog
	logger logging.Logger
	now    func() time.Time

	agents *registry
	locks  *keyedMutex
}

// New constructs a Marketplace over the given action log.
func New(log core.ActionLog, optFns ...func(o *Options)) *Marketplace {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Now:    func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Marketplace{
		log:    log,
		logger: opts.Logger,
		now:    opts.Now,
		agents: newRegistry(),
		locks:  newKeyedMutex(),
	}
}

// Register adds an agent identity so it can send and receive messages.
func (m *Marketplace) Register(info core.AgentInfo) {
	m.agents.add(info)
}

// Log exposes the underlying action log for post-hoc consumers.
func (m *Marketplace) Log() core.ActionLog { return m.log }

// SendMessage validates and durably records one send_message action. Every
// submission is appended, rejected ones with an errored result, so the log
// stays the complete audit trail. The returned error, if non-nil, is either
// a storage failure or a *ValidationError classified by the protocol
// sentinels; a validation rejection is terminal for this attempt only and is
// never retried by the protocol itself.
func (m *Marketplace) SendMessage(ctx context.Context, fromAgentID, toAgentID string, msg core.Message) (core.Record, error) {
	action, err := core.NewSendMessageActionAt(fromAgentID, toAgentID, msg, m.now())
	if err != nil {
		return core.Record{}, err
	}

	var verr *ValidationError
	if !m.agents.exists(toAgentID) {
		verr = reject(ErrRecipientNotFound, "", "agent %s is not registered", toAgentID)
	}

	var rec core.Record
	if payment, ok := msg.(core.Payment); ok && verr == nil {
		// Payments validate and append inside the proposal-scoped critical
		// section so a concurrent payment cannot decide against a stale
		// pending state.
		rec, verr, err = m.settle(ctx, fromAgentID, toAgentID, payment, action)
	} else {
		finalizeResult(&action, verr)
		var res core.AppendResult
		res, err = m.log.Append(ctx, action)
		rec = core.Record{Seq: res.Seq, Action: action}
	}
	if err != nil {
		return core.Record{}, err
	}

	if verr != nil {
		m.logger.Warn("send_message rejected", "from", fromAgentID, "to", toAgentID, "error", verr.Error())
		return rec, verr
	}
	m.logger.Debug("send_message recorded", "from", fromAgentID, "to", toAgentID, "type", string(msg.Type()), "seq", rec.Seq)
	return rec, nil
}

// settle validates and appends a payment while holding the proposal's lock,
// guaranteeing at most one acceptance per proposal id regardless of
// concurrent submission order. The losing payment of a race is recorded as
// an errored action carrying an AlreadySettled rejection.
func (m *Marketplace) settle(ctx context.Context, fromAgentID, toAgentID string, payment core.Payment, action core.Action) (core.Record, *ValidationError, error) {
	unlock := m.locks.lock(payment.ProposalMessageID)
	defer unlock()

	verr := m.validatePayment(ctx, fromAgentID, toAgentID, payment, action.CreatedAt)
	finalizeResult(&action, verr)

	res, err := m.log.Append(ctx, action)
	if err != nil {
		return core.Record{}, nil, err
	}
	return core.Record{Seq: res.Seq, Action: action}, verr, nil
}

func finalizeResult(action *core.Action, verr *ValidationError) {
	if verr != nil {
		action.Result = core.ActionResult{IsError: true, Error: verr.Error()}
		return
	}
	action.Result = core.ActionResult{Content: json.RawMessage(`{"status":"sent"}`)}
}

// validatePayment runs the transition algorithm of the state machine:
//
//  1. the referenced proposal must exist among the proposals the paid
//     business sent; proposal ids are unique per (business, customer) pair,
//     so the lookup is scoped to the pair with the most recent record
//     winning on same-pair reissues
//  2. the latest of the business's proposals with this id must be addressed
//     to the paying customer
//  3. an expiry time in the past fails the payment and expires the proposal
//  4. an already settled proposal rejects further payments idempotently
func (m *Marketplace) validatePayment(ctx context.Context, fromAgentID, toAgentID string, payment core.Payment, at time.Time) *ValidationError {
	proposalID := payment.ProposalMessageID

	proposal, verr := m.resolveProposal(ctx, toAgentID, fromAgentID, proposalID)
	if verr != nil {
		return verr
	}
	if proposal.ExpiryTime != nil && at.After(*proposal.ExpiryTime) {
		return reject(ErrProposalExpired, proposalID, "expired at %s", proposal.ExpiryTime.Format(time.RFC3339))
	}

	if settledBy, ok, err := m.settledPayment(ctx, fromAgentID, toAgentID, proposalID); err != nil {
		return reject(ErrProposalNotFound, proposalID, "payment lookup failed: %v", err)
	} else if ok {
		return reject(ErrAlreadySettled, proposalID, "settled by action %s", settledBy)
	}
	return nil
}

// resolveProposal finds the proposal a payment references. The id is scoped
// to the (business, customer) pair: only proposals the business sent are
// considered, and within those the most recent record with this id decides
// which customer the offer currently belongs to.
func (m *Marketplace) resolveProposal(ctx context.Context, businessID, customerID, proposalID string) (core.OrderProposal, *ValidationError) {
	proposals, err := m.log.Query(ctx, core.Filter{
		AgentID:     businessID,
		Direction:   core.DirectionSent,
		ActionKind:  core.ActionSendMessage,
		MessageType: core.MessageTypeOrderProposal,
		ProposalID:  proposalID,
		SuccessOnly: true,
	})
	if err != nil {
		return core.OrderProposal{}, reject(ErrProposalNotFound, proposalID, "proposal lookup failed: %v", err)
	}
	if len(proposals) == 0 {
		return core.OrderProposal{}, reject(ErrProposalNotFound, proposalID, "no order proposal with this id from %s", businessID)
	}

	// Last-wins within the pair: records addressed to other customers are a
	// different proposal entirely and never shadow this pair's.
	var latest *core.Record
	var params core.SendMessageParams
	var otherRecipient string
	for i := range proposals {
		p, err := core.SendMessageParamsOf(proposals[i].Action)
		if err != nil {
			return core.OrderProposal{}, reject(ErrProposalNotFound, proposalID, "proposal record unreadable: %v", err)
		}
		if p.ToAgentID != customerID {
			otherRecipient = p.ToAgentID
			continue
		}
		latest = &proposals[i]
		params = p
	}
	if latest == nil {
		return core.OrderProposal{}, reject(ErrWrongCounterparty, proposalID,
			"proposal was sent from %s to %s, payment goes from %s to %s",
			businessID, otherRecipient, customerID, businessID)
	}

	msg, err := params.DecodedMessage()
	if err != nil {
		return core.OrderProposal{}, reject(ErrProposalNotFound, proposalID, "proposal message unreadable: %v", err)
	}
	proposal, ok := msg.(core.OrderProposal)
	if !ok {
		return core.OrderProposal{}, reject(ErrProposalNotFound, proposalID, "record %s is not an order proposal", latest.Action.ID)
	}
	return proposal, nil
}

// settledPayment reports whether a successful payment from the customer to
// the business already references the proposal id, returning the settling
// action id.
func (m *Marketplace) settledPayment(ctx context.Context, customerID, businessID, proposalID string) (string, bool, error) {
	payments, err := m.log.Query(ctx, core.Filter{
		AgentID:     customerID,
		Direction:   core.DirectionSent,
		ActionKind:  core.ActionSendMessage,
		MessageType: core.MessageTypePayment,
		ProposalID:  proposalID,
		SuccessOnly: true,
	})
	if err != nil {
		return "", false, err
	}
	for _, rec := range payments {
		params, err := core.SendMessageParamsOf(rec.Action)
		if err != nil {
			continue
		}
		if params.ToAgentID == businessID {
			return rec.Action.ID, true, nil
		}
	}
	return "", false, nil
}

// Status replays the log to derive the current state of a proposal id
// within one (business, customer) pair. Ids are only unique per pair, so
// the caller names both parties; the most recent proposal record the
// business sent with this id is authoritative, and superseded same-pair
// duplicates are StatusRejected by definition and do not affect the result.
func (m *Marketplace) Status(ctx context.Context, businessID, customerID, proposalID string) (ProposalStatus, error) {
	proposal, verr := m.resolveProposal(ctx, businessID, customerID, proposalID)
	if verr != nil {
		return "", verr
	}

	if _, settled, err := m.settledPayment(ctx, customerID, businessID, proposalID); err != nil {
		return "", err
	} else if settled {
		return StatusAccepted, nil
	}

	if proposal.ExpiryTime != nil && m.now().After(*proposal.ExpiryTime) {
		return StatusExpired, nil
	}
	return StatusPending, nil
}

// FetchMessages returns messages addressed to an agent in durable append
// order, records the fetch as an action, and returns the highest sequence
// number seen so callers can poll incrementally.
func (m *Marketplace) FetchMessages(ctx context.Context, agentID string, afterSeq int64, limit int) ([]core.InboundMessage, int64, error) {
	records, err := m.log.Query(ctx, core.Filter{
		AgentID:     agentID,
		Direction:   core.DirectionReceived,
		ActionKind:  core.ActionSendMessage,
		SuccessOnly: true,
		AfterSeq:    afterSeq,
		Limit:       limit,
	})
	if err != nil {
		return nil, afterSeq, err
	}

	inbound := make([]core.InboundMessage, 0, len(records))
	lastSeq := afterSeq
	for _, rec := range records {
		params, err := core.SendMessageParamsOf(rec.Action)
		if err != nil {
			continue
		}
		msg, err := params.DecodedMessage()
		if err != nil {
			continue
		}
		inbound = append(inbound, core.InboundMessage{
			Seq:         rec.Seq,
			FromAgentID: params.FromAgentID,
			CreatedAt:   params.CreatedAt,
			Message:     msg,
			RawMessage:  params.Message,
		})
		lastSeq = rec.Seq
	}

	if err := m.recordFetch(ctx, agentID, afterSeq, len(inbound)); err != nil {
		return nil, afterSeq, err
	}
	return inbound, lastSeq, nil
}

func (m *Marketplace) recordFetch(ctx context.Context, agentID string, afterSeq int64, count int) error {
	params, err := json.Marshal(core.FetchMessagesParams{AgentID: agentID, AfterSeq: afterSeq})
	if err != nil {
		return err
	}
	content, err := json.Marshal(map[string]int{"count": count})
	if err != nil {
		return err
	}
	action := core.Action{
		ID:        core.NewActionID(),
		AgentID:   agentID,
		CreatedAt: m.now(),
		Request:   core.ActionRequest{Name: core.ActionFetchMessages, Parameters: params},
		Result:    core.ActionResult{Content: content},
	}
	_, err = m.log.Append(ctx, action)
	return err
}

// End records the agent's explicit termination action.
func (m *Marketplace) End(ctx context.Context, agentID, reason string) error {
	params, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return err
	}
	action := core.Action{
		ID:        core.NewActionID(),
		AgentID:   agentID,
		CreatedAt: m.now(),
		Request:   core.ActionRequest{Name: core.ActionEnd, Parameters: params},
		Result:    core.ActionResult{Content: json.RawMessage(`{"status":"ended"}`)},
	}
	_, err = m.log.Append(ctx, action)
	return err
}
