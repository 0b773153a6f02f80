package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrProposalNotFound classifies a payment referencing a proposal id the
	// target business never sent.
	ErrProposalNotFound = errors.New("proposal not found")

	// ErrWrongCounterparty classifies a payment whose referenced proposal was
	// exchanged between a different (business, customer) pair.
	ErrWrongCounterparty = errors.New("wrong counterparty")

	// ErrProposalExpired classifies a payment submitted after the proposal's
	// expiry time.
	ErrProposalExpired = errors.New("proposal expired")

	// ErrAlreadySettled classifies a payment against a proposal a prior
	// payment already settled. The rejection is idempotent: no second
	// transaction is created and nothing is charged twice.
	ErrAlreadySettled = errors.New("proposal already settled")

	// ErrRecipientNotFound classifies a message addressed to an agent id not
	// registered with the marketplace.
	ErrRecipientNotFound = errors.New("recipient not found")
)

// ValidationError is the typed rejection returned synchronously to the
// sending agent. It wraps one of the sentinel errors above so callers can
// classify with errors.Is while still receiving the offending ids.
type ValidationError struct {
	Err        error
	ProposalID string
	Detail     string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.ProposalID != "" {
		return fmt.Sprintf("%s: proposal %s: %s", e.Err, e.ProposalID, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

// Unwrap exposes the classifying sentinel.
func (e *ValidationError) Unwrap() error { return e.Err }

func reject(sentinel error, proposalID, format string, args ...any) *ValidationError {
	return &ValidationError{Err: sentinel, ProposalID: proposalID, Detail: fmt.Sprintf(format, args...)}
}
