package testutil

import (
	"time"

	"github.com/openagora/agora/core"
)

// ProposalBuilder provides a fluent helper for constructing order proposals
// in tests. Example:
//
//	p := NewProposalBuilder().ID("p-1").Item("Taco", 2, 3.50).Total(7.00).Build()
//
// Chain only the parts you need; sensible defaults are applied. When Total is
// never called the total is computed from the lines.
type ProposalBuilder struct {
	id       string
	items    []core.OrderItem
	total    *float64
	expiry   *time.Time
	delivery string
	notes    string
}

// NewProposalBuilder creates a builder with a generated proposal id.
func NewProposalBuilder() *ProposalBuilder { return &ProposalBuilder{id: core.NewID()} }

// ID overrides the auto-generated proposal ID (chainable).
func (b *ProposalBuilder) ID(id string) *ProposalBuilder { b.id = id; return b }

// Item appends an order line (chainable).
func (b *ProposalBuilder) Item(name string, qty int, unitPrice float64) *ProposalBuilder {
	b.items = append(b.items, core.OrderItem{Name: name, Quantity: qty, UnitPrice: unitPrice})
	return b
}

// Total overrides the computed total price (chainable). Use it to build
// deliberately inconsistent proposals.
func (b *ProposalBuilder) Total(t float64) *ProposalBuilder { b.total = &t; return b }

// ExpiresAt sets the expiry time (chainable). Unset means never expires.
func (b *ProposalBuilder) ExpiresAt(t time.Time) *ProposalBuilder { b.expiry = &t; return b }

// Delivery sets the estimated delivery text (chainable).
func (b *ProposalBuilder) Delivery(d string) *ProposalBuilder { b.delivery = d; return b }

// Notes fills in special instructions (chainable).
func (b *ProposalBuilder) Notes(n string) *ProposalBuilder { b.notes = n; return b }

// Build assembles the proposal.
func (b *ProposalBuilder) Build() core.OrderProposal {
	total := 0.0
	for _, it := range b.items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	if b.total != nil {
		total = *b.total
	}
	return core.OrderProposal{
		ID:                  b.id,
		Items:               b.items,
		TotalPrice:          total,
		SpecialInstructions: b.notes,
		EstimatedDelivery:   b.delivery,
		ExpiryTime:          b.expiry,
	}
}

// PaymentFor builds a payment referencing the proposal's message id.
func PaymentFor(proposalMessageID string) core.Payment {
	return core.Payment{
		ProposalMessageID: proposalMessageID,
		PaymentMethod:     "credit_card",
		DeliveryAddress:   "1 Test Street",
		PaymentMessage:    "thanks!",
	}
}
