package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType discriminates the Message union on the wire.
type MessageType string

const (
	// MessageTypeText tags free-form text messages.
	MessageTypeText MessageType = "text"
	// MessageTypeOrderProposal tags structured order proposals.
	MessageTypeOrderProposal MessageType = "order_proposal"
	// MessageTypePayment tags payments accepting a proposal.
	MessageTypePayment MessageType = "payment"
)

// Message is the payload carried inside a send_message action. Exactly three
// variants exist: TextMessage, OrderProposal and Payment. The union is
// dispatched by a "type" tag in its JSON encoding; the encoding is stable
// across runs so the analytics engine can replay old logs.
type Message interface {
	// Type returns the discriminator tag for this variant.
	Type() MessageType
}

// TextMessage is free-form text between agents.
type TextMessage struct {
	Content string `json:"content"`
}

// Type implements Message.
func (TextMessage) Type() MessageType { return MessageTypeText }

// OrderItem is a single line of an order proposal.
type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// OrderProposal is a structured offer sent by a business to a customer. Its
// ID is unique per (business, customer) pair and is the sole handle by which
// a Payment references it. A proposal without ExpiryTime never expires.
type OrderProposal struct {
	ID                  string      `json:"id"`
	Items               []OrderItem `json:"items"`
	TotalPrice          float64     `json:"total_price"`
	SpecialInstructions string      `json:"special_instructions,omitempty"`
	EstimatedDelivery   string      `json:"estimated_delivery,omitempty"`
	ExpiryTime          *time.Time  `json:"expiry_time,omitempty"`
}

// Type implements Message.
func (OrderProposal) Type() MessageType { return MessageTypeOrderProposal }

// Payment accepts an order proposal. ProposalMessageID must match the ID of a
// previously received OrderProposal from the business it is sent to.
type Payment struct {
	ProposalMessageID string `json:"proposal_message_id"`
	PaymentMethod     string `json:"payment_method,omitempty"`
	DeliveryAddress   string `json:"delivery_address,omitempty"`
	PaymentMessage    string `json:"payment_message,omitempty"`
}

// Type implements Message.
func (Payment) Type() MessageType { return MessageTypePayment }

// messageEnvelope is the wire shape of the union: the variant's own fields
// plus the discriminator.
type messageEnvelope struct {
	Type MessageType `json:"type"`
}

// EncodeMessage marshals a message as a discriminated JSON object.
func EncodeMessage(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Type(), err)
	}
	// Splice the discriminator into the variant's object form.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Type(), err)
	}
	fields["type"] = json.RawMessage(fmt.Sprintf("%q", m.Type()))
	return json.Marshal(fields)
}

// DecodeMessage unmarshals a discriminated JSON object into the matching
// Message variant.
func DecodeMessage(data []byte) (Message, error) {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message envelope: %w", err)
	}
	switch env.Type {
	case MessageTypeText:
		var m TextMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode text message: %w", err)
		}
		return m, nil
	case MessageTypeOrderProposal:
		var m OrderProposal
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode order proposal: %w", err)
		}
		return m, nil
	case MessageTypePayment:
		var m Payment
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode payment: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}
