package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Routing keys of payment events.
const (
	EventPaymentRecorded = "payment.recorded"
	EventPaymentDeleted  = "payment.deleted"

	// bindingKey matches every payment event on the topic exchange.
	bindingKey = "payment.*"
)

// PaymentEvent tells the worker that a dues payment changed. Recorded events
// are re-read from the database by ID; deleted events carry everything the
// worker needs because the row is gone.
type PaymentEvent struct {
	Type           string    `json:"type"`
	PaymentID      string    `json:"payment_id"`
	MemberID       string    `json:"member_id"`
	ReferenceMonth string    `json:"reference_month"`
	AmountCents    int64     `json:"amount_cents"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewPaymentEvent creates an event of the given type stamped with the current time.
func NewPaymentEvent(eventType, paymentID, memberID, month string, amountCents int64) *PaymentEvent {
	return &PaymentEvent{
		Type:           eventType,
		PaymentID:      paymentID,
		MemberID:       memberID,
		ReferenceMonth: month,
		AmountCents:    amountCents,
		Timestamp:      time.Now().UTC(),
	}
}

func (m *PaymentEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentEventFromJSON decodes and checks an event body.
func PaymentEventFromJSON(data []byte) (*PaymentEvent, error) {
	var msg PaymentEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventPaymentRecorded, EventPaymentDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.PaymentID == "" {
		return nil, fmt.Errorf("event without payment id")
	}
	return &msg, nil
}
