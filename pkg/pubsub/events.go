package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

// Domain event types carried on the domain topic.
const (
	EventOrderReconciled = "order.reconciled"
	EventOrderDeleted    = "order.deleted"
	EventQuoteFulfilled  = "quote.fulfilled"
)

// DomainEvent is the envelope every domain message uses. Payload holds the
// event-specific body as raw JSON.
type DomainEvent struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// OrderReconciledPayload describes a create/update/delete pass over an order.
type OrderReconciledPayload struct {
	OrderID    uuid.UUID   `json:"order_id"`
	QuoteID    uuid.UUID   `json:"quote_id"`
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// QuoteFulfilledPayload marks a quote reaching its terminal status.
type QuoteFulfilledPayload struct {
	QuoteID uuid.UUID `json:"quote_id"`
}

// Emitter publishes domain events. A nil Emitter drops everything, which
// keeps event publishing optional in dev setups without Pub/Sub.
type Emitter struct {
	publisher *pubsub.Publisher
}

// NewEmitter wraps the client's domain publisher.
func NewEmitter(client *Client) *Emitter {
	if client == nil {
		return nil
	}
	return &Emitter{publisher: client.DomainPublisher()}
}

// Emit marshals and publishes a domain event, blocking until the server acks.
func (e *Emitter) Emit(ctx context.Context, eventType string, payload any) error {
	if e == nil || e.publisher == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", eventType, err)
	}
	event := DomainEvent{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", eventType, err)
	}

	result := e.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": eventType},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}
	return nil
}
