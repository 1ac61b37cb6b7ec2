package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"mesa-status-backend/internal/store"
)

const (
	// TableStatusTopic delivers authoritative status changes for tables.
	TableStatusTopic = "tables.status"

	// EventTableStatusChanged identifies a table status change event payload.
	EventTableStatusChanged = "table.status.changed"
)

// TableStatusEvent is the payload published for every table transition.
type TableStatusEvent struct {
	EventType      string    `json:"event_type"`
	RestaurantID   int64     `json:"restaurant_id"`
	TableID        int64     `json:"table_id"`
	TableName      string    `json:"table_name,omitempty"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Source         string    `json:"source,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher publishes table status transitions.
type Publisher interface {
	PublishTransition(ctx context.Context, t store.Transition) error
	Close() error
}

// NATSPublisher publishes transitions to a NATS subject.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to NATS at the given URL.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// PublishTransition encodes and publishes a single transition.
func (p *NATSPublisher) PublishTransition(ctx context.Context, t store.Transition) error {
	event := TableStatusEvent{
		EventType:      EventTableStatusChanged,
		RestaurantID:   t.RestaurantID,
		TableID:        t.TableID,
		TableName:      t.TableName,
		Status:         t.To,
		PreviousStatus: t.From,
		Source:         t.Source,
		OccurredAt:     t.At,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal table status event: %w", err)
	}
	return p.conn.Publish(TableStatusTopic, payload)
}

// Close drains the underlying connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NopPublisher is used when event publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishTransition(ctx context.Context, t store.Transition) error { return nil }
func (NopPublisher) Close() error                                                    { return nil }
