package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeDashboardRefreshed = "dashboard.snapshot.refreshed"

	// BroadcastDashboardRefreshed is the live-stream event name for an
	// applied refresh
	BroadcastDashboardRefreshed = "dashboard_refreshed"
)

// Event represents a domain event
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Aggregate   string                 `json:"aggregate"`
	AggregateID string                 `json:"aggregate_id"`
	Data        map[string]interface{} `json:"data"`
	Version     int                    `json:"version"`
	CreatedAt   int64                  `json:"created_at"`
}

// NewEvent creates a new domain event
func NewEvent(eventType, aggregate, aggregateID string, data map[string]interface{}, version int) *Event {
	return &Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		Aggregate:   aggregate,
		AggregateID: aggregateID,
		Data:        data,
		Version:     version,
		CreatedAt:   time.Now().Unix(),
	}
}

// EventPublisher defines the interface for domain event publishing
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Broadcaster pushes a message to every connected live client
type Broadcaster interface {
	Broadcast(eventType, queryID string, data interface{}) error
}
