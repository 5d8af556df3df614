package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	TypeBooked      = "appointment.booked"
	TypeCancelled   = "appointment.cancelled"
	TypeConfirmed   = "appointment.confirmed"
	TypeCompleted   = "appointment.completed"
	TypeNoShow      = "appointment.no_show"
	TypeRescheduled = "appointment.rescheduled"
)

// Event is what the engine exposes to the external notifier. Delivery to
// citizens (email, SMS) happens outside this service.
type Event struct {
	Type          string    `json:"type"`
	AppointmentID string    `json:"appointment_id"`
	OrgID         string    `json:"org_id"`
	UserID        string    `json:"user_id"`
	SlotID        *string   `json:"slot_id,omitempty"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	const op = "events.RedisPublisher.Publish"

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Noop drops every event. Used when no notifier is attached.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
