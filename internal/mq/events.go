package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Auth event types.
const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
	EventUserLoggedOut  = "user.logged_out"

	attrEventType = "event_type"
)

// AuthEvent is the JSON payload published for account activity. It never
// carries credentials or session tokens.
type AuthEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id,omitempty"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher publishes auth events to one channel.
type EventPublisher struct {
	mq      *MQ
	channel string
}

func NewEventPublisher(mq *MQ, channel string) *EventPublisher {
	return &EventPublisher{mq: mq, channel: channel}
}

func (p *EventPublisher) PublishAuthEvent(ctx context.Context, event AuthEvent) error {
	if event.Type == "" {
		return errors.New("event type is required")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}
	if _, err := p.mq.Publish(ctx, p.channel, data, map[string]string{attrEventType: event.Type}); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Tail subscribes to the channel and hands each decoded event to fn.
// Undecodable messages are acknowledged and skipped.
func (p *EventPublisher) Tail(ctx context.Context, fn func(AuthEvent) error) error {
	return p.mq.Subscribe(ctx, p.channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeAuthEvent(msg)
		if err != nil {
			return nil
		}
		return fn(event)
	})
}

func DecodeAuthEvent(msg Message) (AuthEvent, error) {
	var event AuthEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return AuthEvent{}, fmt.Errorf("decode auth event %s: %w", msg.ID, err)
	}
	if event.Type == "" {
		event.Type = msg.Attributes[attrEventType]
	}
	return event, nil
}

// NopPublisher drops every event. It is used when no backend is configured.
type NopPublisher struct{}

func (NopPublisher) PublishAuthEvent(context.Context, AuthEvent) error { return nil }
