package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/dvarapala/ports"
)

const (
	// LoginTopic is the topic for successful wallet logins
	LoginTopic = "auth.login"

	// LogoutTopic is the topic for logout events
	LogoutTopic = "auth.logout"
)

// LoginEvent represents a successful wallet authentication
type LoginEvent struct {
	Address    string    `json:"address"`
	NonceID    string    `json:"nonce_id"`
	Source     string    `json:"source"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event for the authenticated wallet
func (p *WatermillPublisher) PublishLogin(ctx context.Context, address string, nonceID uuid.UUID) error {
	event := LoginEvent{
		Address:    address,
		NonceID:    nonceID.String(),
		Source:     "siws",
		LoggedInAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(nonceID.String(), payload)

	if err := p.publisher.Publish(LoginTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	event := LogoutEvent{
		Address: address,
		TokenID: tokenID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(tokenID, payload)

	if err := p.publisher.Publish(LogoutTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
