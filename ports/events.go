package ports

import (
	"context"

	"github.com/google/uuid"
)

// EventPublisher publishes authentication events to notify other services
type EventPublisher interface {
	PublishLogin(ctx context.Context, address string, nonceID uuid.UUID) error
	PublishLogout(ctx context.Context, address string, tokenID string) error
}
