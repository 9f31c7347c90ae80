package services

import (
	"context"

	"github.com/gatekeep/authserver/internal/mq"
	"github.com/gatekeep/authserver/types"
)

// CredentialStore defines persistence operations for user credentials.
type CredentialStore interface {
	CreateUser(ctx context.Context, username, password string) (types.User, error)
	ValidateUser(ctx context.Context, username, password string) (bool, error)
}

// SessionIssuer mints opaque session tokens.
type SessionIssuer interface {
	Issue(identity string) (string, error)
}

// EventPublisher receives account activity notifications.
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, event mq.AuthEvent) error
}
