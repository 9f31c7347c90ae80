package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatekeep/authserver/internal/logging"
	"github.com/gatekeep/authserver/internal/mq"
	"github.com/gatekeep/authserver/internal/store"
)

// defaultPublishTimeout caps how long an auth result waits on the event broker.
const defaultPublishTimeout = 2 * time.Second

// LoginResult carries the token to hand to the client after a successful login.
type LoginResult struct {
	Identity Identity
	Token    string
}

// LogoutResult tells the caller to make the client discard its token. No
// server-side state is involved: a copy of the token kept elsewhere stays
// valid until the session secret changes or the token expires.
type LogoutResult struct {
	DiscardToken bool
	Identity     Identity
}

// AuthService orchestrates registration, login and logout.
type AuthService struct {
	users    CredentialStore
	sessions SessionIssuer
	events   EventPublisher
	logger   *slog.Logger
	now      func() time.Time

	publishTimeout time.Duration
}

func NewAuthService(users CredentialStore, sessions SessionIssuer, events EventPublisher, logger *slog.Logger) *AuthService {
	if events == nil {
		events = mq.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		events:   events,
		logger:   logger.With("component", "auth"),
		now:      time.Now,

		publishTimeout: defaultPublishTimeout,
	}
}

// Register creates an account. It does not log the user in.
//
// Errors: ErrInvalidInput, ErrUsernameTooLong, store.ErrDuplicateUsername,
// store.ErrHashingFailure, store.ErrStorageUnavailable.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidInput
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}

	user, err := s.users.CreateUser(ctx, username, password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			s.logger.InfoContext(ctx, "registration rejected: username taken")
		} else {
			logging.Error(ctx, s.logger, "registration failed", err)
		}
		return err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	s.publish(ctx, mq.AuthEvent{Type: mq.EventUserRegistered, UserID: user.ID, Username: user.Username})
	return nil
}

// Login verifies credentials and issues a session token. Every failure that
// a client could observe is ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username == "" || password == "" || len(username) > MaxUsernameLen {
		return LoginResult{}, ErrInvalidCredentials
	}

	ok, err := s.users.ValidateUser(ctx, username, password)
	if err != nil {
		logging.Error(ctx, s.logger, "credential check failed", err)
		return LoginResult{}, ErrInvalidCredentials
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(username)
	if err != nil {
		err = fmt.Errorf("issue session: %w", err)
		logging.Error(ctx, s.logger, "login failed", err)
		return LoginResult{}, err
	}

	s.publish(ctx, mq.AuthEvent{Type: mq.EventUserLoggedIn, Username: username})
	return LoginResult{Identity: Authenticated(username), Token: token}, nil
}

// Logout moves the caller to Anonymous.
func (s *AuthService) Logout(ctx context.Context, current Identity) LogoutResult {
	if current.Authenticated {
		s.publish(ctx, mq.AuthEvent{Type: mq.EventUserLoggedOut, Username: current.Username})
	}
	return LogoutResult{DiscardToken: true, Identity: Anonymous}
}

// publish is best effort: a broker outage never changes an auth result, and a
// slow broker delays it by at most publishTimeout.
func (s *AuthService) publish(ctx context.Context, event mq.AuthEvent) {
	event.OccurredAt = s.now().UTC()

	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.events.PublishAuthEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "auth event not published", "event_type", event.Type, "error", err)
	}
}
