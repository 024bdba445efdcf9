package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/utils"
)

var ErrSessionInvalid = errors.New("session is invalid or expired")

// SessionStore is the slice of the session repository this service needs.
type SessionStore interface {
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllByUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type SessionService struct {
	store  SessionStore
	buffer time.Duration
}

func NewSessionService(store SessionStore, buffer time.Duration) *SessionService {
	utils.LogSuccess("SessionService", "Session service ready (expiry buffer: %v)", buffer)
	return &SessionService{
		store:  store,
		buffer: buffer,
	}
}

// IsSessionValid reports whether a session is still usable at the given
// instant. A session whose remaining lifetime is the buffer or less is
// already treated as expired, so callers get a rejection before the row
// itself lapses mid-request. The check never mutates anything.
func (s *SessionService) IsSessionValid(session *models.Session, now time.Time) bool {
	if session == nil {
		return false
	}
	return session.ExpiresAt.Sub(now) > s.buffer
}

// Validate resolves a bearer token to the user it belongs to.
func (s *SessionService) Validate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrSessionInvalid
	}

	session, err := s.store.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			utils.LogWarning("SessionService", "Unknown session token")
			return 0, ErrSessionInvalid
		}
		return 0, fmt.Errorf("session lookup failed: %w", err)
	}

	if !s.IsSessionValid(session, time.Now()) {
		utils.LogWarning("SessionService", "Session for user %d expired or expiring within buffer", session.UserID)
		return 0, ErrSessionInvalid
	}

	return session.UserID, nil
}

// Logout removes a single session. Unknown tokens are a no-op.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrSessionInvalid
	}
	if err := s.store.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	utils.LogInfo("SessionService", "Session terminated")
	return nil
}

// LogoutAll removes every session the user has.
func (s *SessionService) LogoutAll(ctx context.Context, userID int64) error {
	if err := s.store.DeleteAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("logout all failed: %w", err)
	}
	utils.LogInfo("SessionService", "All sessions terminated for user %d", userID)
	return nil
}

// SweepExpired deletes sessions whose expiry has passed. Validation
// itself never deletes, so a periodic sweep keeps the table bounded.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("session sweep failed: %w", err)
	}
	if deleted > 0 {
		utils.LogInfo("SessionService", "Swept %d expired sessions", deleted)
	}
	return deleted, nil
}
