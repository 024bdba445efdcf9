package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bank-ledger/internal/models"
	"bank-ledger/internal/utils"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepository reads and deletes session rows. Issuing tokens is
// the login flow's job and happens outside this service.
type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	utils.LogDB("CREATE SESSION", fmt.Sprintf("user %d, expires %s", session.UserID, session.ExpiresAt))

	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
	`, session.Token, session.UserID, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("session insert failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	session.Token = token

	err := r.db.QueryRow(ctx, `
		SELECT user_id, created_at, expires_at
		FROM sessions
		WHERE token = $1
	`, token).Scan(&session.UserID, &session.CreatedAt, &session.ExpiresAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	return &session, nil
}

func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

func (r *SessionRepository) DeleteAllByUser(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM sessions WHERE user_id = $1", userID)
	return err
}

// DeleteExpired removes sessions past their expiry and reports how many
// rows went away. The background sweeper calls this periodically.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("expired session sweep failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
