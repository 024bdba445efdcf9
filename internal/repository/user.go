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

var ErrUserNotFound = errors.New("user not found")

// UserRepository manages user rows. Sign-up itself lives in the login
// system; this service only provisions and reads the rows its foreign
// keys hang off.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, name string) (*models.User, error) {
	utils.LogDB("CREATE USER", name)

	var user models.User
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (name, created_at)
		VALUES ($1, NOW())
		RETURNING id, name, created_at
	`, name).Scan(&user.ID, &user.Name, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user insert failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, name, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Name, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	return &user, nil
}
