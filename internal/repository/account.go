package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bank-ledger/internal/models"
	"bank-ledger/internal/utils"
	"bank-ledger/internal/validation"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountClosed   = errors.New("account is not active")
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// generateAccountNumber builds a 10-digit account number: a non-zero
// leading digit, eight random digits and a Luhn check digit. Collisions
// are resolved by retrying against the unique index.
func (r *AccountRepository) generateAccountNumber(ctx context.Context) (string, error) {
	const maxAttempts = 10

	for attempt := 0; attempt < maxAttempts; attempt++ {
		lead, err := rand.Int(rand.Reader, big.NewInt(9))
		if err != nil {
			return "", fmt.Errorf("random generation failed: %w", err)
		}
		body, err := rand.Int(rand.Reader, big.NewInt(100_000_000)) // 10^8
		if err != nil {
			return "", fmt.Errorf("random generation failed: %w", err)
		}

		partial := fmt.Sprintf("%d%08d", lead.Int64()+1, body.Int64())
		number := fmt.Sprintf("%s%d", partial, validation.LuhnCheckDigit(partial))

		var exists bool
		err = r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = $1)", number).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("uniqueness check failed: %w", err)
		}

		if !exists {
			return number, nil
		}

		utils.LogWarning("AccountRepo", "account number collision on %s, attempt %d/%d", number, attempt+1, maxAttempts)
	}

	return "", errors.New("could not generate a unique account number")
}

// Create opens an account for an owner. Account opening itself happens
// outside this service; this is the storage entry point it and the
// integration tests use.
func (r *AccountRepository) Create(ctx context.Context, ownerID int64, accountType string) (*models.Account, error) {
	number, err := r.generateAccountNumber(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO accounts (owner_id, account_number, type, balance, status, created_at)
		VALUES ($1, $2, $3, 0, 'active', NOW())
		RETURNING id, owner_id, account_number, type, balance, status, created_at
	`

	var account models.Account
	err = r.db.QueryRow(ctx, query, ownerID, number, accountType).Scan(
		&account.ID,
		&account.OwnerID,
		&account.AccountNumber,
		&account.Type,
		&account.Balance,
		&account.Status,
		&account.CreatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("account creation failed: %w", err)
	}

	return &account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, accountID int64) (*models.Account, error) {
	query := `
		SELECT id, owner_id, account_number, type, balance, status, created_at
		FROM accounts
		WHERE id = $1
	`

	var account models.Account
	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&account.ID,
		&account.OwnerID,
		&account.AccountNumber,
		&account.Type,
		&account.Balance,
		&account.Status,
		&account.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}

	return &account, nil
}

func (r *AccountRepository) GetByOwner(ctx context.Context, ownerID int64) ([]models.Account, error) {
	query := `
		SELECT id, owner_id, account_number, type, balance, status, created_at
		FROM accounts
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("account listing failed: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		err := rows.Scan(
			&account.ID,
			&account.OwnerID,
			&account.AccountNumber,
			&account.Type,
			&account.Balance,
			&account.Status,
			&account.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("account scan failed: %w", err)
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}
