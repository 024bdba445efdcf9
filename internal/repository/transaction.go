package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/models"
	"bank-ledger/internal/utils"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

// depositRetries bounds transparent re-runs of a deposit that lost a
// serialization conflict. After that the failure surfaces as internal.
const depositRetries = 3

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Deposit appends a completed journal row and increments the account
// balance as one database transaction. The account row is locked first,
// so concurrent deposits against the same account serialize while other
// accounts stay unaffected. The returned balance is the value persisted
// by the increment, not anything computed client-side.
func (r *TransactionRepository) Deposit(
	ctx context.Context,
	accountID, ownerID int64,
	amount decimal.Decimal,
	description, fundingType, fundingRef string,
) (*models.Transaction, decimal.Decimal, error) {

	var transaction *models.Transaction
	var balance decimal.Decimal

	err := retryTxConflict(accountID, func() error {
		var err error
		transaction, balance, err = r.depositOnce(ctx, accountID, ownerID, amount, description, fundingType, fundingRef)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return transaction, balance, nil
}

// retryTxConflict re-runs fn while it loses a serialization conflict, up
// to depositRetries extra attempts. A failed attempt's transaction has
// already rolled back, so a re-run starts clean and exhaustion leaves no
// partial effects. Any non-conflict error stops the loop at once.
func retryTxConflict(accountID int64, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= depositRetries; attempt++ {
		if attempt > 0 {
			utils.LogWarning("TransactionRepo", "deposit conflict on account %d, retry %d/%d", accountID, attempt, depositRetries)
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !isTxConflict(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("deposit retries exhausted: %w", lastErr)
}

func (r *TransactionRepository) depositOnce(
	ctx context.Context,
	accountID, ownerID int64,
	amount decimal.Decimal,
	description, fundingType, fundingRef string,
) (*models.Transaction, decimal.Decimal, error) {

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the account row so the eligibility checks and the increment
	// see the same snapshot.
	var rowOwner int64
	var status string
	err = tx.QueryRow(ctx,
		"SELECT owner_id, status FROM accounts WHERE id = $1 FOR UPDATE",
		accountID,
	).Scan(&rowOwner, &status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, decimal.Zero, ErrAccountNotFound
		}
		return nil, decimal.Zero, fmt.Errorf("account lock failed: %w", err)
	}

	// An account owned by someone else looks exactly like a missing one.
	if rowOwner != ownerID {
		return nil, decimal.Zero, ErrAccountNotFound
	}

	if status != models.AccountStatusActive {
		return nil, decimal.Zero, ErrAccountClosed
	}

	query := `
		INSERT INTO transactions (
			account_id, reference, type, amount, description,
			funding_type, funding_ref, status, created_at, processed_at
		) VALUES ($1, $2, 'deposit', $3, $4, $5, $6, 'completed', NOW(), NOW())
		RETURNING id, account_id, reference, type, amount, description,
		          funding_type, funding_ref, status, created_at, processed_at
	`

	var transaction models.Transaction
	err = tx.QueryRow(ctx, query,
		accountID, uuid.New(), amount, description, fundingType, fundingRef,
	).Scan(
		&transaction.ID,
		&transaction.AccountID,
		&transaction.Reference,
		&transaction.Type,
		&transaction.Amount,
		&transaction.Description,
		&transaction.FundingType,
		&transaction.FundingRef,
		&transaction.Status,
		&transaction.CreatedAt,
		&transaction.ProcessedAt,
	)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("journal append failed: %w", err)
	}

	var newBalance decimal.Decimal
	err = tx.QueryRow(ctx,
		"UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance",
		amount, accountID,
	).Scan(&newBalance)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("balance update failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, decimal.Zero, fmt.Errorf("commit failed: %w", err)
	}

	utils.LogSuccess("TransactionRepo", "deposit %s completed: account %d + %s = %s",
		transaction.Reference, accountID, amount.StringFixed(2), newBalance.StringFixed(2))

	return &transaction, newBalance, nil
}

// ListByAccount returns one history page, newest first with id breaking
// timestamp ties, each row already joined with its account type. One
// query per page regardless of page size.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.TransactionView, error) {
	query := `
		SELECT t.id, t.account_id, t.reference, t.type, t.amount, t.description,
		       t.funding_type, t.funding_ref, t.status, t.created_at, t.processed_at,
		       a.type
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.account_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("history query failed: %w", err)
	}
	defer rows.Close()

	var views []models.TransactionView
	for rows.Next() {
		var v models.TransactionView
		err := rows.Scan(
			&v.ID,
			&v.AccountID,
			&v.Reference,
			&v.Type,
			&v.Amount,
			&v.Description,
			&v.FundingType,
			&v.FundingRef,
			&v.Status,
			&v.CreatedAt,
			&v.ProcessedAt,
			&v.AccountType,
		)
		if err != nil {
			return nil, fmt.Errorf("history scan failed: %w", err)
		}
		views = append(views, v)
	}

	return views, rows.Err()
}

func (r *TransactionRepository) GetByID(ctx context.Context, transactionID int64) (*models.TransactionView, error) {
	query := `
		SELECT t.id, t.account_id, t.reference, t.type, t.amount, t.description,
		       t.funding_type, t.funding_ref, t.status, t.created_at, t.processed_at,
		       a.type
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1
	`

	var v models.TransactionView
	err := r.db.QueryRow(ctx, query, transactionID).Scan(
		&v.ID,
		&v.AccountID,
		&v.Reference,
		&v.Type,
		&v.Amount,
		&v.Description,
		&v.FundingType,
		&v.FundingRef,
		&v.Status,
		&v.CreatedAt,
		&v.ProcessedAt,
		&v.AccountType,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("transaction lookup failed: %w", err)
	}

	return &v, nil
}

// isTxConflict matches SQLSTATE 40001 (serialization failure) and 40P01
// (deadlock); Postgres aborts one competitor and the whole transaction
// can safely be re-run.
func isTxConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
