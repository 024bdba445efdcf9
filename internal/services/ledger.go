package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/cache"
	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/utils"
	"bank-ledger/internal/validation"
	"bank-ledger/internal/worker"
)

var (
	ErrInvalidAmount        = errors.New("amount must be positive with at most two decimal places")
	ErrAmountTooLarge       = errors.New("amount exceeds the single deposit ceiling")
	ErrInvalidCardNumber    = errors.New("card number failed validation")
	ErrInvalidRoutingNumber = errors.New("routing number must be exactly 9 digits")
	ErrInvalidFundingSource = errors.New("funding source is incomplete or unsupported")
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// AccountStore is the slice of the account repository the services need.
type AccountStore interface {
	GetByID(ctx context.Context, accountID int64) (*models.Account, error)
	GetByOwner(ctx context.Context, ownerID int64) ([]models.Account, error)
}

// TransactionStore is the slice of the transaction repository the ledger needs.
type TransactionStore interface {
	Deposit(ctx context.Context, accountID, ownerID int64, amount decimal.Decimal, description, fundingType, fundingRef string) (*models.Transaction, decimal.Decimal, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.TransactionView, error)
	GetByID(ctx context.Context, transactionID int64) (*models.TransactionView, error)
}

// TransactionPage is one slice of an account's history, newest first.
type TransactionPage struct {
	Items  []models.TransactionView
	Limit  int
	Offset int
}

type LedgerService struct {
	transactionRepo TransactionStore
	accountRepo     AccountStore
	cipher          *utils.FieldCipher
	ceiling         decimal.Decimal
	cache           *cache.RedisCache
	workerPool      *worker.WorkerPool
}

func NewLedgerService(
	transactionRepo TransactionStore,
	accountRepo AccountStore,
	cipher *utils.FieldCipher,
	ceiling decimal.Decimal,
) *LedgerService {
	return &LedgerService{
		transactionRepo: transactionRepo,
		accountRepo:     accountRepo,
		cipher:          cipher,
		ceiling:         ceiling,
	}
}

func NewLedgerServiceWithCache(
	transactionRepo TransactionStore,
	accountRepo AccountStore,
	cipher *utils.FieldCipher,
	ceiling decimal.Decimal,
	cache *cache.RedisCache,
) *LedgerService {
	service := NewLedgerService(transactionRepo, accountRepo, cipher, ceiling)
	service.cache = cache
	return service
}

// SetWorkerPool attaches a pool for asynchronous cache invalidation.
func (s *LedgerService) SetWorkerPool(pool *worker.WorkerPool) {
	s.workerPool = pool
	utils.LogSuccess("LedgerService", "Worker pool attached")
}

// FundAccount credits an account from an external funding source. The
// checks run in a fixed order: amount, then funding source, then the
// account itself; the first failure wins, so a request with several
// problems reports the earliest one.
func (s *LedgerService) FundAccount(ctx context.Context, callerID, accountID int64, req models.FundRequest) (*models.Transaction, decimal.Decimal, error) {
	utils.LogInfo("LedgerService", "Deposit to account %d by user %d via %s", accountID, callerID, req.Source.Type)

	if err := s.validateAmount(req.Amount); err != nil {
		utils.LogWarning("LedgerService", "Deposit rejected: %v", err)
		return nil, decimal.Zero, err
	}
	if err := validateFundingSource(req.Source); err != nil {
		utils.LogWarning("LedgerService", "Deposit rejected: %v", err)
		return nil, decimal.Zero, err
	}

	// The raw funding number is stored encrypted; only the ciphertext
	// ever reaches the database.
	fundingRef, err := s.cipher.Encrypt(req.Source.AccountNumber)
	if err != nil {
		utils.LogError("LedgerService", "Funding reference encryption failed", err)
		return nil, decimal.Zero, fmt.Errorf("funding reference encryption failed: %w", err)
	}

	description := req.Description
	if description == "" {
		description = defaultDescription(req.Source.Type)
	}

	transaction, newBalance, err := s.transactionRepo.Deposit(ctx, accountID, callerID, req.Amount, description, req.Source.Type, fundingRef)
	if err != nil {
		utils.LogError("LedgerService", "Deposit failed", err)
		return nil, decimal.Zero, err
	}

	// The ciphertext stays in the database; responses never carry it.
	transaction.FundingRef = ""

	s.invalidateCacheAsync(accountID, callerID, transaction.ID)

	utils.LogSuccess("LedgerService", "Deposit %s completed, account %d balance %s", transaction.Reference, accountID, newBalance.StringFixed(2))
	return transaction, newBalance, nil
}

// GetTransactions returns one page of an account's history together
// with the bounds that were actually applied.
func (s *LedgerService) GetTransactions(ctx context.Context, callerID, accountID int64, limit, offset int) (*TransactionPage, error) {
	limit, offset = clampPage(limit, offset)

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != callerID {
		utils.LogWarning("LedgerService", "User %d requested history of foreign account %d", callerID, accountID)
		return nil, repository.ErrAccountNotFound
	}

	views, err := s.transactionRepo.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		utils.LogError("LedgerService", "History query failed", err)
		return nil, err
	}

	// History rows never carry funding details.
	for i := range views {
		views[i].FundingRef = ""
	}

	utils.LogSuccess("LedgerService", "History for account %d: %d rows (limit %d, offset %d)", accountID, len(views), limit, offset)
	return &TransactionPage{Items: views, Limit: limit, Offset: offset}, nil
}

// GetTransaction returns a single transaction with its funding
// reference decrypted and masked down to the last four digits.
func (s *LedgerService) GetTransaction(ctx context.Context, callerID, transactionID int64) (*models.TransactionView, error) {
	view, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, view.AccountID)
	if err != nil {
		return nil, repository.ErrTransactionNotFound
	}
	if account.OwnerID != callerID {
		utils.LogWarning("LedgerService", "User %d requested foreign transaction %d", callerID, transactionID)
		return nil, repository.ErrTransactionNotFound
	}

	if view.FundingRef != "" {
		number, err := s.cipher.Decrypt(view.FundingRef)
		if err != nil {
			utils.LogError("LedgerService", "Funding reference decryption failed", err)
			view.FundingRef = ""
		} else {
			view.FundingRef = maskNumber(number)
		}
	}

	return view, nil
}

func (s *LedgerService) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	// Sub-cent precision cannot be represented in the ledger.
	if !amount.Equal(amount.Truncate(2)) {
		return ErrInvalidAmount
	}
	if s.ceiling.IsPositive() && amount.GreaterThan(s.ceiling) {
		return ErrAmountTooLarge
	}
	return nil
}

func validateFundingSource(source models.FundingSource) error {
	switch source.Type {
	case models.FundingTypeCard:
		if !validation.IsValidCardNumber(source.AccountNumber) {
			return ErrInvalidCardNumber
		}
	case models.FundingTypeBank:
		if source.AccountNumber == "" {
			return ErrInvalidFundingSource
		}
		if !validation.IsValidRoutingNumber(source.RoutingNumber) {
			return ErrInvalidRoutingNumber
		}
	default:
		return ErrInvalidFundingSource
	}
	return nil
}

func defaultDescription(fundingType string) string {
	if fundingType == models.FundingTypeBank {
		return "Bank transfer deposit"
	}
	return "Card deposit"
}

func maskNumber(number string) string {
	if len(number) < 4 {
		return "****"
	}
	return "****" + number[len(number)-4:]
}

func clampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// invalidateCacheAsync drops cached reads touched by a deposit. The
// pool keeps it off the request path; a full queue falls back to a
// synchronous delete so the cache never serves a stale balance longer
// than its TTL.
func (s *LedgerService) invalidateCacheAsync(accountID, ownerID, transactionID int64) {
	if s.cache == nil {
		return
	}

	keys := []string{
		cache.AccountBalanceKey(accountID),
		cache.AccountInfoKey(accountID),
		cache.OwnerAccountsKey(ownerID),
	}

	if s.workerPool == nil {
		_ = s.cache.Delete(context.Background(), keys...)
		return
	}

	job := worker.Job{
		ID: fmt.Sprintf("cache-invalidate-%d", transactionID),
		Task: func() error {
			return s.cache.Delete(context.Background(), keys...)
		},
	}
	if err := s.workerPool.Submit(job); err != nil {
		utils.LogWarning("LedgerService", "Worker pool unavailable, invalidating cache synchronously")
		_ = s.cache.Delete(context.Background(), keys...)
	} else {
		utils.LogDebug("LedgerService", "Cache invalidation queued for transaction %d", transactionID)
	}
}
