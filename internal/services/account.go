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
)

type AccountService struct {
	accountRepo AccountStore
	cache       *cache.RedisCache
}

func NewAccountService(accountRepo AccountStore) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		cache:       nil,
	}
}

func NewAccountServiceWithCache(accountRepo AccountStore, cache *cache.RedisCache) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		cache:       cache,
	}
}

// GetAccount returns one of the caller's accounts. Closed accounts are
// still readable; their status says so. Accounts of other users look
// like they do not exist.
func (s *AccountService) GetAccount(ctx context.Context, callerID, accountID int64) (*models.Account, error) {
	utils.LogInfo("AccountService", "Account %d requested by user %d", accountID, callerID)

	if s.cache != nil {
		var cached models.Account
		err := s.cache.GetJSON(ctx, cache.AccountInfoKey(accountID), &cached)
		if err == nil {
			utils.LogDebug("Cache", "HIT: account %d", accountID)
			if cached.OwnerID != callerID {
				utils.LogWarning("AccountService", "User %d requested foreign account %d", callerID, accountID)
				return nil, repository.ErrAccountNotFound
			}
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			utils.LogWarning("Cache", "Read failed for account %d: %v", accountID, err)
		}
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != callerID {
		utils.LogWarning("AccountService", "User %d requested foreign account %d", callerID, accountID)
		return nil, repository.ErrAccountNotFound
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.AccountInfoKey(accountID), account, cache.AccountInfoTTL); err != nil {
			utils.LogWarning("Cache", "Write failed for account %d: %v", accountID, err)
		}
	}

	utils.LogSuccess("AccountService", "Account %d served (balance %s)", accountID, account.Balance.StringFixed(2))
	return account, nil
}

// GetBalance returns the current balance of one of the caller's
// accounts, preferring the cached figure while it is fresh.
func (s *AccountService) GetBalance(ctx context.Context, callerID, accountID int64) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if account.OwnerID != callerID {
		utils.LogWarning("AccountService", "User %d requested balance of foreign account %d", callerID, accountID)
		return decimal.Zero, repository.ErrAccountNotFound
	}

	if s.cache == nil {
		return account.Balance, nil
	}

	key := cache.AccountBalanceKey(accountID)
	cached, cacheErr := s.cache.Get(ctx, key)
	if cacheErr == nil {
		if balance, parseErr := decimal.NewFromString(cached); parseErr == nil {
			utils.LogDebug("Cache", "HIT: balance of account %d", accountID)
			return balance, nil
		}
	} else if errors.Is(cacheErr, cache.ErrMiss) {
		if err := s.cache.Set(ctx, key, account.Balance.StringFixed(2), cache.AccountBalanceTTL); err != nil {
			utils.LogWarning("Cache", "Balance write failed for account %d: %v", accountID, err)
		}
	} else {
		utils.LogWarning("Cache", "Balance read failed for account %d: %v", accountID, cacheErr)
	}

	return account.Balance, nil
}

// GetOwnerAccounts lists every account the caller owns, newest first.
func (s *AccountService) GetOwnerAccounts(ctx context.Context, callerID int64) ([]models.Account, error) {
	utils.LogInfo("AccountService", "Account list requested by user %d", callerID)

	if s.cache != nil {
		key := cache.OwnerAccountsKey(callerID)
		var accounts []models.Account

		err := s.cache.GetJSON(ctx, key, &accounts)
		if err == nil {
			utils.LogDebug("Cache", "HIT: %d accounts of user %d", len(accounts), callerID)
			return accounts, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			utils.LogWarning("Cache", "Read failed for user %d accounts: %v", callerID, err)
		}
	}

	accounts, err := s.accountRepo.GetByOwner(ctx, callerID)
	if err != nil {
		utils.LogError("AccountService", fmt.Sprintf("Account list failed for user %d", callerID), err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.OwnerAccountsKey(callerID), accounts, cache.OwnerAccountsTTL); err != nil {
			utils.LogWarning("Cache", "Write failed for user %d accounts: %v", callerID, err)
		}
	}

	utils.LogSuccess("AccountService", "User %d has %d accounts", callerID, len(accounts))
	return accounts, nil
}
