package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
)

func TestGetAccountOwnership(t *testing.T) {
	accounts := &fakeAccountStore{accounts: make(map[int64]*models.Account)}
	seedAccount(accounts, 1, 10, models.AccountTypeChecking, models.AccountStatusActive)
	seedAccount(accounts, 2, 10, models.AccountTypeSavings, models.AccountStatusClosed)
	service := NewAccountService(accounts)

	got, err := service.GetAccount(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.ID != 1 || got.OwnerID != 10 {
		t.Fatalf("GetAccount returned %+v", got)
	}

	// Closed accounts stay readable; the status field carries the state.
	closed, err := service.GetAccount(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("GetAccount(closed): %v", err)
	}
	if closed.Status != models.AccountStatusClosed {
		t.Fatalf("status=%s want=closed", closed.Status)
	}

	if _, err := service.GetAccount(context.Background(), 77, 1); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Fatalf("foreign account: err=%v want=ErrAccountNotFound", err)
	}
	if _, err := service.GetAccount(context.Background(), 10, 999); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Fatalf("missing account: err=%v want=ErrAccountNotFound", err)
	}
}

func TestGetBalance(t *testing.T) {
	accounts := &fakeAccountStore{accounts: make(map[int64]*models.Account)}
	seedAccount(accounts, 1, 10, models.AccountTypeChecking, models.AccountStatusActive)
	accounts.accounts[1].Balance = decimal.RequireFromString("123.45")
	service := NewAccountService(accounts)

	balance, err := service.GetBalance(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got := balance.StringFixed(2); got != "123.45" {
		t.Fatalf("balance=%s want=123.45", got)
	}

	if _, err := service.GetBalance(context.Background(), 77, 1); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Fatalf("foreign account: err=%v want=ErrAccountNotFound", err)
	}
}

func TestGetOwnerAccounts(t *testing.T) {
	accounts := &fakeAccountStore{accounts: make(map[int64]*models.Account)}
	seedAccount(accounts, 1, 10, models.AccountTypeChecking, models.AccountStatusActive)
	seedAccount(accounts, 2, 10, models.AccountTypeSavings, models.AccountStatusActive)
	seedAccount(accounts, 3, 20, models.AccountTypeChecking, models.AccountStatusActive)
	service := NewAccountService(accounts)

	got, err := service.GetOwnerAccounts(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetOwnerAccounts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("accounts=%d want=2", len(got))
	}
	for _, account := range got {
		if account.OwnerID != 10 {
			t.Fatalf("foreign account %d in listing", account.ID)
		}
	}

	empty, err := service.GetOwnerAccounts(context.Background(), 99)
	if err != nil {
		t.Fatalf("GetOwnerAccounts(empty): %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("accounts=%d want=0", len(empty))
	}
}
