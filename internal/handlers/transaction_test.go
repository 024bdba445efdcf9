package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

const testCard = "4242424242424242"

type fakeAccountStore struct {
	accounts map[int64]*models.Account
}

func (f *fakeAccountStore) GetByID(_ context.Context, id int64) (*models.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}

func (f *fakeAccountStore) GetByOwner(_ context.Context, ownerID int64) ([]models.Account, error) {
	var out []models.Account
	for _, account := range f.accounts {
		if account.OwnerID == ownerID {
			out = append(out, *account)
		}
	}
	return out, nil
}

type fakeTransactionStore struct {
	accounts *fakeAccountStore
	rows     []models.TransactionView
	nextID   int64
}

func (f *fakeTransactionStore) Deposit(_ context.Context, accountID, ownerID int64, amount decimal.Decimal, description, fundingType, fundingRef string) (*models.Transaction, decimal.Decimal, error) {
	account, ok := f.accounts.accounts[accountID]
	if !ok || account.OwnerID != ownerID {
		return nil, decimal.Zero, repository.ErrAccountNotFound
	}
	if account.Status != models.AccountStatusActive {
		return nil, decimal.Zero, repository.ErrAccountClosed
	}

	f.nextID++
	now := time.Now()
	transaction := models.Transaction{
		ID:          f.nextID,
		AccountID:   accountID,
		Reference:   uuid.New(),
		Type:        models.TransactionTypeDeposit,
		Amount:      amount,
		Description: description,
		FundingType: fundingType,
		FundingRef:  fundingRef,
		Status:      models.TransactionStatusCompleted,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	account.Balance = account.Balance.Add(amount)
	f.rows = append([]models.TransactionView{{Transaction: transaction, AccountType: account.Type}}, f.rows...)
	return &transaction, account.Balance, nil
}

func (f *fakeTransactionStore) ListByAccount(_ context.Context, accountID int64, limit, offset int) ([]models.TransactionView, error) {
	var matching []models.TransactionView
	for _, v := range f.rows {
		if v.AccountID == accountID {
			matching = append(matching, v)
		}
	}
	if offset >= len(matching) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[offset:end], nil
}

func (f *fakeTransactionStore) GetByID(_ context.Context, transactionID int64) (*models.TransactionView, error) {
	for _, v := range f.rows {
		if v.ID == transactionID {
			clone := v
			return &clone, nil
		}
	}
	return nil, repository.ErrTransactionNotFound
}

func newLedgerHandler(t *testing.T) (*TransactionHandler, *services.LedgerService, *fakeAccountStore) {
	t.Helper()

	accounts := &fakeAccountStore{accounts: make(map[int64]*models.Account)}
	transactions := &fakeTransactionStore{accounts: accounts}
	cipher, err := utils.NewFieldCipher("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	ledger := services.NewLedgerService(transactions, accounts, cipher, decimal.NewFromInt(10000))
	return NewTransactionHandler(ledger), ledger, accounts
}

func addAccount(accounts *fakeAccountStore, id, ownerID int64, status string) {
	accounts.accounts[id] = &models.Account{
		ID:            id,
		OwnerID:       ownerID,
		AccountNumber: "1000000009",
		Type:          models.AccountTypeChecking,
		Balance:       decimal.Zero,
		Status:        status,
		CreatedAt:     time.Now(),
	}
}

func doRequest(t *testing.T, handler fasthttp.RequestHandler, method, uri, body string, userID int64, params map[string]string) *fasthttp.RequestCtx {
	t.Helper()

	var req fasthttp.Request
	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	if body != "" {
		req.SetBodyString(body)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	ctx.SetUserValue("user_id", userID)
	for name, value := range params {
		ctx.SetUserValue(name, value)
	}

	handler(ctx)
	return ctx
}

func fundBody(amount string) string {
	return fmt.Sprintf(`{"amount":%q,"funding_source":{"type":"card","account_number":%q}}`, amount, testCard)
}

func TestFundEndpoint(t *testing.T) {
	handler, _, accounts := newLedgerHandler(t)
	addAccount(accounts, 1, 10, models.AccountStatusActive)

	ctx := doRequest(t, handler.Fund, "POST", "/accounts/1/fund", fundBody("10.50"), 10, map[string]string{"id": "1"})

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusCreated {
		t.Fatalf("status=%d want=201, body=%s", got, ctx.Response.Body())
	}

	var response models.FundResponse
	if err := json.Unmarshal(ctx.Response.Body(), &response); err != nil {
		t.Fatalf("response decode: %v", err)
	}
	if response.NewBalance != "10.50" {
		t.Errorf("new_balance=%q want=10.50", response.NewBalance)
	}
	if response.Transaction.Status != models.TransactionStatusCompleted {
		t.Errorf("status=%q want=completed", response.Transaction.Status)
	}
	if response.Transaction.Amount != "10.50" {
		t.Errorf("amount=%q want=10.50", response.Transaction.Amount)
	}

	// The card number must not appear anywhere in the response.
	if bytes.Contains(ctx.Response.Body(), []byte(testCard)) {
		t.Error("response leaks the funding card number")
	}
	if bytes.Contains(ctx.Response.Body(), []byte("funding_ref")) {
		t.Error("response carries a funding_ref field")
	}
}

func TestFundEndpointErrors(t *testing.T) {
	handler, _, accounts := newLedgerHandler(t)
	addAccount(accounts, 1, 10, models.AccountStatusActive)
	addAccount(accounts, 2, 10, models.AccountStatusClosed)

	tests := []struct {
		name       string
		uri        string
		body       string
		userID     int64
		idParam    string
		wantStatus int
	}{
		{"zero amount", "/accounts/1/fund", fundBody("0"), 10, "1", fasthttp.StatusBadRequest},
		{"sub-cent amount", "/accounts/1/fund", fundBody("0.001"), 10, "1", fasthttp.StatusBadRequest},
		{"over ceiling", "/accounts/1/fund", fundBody("10000.01"), 10, "1", fasthttp.StatusBadRequest},
		{"luhn failure", "/accounts/1/fund", `{"amount":"5","funding_source":{"type":"card","account_number":"4242424242424241"}}`, 10, "1", fasthttp.StatusBadRequest},
		{"short routing", "/accounts/1/fund", `{"amount":"5","funding_source":{"type":"bank","account_number":"1234","routing_number":"12345"}}`, 10, "1", fasthttp.StatusBadRequest},
		{"malformed body", "/accounts/1/fund", `{"amount":`, 10, "1", fasthttp.StatusBadRequest},
		{"malformed id", "/accounts/abc/fund", fundBody("5"), 10, "abc", fasthttp.StatusBadRequest},
		{"foreign account", "/accounts/1/fund", fundBody("5"), 77, "1", fasthttp.StatusNotFound},
		{"missing account", "/accounts/999/fund", fundBody("5"), 10, "999", fasthttp.StatusNotFound},
		{"closed account", "/accounts/2/fund", fundBody("5"), 10, "2", fasthttp.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := doRequest(t, handler.Fund, "POST", tt.uri, tt.body, tt.userID, map[string]string{"id": tt.idParam})
			if got := ctx.Response.StatusCode(); got != tt.wantStatus {
				t.Fatalf("status=%d want=%d, body=%s", got, tt.wantStatus, ctx.Response.Body())
			}

			var payload map[string]string
			if err := json.Unmarshal(ctx.Response.Body(), &payload); err != nil {
				t.Fatalf("error body decode: %v", err)
			}
			if payload["error"] == "" {
				t.Fatal("error body missing error field")
			}
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	handler, ledger, accounts := newLedgerHandler(t)
	addAccount(accounts, 1, 10, models.AccountStatusActive)

	for _, amount := range []string{"1.00", "2.00", "3.00", "4.00"} {
		req := models.FundRequest{
			Amount: decimal.RequireFromString(amount),
			Source: models.FundingSource{Type: models.FundingTypeCard, AccountNumber: testCard},
		}
		if _, _, err := ledger.FundAccount(context.Background(), 10, 1, req); err != nil {
			t.Fatal(err)
		}
	}

	ctx := doRequest(t, handler.GetHistory, "GET", "/accounts/1/transactions?limit=2&offset=1", "", 10, map[string]string{"id": "1"})
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("status=%d want=200, body=%s", got, ctx.Response.Body())
	}

	var response models.TransactionListResponse
	if err := json.Unmarshal(ctx.Response.Body(), &response); err != nil {
		t.Fatalf("response decode: %v", err)
	}
	if response.Total != 2 || response.Limit != 2 || response.Offset != 1 || response.AccountID != 1 {
		t.Fatalf("envelope=%+v", response)
	}
	// Newest first: the page after skipping one row starts at 3.00.
	if response.Transactions[0].Amount != "3.00" || response.Transactions[1].Amount != "2.00" {
		t.Fatalf("page rows: %q, %q", response.Transactions[0].Amount, response.Transactions[1].Amount)
	}
	for _, tr := range response.Transactions {
		if tr.AccountType != models.AccountTypeChecking {
			t.Errorf("row %d missing account type", tr.ID)
		}
		if tr.FundingRef != "" {
			t.Errorf("row %d carries funding_ref", tr.ID)
		}
	}
}

func TestHistoryEndpointDefaults(t *testing.T) {
	handler, _, accounts := newLedgerHandler(t)
	addAccount(accounts, 1, 10, models.AccountStatusActive)

	ctx := doRequest(t, handler.GetHistory, "GET", "/accounts/1/transactions", "", 10, map[string]string{"id": "1"})
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("status=%d want=200", got)
	}

	var response models.TransactionListResponse
	if err := json.Unmarshal(ctx.Response.Body(), &response); err != nil {
		t.Fatal(err)
	}
	if response.Limit != services.DefaultHistoryLimit || response.Offset != 0 {
		t.Fatalf("defaults not applied: limit=%d offset=%d", response.Limit, response.Offset)
	}
	if response.Transactions == nil {
		t.Fatal("transactions must be an empty array, not null")
	}
}

func TestHistoryEndpointNotFound(t *testing.T) {
	handler, _, accounts := newLedgerHandler(t)
	addAccount(accounts, 1, 10, models.AccountStatusActive)

	ctx := doRequest(t, handler.GetHistory, "GET", "/accounts/1/transactions", "", 77, map[string]string{"id": "1"})
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Fatalf("foreign account: status=%d want=404", got)
	}

	ctx = doRequest(t, handler.GetHistory, "GET", "/accounts/999/transactions", "", 10, map[string]string{"id": "999"})
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Fatalf("missing account: status=%d want=404", got)
	}
}

func TestGetTransactionEndpoint(t *testing.T) {
	handler, ledger, accounts := newLedgerHandler(t)
	addAccount(accounts, 1, 10, models.AccountStatusActive)

	req := models.FundRequest{
		Amount: decimal.RequireFromString("5.00"),
		Source: models.FundingSource{Type: models.FundingTypeCard, AccountNumber: testCard},
	}
	created, _, err := ledger.FundAccount(context.Background(), 10, 1, req)
	if err != nil {
		t.Fatal(err)
	}

	uri := fmt.Sprintf("/transactions/%d", created.ID)
	idParam := fmt.Sprintf("%d", created.ID)

	ctx := doRequest(t, handler.GetByID, "GET", uri, "", 10, map[string]string{"id": idParam})
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("status=%d want=200, body=%s", got, ctx.Response.Body())
	}

	var response models.TransactionResponse
	if err := json.Unmarshal(ctx.Response.Body(), &response); err != nil {
		t.Fatal(err)
	}
	if response.FundingRef != "****4242" {
		t.Fatalf("funding_ref=%q want=****4242", response.FundingRef)
	}

	ctx = doRequest(t, handler.GetByID, "GET", uri, "", 77, map[string]string{"id": idParam})
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Fatalf("foreign caller: status=%d want=404", got)
	}

	ctx = doRequest(t, handler.GetByID, "GET", "/transactions/999", "", 10, map[string]string{"id": "999"})
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Fatalf("missing transaction: status=%d want=404", got)
	}
}
