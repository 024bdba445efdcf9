package handlers

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// GetAccounts handles GET /accounts - every account of the caller
func (h *AccountHandler) GetAccounts(ctx *fasthttp.RequestCtx) {
	userID, ok := ctx.UserValue("user_id").(int64)
	if !ok {
		utils.LogError("AccountHandler", "user_id missing from request context", nil)
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		_ = json.NewEncoder(ctx).Encode(map[string]string{"error": "unauthorized"})
		return
	}

	accounts, err := h.accountService.GetOwnerAccounts(ctx, userID)
	if err != nil {
		utils.LogError("AccountHandler", "Account listing failed", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		_ = json.NewEncoder(ctx).Encode(map[string]string{"error": "account listing failed"})
		return
	}

	responses := make([]models.AccountResponse, 0, len(accounts))
	activeCount := 0
	closedCount := 0

	for i := range accounts {
		responses = append(responses, buildAccountResponse(&accounts[i]))

		if accounts[i].Status == models.AccountStatusActive {
			activeCount++
		} else {
			closedCount++
		}
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(models.AccountListResponse{
		Accounts:    responses,
		Total:       len(responses),
		ActiveCount: activeCount,
		ClosedCount: closedCount,
	})

	utils.LogSuccess("AccountHandler", "Account list served: %d accounts (%d active, %d closed)", len(responses), activeCount, closedCount)
}

// GetAccountByID handles GET /accounts/{id}
func (h *AccountHandler) GetAccountByID(ctx *fasthttp.RequestCtx) {
	userID, ok := ctx.UserValue("user_id").(int64)
	if !ok {
		utils.LogError("AccountHandler", "user_id missing from request context", nil)
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		_ = json.NewEncoder(ctx).Encode(map[string]string{"error": "unauthorized"})
		return
	}

	accountID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		_ = json.NewEncoder(ctx).Encode(map[string]string{"error": "invalid account id"})
		return
	}

	account, err := h.accountService.GetAccount(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			_ = json.NewEncoder(ctx).Encode(map[string]string{"error": "account not found"})
		} else {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			_ = json.NewEncoder(ctx).Encode(map[string]string{"error": "account lookup failed"})
		}
		utils.LogError("AccountHandler", "Account lookup failed", err)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(buildAccountResponse(account))

	utils.LogSuccess("AccountHandler", "Account %d served", accountID)
}

// GetBalance handles GET /accounts/{id}/balance
func (h *AccountHandler) GetBalance(ctx *fasthttp.RequestCtx) {
	userID, ok := ctx.UserValue("user_id").(int64)
	if !ok {
		utils.LogError("AccountHandler", "user_id missing from request context", nil)
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		_ = json.NewEncoder(ctx).Encode(map[string]string{"error": "unauthorized"})
		return
	}

	accountID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		_ = json.NewEncoder(ctx).Encode(map[string]string{"error": "invalid account id"})
		return
	}

	balance, err := h.accountService.GetBalance(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			_ = json.NewEncoder(ctx).Encode(map[string]string{"error": "account not found"})
		} else {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			_ = json.NewEncoder(ctx).Encode(map[string]string{"error": "balance lookup failed"})
		}
		utils.LogError("AccountHandler", "Balance lookup failed", err)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(map[string]interface{}{
		"account_id": accountID,
		"balance":    balance.StringFixed(2),
	})
}
