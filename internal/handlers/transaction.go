package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

type TransactionHandler struct {
	ledger *services.LedgerService
}

func NewTransactionHandler(ledger *services.LedgerService) *TransactionHandler {
	utils.LogSuccess("TransactionHandler", "Transaction handler ready")
	return &TransactionHandler{ledger: ledger}
}

// Fund handles POST /accounts/{id}/fund
func (h *TransactionHandler) Fund(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := ctx.UserValue("user_id").(int64)
	if !ok {
		utils.LogError("TransactionHandler", "user_id missing from request context", nil)
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": "unauthorized"})
		utils.LogResponse("/accounts/{id}/fund", fasthttp.StatusUnauthorized, time.Since(startTime))
		return
	}

	accountID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": "invalid account id"})
		utils.LogResponse("/accounts/{id}/fund", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	path := fmt.Sprintf("/accounts/%d/fund", accountID)
	utils.LogRequest("POST", path, userID)

	var req models.FundRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		utils.LogError("TransactionHandler", "Request body parse failed", err)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": "invalid request body"})
		utils.LogResponse(path, fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	transaction, newBalance, err := h.ledger.FundAccount(ctx, userID, accountID, req)
	if err != nil {
		status := fundErrorStatus(err)
		message := err.Error()
		if status == fasthttp.StatusInternalServerError {
			message = "deposit failed"
		}
		utils.LogError("TransactionHandler", "Deposit rejected", err)
		ctx.SetStatusCode(status)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": message})
		utils.LogResponse(path, status, time.Since(startTime))
		return
	}

	utils.LogSuccess("TransactionHandler", "Deposit %s completed", transaction.Reference)

	ctx.SetStatusCode(fasthttp.StatusCreated)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(models.FundResponse{
		Transaction: buildTransactionResponse(transaction, ""),
		NewBalance:  newBalance.StringFixed(2),
	})

	utils.LogResponse(path, fasthttp.StatusCreated, time.Since(startTime))
}

// GetHistory handles GET /accounts/{id}/transactions
func (h *TransactionHandler) GetHistory(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := ctx.UserValue("user_id").(int64)
	if !ok {
		utils.LogError("TransactionHandler", "user_id missing from request context", nil)
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": "unauthorized"})
		utils.LogResponse("/accounts/{id}/transactions", fasthttp.StatusUnauthorized, time.Since(startTime))
		return
	}

	accountID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": "invalid account id"})
		utils.LogResponse("/accounts/{id}/transactions", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	path := fmt.Sprintf("/accounts/%d/transactions", accountID)
	utils.LogRequest("GET", path, userID)

	limit, offset := parsePageArgs(ctx)

	page, err := h.ledger.GetTransactions(ctx, userID, accountID, limit, offset)
	if err != nil {
		status := fasthttp.StatusInternalServerError
		message := "history unavailable"
		if errors.Is(err, repository.ErrAccountNotFound) {
			status = fasthttp.StatusNotFound
			message = "account not found"
		}
		utils.LogError("TransactionHandler", "History request failed", err)
		ctx.SetStatusCode(status)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": message})
		utils.LogResponse(path, status, time.Since(startTime))
		return
	}

	transactions := make([]models.TransactionResponse, 0, len(page.Items))
	for i := range page.Items {
		transactions = append(transactions, buildTransactionResponse(&page.Items[i].Transaction, page.Items[i].AccountType))
	}

	utils.LogSuccess("TransactionHandler", "History served: %d transactions for account %d", len(transactions), accountID)

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(models.TransactionListResponse{
		Transactions: transactions,
		Total:        len(transactions),
		Limit:        page.Limit,
		Offset:       page.Offset,
		AccountID:    accountID,
	})

	utils.LogResponse(path, fasthttp.StatusOK, time.Since(startTime))
}

// GetByID handles GET /transactions/{id}
func (h *TransactionHandler) GetByID(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := ctx.UserValue("user_id").(int64)
	if !ok {
		utils.LogError("TransactionHandler", "user_id missing from request context", nil)
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": "unauthorized"})
		utils.LogResponse("/transactions/{id}", fasthttp.StatusUnauthorized, time.Since(startTime))
		return
	}

	transactionID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": "invalid transaction id"})
		utils.LogResponse("/transactions/{id}", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	path := fmt.Sprintf("/transactions/%d", transactionID)
	utils.LogRequest("GET", path, userID)

	view, err := h.ledger.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		status := fasthttp.StatusInternalServerError
		message := "transaction unavailable"
		if errors.Is(err, repository.ErrTransactionNotFound) || errors.Is(err, repository.ErrAccountNotFound) {
			status = fasthttp.StatusNotFound
			message = "transaction not found"
		}
		utils.LogError("TransactionHandler", "Transaction request failed", err)
		ctx.SetStatusCode(status)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{"error": message})
		utils.LogResponse(path, status, time.Since(startTime))
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(buildTransactionResponse(&view.Transaction, view.AccountType))

	utils.LogResponse(path, fasthttp.StatusOK, time.Since(startTime))
}

func fundErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrAmountTooLarge),
		errors.Is(err, services.ErrInvalidCardNumber),
		errors.Is(err, services.ErrInvalidRoutingNumber),
		errors.Is(err, services.ErrInvalidFundingSource):
		return fasthttp.StatusBadRequest
	case errors.Is(err, repository.ErrAccountNotFound):
		return fasthttp.StatusNotFound
	case errors.Is(err, repository.ErrAccountClosed):
		return fasthttp.StatusConflict
	default:
		return fasthttp.StatusInternalServerError
	}
}

func parseIDParam(ctx *fasthttp.RequestCtx, name string) (int64, error) {
	raw, ok := ctx.UserValue(name).(string)
	if !ok {
		return 0, errors.New("missing path parameter")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("malformed path parameter")
	}
	return id, nil
}

// parsePageArgs reads limit/offset, falling back to defaults when a
// value is absent or unreadable. Range clamping happens in the service.
func parsePageArgs(ctx *fasthttp.RequestCtx) (int, int) {
	limit := services.DefaultHistoryLimit
	if raw := ctx.QueryArgs().Peek("limit"); len(raw) > 0 {
		if parsed, err := strconv.Atoi(string(raw)); err == nil {
			limit = parsed
		}
	}

	offset := 0
	if raw := ctx.QueryArgs().Peek("offset"); len(raw) > 0 {
		if parsed, err := strconv.Atoi(string(raw)); err == nil {
			offset = parsed
		}
	}

	return limit, offset
}
