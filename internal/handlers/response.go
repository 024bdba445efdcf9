package handlers

import (
	"bank-ledger/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

func buildAccountResponse(account *models.Account) models.AccountResponse {
	return models.AccountResponse{
		ID:            account.ID,
		AccountNumber: account.AccountNumber,
		Type:          account.Type,
		Balance:       account.Balance.StringFixed(2),
		Status:        account.Status,
		CreatedAt:     account.CreatedAt.Format(timeLayout),
	}
}

func buildTransactionResponse(transaction *models.Transaction, accountType string) models.TransactionResponse {
	response := models.TransactionResponse{
		ID:          transaction.ID,
		AccountID:   transaction.AccountID,
		Reference:   transaction.Reference.String(),
		Type:        transaction.Type,
		Amount:      transaction.Amount.StringFixed(2),
		Description: transaction.Description,
		AccountType: accountType,
		FundingType: transaction.FundingType,
		FundingRef:  transaction.FundingRef,
		Status:      transaction.Status,
		CreatedAt:   transaction.CreatedAt.Format(timeLayout),
	}
	if transaction.ProcessedAt != nil {
		response.ProcessedAt = transaction.ProcessedAt.Format(timeLayout)
	}
	return response
}
