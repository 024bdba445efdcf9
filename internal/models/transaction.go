package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"

	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"

	FundingTypeCard = "card"
	FundingTypeBank = "bank"
)

type Transaction struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Reference   uuid.UUID       `json:"reference"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	FundingType string          `json:"funding_type"`
	FundingRef  string          `json:"-"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

// TransactionView is a journal row joined with its account, as returned
// by the history query. AccountType comes from the accounts table.
type TransactionView struct {
	Transaction
	AccountType string `json:"account_type"`
}

type FundingSource struct {
	Type          string `json:"type"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number,omitempty"`
}

type FundRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Source      FundingSource   `json:"funding_source"`
}

type TransactionResponse struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"account_id"`
	Reference   string `json:"reference"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	AccountType string `json:"account_type,omitempty"`
	FundingType string `json:"funding_type,omitempty"`
	FundingRef  string `json:"funding_ref,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

type FundResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  string              `json:"new_balance"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int                   `json:"total"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
	AccountID    int64                 `json:"account_id"`
}
