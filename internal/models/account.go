package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountTypeChecking = "checking"
	AccountTypeSavings  = "savings"

	AccountStatusActive = "active"
	AccountStatusClosed = "closed"
)

type Account struct {
	ID            int64           `json:"id"`
	OwnerID       int64           `json:"owner_id"`
	AccountNumber string          `json:"account_number"`
	Type          string          `json:"type"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

type AccountResponse struct {
	ID            int64  `json:"id"`
	AccountNumber string `json:"account_number"`
	Type          string `json:"type"`
	Balance       string `json:"balance"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

type AccountListResponse struct {
	Accounts    []AccountResponse `json:"accounts"`
	Total       int               `json:"total"`
	ActiveCount int               `json:"active_count"`
	ClosedCount int               `json:"closed_count"`
}
