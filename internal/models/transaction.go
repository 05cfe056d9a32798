package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeEscrowHold    TransactionType = "escrow_hold"
	TransactionTypeEscrowRelease TransactionType = "escrow_release"
	TransactionTypeEscrowRefund  TransactionType = "escrow_refund"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Transaction is a ledger row tracking escrowed funds for an accepted offer.
type Transaction struct {
	ID        uint64            `gorm:"primarykey" json:"id"`
	TaskID    uint64            `gorm:"not null;index" json:"task_id"`
	PaymentID uint64            `gorm:"not null;index" json:"payment_id"`
	UserID    uint64            `gorm:"not null;index" json:"user_id"`
	Type      TransactionType   `gorm:"type:varchar(20);not null" json:"type"`
	Amount    decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency  string            `gorm:"type:varchar(3);not null" json:"currency"`
	Status    TransactionStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
