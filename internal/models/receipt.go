package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReceiptType string

const (
	// ReceiptTypePayment is issued to the poster (what they paid).
	ReceiptTypePayment ReceiptType = "payment"
	// ReceiptTypeEarnings is issued to the tasker (what they received).
	ReceiptTypeEarnings ReceiptType = "earnings"
)

type ReceiptStatus string

const (
	ReceiptStatusGenerated  ReceiptStatus = "generated"
	ReceiptStatusSent       ReceiptStatus = "sent"
	ReceiptStatusDownloaded ReceiptStatus = "downloaded"
)

type Receipt struct {
	ID            uint64      `gorm:"primarykey" json:"id"`
	ReceiptNumber string      `gorm:"type:varchar(32);uniqueIndex;not null" json:"receipt_number"`
	ReceiptType   ReceiptType `gorm:"type:varchar(10);not null;uniqueIndex:idx_receipts_task_type" json:"receipt_type"`
	TaskID        uint64      `gorm:"not null;uniqueIndex:idx_receipts_task_type" json:"task_id"`
	OfferID       uint64      `gorm:"not null" json:"offer_id"`
	PaymentID     uint64      `gorm:"not null" json:"payment_id"`
	PosterID      uint64      `gorm:"not null;index" json:"poster_id"`
	TaskerID      uint64      `gorm:"not null;index" json:"tasker_id"`
	PosterName    string      `gorm:"type:varchar(255)" json:"poster_name"`
	TaskerName    string      `gorm:"type:varchar(255)" json:"tasker_name"`

	OfferAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"offer_amount"`
	ServiceFee  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"service_fee"`
	// Total is total paid for payment receipts, amount received for earnings receipts.
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Currency  string          `gorm:"type:varchar(3);not null" json:"currency"`
	TaxType   string          `gorm:"type:varchar(10)" json:"tax_type"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"tax_rate"`
	TaxAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`

	Status        ReceiptStatus `gorm:"type:varchar(12);not null;default:'generated'" json:"status"`
	DownloadCount int           `gorm:"not null;default:0" json:"download_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReceiptSequence is the atomic per-day counter backing receipt numbering.
type ReceiptSequence struct {
	Day     string `gorm:"type:varchar(8);primarykey" json:"day"`
	LastSeq int    `gorm:"not null;default:0" json:"last_seq"`
}
