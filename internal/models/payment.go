package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type Payment struct {
	ID      uint64 `gorm:"primarykey" json:"id"`
	TaskID  uint64 `gorm:"not null;index" json:"task_id"`
	OfferID uint64 `gorm:"not null;index" json:"offer_id"`
	PayerID uint64 `gorm:"not null" json:"payer_id"`
	PayeeID uint64 `gorm:"not null" json:"payee_id"`

	// Amount is the accepted offer amount; TaskerAmount is Amount minus ServiceFee.
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	ServiceFee   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"service_fee"`
	TaskerAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tasker_amount"`
	Currency     string          `gorm:"type:varchar(3);not null" json:"currency"`

	Status    PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	IntentRef string        `gorm:"type:varchar(64);index" json:"intent_ref"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Task  Task  `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Offer Offer `gorm:"foreignKey:OfferID" json:"offer,omitempty"`
	Payer User  `gorm:"foreignKey:PayerID" json:"payer,omitempty"`
	Payee User  `gorm:"foreignKey:PayeeID" json:"payee,omitempty"`
}
