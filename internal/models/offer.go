package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusCountered OfferStatus = "countered"
	OfferStatusWithdrawn OfferStatus = "withdrawn"
	// OfferStatusCompleted marks the accepted offer after settlement.
	OfferStatusCompleted OfferStatus = "completed"
)

type Offer struct {
	ID       uint64          `gorm:"primarykey" json:"id"`
	TaskID   uint64          `gorm:"not null;index" json:"task_id"`
	PosterID uint64          `gorm:"not null;index" json:"poster_id"`
	TaskerID uint64          `gorm:"not null;index" json:"tasker_id"`
	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency string          `gorm:"type:varchar(3);not null" json:"currency"`
	Message  string          `gorm:"type:text" json:"message"`
	Status   OfferStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Task   Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Poster User `gorm:"foreignKey:PosterID" json:"poster,omitempty"`
	Tasker User `gorm:"foreignKey:TaskerID" json:"tasker,omitempty"`
}
