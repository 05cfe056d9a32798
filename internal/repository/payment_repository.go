package repository

import (
	"github.com/markettask/markettask-api/internal/models"
	"gorm.io/gorm"
)

// GormPaymentRepository is a GORM implementation of PaymentRepository
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create creates a new payment
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// FindByTask finds the payment for a task
func (r *GormPaymentRepository) FindByTask(taskID uint64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("task_id = ?", taskID).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindCompletedByTask finds a completed payment for a task
func (r *GormPaymentRepository) FindCompletedByTask(taskID uint64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("task_id = ? AND status = ?", taskID, models.PaymentStatusCompleted).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkCompletedByTask flips every pending payment on a task to completed
func (r *GormPaymentRepository) MarkCompletedByTask(taskID uint64) error {
	return r.db.Model(&models.Payment{}).
		Where("task_id = ? AND status = ?", taskID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusCompleted).Error
}

// MarkRefundedByTask flips every pending payment on a task to refunded
func (r *GormPaymentRepository) MarkRefundedByTask(taskID uint64) error {
	return r.db.Model(&models.Payment{}).
		Where("task_id = ? AND status = ?", taskID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusRefunded).Error
}

// CompleteLedgerByTask completes the escrow hold rows for the task and
// records the release entry in the same transaction.
func (r *GormPaymentRepository) CompleteLedgerByTask(taskID uint64, release *models.Transaction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).
			Where("task_id = ? AND status = ?", taskID, models.TransactionStatusPending).
			Update("status", models.TransactionStatusCompleted).Error; err != nil {
			return err
		}

		return tx.Create(release).Error
	})
}

// CancelLedgerByTask marks the task's pending ledger rows cancelled
func (r *GormPaymentRepository) CancelLedgerByTask(taskID uint64) error {
	return r.db.Model(&models.Transaction{}).
		Where("task_id = ? AND status = ?", taskID, models.TransactionStatusPending).
		Update("status", models.TransactionStatusCancelled).Error
}
