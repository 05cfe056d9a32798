package repository

import (
	"errors"

	"github.com/markettask/markettask-api/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrTaskNotOpen is returned when the acceptance transaction finds the
	// task no longer accepting offers.
	ErrTaskNotOpen = errors.New("offer repository: task is not open")
	// ErrOfferNotPending is returned when the acceptance transaction finds
	// the offer no longer pending.
	ErrOfferNotPending = errors.New("offer repository: offer is not pending")
)

// GormOfferRepository is a GORM implementation of OfferRepository
type GormOfferRepository struct {
	db *gorm.DB
}

// NewOfferRepository creates a new OfferRepository
func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &GormOfferRepository{db: db}
}

// Create creates a new offer
func (r *GormOfferRepository) Create(offer *models.Offer) error {
	return r.db.Create(offer).Error
}

// FindByID finds an offer by ID with optional preloading
func (r *GormOfferRepository) FindByID(id uint64, preload ...string) (*models.Offer, error) {
	var offer models.Offer
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&offer, id).Error; err != nil {
		return nil, err
	}

	return &offer, nil
}

// ListByTask lists all offers on a task
func (r *GormOfferRepository) ListByTask(taskID uint64) ([]models.Offer, error) {
	var offers []models.Offer
	if err := r.db.Preload("Tasker").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// FindAcceptedByTask finds the accepted offer on a task. Settled offers keep
// matching after settlement flips them to completed.
func (r *GormOfferRepository) FindAcceptedByTask(taskID uint64) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.Where("task_id = ? AND status IN ?", taskID,
		[]models.OfferStatus{models.OfferStatusAccepted, models.OfferStatusCompleted}).
		First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// Update updates an offer
func (r *GormOfferRepository) Update(offer *models.Offer) error {
	return r.db.Save(offer).Error
}

// Accept applies the whole acceptance as one transaction. Every mutation is
// guarded on the status it expects, so a concurrent acceptance on the same
// task makes exactly one of the competing transactions fail with zero writes.
func (r *GormOfferRepository) Accept(taskID, offerID, taskerID uint64, entry *models.TaskStatusChange, payment *models.Payment, ledger *models.Transaction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, models.TaskStatusOpen).
			Updates(map[string]interface{}{
				"status":      models.TaskStatusTodo,
				"assigned_to": taskerID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTaskNotOpen
		}

		res = tx.Model(&models.Offer{}).
			Where("id = ? AND task_id = ? AND status = ?", offerID, taskID, models.OfferStatusPending).
			Update("status", models.OfferStatusAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOfferNotPending
		}

		if err := tx.Model(&models.Offer{}).
			Where("task_id = ? AND id <> ? AND status = ?", taskID, offerID, models.OfferStatusPending).
			Update("status", models.OfferStatusRejected).Error; err != nil {
			return err
		}

		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		ledger.PaymentID = payment.ID
		return tx.Create(ledger).Error
	})
}

// UpdateStatusGuarded flips an offer's status only when it still has the
// expected current status.
func (r *GormOfferRepository) UpdateStatusGuarded(offerID uint64, from, to models.OfferStatus) (bool, error) {
	res := r.db.Model(&models.Offer{}).
		Where("id = ? AND status = ?", offerID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
