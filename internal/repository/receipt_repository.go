package repository

import (
	"errors"
	"strings"

	"github.com/markettask/markettask-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrReceiptExists is returned when the (task, type) unique index rejects a
// duplicate receipt pair.
var ErrReceiptExists = errors.New("receipt repository: receipts already exist for task")

// GormReceiptRepository is a GORM implementation of ReceiptRepository
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new ReceiptRepository
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// ListByTask lists receipts for a task
func (r *GormReceiptRepository) ListByTask(taskID uint64) ([]models.Receipt, error) {
	var receipts []models.Receipt
	if err := r.db.Where("task_id = ?", taskID).
		Order("receipt_type ASC").
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// CreatePair creates both receipts in one transaction. A duplicate key on the
// (task, type) index means another writer issued the pair first.
func (r *GormReceiptRepository) CreatePair(receipts []*models.Receipt) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, receipt := range receipts {
			if err := tx.Create(receipt).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && isDuplicateKey(err) {
		return ErrReceiptExists
	}
	return err
}

// ReserveSequence atomically reserves n sequence numbers for the given day
// and returns the first reserved number.
func (r *GormReceiptRepository) ReserveSequence(day string, n int) (int, error) {
	var first int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		seq := models.ReceiptSequence{Day: day}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.ReceiptSequence{}).
			Where("day = ?", day).
			Update("last_seq", gorm.Expr("last_seq + ?", n)).Error; err != nil {
			return err
		}

		var current models.ReceiptSequence
		if err := tx.Where("day = ?", day).First(&current).Error; err != nil {
			return err
		}

		first = current.LastSeq - n + 1
		return nil
	})
	return first, err
}

// MarkDownloaded bumps the download counter and status
func (r *GormReceiptRepository) MarkDownloaded(receiptID uint64) error {
	return r.db.Model(&models.Receipt{}).
		Where("id = ?", receiptID).
		Updates(map[string]interface{}{
			"download_count": gorm.Expr("download_count + 1"),
			"status":         models.ReceiptStatusDownloaded,
		}).Error
}

// isDuplicateKey matches the unique-violation errors of the supported
// drivers (gorm only normalizes this for some of them).
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
