package repository

import (
	"github.com/markettask/markettask-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ApplyCompletionCredits increments the completion counters and votes for
// both settlement parties in one transaction.
func (r *GormUserRepository) ApplyCompletionCredits(posterID, taskerID uint64, posterVotes, taskerVotes int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", posterID).
			Updates(map[string]interface{}{
				"posted_tasks_completed": gorm.Expr("posted_tasks_completed + 1"),
				"completion_votes":       gorm.Expr("completion_votes + ?", posterVotes),
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", taskerID).
			Updates(map[string]interface{}{
				"performed_tasks_completed": gorm.Expr("performed_tasks_completed + 1"),
				"completion_votes":          gorm.Expr("completion_votes + ?", taskerVotes),
			}).Error
	})
}
