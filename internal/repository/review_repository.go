package repository

import (
	"github.com/markettask/markettask-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReviewRepository is a GORM implementation of ReviewRepository
type GormReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &GormReviewRepository{db: db}
}

// Create creates a new review
func (r *GormReviewRepository) Create(review *models.Review) error {
	return r.db.Create(review).Error
}

// FindByID finds a review by ID
func (r *GormReviewRepository) FindByID(id uint64) (*models.Review, error) {
	var review models.Review
	if err := r.db.First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// FindByParties finds a review for (reviewer, reviewee, task)
func (r *GormReviewRepository) FindByParties(reviewerID, revieweeID uint64, taskID *uint64) (*models.Review, error) {
	var review models.Review
	query := r.db.Where("reviewer_id = ? AND reviewee_id = ?", reviewerID, revieweeID)
	if taskID != nil {
		query = query.Where("task_id = ?", *taskID)
	} else {
		query = query.Where("task_id IS NULL")
	}
	if err := query.First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// Update updates a review
func (r *GormReviewRepository) Update(review *models.Review) error {
	return r.db.Save(review).Error
}

// Delete soft deletes a review
func (r *GormReviewRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Review{}, id).Error
}

// ListByReviewee lists a reviewee's reviews, optionally filtered by reviewer role
func (r *GormReviewRepository) ListByReviewee(revieweeID uint64, role *models.ReviewerRole) ([]models.Review, error) {
	var reviews []models.Review
	query := r.db.Where("reviewee_id = ?", revieweeID)
	if role != nil {
		query = query.Where("role = ?", *role)
	}
	if err := query.Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

// ReplaceSummaries overwrites the cached rating summaries for a user
func (r *GormReviewRepository) ReplaceSummaries(userID uint64, summaries []models.RatingSummary) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range summaries {
			summaries[i].UserID = userID
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "scope"}},
				UpdateAll: true,
			}).Create(&summaries[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSummaries returns the cached rating summaries for a user
func (r *GormReviewRepository) GetSummaries(userID uint64) ([]models.RatingSummary, error) {
	var summaries []models.RatingSummary
	if err := r.db.Where("user_id = ?", userID).Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}
