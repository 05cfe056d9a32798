package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/repository"
)

var (
	ErrReviewNotFound    = errors.New("review not found")
	ErrRatingOutOfRange  = errors.New("rating must be between 1 and 5")
	ErrSelfReview        = errors.New("users cannot review themselves")
	ErrTaskNotCompleted  = errors.New("task is not completed")
	ErrNotTaskParty      = errors.New("only the task parties can review each other")
	ErrReviewExists      = errors.New("a review for this task already exists")
	ErrNotReviewAuthor   = errors.New("only the review author can perform this action")
	ErrTaskNeverAssigned = errors.New("task was never assigned")
)

// ReviewService handles review eligibility, review mutations, and the cached
// rating aggregates.
type ReviewService struct {
	reviewRepo repository.ReviewRepository
	taskRepo   repository.TaskRepository
	log        *logrus.Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(reviewRepo repository.ReviewRepository, taskRepo repository.TaskRepository, log *logrus.Logger) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		taskRepo:   taskRepo,
		log:        log,
	}
}

// ReviewEligibility is the result of a CanReview check.
type ReviewEligibility struct {
	RevieweeID uint64
	Role       models.ReviewerRole
}

// CanReview checks whether reviewerID may review the other party of a task:
// the task must be completed, the reviewer must be poster or assigned tasker,
// and no review for (reviewer, reviewee, task) may exist yet.
func (s *ReviewService) CanReview(taskID, reviewerID uint64) (*ReviewEligibility, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.Status != models.TaskStatusCompleted {
		return nil, ErrTaskNotCompleted
	}
	if task.AssignedTo == nil {
		return nil, ErrTaskNeverAssigned
	}

	var eligibility ReviewEligibility
	switch reviewerID {
	case task.PosterID:
		eligibility = ReviewEligibility{RevieweeID: *task.AssignedTo, Role: models.ReviewerRolePoster}
	case *task.AssignedTo:
		eligibility = ReviewEligibility{RevieweeID: task.PosterID, Role: models.ReviewerRoleTasker}
	default:
		return nil, ErrNotTaskParty
	}

	if reviewerID == eligibility.RevieweeID {
		return nil, ErrSelfReview
	}

	if _, err := s.reviewRepo.FindByParties(reviewerID, eligibility.RevieweeID, &taskID); err == nil {
		return nil, ErrReviewExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}

	return &eligibility, nil
}

// SubmitReviewInput represents input for submitting a review
type SubmitReviewInput struct {
	TaskID     uint64
	ReviewerID uint64
	Rating     int
	Text       string
}

// SubmitReview creates a task review and recomputes the reviewee's cached
// rating aggregates. All eligibility failures abort before any write.
func (s *ReviewService) SubmitReview(input SubmitReviewInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrRatingOutOfRange
	}

	eligibility, err := s.CanReview(input.TaskID, input.ReviewerID)
	if err != nil {
		return nil, err
	}

	taskID := input.TaskID
	review := &models.Review{
		ReviewerID: input.ReviewerID,
		RevieweeID: eligibility.RevieweeID,
		TaskID:     &taskID,
		Rating:     input.Rating,
		Text:       strings.TrimSpace(input.Text),
		Role:       eligibility.Role,
	}

	if err := s.reviewRepo.Create(review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	if err := s.RecomputeRatings(review.RevieweeID); err != nil {
		return nil, err
	}

	return review, nil
}

// UpdateReview changes a review's rating or text and recomputes aggregates
func (s *ReviewService) UpdateReview(reviewID, actorID uint64, rating int, text string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrRatingOutOfRange
	}

	review, err := s.reviewRepo.FindByID(reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}

	if review.ReviewerID != actorID {
		return nil, ErrNotReviewAuthor
	}

	review.Rating = rating
	review.Text = strings.TrimSpace(text)

	if err := s.reviewRepo.Update(review); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	if err := s.RecomputeRatings(review.RevieweeID); err != nil {
		return nil, err
	}

	return review, nil
}

// DeleteReview removes a review and recomputes aggregates
func (s *ReviewService) DeleteReview(reviewID, actorID uint64) error {
	review, err := s.reviewRepo.FindByID(reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to find review: %w", err)
	}

	if review.ReviewerID != actorID {
		return ErrNotReviewAuthor
	}

	if err := s.reviewRepo.Delete(reviewID); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return s.RecomputeRatings(review.RevieweeID)
}

// RecomputeRatings rebuilds all three cached aggregates for a reviewee from
// the full set of their reviews. The result overwrites the cache; nothing is
// ever incrementally adjusted.
func (s *ReviewService) RecomputeRatings(revieweeID uint64) error {
	posterRole := models.ReviewerRolePoster
	taskerRole := models.ReviewerRoleTasker

	scopes := []struct {
		scope models.RatingScope
		role  *models.ReviewerRole
	}{
		{models.RatingScopeOverall, nil},
		{models.RatingScopeAsPoster, &posterRole},
		{models.RatingScopeAsTasker, &taskerRole},
	}

	summaries := make([]models.RatingSummary, 0, len(scopes))
	for _, sc := range scopes {
		reviews, err := s.reviewRepo.ListByReviewee(revieweeID, sc.role)
		if err != nil {
			return fmt.Errorf("failed to list reviews: %w", err)
		}
		summary := aggregateReviews(reviews)
		summary.UserID = revieweeID
		summary.Scope = sc.scope
		summaries = append(summaries, summary)
	}

	if err := s.reviewRepo.ReplaceSummaries(revieweeID, summaries); err != nil {
		return fmt.Errorf("failed to store rating summaries: %w", err)
	}

	return nil
}

// GetRatingStats returns the cached aggregates for a user, with zero rows for
// scopes that were never computed.
func (s *ReviewService) GetRatingStats(userID uint64) (map[models.RatingScope]models.RatingSummary, error) {
	summaries, err := s.reviewRepo.GetSummaries(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating summaries: %w", err)
	}

	stats := map[models.RatingScope]models.RatingSummary{
		models.RatingScopeOverall:  {UserID: userID, Scope: models.RatingScopeOverall},
		models.RatingScopeAsPoster: {UserID: userID, Scope: models.RatingScopeAsPoster},
		models.RatingScopeAsTasker: {UserID: userID, Scope: models.RatingScopeAsTasker},
	}
	for _, summary := range summaries {
		stats[summary.Scope] = summary
	}

	return stats, nil
}

// aggregateReviews computes average (1 decimal), count, and star distribution
// over a review set. An empty set yields all zeros.
func aggregateReviews(reviews []models.Review) models.RatingSummary {
	var summary models.RatingSummary
	if len(reviews) == 0 {
		return summary
	}

	dist := [5]int{}
	sum := 0
	for _, review := range reviews {
		if review.Rating < 1 || review.Rating > 5 {
			continue
		}
		dist[review.Rating-1]++
		sum += review.Rating
	}

	count := dist[0] + dist[1] + dist[2] + dist[3] + dist[4]
	if count == 0 {
		return summary
	}

	summary.Count = count
	summary.Average = math.Round(float64(sum)/float64(count)*10) / 10
	summary.Dist1 = dist[0]
	summary.Dist2 = dist[1]
	summary.Dist3 = dist[2]
	summary.Dist4 = dist[3]
	summary.Dist5 = dist[4]
	return summary
}
