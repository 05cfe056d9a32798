package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/markettask/markettask-api/internal/dto"
	apierrors "github.com/markettask/markettask-api/internal/errors"
	"github.com/markettask/markettask-api/internal/middleware"
	"github.com/markettask/markettask-api/internal/services"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// SubmitReview creates a review for a completed task
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type SubmitReviewRequest struct {
		Rating int    `json:"rating" binding:"required"`
		Text   string `json:"text"`
	}

	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	review, err := h.reviewService.SubmitReview(services.SubmitReviewInput{
		TaskID:     taskID,
		ReviewerID: userID,
		Rating:     req.Rating,
		Text:       req.Text,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// UpdateReview changes the rating or text of a review written by the current user
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	reviewID, ok := parseIDParam(c, "review_id")
	if !ok {
		return
	}

	type UpdateReviewRequest struct {
		Rating int    `json:"rating" binding:"required"`
		Text   string `json:"text"`
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	review, err := h.reviewService.UpdateReview(reviewID, userID, req.Rating, req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// DeleteReview removes a review written by the current user
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	reviewID, ok := parseIDParam(c, "review_id")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(reviewID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}

// GetRatingStats returns a user's cached rating statistics
func (h *ReviewHandler) GetRatingStats(c *gin.Context) {
	if _, exists := middleware.GetUserID(c); !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	stats, err := h.reviewService.GetRatingStats(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRatingStatsDTO(userID, stats))
}
