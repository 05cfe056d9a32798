package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apierrors "github.com/markettask/markettask-api/internal/errors"
	"github.com/markettask/markettask-api/internal/middleware"
	"github.com/markettask/markettask-api/internal/services"
)

type OfferHandler struct {
	offerService *services.OfferService
}

func NewOfferHandler(offerService *services.OfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

// CreateOffer submits an offer on an open task
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type CreateOfferRequest struct {
		Amount  decimal.Decimal `json:"amount" binding:"required"`
		Message string          `json:"message"`
	}

	var req CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	offer, err := h.offerService.CreateOffer(services.CreateOfferInput{
		TaskID:   taskID,
		TaskerID: userID,
		Amount:   req.Amount,
		Message:  req.Message,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, offer)
}

// ListOffers lists offers on a task
func (h *OfferHandler) ListOffers(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	offers, err := h.offerService.ListOffers(taskID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// AcceptOffer runs the acceptance transaction
func (h *OfferHandler) AcceptOffer(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	offerID, ok := parseIDParam(c, "offer_id")
	if !ok {
		return
	}

	task, offer, err := h.offerService.AcceptOffer(c.Request.Context(), taskID, offerID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task":  task,
		"offer": offer,
	})
}

// WithdrawOffer withdraws a pending offer
func (h *OfferHandler) WithdrawOffer(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	offerID, ok := parseIDParam(c, "offer_id")
	if !ok {
		return
	}

	offer, err := h.offerService.WithdrawOffer(offerID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}
