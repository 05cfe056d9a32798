package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/markettask/markettask-api/internal/errors"
	"github.com/markettask/markettask-api/internal/middleware"
	"github.com/markettask/markettask-api/internal/services"
)

type ReceiptHandler struct {
	receiptService *services.ReceiptService
}

func NewReceiptHandler(receiptService *services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// GetTaskReceipts returns a task's receipts, regenerating them lazily when a
// completed task is still missing its pair
func (h *ReceiptHandler) GetTaskReceipts(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	receipts, err := h.receiptService.GetTaskReceipts(taskID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"receipts": receipts})
}

// DownloadReceipt records a receipt download
func (h *ReceiptHandler) DownloadReceipt(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	receiptID, ok := parseIDParam(c, "receipt_id")
	if !ok {
		return
	}

	receipts, err := h.receiptService.GetTaskReceipts(taskID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	for _, receipt := range receipts {
		if receipt.ID == receiptID {
			if err := h.receiptService.MarkReceiptDownloaded(receiptID); err != nil {
				apierrors.InternalError(c, "")
				return
			}
			c.JSON(http.StatusOK, receipt)
			return
		}
	}

	apierrors.NotFound(c, "Receipt not found")
}
