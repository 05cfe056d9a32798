package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/markettask/markettask-api/internal/constants"
	apierrors "github.com/markettask/markettask-api/internal/errors"
	"github.com/markettask/markettask-api/internal/middleware"
	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/services"
	"github.com/markettask/markettask-api/internal/utils"
)

type TaskHandler struct {
	taskService       *services.TaskService
	settlementService *services.SettlementService
}

func NewTaskHandler(taskService *services.TaskService, settlementService *services.SettlementService) *TaskHandler {
	return &TaskHandler{
		taskService:       taskService,
		settlementService: settlementService,
	}
}

// ListTasks returns tasks matching the query filters
func (h *TaskHandler) ListTasks(c *gin.Context) {
	if _, exists := middleware.GetUserID(c); !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	input := services.ListTasksInput{
		Page:     params.Page,
		PageSize: params.Limit,
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.TaskStatus(statusStr)
		input.Status = &status
	}
	if posterStr := c.Query("poster_id"); posterStr != "" {
		posterID, err := strconv.ParseUint(posterStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid poster_id")
			return
		}
		input.PosterID = &posterID
	}
	if taskerStr := c.Query("tasker_id"); taskerStr != "" {
		taskerID, err := strconv.ParseUint(taskerStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid tasker_id")
			return
		}
		input.TaskerID = &taskerID
	}

	tasks, total, err := h.taskService.ListTasks(input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// GetTask returns a specific task by ID.
// The task is already loaded with relations by the RequireTaskAccess middleware.
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskInterface, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	task, ok := taskInterface.(models.Task)
	if !ok {
		apierrors.InternalError(c, "Invalid task data")
		return
	}

	c.JSON(http.StatusOK, task)
}

// CreateTask creates a new open task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateTaskRequest struct {
		Title       string          `json:"title" binding:"required"`
		Description string          `json:"description"`
		Tags        string          `json:"tags"`
		Budget      decimal.Decimal `json:"budget" binding:"required"`
		Currency    string          `json:"currency" binding:"required"`
		StartDate   *time.Time      `json:"start_date"`
		DueDate     *time.Time      `json:"due_date"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Budget:      req.Budget,
		Currency:    req.Currency,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
		PosterID:    userID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// UpdateTaskStatus applies a requested status transition
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateStatusRequest struct {
		Status models.TaskStatus `json:"status" binding:"required"`
		Reason string            `json:"reason"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTaskStatus(taskID, req.Status, userID, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// CompleteTask confirms completion and runs settlement
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.settlementService.CompleteTask(c.Request.Context(), taskID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelTask cancels an open or assigned task
func (h *TaskHandler) CancelTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type CancelRequest struct {
		Reason string `json:"reason"`
	}
	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	task, err := h.taskService.CancelTask(taskID, userID, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask deactivates a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(taskID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// parseIDParam parses a uint64 URL parameter and writes the error response on
// failure.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return value, true
}
