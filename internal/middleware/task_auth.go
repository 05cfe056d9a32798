package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/markettask/markettask-api/internal/constants"
	"github.com/markettask/markettask-api/internal/database"
	apierrors "github.com/markettask/markettask-api/internal/errors"
	"github.com/markettask/markettask-api/internal/models"
)

// RequireTaskAccess loads the task from the URL parameter and stores it in
// the context. Every authenticated user may read a task; mutations check
// ownership in the services.
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskIDStr := c.Param("id")
		taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		if _, exists := GetUserID(c); !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var task models.Task
		if err := database.GetDB().
			Preload("Poster").
			Preload("Tasker").
			Preload("Offers").
			Preload("StatusHistory").
			First(&task, taskID).Error; err != nil {
			apierrors.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}
