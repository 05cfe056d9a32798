package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/markettask/markettask-api/internal/config"
	"github.com/markettask/markettask-api/internal/database"
	"github.com/markettask/markettask-api/internal/middleware"
	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/repository"
	"github.com/markettask/markettask-api/internal/services"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *TaskHandler
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskStatusChange{},
		&models.Offer{},
		&models.Payment{},
		&models.Transaction{},
		&models.Receipt{},
		&models.ReceiptSequence{},
	)
	suite.Require().NoError(err)

	// Set the test DB as the default database for middleware lookups
	database.SetDB(suite.db)

	taskRepo := repository.NewTaskRepository(suite.db)
	offerRepo := repository.NewOfferRepository(suite.db)
	paymentRepo := repository.NewPaymentRepository(suite.db)
	receiptRepo := repository.NewReceiptRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	machine := services.NewStatusMachine(taskRepo)
	notifier := services.NewLogNotifier(logger)
	gateway := services.NewFakePaymentGateway()
	receiptService := services.NewReceiptService(taskRepo, offerRepo, paymentRepo, receiptRepo, userRepo, "MT", config.DefaultTaxTable(), logger)
	taskService := services.NewTaskService(taskRepo, offerRepo, paymentRepo, machine, notifier, logger)
	settlementService := services.NewSettlementService(taskRepo, offerRepo, paymentRepo, userRepo, receiptService, machine, gateway, notifier, logger)

	suite.handler = NewTaskHandler(taskService, settlementService)

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper function to create test data
func (suite *TaskHandlerTestSuite) createTestUser(email string) *models.User {
	user := &models.User{
		Email:        email,
		DisplayName:  email,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *TaskHandlerTestSuite) createTestTask(title string, posterID uint64, status models.TaskStatus) *models.Task {
	task := &models.Task{
		Title:    title,
		Status:   status,
		Budget:   decimal.NewFromInt(100),
		Currency: "AUD",
		PosterID: posterID,
	}
	suite.db.Create(task)
	return task
}

// Helper function to create authenticated context
func (suite *TaskHandlerTestSuite) createAuthContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("user_id", userID)

	return c, w
}

// Helper function to set task context (simulates RequireTaskAccess middleware)
func (suite *TaskHandlerTestSuite) setTaskContext(c *gin.Context, task models.Task) {
	c.Set("task", task)
}

// TestListTasks_Success tests successful task listing
func (suite *TaskHandlerTestSuite) TestListTasks_Success() {
	user := suite.createTestUser("test@example.com")
	suite.createTestTask("Test Task", user.ID, models.TaskStatusOpen)

	c, w := suite.createAuthContext("GET", "/api/tasks", nil, user.ID)

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response struct {
		Tasks []models.Task `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(suite.T(), response.Tasks, 1)
}

// TestListTasks_Unauthorized tests listing without authentication
func (suite *TaskHandlerTestSuite) TestListTasks_Unauthorized() {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/tasks", nil)

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestListTasks_StatusFilter tests filtering by status
func (suite *TaskHandlerTestSuite) TestListTasks_StatusFilter() {
	user := suite.createTestUser("test@example.com")
	suite.createTestTask("Open Task", user.ID, models.TaskStatusOpen)
	suite.createTestTask("Done Task", user.ID, models.TaskStatusDone)

	c, w := suite.createAuthContext("GET", "/api/tasks", nil, user.ID)
	c.Request.URL.RawQuery = "status=open"

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response struct {
		Tasks []models.Task `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().Len(response.Tasks, 1)
	assert.Equal(suite.T(), "Open Task", response.Tasks[0].Title)
}

// TestCreateTask_Success tests successful task creation
func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	user := suite.createTestUser("test@example.com")

	payload := map[string]interface{}{
		"title":    "New Task",
		"budget":   150,
		"currency": "AUD",
	}
	body, _ := json.Marshal(payload)

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response models.Task
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), "New Task", response.Title)
	assert.Equal(suite.T(), models.TaskStatusOpen, response.Status)
	assert.Equal(suite.T(), user.ID, response.PosterID)
}

// TestCreateTask_InvalidBody tests creation with a missing title
func (suite *TaskHandlerTestSuite) TestCreateTask_InvalidBody() {
	user := suite.createTestUser("test@example.com")

	payload := map[string]interface{}{
		"budget":   150,
		"currency": "AUD",
	}
	body, _ := json.Marshal(payload)

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestGetTask_Success tests fetching a task loaded by the middleware
func (suite *TaskHandlerTestSuite) TestGetTask_Success() {
	user := suite.createTestUser("test@example.com")
	task := suite.createTestTask("Test Task", user.ID, models.TaskStatusOpen)

	c, w := suite.createAuthContext("GET", "/api/tasks/1", nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	suite.setTaskContext(c, *task)

	suite.handler.GetTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response models.Task
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), "Test Task", response.Title)
}

// TestGetTask_NotFound tests the middleware response for a missing task
func (suite *TaskHandlerTestSuite) TestGetTask_NotFound() {
	user := suite.createTestUser("test@example.com")

	c, w := suite.createAuthContext("GET", "/api/tasks/999", nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: "999"}}

	middleware.RequireTaskAccess()(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.True(suite.T(), c.IsAborted())
}

// TestUpdateTaskStatus_ReservedTarget tests that todo is rejected
func (suite *TaskHandlerTestSuite) TestUpdateTaskStatus_ReservedTarget() {
	user := suite.createTestUser("test@example.com")
	suite.createTestTask("Test Task", user.ID, models.TaskStatusOpen)

	body, _ := json.Marshal(map[string]string{"status": "todo"})
	c, w := suite.createAuthContext("PATCH", "/api/tasks/1/status", body, user.ID)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	suite.handler.UpdateTaskStatus(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestUpdateTaskStatus_InvalidTransition tests an illegal edge
func (suite *TaskHandlerTestSuite) TestUpdateTaskStatus_InvalidTransition() {
	user := suite.createTestUser("test@example.com")
	suite.createTestTask("Test Task", user.ID, models.TaskStatusOpen)

	body, _ := json.Marshal(map[string]string{"status": "done"})
	c, w := suite.createAuthContext("PATCH", "/api/tasks/1/status", body, user.ID)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	suite.handler.UpdateTaskStatus(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

// TestCancelTask_Success tests cancelling an open task
func (suite *TaskHandlerTestSuite) TestCancelTask_Success() {
	user := suite.createTestUser("test@example.com")
	suite.createTestTask("Test Task", user.ID, models.TaskStatusOpen)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/cancel", nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	suite.handler.CancelTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response models.Task
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), models.TaskStatusCancelled, response.Status)
}

// TestCancelTask_Forbidden tests cancelling someone else's task
func (suite *TaskHandlerTestSuite) TestCancelTask_Forbidden() {
	owner := suite.createTestUser("owner@example.com")
	other := suite.createTestUser("other@example.com")
	suite.createTestTask("Test Task", owner.ID, models.TaskStatusOpen)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/cancel", nil, other.ID)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	suite.handler.CancelTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestCompleteTask_NoAcceptedOffer tests settlement without an accepted offer
func (suite *TaskHandlerTestSuite) TestCompleteTask_NoAcceptedOffer() {
	user := suite.createTestUser("test@example.com")
	suite.createTestTask("Test Task", user.ID, models.TaskStatusDone)

	// No accepted offer exists, so settlement conflicts.
	c, w := suite.createAuthContext("POST", "/api/tasks/1/complete", nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	suite.handler.CompleteTask(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

// TestDeleteTask_Success tests soft deleting a task
func (suite *TaskHandlerTestSuite) TestDeleteTask_Success() {
	user := suite.createTestUser("test@example.com")
	suite.createTestTask("Test Task", user.ID, models.TaskStatusOpen)

	c, w := suite.createAuthContext("DELETE", "/api/tasks/1", nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	suite.handler.DeleteTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.Task{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

// TestTaskHandlerTestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
