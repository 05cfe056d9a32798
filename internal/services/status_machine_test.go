package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/repository"
)

type StatusMachineTestSuite struct {
	suite.Suite
	db      *gorm.DB
	machine *StatusMachine
}

func (suite *StatusMachineTestSuite) SetupTest() {
	var err error
	suite.db, err = openTestDB()
	suite.Require().NoError(err)

	suite.machine = NewStatusMachine(repository.NewTaskRepository(suite.db))
}

func (suite *StatusMachineTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *StatusMachineTestSuite) createTask(status models.TaskStatus, posterID uint64, assignedTo *uint64) *models.Task {
	task := &models.Task{
		Title:      "Test Task",
		Status:     status,
		Budget:     decimal.NewFromInt(100),
		Currency:   "AUD",
		PosterID:   posterID,
		AssignedTo: assignedTo,
	}
	suite.db.Create(task)
	return task
}

func (suite *StatusMachineTestSuite) TestTransition_OpenToTodoByPoster() {
	task := suite.createTask(models.TaskStatusOpen, 1, nil)

	err := suite.machine.Transition(task, models.TaskStatusTodo, Actor{UserID: 1}, "offer accepted")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusTodo, task.Status)

	var stored models.Task
	suite.db.First(&stored, task.ID)
	assert.Equal(suite.T(), models.TaskStatusTodo, stored.Status)
}

func (suite *StatusMachineTestSuite) TestTransition_AppendsHistory() {
	task := suite.createTask(models.TaskStatusOpen, 1, nil)

	err := suite.machine.Transition(task, models.TaskStatusTodo, Actor{UserID: 1}, "assigned")
	suite.Require().NoError(err)

	var changes []models.TaskStatusChange
	suite.db.Where("task_id = ?", task.ID).Find(&changes)
	suite.Require().Len(changes, 1)
	assert.Equal(suite.T(), models.TaskStatusTodo, changes[0].Status)
	assert.Equal(suite.T(), uint64(1), changes[0].ChangedBy)
	assert.Equal(suite.T(), "assigned", changes[0].Reason)
	assert.False(suite.T(), changes[0].ChangedAt.IsZero())
}

func (suite *StatusMachineTestSuite) TestTransition_DoneByAssignedTasker() {
	taskerID := uint64(2)
	task := suite.createTask(models.TaskStatusTodo, 1, &taskerID)

	err := suite.machine.Transition(task, models.TaskStatusDone, Actor{UserID: taskerID}, "work finished")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusDone, task.Status)
}

func (suite *StatusMachineTestSuite) TestTransition_DoneByPosterForbidden() {
	taskerID := uint64(2)
	task := suite.createTask(models.TaskStatusTodo, 1, &taskerID)

	err := suite.machine.Transition(task, models.TaskStatusDone, Actor{UserID: 1}, "")

	assert.ErrorIs(suite.T(), err, ErrTransitionForbidden)
	assert.Equal(suite.T(), models.TaskStatusTodo, task.Status)

	var stored models.Task
	suite.db.First(&stored, task.ID)
	assert.Equal(suite.T(), models.TaskStatusTodo, stored.Status)
}

func (suite *StatusMachineTestSuite) TestTransition_CompletedOnlyFromDone() {
	task := suite.createTask(models.TaskStatusTodo, 1, nil)

	err := suite.machine.Transition(task, models.TaskStatusCompleted, Actor{UserID: 1}, "")

	assert.ErrorIs(suite.T(), err, ErrInvalidStateTransition)
}

func (suite *StatusMachineTestSuite) TestTransition_CompletedByNonPosterForbidden() {
	taskerID := uint64(2)
	task := suite.createTask(models.TaskStatusDone, 1, &taskerID)

	err := suite.machine.Transition(task, models.TaskStatusCompleted, Actor{UserID: taskerID}, "")

	assert.ErrorIs(suite.T(), err, ErrTransitionForbidden)
}

func (suite *StatusMachineTestSuite) TestTransition_SystemOnlyRejectsExternalActor() {
	task := suite.createTask(models.TaskStatusOpen, 1, nil)

	err := suite.machine.Transition(task, models.TaskStatusExpired, Actor{UserID: 1}, "")

	assert.ErrorIs(suite.T(), err, ErrTransitionForbidden)

	overdueTask := suite.createTask(models.TaskStatusTodo, 1, nil)
	err = suite.machine.Transition(overdueTask, models.TaskStatusOverdue, Actor{UserID: 1}, "")

	assert.ErrorIs(suite.T(), err, ErrTransitionForbidden)
}

func (suite *StatusMachineTestSuite) TestTransition_SystemActorMayExpire() {
	task := suite.createTask(models.TaskStatusOpen, 1, nil)

	err := suite.machine.Transition(task, models.TaskStatusExpired, SystemActor, "window passed")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TaskStatusExpired, task.Status)
}

func (suite *StatusMachineTestSuite) TestTransition_TerminalStatusHasNoEdges() {
	for _, status := range []models.TaskStatus{
		models.TaskStatusCompleted,
		models.TaskStatusExpired,
		models.TaskStatusOverdue,
		models.TaskStatusCancelled,
	} {
		task := suite.createTask(status, 1, nil)
		err := suite.machine.Transition(task, models.TaskStatusOpen, Actor{UserID: 1}, "")
		assert.ErrorIs(suite.T(), err, ErrInvalidStateTransition, "status %s", status)
	}
}

func (suite *StatusMachineTestSuite) TestTransition_UnknownEdgeRejected() {
	task := suite.createTask(models.TaskStatusOpen, 1, nil)

	err := suite.machine.Transition(task, models.TaskStatusDone, Actor{UserID: 1}, "")

	assert.ErrorIs(suite.T(), err, ErrInvalidStateTransition)

	var changes []models.TaskStatusChange
	suite.db.Where("task_id = ?", task.ID).Find(&changes)
	assert.Empty(suite.T(), changes)
}

func (suite *StatusMachineTestSuite) TestTransition_ConcurrentChangeConflicts() {
	task := suite.createTask(models.TaskStatusOpen, 1, nil)

	// Another writer moves the task first.
	suite.db.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("status", models.TaskStatusCancelled)

	err := suite.machine.Transition(task, models.TaskStatusTodo, Actor{UserID: 1}, "")

	assert.ErrorIs(suite.T(), err, ErrTransitionConflict)
}

func TestStatusMachineTestSuite(t *testing.T) {
	suite.Run(t, new(StatusMachineTestSuite))
}
