package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/repository"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrNotTaskPoster       = errors.New("only the task poster can perform this action")
	ErrTitleRequired       = errors.New("title is required")
	ErrBudgetInvalid       = errors.New("budget must be greater than zero")
	ErrCurrencyRequired    = errors.New("currency is required")
	ErrAssignViaAcceptance = errors.New("tasks are assigned by accepting an offer")
	ErrCompletionPath      = errors.New("completion goes through task settlement")
	ErrCancellationPath    = errors.New("cancellation goes through task cancellation")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo    repository.TaskRepository
	offerRepo   repository.OfferRepository
	paymentRepo repository.PaymentRepository
	machine     *StatusMachine
	notifier    Notifier
	log         *logrus.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, offerRepo repository.OfferRepository, paymentRepo repository.PaymentRepository, machine *StatusMachine, notifier Notifier, log *logrus.Logger) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		offerRepo:   offerRepo,
		paymentRepo: paymentRepo,
		machine:     machine,
		notifier:    notifier,
		log:         log,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Tags        string
	Budget      decimal.Decimal
	Currency    string
	StartDate   *time.Time
	DueDate     *time.Time
	PosterID    uint64
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status   *models.TaskStatus
	PosterID *uint64
	TaskerID *uint64
	Page     int
	PageSize int
}

// CreateTask creates a new open task with its first history entry
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if !input.Budget.IsPositive() {
		return nil, ErrBudgetInvalid
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if len(currency) != 3 {
		return nil, ErrCurrencyRequired
	}

	task := &models.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Tags:        input.Tags,
		Status:      models.TaskStatusOpen,
		Budget:      input.Budget,
		Currency:    currency,
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
		PosterID:    input.PosterID,
		StatusHistory: []models.TaskStatusChange{
			{
				Status:    models.TaskStatusOpen,
				ChangedBy: input.PosterID,
				ChangedAt: time.Now(),
				Reason:    "task posted",
			},
		},
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	notify(s.log, "task_posted", func() error { return s.notifier.TaskPosted(task) })

	return task, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Poster", "Tasker", "Offers", "StatusHistory")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// ListTasks returns tasks matching the provided filters
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		Status:   input.Status,
		PosterID: input.PosterID,
		TaskerID: input.TaskerID,
		Page:     input.Page,
		PageSize: input.PageSize,
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// UpdateTaskStatus applies an externally requested status transition. Todo is
// reserved for the acceptance transaction, completed for settlement, and
// cancelled for CancelTask, which also unwinds offers, payment, and escrow;
// the machine itself rejects system-only targets from external actors.
func (s *TaskService) UpdateTaskStatus(taskID uint64, to models.TaskStatus, actorID uint64, reason string) (*models.Task, error) {
	switch to {
	case models.TaskStatusTodo:
		return nil, ErrAssignViaAcceptance
	case models.TaskStatusCompleted:
		return nil, ErrCompletionPath
	case models.TaskStatusCancelled:
		return nil, ErrCancellationPath
	}

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.machine.Transition(task, to, Actor{UserID: actorID}, reason); err != nil {
		return nil, err
	}

	return task, nil
}

// CancelTask cancels an open or assigned task. Outstanding offers are
// rejected, a pending payment is refunded, and the escrow ledger is closed.
func (s *TaskService) CancelTask(taskID, actorID uint64, reason string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if reason == "" {
		reason = "cancelled by poster"
	}

	if err := s.machine.Transition(task, models.TaskStatusCancelled, Actor{UserID: actorID}, reason); err != nil {
		return nil, err
	}

	offers, err := s.offerRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	for _, offer := range offers {
		switch offer.Status {
		case models.OfferStatusPending:
			if _, err := s.offerRepo.UpdateStatusGuarded(offer.ID, models.OfferStatusPending, models.OfferStatusRejected); err != nil {
				return nil, fmt.Errorf("failed to reject offer %d: %w", offer.ID, err)
			}
		case models.OfferStatusAccepted:
			if _, err := s.offerRepo.UpdateStatusGuarded(offer.ID, models.OfferStatusAccepted, models.OfferStatusRejected); err != nil {
				return nil, fmt.Errorf("failed to reject offer %d: %w", offer.ID, err)
			}
		}
	}

	if err := s.paymentRepo.MarkRefundedByTask(taskID); err != nil {
		return nil, fmt.Errorf("failed to refund payment: %w", err)
	}
	if err := s.paymentRepo.CancelLedgerByTask(taskID); err != nil {
		return nil, fmt.Errorf("failed to close ledger: %w", err)
	}

	return task, nil
}

// ExpireTask is the system transition for open tasks past their window
func (s *TaskService) ExpireTask(taskID uint64) (*models.Task, error) {
	return s.systemTransition(taskID, models.TaskStatusExpired, "task expired")
}

// MarkTaskOverdue is the system transition for assigned tasks past due
func (s *TaskService) MarkTaskOverdue(taskID uint64) (*models.Task, error) {
	return s.systemTransition(taskID, models.TaskStatusOverdue, "task overdue")
}

// SweepDueTasks expires open tasks and marks assigned tasks overdue once
// their due date has passed. Conflicts with concurrent transitions are
// skipped; the next sweep picks up whatever state remains.
func (s *TaskService) SweepDueTasks(now time.Time) int {
	tasks, err := s.taskRepo.ListDue(now)
	if err != nil {
		s.log.WithError(err).Error("due task sweep failed")
		return 0
	}

	swept := 0
	for _, task := range tasks {
		var sweepErr error
		switch task.Status {
		case models.TaskStatusOpen:
			_, sweepErr = s.ExpireTask(task.ID)
		case models.TaskStatusTodo:
			_, sweepErr = s.MarkTaskOverdue(task.ID)
		default:
			continue
		}
		if sweepErr != nil {
			s.log.WithError(sweepErr).WithField("task_id", task.ID).Warn("skipping due task")
			continue
		}
		swept++
	}

	return swept
}

func (s *TaskService) systemTransition(taskID uint64, to models.TaskStatus, reason string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.machine.Transition(task, to, SystemActor, reason); err != nil {
		return nil, err
	}

	return task, nil
}

// DeleteTask deactivates a task. Tasks are always soft deleted; rows with
// offers stay recoverable.
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.PosterID != actorID {
		return ErrNotTaskPoster
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}
