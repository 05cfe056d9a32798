package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/repository"
)

var (
	ErrInvalidStateTransition = errors.New("status transition not allowed")
	ErrTransitionForbidden    = errors.New("actor may not perform this transition")
	ErrTransitionConflict     = errors.New("task status changed concurrently")
)

// Actor identifies who requests a transition. System transitions come from
// schedulers inside the platform, never from an inbound request.
type Actor struct {
	UserID uint64
	System bool
}

// SystemActor is the actor for platform-driven transitions.
var SystemActor = Actor{System: true}

type transitionRole int

const (
	rolePoster transitionRole = iota
	roleAssignedTasker
	roleSystem
)

type transitionRule struct {
	role transitionRole
}

// transitionTable is the single source of truth for the task lifecycle:
// which statuses follow which, and who may request each edge.
var transitionTable = map[models.TaskStatus]map[models.TaskStatus]transitionRule{
	models.TaskStatusOpen: {
		models.TaskStatusTodo:      {role: rolePoster},
		models.TaskStatusCancelled: {role: rolePoster},
		models.TaskStatusExpired:   {role: roleSystem},
	},
	models.TaskStatusTodo: {
		models.TaskStatusDone:      {role: roleAssignedTasker},
		models.TaskStatusCancelled: {role: rolePoster},
		models.TaskStatusOverdue:   {role: roleSystem},
	},
	models.TaskStatusDone: {
		models.TaskStatusCompleted: {role: rolePoster},
	},
}

// StatusMachine validates and applies task status transitions and records
// the status history.
type StatusMachine struct {
	taskRepo repository.TaskRepository
}

// NewStatusMachine creates a new StatusMachine
func NewStatusMachine(taskRepo repository.TaskRepository) *StatusMachine {
	return &StatusMachine{taskRepo: taskRepo}
}

// Authorize checks the transition against the table and the actor without
// writing anything.
func (m *StatusMachine) Authorize(task *models.Task, to models.TaskStatus, actor Actor) error {
	edges, ok := transitionTable[task.Status]
	if !ok {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidStateTransition, task.Status)
	}

	rule, ok := edges[to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, task.Status, to)
	}

	switch rule.role {
	case roleSystem:
		if !actor.System {
			return fmt.Errorf("%w: %s is system-only", ErrTransitionForbidden, to)
		}
	case rolePoster:
		if actor.System {
			return nil
		}
		if actor.UserID != task.PosterID {
			return fmt.Errorf("%w: only the poster may move the task to %s", ErrTransitionForbidden, to)
		}
	case roleAssignedTasker:
		if actor.System {
			return nil
		}
		if task.AssignedTo == nil || *task.AssignedTo != actor.UserID {
			return fmt.Errorf("%w: only the assigned tasker may move the task to %s", ErrTransitionForbidden, to)
		}
	}

	return nil
}

// Transition validates the requested transition, then persists the new status
// together with a history entry. Nothing is written when validation fails.
func (m *StatusMachine) Transition(task *models.Task, to models.TaskStatus, actor Actor, reason string) error {
	if err := m.Authorize(task, to, actor); err != nil {
		return err
	}

	entry := &models.TaskStatusChange{
		TaskID:    task.ID,
		Status:    to,
		ChangedBy: actor.UserID,
		ChangedAt: time.Now(),
		Reason:    reason,
	}

	if err := m.taskRepo.ApplyTransition(task.ID, task.Status, to, entry); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return ErrTransitionConflict
		}
		return fmt.Errorf("failed to apply transition: %w", err)
	}

	task.Status = to
	task.StatusHistory = append(task.StatusHistory, *entry)
	return nil
}

// HistoryEntry builds a history row for transitions applied inside a larger
// repository transaction (offer acceptance writes its own entry).
func HistoryEntry(taskID uint64, to models.TaskStatus, actor Actor, reason string) *models.TaskStatusChange {
	return &models.TaskStatusChange{
		TaskID:    taskID,
		Status:    to,
		ChangedBy: actor.UserID,
		ChangedAt: time.Now(),
		Reason:    reason,
	}
}
