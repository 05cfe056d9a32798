package repository

import (
	"errors"
	"time"

	"github.com/markettask/markettask-api/internal/database"
	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/utils"
	"gorm.io/gorm"
)

// ErrStatusChanged is returned when a guarded status update matches no row,
// meaning a concurrent writer got there first.
var ErrStatusChanged = errors.New("task repository: task status changed concurrently")

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{})

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.PosterID != nil {
		query = query.Where("tasks.poster_id = ?", *filter.PosterID)
	}
	if filter.TaskerID != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.TaskerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC")

	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Page:   filter.Page,
			Limit:  filter.PageSize,
			Offset: (filter.Page - 1) * filter.PageSize,
		}))
	}

	if err := listQuery.Preload("Poster").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Task{}, id).Error
}

// ApplyTransition persists a status change guarded on the expected current
// status and appends the history entry in the same transaction.
func (r *GormTaskRepository) ApplyTransition(taskID uint64, from, to models.TaskStatus, entry *models.TaskStatusChange) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusChanged
		}

		return tx.Create(entry).Error
	})
}

// ListDue lists open and assigned tasks whose due date has passed
func (r *GormTaskRepository) ListDue(now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Where("status IN ?", []models.TaskStatus{models.TaskStatusOpen, models.TaskStatusTodo}).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// History returns a task's status history ordered by change time
func (r *GormTaskRepository) History(taskID uint64) ([]models.TaskStatusChange, error) {
	var changes []models.TaskStatusChange
	if err := r.db.Where("task_id = ?", taskID).
		Order("changed_at ASC, id ASC").
		Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}
