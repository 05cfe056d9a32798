package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusTodo      TaskStatus = "todo"
	TaskStatusDone      TaskStatus = "done"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusExpired   TaskStatus = "expired"
	TaskStatusOverdue   TaskStatus = "overdue"
)

type Task struct {
	ID          uint64          `gorm:"primarykey" json:"id"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Tags        string          `gorm:"type:varchar(255)" json:"tags"`
	Status      TaskStatus      `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Budget      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"budget"`
	Currency    string          `gorm:"type:varchar(3);not null" json:"currency"`
	StartDate   *time.Time      `json:"start_date"`
	DueDate     *time.Time      `json:"due_date"`
	PosterID    uint64          `gorm:"not null;index" json:"poster_id"`
	AssignedTo  *uint64         `gorm:"index" json:"assigned_to"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Poster        User               `gorm:"foreignKey:PosterID" json:"poster,omitempty"`
	Tasker        *User              `gorm:"foreignKey:AssignedTo" json:"tasker,omitempty"`
	Offers        []Offer            `gorm:"foreignKey:TaskID" json:"offers,omitempty"`
	StatusHistory []TaskStatusChange `gorm:"foreignKey:TaskID" json:"status_history,omitempty"`
}

// TaskStatusChange is one entry of a task's ordered status history.
type TaskStatusChange struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	TaskID    uint64     `gorm:"not null;index" json:"task_id"`
	Status    TaskStatus `gorm:"type:varchar(20);not null" json:"status"`
	ChangedBy uint64     `gorm:"not null" json:"changed_by"`
	ChangedAt time.Time  `gorm:"not null" json:"changed_at"`
	Reason    string     `gorm:"type:varchar(255)" json:"reason"`
}

// Terminal reports whether no further transition can leave the status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusCancelled, TaskStatusExpired, TaskStatusOverdue:
		return true
	}
	return false
}
