package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	DisplayName  string         `gorm:"type:varchar(255);not null" json:"display_name"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Completion counters maintained by settlement
	PostedTasksCompleted    int `gorm:"not null;default:0" json:"posted_tasks_completed"`
	PerformedTasksCompleted int `gorm:"not null;default:0" json:"performed_tasks_completed"`
	CompletionVotes         int `gorm:"not null;default:0" json:"completion_votes"`

	// Relations
	PostedTasks   []Task   `gorm:"foreignKey:PosterID" json:"-"`
	Offers        []Offer  `gorm:"foreignKey:TaskerID" json:"-"`
	ReviewsGiven  []Review `gorm:"foreignKey:ReviewerID" json:"-"`
	ReviewsGotten []Review `gorm:"foreignKey:RevieweeID" json:"-"`
}
