package models

import (
	"time"

	"gorm.io/gorm"
)

type ReviewerRole string

const (
	ReviewerRolePoster ReviewerRole = "poster"
	ReviewerRoleTasker ReviewerRole = "tasker"
)

type Review struct {
	ID         uint64       `gorm:"primarykey" json:"id"`
	ReviewerID uint64       `gorm:"not null;index;uniqueIndex:idx_reviews_triplet" json:"reviewer_id"`
	RevieweeID uint64       `gorm:"not null;index;uniqueIndex:idx_reviews_triplet" json:"reviewee_id"`
	TaskID     *uint64      `gorm:"index;uniqueIndex:idx_reviews_triplet" json:"task_id"`
	Rating     int          `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Text       string       `gorm:"type:text" json:"text"`
	Role       ReviewerRole `gorm:"type:varchar(10);not null" json:"role"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Reviewer User  `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Reviewee User  `gorm:"foreignKey:RevieweeID" json:"reviewee,omitempty"`
	Task     *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

// RatingScope selects which reviews feed an aggregate. The role in the scope
// name is the REVIEWER's role on the task, not the reviewee's: as_poster holds
// scores posters gave the user for work done as a tasker, and as_tasker holds
// scores taskers gave the user for tasks they posted.
type RatingScope string

const (
	// RatingScopeOverall aggregates every review of the reviewee.
	RatingScopeOverall RatingScope = "overall"
	// RatingScopeAsPoster aggregates reviews whose reviewer acted as poster.
	RatingScopeAsPoster RatingScope = "as_poster"
	// RatingScopeAsTasker aggregates reviews whose reviewer acted as tasker.
	RatingScopeAsTasker RatingScope = "as_tasker"
)

// RatingSummary is the cached aggregate for one (user, scope) pair. It is a
// derived view: every recompute overwrites the whole row from Review rows.
type RatingSummary struct {
	UserID  uint64      `gorm:"primarykey" json:"user_id"`
	Scope   RatingScope `gorm:"type:varchar(10);primarykey" json:"scope"`
	Average float64     `gorm:"not null;default:0" json:"average"`
	Count   int         `gorm:"not null;default:0" json:"count"`
	Dist1   int         `gorm:"not null;default:0" json:"dist_1"`
	Dist2   int         `gorm:"not null;default:0" json:"dist_2"`
	Dist3   int         `gorm:"not null;default:0" json:"dist_3"`
	Dist4   int         `gorm:"not null;default:0" json:"dist_4"`
	Dist5   int         `gorm:"not null;default:0" json:"dist_5"`

	UpdatedAt time.Time `json:"updated_at"`
}
