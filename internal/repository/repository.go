package repository

import (
	"time"

	"github.com/markettask/markettask-api/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete soft deletes a task
	Delete(id uint64) error

	// ApplyTransition persists a status change and appends the history entry
	// in one transaction, guarded on the expected current status.
	ApplyTransition(taskID uint64, from, to models.TaskStatus, entry *models.TaskStatusChange) error

	// ListDue lists open and assigned tasks whose due date has passed
	ListDue(now time.Time) ([]models.Task, error)

	// History returns a task's status history ordered by change time
	History(taskID uint64) ([]models.TaskStatusChange, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Status   *models.TaskStatus
	PosterID *uint64
	TaskerID *uint64
	Page     int
	PageSize int
}

// OfferRepository defines the interface for offer data access
type OfferRepository interface {
	// Create creates a new offer
	Create(offer *models.Offer) error

	// FindByID finds an offer by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Offer, error)

	// ListByTask lists all offers on a task
	ListByTask(taskID uint64) ([]models.Offer, error)

	// FindAcceptedByTask finds the accepted offer on a task
	FindAcceptedByTask(taskID uint64) (*models.Offer, error)

	// Update updates an offer
	Update(offer *models.Offer) error

	// Accept atomically assigns the task, accepts the offer, rejects rival
	// pending offers, records the history entry, and creates the payment and
	// escrow ledger rows. No write survives any failure.
	Accept(taskID, offerID, taskerID uint64, entry *models.TaskStatusChange, payment *models.Payment, ledger *models.Transaction) error

	// UpdateStatusGuarded flips an offer's status only when it still has the
	// expected current status; reports whether a row changed.
	UpdateStatusGuarded(offerID uint64, from, to models.OfferStatus) (bool, error)
}

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	// Create creates a new payment
	Create(payment *models.Payment) error

	// FindByTask finds the payment for a task
	FindByTask(taskID uint64) (*models.Payment, error)

	// FindCompletedByTask finds a completed payment for a task
	FindCompletedByTask(taskID uint64) (*models.Payment, error)

	// MarkCompletedByTask flips every pending payment on a task to completed
	MarkCompletedByTask(taskID uint64) error

	// MarkRefundedByTask flips every pending payment on a task to refunded
	MarkRefundedByTask(taskID uint64) error

	// CompleteLedgerByTask marks the task's escrow ledger rows completed and
	// records the release entry
	CompleteLedgerByTask(taskID uint64, release *models.Transaction) error

	// CancelLedgerByTask marks the task's pending ledger rows cancelled
	CancelLedgerByTask(taskID uint64) error
}

// ReceiptRepository defines the interface for receipt data access
type ReceiptRepository interface {
	// ListByTask lists receipts for a task
	ListByTask(taskID uint64) ([]models.Receipt, error)

	// CreatePair creates the payment and earnings receipts in one
	// transaction; the (task, type) unique index rejects duplicates.
	CreatePair(receipts []*models.Receipt) error

	// ReserveSequence atomically reserves n sequence numbers for the given
	// day (YYYYMMDD) and returns the first reserved number.
	ReserveSequence(day string, n int) (int, error)

	// MarkDownloaded bumps the download counter and status
	MarkDownloaded(receiptID uint64) error
}

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	// Create creates a new review
	Create(review *models.Review) error

	// FindByID finds a review by ID
	FindByID(id uint64) (*models.Review, error)

	// FindByParties finds a review for (reviewer, reviewee, task)
	FindByParties(reviewerID, revieweeID uint64, taskID *uint64) (*models.Review, error)

	// Update updates a review
	Update(review *models.Review) error

	// Delete soft deletes a review
	Delete(id uint64) error

	// ListByReviewee lists a reviewee's reviews, optionally filtered by
	// reviewer role
	ListByReviewee(revieweeID uint64, role *models.ReviewerRole) ([]models.Review, error)

	// ReplaceSummaries overwrites the cached rating summaries for a user
	ReplaceSummaries(userID uint64, summaries []models.RatingSummary) error

	// GetSummaries returns the cached rating summaries for a user
	GetSummaries(userID uint64) ([]models.RatingSummary, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// ApplyCompletionCredits increments the completion counters and votes for
	// both settlement parties in one transaction.
	ApplyCompletionCredits(posterID, taskerID uint64, posterVotes, taskerVotes int) error
}
