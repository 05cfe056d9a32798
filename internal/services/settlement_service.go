package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/repository"
)

var (
	ErrNotSettlementParty = errors.New("only the task parties can access settlement records")
	ErrCaptureFailed      = errors.New("payment capture failed")
)

// SettlementService sequences the post-completion settlement: payment
// capture, the completed transition, the payment flip, receipt generation,
// and offer/ledger/counter closure.
type SettlementService struct {
	taskRepo    repository.TaskRepository
	offerRepo   repository.OfferRepository
	paymentRepo repository.PaymentRepository
	userRepo    repository.UserRepository
	receipts    *ReceiptService
	machine     *StatusMachine
	gateway     PaymentGateway
	notifier    Notifier
	log         *logrus.Logger
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(taskRepo repository.TaskRepository, offerRepo repository.OfferRepository, paymentRepo repository.PaymentRepository, userRepo repository.UserRepository, receipts *ReceiptService, machine *StatusMachine, gateway PaymentGateway, notifier Notifier, log *logrus.Logger) *SettlementService {
	return &SettlementService{
		taskRepo:    taskRepo,
		offerRepo:   offerRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		receipts:    receipts,
		machine:     machine,
		gateway:     gateway,
		notifier:    notifier,
		log:         log,
	}
}

// SettlementResult is the payload of a completed settlement.
type SettlementResult struct {
	Task     *models.Task     `json:"task"`
	Receipts []models.Receipt `json:"receipts,omitempty"`
}

// splitCompletionVotes derives the completion vote split from the budget vs
// accepted-amount ratio: one vote each, plus a bonus vote for the tasker when
// delivery did not exceed the budget.
func splitCompletionVotes(budget, offerAmount decimal.Decimal) (posterVotes, taskerVotes int) {
	posterVotes = 1
	taskerVotes = 1
	if offerAmount.LessThanOrEqual(budget) {
		taskerVotes++
	}
	return posterVotes, taskerVotes
}

// CompleteTask settles a done task. A repeat call on an already completed
// task returns the existing receipt pair unchanged. A receipt failure after
// the committed completion is logged and surfaced as missing receipts, never
// as a reverted completion.
func (s *SettlementService) CompleteTask(ctx context.Context, taskID, actorID uint64) (*SettlementResult, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.Status == models.TaskStatusCompleted {
		if task.PosterID != actorID {
			return nil, ErrNotTaskPoster
		}
		receipts, err := s.receipts.GenerateReceiptsForCompletedTask(taskID)
		if err != nil {
			s.log.WithError(err).WithField("task_id", taskID).Warn("receipt generation failed on completion retry")
			receipts = nil
		}
		return &SettlementResult{Task: task, Receipts: receipts}, nil
	}

	// Step 1: accepted offer must exist; compute the vote split up front.
	offer, err := s.offerRepo.FindAcceptedByTask(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoAcceptedOffer
		}
		return nil, fmt.Errorf("failed to find accepted offer: %w", err)
	}
	posterVotes, taskerVotes := splitCompletionVotes(task.Budget, offer.Amount)

	if err := s.machine.Authorize(task, models.TaskStatusCompleted, Actor{UserID: actorID}); err != nil {
		return nil, err
	}

	// Capture before the transition so a gateway failure leaves no writes.
	payment, err := s.paymentRepo.FindByTask(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCompletedPayment
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	if payment.Status == models.PaymentStatusPending && payment.IntentRef != "" {
		if _, err := s.gateway.Capture(ctx, payment.IntentRef); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
		}
	}

	// Step 2: the completed transition, with history.
	if err := s.machine.Transition(task, models.TaskStatusCompleted, Actor{UserID: actorID}, "task completed"); err != nil {
		return nil, err
	}

	// Step 3: flip payments before receipts; receipt generation requires a
	// completed payment and silently no-ops without one.
	if err := s.paymentRepo.MarkCompletedByTask(taskID); err != nil {
		return nil, fmt.Errorf("failed to complete payment: %w", err)
	}

	// Step 4: receipts. Completion is committed; a failure here is retried
	// lazily on the next receipt read.
	receipts, receiptErr := s.receipts.GenerateReceiptsForCompletedTask(taskID)
	if receiptErr != nil {
		s.log.WithError(receiptErr).WithField("task_id", taskID).Warn("receipt generation failed, will retry on read")
		receipts = nil
	}

	// Step 5: close the offer, release escrow, credit counters.
	if _, err := s.offerRepo.UpdateStatusGuarded(offer.ID, models.OfferStatusAccepted, models.OfferStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to complete offer: %w", err)
	}

	release := &models.Transaction{
		TaskID:    taskID,
		PaymentID: payment.ID,
		UserID:    offer.TaskerID,
		Type:      models.TransactionTypeEscrowRelease,
		Amount:    payment.TaskerAmount,
		Currency:  payment.Currency,
		Status:    models.TransactionStatusCompleted,
	}
	if err := s.paymentRepo.CompleteLedgerByTask(taskID, release); err != nil {
		return nil, fmt.Errorf("failed to close ledger: %w", err)
	}

	if err := s.userRepo.ApplyCompletionCredits(task.PosterID, offer.TaskerID, posterVotes, taskerVotes); err != nil {
		return nil, fmt.Errorf("failed to apply completion credits: %w", err)
	}

	notify(s.log, "task_completed", func() error { return s.notifier.TaskCompleted(task) })
	for i := range receipts {
		receipt := receipts[i]
		notify(s.log, "receipt_ready", func() error { return s.notifier.ReceiptReady(&receipt) })
	}

	return &SettlementResult{Task: task, Receipts: receipts}, nil
}
