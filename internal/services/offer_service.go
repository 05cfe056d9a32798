package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/repository"
)

var (
	ErrOfferNotFound       = errors.New("offer not found")
	ErrOfferTaskMismatch   = errors.New("offer does not belong to this task")
	ErrTaskNotAccepting    = errors.New("task is not accepting offers")
	ErrOfferNotAcceptable  = errors.New("offer is no longer acceptable")
	ErrOfferAmountInvalid  = errors.New("offer amount must be greater than zero")
	ErrOwnTaskOffer        = errors.New("posters cannot offer on their own task")
	ErrNotOfferOwner       = errors.New("only the offer owner can perform this action")
	ErrAcceptanceConflict  = errors.New("another offer was accepted concurrently")
	ErrPaymentIntentFailed = errors.New("failed to create payment intent")
)

// OfferService handles offer creation, withdrawal, and the acceptance
// transaction.
type OfferService struct {
	taskRepo  repository.TaskRepository
	offerRepo repository.OfferRepository
	machine   *StatusMachine
	gateway   PaymentGateway
	notifier  Notifier
	feeRate   decimal.Decimal
	log       *logrus.Logger
}

// NewOfferService creates a new OfferService
func NewOfferService(taskRepo repository.TaskRepository, offerRepo repository.OfferRepository, machine *StatusMachine, gateway PaymentGateway, notifier Notifier, serviceFeeRate float64, log *logrus.Logger) *OfferService {
	return &OfferService{
		taskRepo:  taskRepo,
		offerRepo: offerRepo,
		machine:   machine,
		gateway:   gateway,
		notifier:  notifier,
		feeRate:   decimal.NewFromFloat(serviceFeeRate),
		log:       log,
	}
}

// CreateOfferInput represents input for creating an offer
type CreateOfferInput struct {
	TaskID   uint64
	TaskerID uint64
	Amount   decimal.Decimal
	Message  string
}

// CreateOffer creates a pending offer on an open task
func (s *OfferService) CreateOffer(input CreateOfferInput) (*models.Offer, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrOfferAmountInvalid
	}

	task, err := s.taskRepo.FindByID(input.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.Status != models.TaskStatusOpen {
		return nil, ErrTaskNotAccepting
	}
	if task.PosterID == input.TaskerID {
		return nil, ErrOwnTaskOffer
	}

	offer := &models.Offer{
		TaskID:   task.ID,
		PosterID: task.PosterID,
		TaskerID: input.TaskerID,
		Amount:   input.Amount,
		Currency: task.Currency,
		Message:  strings.TrimSpace(input.Message),
		Status:   models.OfferStatusPending,
	}

	if err := s.offerRepo.Create(offer); err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	notify(s.log, "offer_made", func() error { return s.notifier.OfferMade(offer) })

	return offer, nil
}

// ListOffers lists all offers on a task, visible to the poster and to each
// offer's owner.
func (s *OfferService) ListOffers(taskID, actorID uint64) ([]models.Offer, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	offers, err := s.offerRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}

	if task.PosterID == actorID {
		return offers, nil
	}

	own := make([]models.Offer, 0, 1)
	for _, offer := range offers {
		if offer.TaskerID == actorID {
			own = append(own, offer)
		}
	}
	return own, nil
}

// WithdrawOffer withdraws a pending offer
func (s *OfferService) WithdrawOffer(offerID, actorID uint64) (*models.Offer, error) {
	offer, err := s.offerRepo.FindByID(offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to find offer: %w", err)
	}

	if offer.TaskerID != actorID {
		return nil, ErrNotOfferOwner
	}

	changed, err := s.offerRepo.UpdateStatusGuarded(offerID, models.OfferStatusPending, models.OfferStatusWithdrawn)
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw offer: %w", err)
	}
	if !changed {
		return nil, ErrOfferNotAcceptable
	}

	offer.Status = models.OfferStatusWithdrawn
	return offer, nil
}

// AcceptOffer runs the acceptance protocol: preconditions checked in order
// with zero writes on failure, then one atomic unit assigning the task,
// accepting the offer, rejecting rivals, and opening payment and escrow.
func (s *OfferService) AcceptOffer(ctx context.Context, taskID, offerID, actorID uint64) (*models.Task, *models.Offer, error) {
	offer, err := s.offerRepo.FindByID(offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOfferNotFound
		}
		return nil, nil, fmt.Errorf("failed to find offer: %w", err)
	}
	if offer.TaskID != taskID {
		return nil, nil, ErrOfferTaskMismatch
	}

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTaskNotFound
		}
		return nil, nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.Status != models.TaskStatusOpen {
		return nil, nil, ErrTaskNotAccepting
	}
	if task.PosterID != actorID {
		return nil, nil, ErrNotTaskPoster
	}
	if offer.Status != models.OfferStatusPending {
		return nil, nil, ErrOfferNotAcceptable
	}

	if err := s.machine.Authorize(task, models.TaskStatusTodo, Actor{UserID: actorID}); err != nil {
		return nil, nil, err
	}

	serviceFee := offer.Amount.Mul(s.feeRate).Round(2)
	totalPaid := offer.Amount.Add(serviceFee)

	intent, err := s.gateway.CreateIntent(ctx, totalPaid, offer.Currency, map[string]string{
		"task_id":  fmt.Sprint(task.ID),
		"offer_id": fmt.Sprint(offer.ID),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPaymentIntentFailed, err)
	}

	payment := &models.Payment{
		TaskID:       task.ID,
		OfferID:      offer.ID,
		PayerID:      task.PosterID,
		PayeeID:      offer.TaskerID,
		Amount:       offer.Amount,
		ServiceFee:   serviceFee,
		TaskerAmount: offer.Amount.Sub(serviceFee),
		Currency:     offer.Currency,
		Status:       models.PaymentStatusPending,
		IntentRef:    intent.ID,
	}

	ledger := &models.Transaction{
		TaskID:   task.ID,
		UserID:   offer.TaskerID,
		Type:     models.TransactionTypeEscrowHold,
		Amount:   offer.Amount,
		Currency: offer.Currency,
		Status:   models.TransactionStatusPending,
	}

	entry := HistoryEntry(task.ID, models.TaskStatusTodo, Actor{UserID: actorID}, "offer accepted")

	if err := s.offerRepo.Accept(task.ID, offer.ID, offer.TaskerID, entry, payment, ledger); err != nil {
		switch {
		case errors.Is(err, repository.ErrTaskNotOpen), errors.Is(err, repository.ErrOfferNotPending):
			return nil, nil, ErrAcceptanceConflict
		}
		return nil, nil, fmt.Errorf("failed to accept offer: %w", err)
	}

	task, err = s.taskRepo.FindByID(task.ID, "Poster", "Tasker")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload task: %w", err)
	}
	offer, err = s.offerRepo.FindByID(offer.ID, "Tasker")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload offer: %w", err)
	}

	notify(s.log, "offer_accepted", func() error { return s.notifier.OfferAccepted(offer) })
	notify(s.log, "task_assigned", func() error { return s.notifier.TaskAssigned(task) })

	return task, offer, nil
}
