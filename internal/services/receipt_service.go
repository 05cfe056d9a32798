package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/markettask/markettask-api/internal/config"
	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/repository"
)

var (
	ErrNoAcceptedOffer      = errors.New("no accepted offer for task")
	ErrNoCompletedPayment   = errors.New("no completed payment for task")
	ErrInvalidReceiptType   = errors.New("invalid receipt type")
	ErrReceiptsNotAvailable = errors.New("receipts not yet available")
)

// ReceiptService produces payment and earnings receipts for settled tasks.
type ReceiptService struct {
	taskRepo    repository.TaskRepository
	offerRepo   repository.OfferRepository
	paymentRepo repository.PaymentRepository
	receiptRepo repository.ReceiptRepository
	userRepo    repository.UserRepository
	prefix      string
	taxTable    []config.TaxJurisdiction
	log         *logrus.Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(taskRepo repository.TaskRepository, offerRepo repository.OfferRepository, paymentRepo repository.PaymentRepository, receiptRepo repository.ReceiptRepository, userRepo repository.UserRepository, prefix string, taxTable []config.TaxJurisdiction, log *logrus.Logger) *ReceiptService {
	return &ReceiptService{
		taskRepo:    taskRepo,
		offerRepo:   offerRepo,
		paymentRepo: paymentRepo,
		receiptRepo: receiptRepo,
		userRepo:    userRepo,
		prefix:      prefix,
		taxTable:    taxTable,
		log:         log,
	}
}

// taxBreakdown is the computed tax portion of a receipt.
type taxBreakdown struct {
	Type   string
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// taxFor resolves the jurisdiction for a currency. The service fee is treated
// as tax-inclusive, so the tax amount is fee * rate / (1 + rate). Unmapped
// currencies settle with no tax.
func (s *ReceiptService) taxFor(currency string, serviceFee decimal.Decimal) taxBreakdown {
	for _, j := range s.taxTable {
		if j.Currency == currency {
			amount := serviceFee.Mul(j.Rate).Div(decimal.NewFromInt(1).Add(j.Rate)).Round(2)
			return taxBreakdown{Type: j.TaxType, Rate: j.Rate, Amount: amount}
		}
	}
	return taxBreakdown{Type: "none", Rate: decimal.Zero, Amount: decimal.Zero}
}

// partyName resolves a user's display name, falling back to the raw id when
// the profile is soft deleted or otherwise unavailable.
func (s *ReceiptService) partyName(userID uint64) string {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return strconv.FormatUint(userID, 10)
	}
	return user.DisplayName
}

// nextReceiptNumber reserves a sequential number for today, falling back to a
// timestamp-based number when the counter is unavailable.
func (s *ReceiptService) nextReceiptNumber(now time.Time) string {
	day := now.Format("20060102")
	seq, err := s.receiptRepo.ReserveSequence(day, 1)
	if err != nil {
		s.log.WithError(err).Warn("receipt sequence unavailable, using timestamp number")
		return fmt.Sprintf("%s%s-%d", s.prefix, day, now.UnixNano())
	}
	return fmt.Sprintf("%s%s-%04d", s.prefix, day, seq)
}

// buildReceipt assembles one receipt of the given type from the task's
// accepted offer and completed payment.
func (s *ReceiptService) buildReceipt(task *models.Task, offer *models.Offer, payment *models.Payment, receiptType models.ReceiptType) (*models.Receipt, error) {
	var total decimal.Decimal
	switch receiptType {
	case models.ReceiptTypePayment:
		total = offer.Amount.Add(payment.ServiceFee)
	case models.ReceiptTypeEarnings:
		total = offer.Amount.Sub(payment.ServiceFee)
	default:
		return nil, ErrInvalidReceiptType
	}

	tax := s.taxFor(payment.Currency, payment.ServiceFee)

	return &models.Receipt{
		ReceiptNumber: s.nextReceiptNumber(time.Now()),
		ReceiptType:   receiptType,
		TaskID:        task.ID,
		OfferID:       offer.ID,
		PaymentID:     payment.ID,
		PosterID:      task.PosterID,
		TaskerID:      offer.TaskerID,
		PosterName:    s.partyName(task.PosterID),
		TaskerName:    s.partyName(offer.TaskerID),
		OfferAmount:   offer.Amount,
		ServiceFee:    payment.ServiceFee,
		Total:         total,
		Currency:      payment.Currency,
		TaxType:       tax.Type,
		TaxRate:       tax.Rate,
		TaxAmount:     tax.Amount,
		Status:        models.ReceiptStatusGenerated,
	}, nil
}

// gather loads the task, its accepted offer, and its completed payment.
func (s *ReceiptService) gather(taskID uint64) (*models.Task, *models.Offer, *models.Payment, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrTaskNotFound
		}
		return nil, nil, nil, fmt.Errorf("failed to find task: %w", err)
	}

	offer, err := s.offerRepo.FindAcceptedByTask(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrNoAcceptedOffer
		}
		return nil, nil, nil, fmt.Errorf("failed to find accepted offer: %w", err)
	}

	payment, err := s.paymentRepo.FindCompletedByTask(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrNoCompletedPayment
		}
		return nil, nil, nil, fmt.Errorf("failed to find completed payment: %w", err)
	}

	return task, offer, payment, nil
}

// GenerateReceipt produces a single receipt of the given type for a task.
func (s *ReceiptService) GenerateReceipt(taskID uint64, receiptType models.ReceiptType) (*models.Receipt, error) {
	task, offer, payment, err := s.gather(taskID)
	if err != nil {
		return nil, err
	}

	receipt, err := s.buildReceipt(task, offer, payment, receiptType)
	if err != nil {
		return nil, err
	}

	if err := s.receiptRepo.CreatePair([]*models.Receipt{receipt}); err != nil {
		return nil, err
	}

	return receipt, nil
}

// GenerateReceiptsForCompletedTask is the idempotent entry point: existing
// receipts are returned unchanged; otherwise exactly one payment and one
// earnings receipt are issued. The (task, type) unique index closes the
// check-then-act race under concurrent invocation.
func (s *ReceiptService) GenerateReceiptsForCompletedTask(taskID uint64) ([]models.Receipt, error) {
	existing, err := s.receiptRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	task, offer, payment, err := s.gather(taskID)
	if err != nil {
		return nil, err
	}

	paymentReceipt, err := s.buildReceipt(task, offer, payment, models.ReceiptTypePayment)
	if err != nil {
		return nil, err
	}
	earningsReceipt, err := s.buildReceipt(task, offer, payment, models.ReceiptTypeEarnings)
	if err != nil {
		return nil, err
	}

	if err := s.receiptRepo.CreatePair([]*models.Receipt{paymentReceipt, earningsReceipt}); err != nil {
		if errors.Is(err, repository.ErrReceiptExists) {
			return s.receiptRepo.ListByTask(taskID)
		}
		return nil, fmt.Errorf("failed to create receipts: %w", err)
	}

	return []models.Receipt{*paymentReceipt, *earningsReceipt}, nil
}

// GetTaskReceipts returns a task's receipts, lazily regenerating them when a
// completed task with a completed payment is still missing its pair (the
// retry path after a settlement-time generation failure).
func (s *ReceiptService) GetTaskReceipts(taskID, actorID uint64) ([]models.Receipt, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.PosterID != actorID && (task.AssignedTo == nil || *task.AssignedTo != actorID) {
		return nil, ErrNotSettlementParty
	}

	receipts, err := s.receiptRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	if len(receipts) > 0 {
		return receipts, nil
	}

	if task.Status != models.TaskStatusCompleted {
		return []models.Receipt{}, nil
	}

	receipts, err = s.GenerateReceiptsForCompletedTask(taskID)
	if err != nil {
		s.log.WithError(err).WithField("task_id", taskID).Warn("lazy receipt regeneration failed")
		return nil, ErrReceiptsNotAvailable
	}

	return receipts, nil
}

// MarkReceiptDownloaded records a download of a receipt by one of its parties
func (s *ReceiptService) MarkReceiptDownloaded(receiptID uint64) error {
	return s.receiptRepo.MarkDownloaded(receiptID)
}
