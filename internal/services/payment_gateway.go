package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment intent statuses as reported by the gateway. The core only reads
// succeeded/completed and invokes capture.
const (
	IntentStatusRequiresCapture = "requires_capture"
	IntentStatusSucceeded       = "succeeded"
)

// ErrIntentNotFound is returned when the gateway does not know the intent.
var ErrIntentNotFound = errors.New("payment gateway: intent not found")

// PaymentIntent is the opaque object the gateway exposes for one payment.
type PaymentIntent struct {
	ID       string
	Status   string
	Amount   decimal.Decimal
	Currency string
	Metadata map[string]string
}

// PaymentGateway is the external payment collaborator contract.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*PaymentIntent, error)
	Capture(ctx context.Context, intentID string) (*PaymentIntent, error)
}

// FakePaymentGateway is an in-process gateway for development and tests. It
// authorizes every intent and captures on demand.
type FakePaymentGateway struct {
	mu      sync.Mutex
	intents map[string]*PaymentIntent

	// FailCapture makes every capture fail; used to exercise the
	// dependency-failure path in tests.
	FailCapture bool
}

// NewFakePaymentGateway creates a new FakePaymentGateway
func NewFakePaymentGateway() *FakePaymentGateway {
	return &FakePaymentGateway{intents: make(map[string]*PaymentIntent)}
}

func (g *FakePaymentGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent := &PaymentIntent{
		ID:       "pi_" + uuid.NewString(),
		Status:   IntentStatusRequiresCapture,
		Amount:   amount,
		Currency: currency,
		Metadata: metadata,
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *FakePaymentGateway) Capture(ctx context.Context, intentID string) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailCapture {
		return nil, errors.New("payment gateway: capture declined")
	}

	intent, ok := g.intents[intentID]
	if !ok {
		return nil, ErrIntentNotFound
	}

	intent.Status = IntentStatusSucceeded
	return intent, nil
}
