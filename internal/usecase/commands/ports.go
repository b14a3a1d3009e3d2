package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentGateway is the only outbound integration in the ticketing core.
// Calls carry a bounded timeout and are never retried here; callers surface
// gateway errors to the buyer as retryable failures.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

type CheckoutSessionRequest struct {
	OrderID       uuid.UUID
	OrderNumber   string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	// ExpiresAt caps the session at the order's reservation expiry so the
	// gateway cannot collect payment for an already-released hold.
	ExpiresAt time.Time
}

type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt *time.Time
}

type RefundRequest struct {
	GatewayPaymentID string
	AmountCents      int64
	Reason           string
}

type RefundResult struct {
	ID          string
	AmountCents int64
}

// Gateway webhook event types the reconciler understands.
const (
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutFailed    = "checkout.failed"
	EventCheckoutExpired   = "checkout.expired"
	EventPaymentRefunded   = "payment.refunded"
)

// GatewayEvent is one signature-verified webhook notification.
type GatewayEvent struct {
	ID          string
	Type        string
	SessionID   string
	PaymentID   string
	RefundID    string
	AmountCents int64
	Payload     []byte
}
