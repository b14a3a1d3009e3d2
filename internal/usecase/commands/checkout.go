package commands

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"event-ticketing/internal/domain/order"
	"event-ticketing/internal/infra"
	"event-ticketing/internal/pkg/clock"
	"event-ticketing/internal/pkg/config"
	"event-ticketing/internal/pkg/errs"
	"event-ticketing/internal/usecase/shared"
)

var (
	ErrOrderNotFound      = errs.New("order not found")
	ErrOrderNotPayable    = errs.New("order is not awaiting payment")
	ErrOrderExpired       = errs.New("order reservation has expired")
	ErrGatewayUnavailable = errs.New("payment gateway request failed")
)

type CheckoutSessionResult struct {
	SessionID string
	URL       string
}

type CheckoutCommands interface {
	CreateCheckoutSession(ctx context.Context, orderID uuid.UUID) (*CheckoutSessionResult, error)
}

type checkoutCommandsImpl struct {
	uow     shared.UnitOfWork
	gateway PaymentGateway
	clock   clock.Clock
	payment config.PaymentConfig
}

func NewCheckoutCommands(uow shared.UnitOfWork, gateway PaymentGateway, clk clock.Clock, cfg config.Config) CheckoutCommands {
	return &checkoutCommandsImpl{
		uow:     uow,
		gateway: gateway,
		clock:   clk,
		payment: cfg.Payment,
	}
}

// CreateCheckoutSession is idempotent: while a previously created session is
// still open it is returned as-is. The gateway call runs outside any database
// transaction so row locks are never held across the network.
func (u *checkoutCommandsImpl) CreateCheckoutSession(ctx context.Context, orderID uuid.UUID) (*CheckoutSessionResult, error) {
	now := u.clock.Now()

	var (
		existing *CheckoutSessionResult
		snapshot *order.Order
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrOrderNotFound
			}
			return errs.Mark(err, ErrDatabaseOperation)
		}
		switch o.Status() {
		case order.StatusPending, order.StatusProcessing:
		default:
			return ErrOrderNotPayable
		}
		if o.Status() == order.StatusPending && o.HasExpired(now) {
			// The sweeper will release the hold shortly; a new order is
			// required rather than reviving this one.
			return ErrOrderExpired
		}
		if o.HasOpenSession(now) {
			existing = &CheckoutSessionResult{SessionID: o.GatewaySessionID(), URL: o.SessionURL()}
			return nil
		}
		snapshot = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	session, err := u.gateway.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		OrderID:       snapshot.ID(),
		OrderNumber:   snapshot.OrderNumber(),
		AmountCents:   snapshot.Breakdown().TotalCents,
		Currency:      snapshot.Currency(),
		CustomerEmail: snapshot.Buyer().Email(),
		SuccessURL:    u.payment.SuccessURL,
		CancelURL:     u.payment.CancelURL,
		ExpiresAt:     snapshot.ExpiresAt(),
	})
	if err != nil {
		// Order stays pending; the buyer can retry.
		return nil, errs.Mark(err, ErrGatewayUnavailable)
	}

	var result *CheckoutSessionResult
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrOrderNotFound
			}
			return errs.Mark(err, ErrDatabaseOperation)
		}
		// A concurrent call may have attached its own session first; the
		// open one wins and ours is left to expire at the gateway.
		if o.HasOpenSession(u.clock.Now()) {
			result = &CheckoutSessionResult{SessionID: o.GatewaySessionID(), URL: o.SessionURL()}
			return nil
		}
		if err := tx.Orders().AttachSession(ctx, orderID, session.ID, session.URL, session.ExpiresAt); err != nil {
			if errors.Is(err, shared.ErrStaleTransition) {
				return ErrOrderNotPayable
			}
			return errs.Mark(err, ErrDatabaseOperation)
		}
		result = &CheckoutSessionResult{SessionID: session.ID, URL: session.URL}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
