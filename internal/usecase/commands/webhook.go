package commands

import (
	"context"
	"errors"
	"log/slog"

	"event-ticketing/internal/domain/attendee"
	"event-ticketing/internal/domain/order"
	"event-ticketing/internal/infra"
	"event-ticketing/internal/pkg/clock"
	"event-ticketing/internal/pkg/errs"
	"event-ticketing/internal/usecase/shared"
)

var ErrMissingEventID = errs.New("gateway event id is required")

// WebhookOutcome tells the handler how the event was absorbed; all three are
// acknowledged with 200 so the gateway stops retrying.
type WebhookOutcome string

const (
	OutcomeApplied   WebhookOutcome = "applied"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeIgnored   WebhookOutcome = "ignored"
)

type WebhookCommands interface {
	HandleEvent(ctx context.Context, evt GatewayEvent) (WebhookOutcome, error)
}

type webhookCommandsImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewWebhookCommands(uow shared.UnitOfWork, clk clock.Clock) WebhookCommands {
	return &webhookCommandsImpl{uow: uow, clock: clk}
}

// HandleEvent implements the idempotency contract: the event id is durably
// recorded in its own committed transaction before any order lookup, so a
// duplicate delivery is detected regardless of retry timing. The transition
// itself then runs in a second transaction under a row lock.
func (u *webhookCommandsImpl) HandleEvent(ctx context.Context, evt GatewayEvent) (WebhookOutcome, error) {
	if evt.ID == "" {
		return "", ErrMissingEventID
	}

	var claimed bool
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		claimed, err = tx.WebhookEvents().Claim(ctx, evt.ID, evt.Type, evt.Payload, u.clock.Now())
		return err
	})
	if err != nil {
		return "", errs.Mark(err, ErrDatabaseOperation)
	}
	if !claimed {
		slog.Info("duplicate webhook delivery skipped", "event_id", evt.ID, "type", evt.Type)
		return OutcomeDuplicate, nil
	}

	outcome := OutcomeApplied
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().FindByGatewayRefForUpdate(ctx, evt.SessionID, evt.PaymentID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				slog.Warn("webhook references unknown order",
					"event_id", evt.ID, "type", evt.Type, "session_id", evt.SessionID)
				outcome = OutcomeIgnored
				return nil
			}
			return errs.Mark(err, ErrDatabaseOperation)
		}

		switch evt.Type {
		case EventCheckoutCompleted:
			return u.applyCompleted(ctx, tx, o, evt, &outcome)
		case EventCheckoutFailed:
			return u.applyRelease(ctx, tx, o, evt, order.StatusFailed, &outcome)
		case EventCheckoutExpired:
			return u.applyRelease(ctx, tx, o, evt, order.StatusCancelled, &outcome)
		case EventPaymentRefunded:
			return u.applyGatewayRefund(ctx, tx, o, evt, &outcome)
		default:
			slog.Warn("unhandled webhook event type", "event_id", evt.ID, "type", evt.Type)
			outcome = OutcomeIgnored
			return nil
		}
	})
	if err != nil {
		// The claim committed in its own transaction, so the gateway's
		// redelivery would look like a duplicate. Undo the claim so the
		// retry is processed.
		releaseErr := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return tx.WebhookEvents().Release(ctx, evt.ID)
		})
		if releaseErr != nil {
			slog.Error("failed to release webhook claim after processing error",
				"event_id", evt.ID, "error", releaseErr)
		}
		return "", err
	}
	return outcome, nil
}

func (u *webhookCommandsImpl) applyCompleted(ctx context.Context, tx shared.Tx, o *order.Order, evt GatewayEvent, outcome *WebhookOutcome) error {
	if err := tx.Orders().MarkCompleted(ctx, o.ID(), evt.PaymentID, u.clock.Now()); err != nil {
		if errors.Is(err, shared.ErrStaleTransition) {
			slog.Info("completed event for already-settled order ignored",
				"event_id", evt.ID, "order_id", o.ID(), "status", o.Status())
			*outcome = OutcomeIgnored
			return nil
		}
		return errs.Mark(err, ErrDatabaseOperation)
	}

	var attendees []*attendee.Attendee
	for _, item := range o.Items() {
		if err := tx.Inventory().ConvertReservedToSold(ctx, item.TicketTypeID(), item.Quantity()); err != nil {
			return errs.Mark(err, ErrDatabaseOperation)
		}
		for i := int32(0); i < item.Quantity(); i++ {
			attendees = append(attendees, attendee.New(
				o.ID(), o.OrderNumber(), o.EventID(), item.TicketTypeID(),
				o.Buyer().Email(), o.Buyer().Name(),
			))
		}
	}
	if err := tx.Attendees().CreateBatch(ctx, attendees); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}
	return nil
}

func (u *webhookCommandsImpl) applyRelease(ctx context.Context, tx shared.Tx, o *order.Order, evt GatewayEvent, to order.Status, outcome *WebhookOutcome) error {
	var err error
	if to == order.StatusFailed {
		err = tx.Orders().MarkFailed(ctx, o.ID())
	} else {
		err = tx.Orders().MarkCancelled(ctx, o.ID())
	}
	if err != nil {
		if errors.Is(err, shared.ErrStaleTransition) {
			slog.Info("release event for already-settled order ignored",
				"event_id", evt.ID, "order_id", o.ID(), "status", o.Status())
			*outcome = OutcomeIgnored
			return nil
		}
		return errs.Mark(err, ErrDatabaseOperation)
	}

	for _, item := range o.Items() {
		if err := tx.Inventory().ReleaseReserved(ctx, item.TicketTypeID(), item.Quantity()); err != nil {
			return errs.Mark(err, ErrDatabaseOperation)
		}
	}
	return nil
}

// applyGatewayRefund mirrors the refund coordinator for refunds initiated at
// the gateway (e.g. a dispute resolved in the buyer's favor).
func (u *webhookCommandsImpl) applyGatewayRefund(ctx context.Context, tx shared.Tx, o *order.Order, evt GatewayEvent, outcome *WebhookOutcome) error {
	if o.Status() != order.StatusCompleted {
		slog.Info("refund event for non-completed order ignored",
			"event_id", evt.ID, "order_id", o.ID(), "status", o.Status())
		*outcome = OutcomeIgnored
		return nil
	}

	amount := evt.AmountCents
	if amount <= 0 || amount > o.Breakdown().TotalCents {
		amount = o.Breakdown().TotalCents
	}
	// The gateway's refund reference is the durable audit handle; the event
	// id only stands in when the payload omits one.
	refundID := evt.RefundID
	if refundID == "" {
		refundID = evt.ID
	}
	refund := order.Refund{
		ID:          refundID,
		AmountCents: amount,
		Reason:      "gateway-initiated refund",
		IsPartial:   amount < o.Breakdown().TotalCents,
	}

	if refund.IsPartial {
		if err := tx.Orders().RecordPartialRefund(ctx, o.ID(), refund); err != nil {
			if errors.Is(err, shared.ErrStaleTransition) {
				*outcome = OutcomeIgnored
				return nil
			}
			return errs.Mark(err, ErrDatabaseOperation)
		}
		return nil
	}

	if err := tx.Orders().MarkRefunded(ctx, o.ID(), refund); err != nil {
		if errors.Is(err, shared.ErrStaleTransition) {
			*outcome = OutcomeIgnored
			return nil
		}
		return errs.Mark(err, ErrDatabaseOperation)
	}
	for _, item := range o.Items() {
		if err := tx.Inventory().RollbackSold(ctx, item.TicketTypeID(), item.Quantity()); err != nil {
			return errs.Mark(err, ErrDatabaseOperation)
		}
	}
	if _, err := tx.Attendees().CancelByOrderID(ctx, o.ID()); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}
	return nil
}
