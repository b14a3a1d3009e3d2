package commands

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"event-ticketing/internal/domain/order"
	"event-ticketing/internal/infra"
	"event-ticketing/internal/pkg/errs"
	"event-ticketing/internal/usecase/shared"
)

var (
	ErrOrderNotRefundable = errs.New("order is not refundable")
	ErrRefundExceedsTotal = errs.New("refund amount exceeds order total")
	ErrRefundRejected     = errs.New("gateway rejected the refund")
)

type RefundCommand struct {
	OrderID uuid.UUID
	// AmountCents of zero means a full refund.
	AmountCents int64
	Reason      string
}

type RefundOutcome struct {
	RefundID    string
	AmountCents int64
	IsPartial   bool
}

type RefundCommands interface {
	Refund(ctx context.Context, cmd RefundCommand) (*RefundOutcome, error)
}

type refundCommandsImpl struct {
	uow     shared.UnitOfWork
	gateway PaymentGateway
}

func NewRefundCommands(uow shared.UnitOfWork, gateway PaymentGateway) RefundCommands {
	return &refundCommandsImpl{uow: uow, gateway: gateway}
}

// Refund validates preconditions, issues the gateway refund outside any
// transaction, then mirrors the result into the store. A full refund rolls
// sold counts back and cancels attendees; a partial refund only records the
// audit fields.
func (u *refundCommandsImpl) Refund(ctx context.Context, cmd RefundCommand) (*RefundOutcome, error) {
	var (
		snapshot  *order.Order
		amount    int64
		isPartial bool
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().FindByIDForUpdate(ctx, cmd.OrderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrOrderNotFound
			}
			return errs.Mark(err, ErrDatabaseOperation)
		}
		amount, isPartial, err = o.RefundableAmount(cmd.AmountCents)
		if err != nil {
			switch {
			case errors.Is(err, order.ErrRefundExceedsTotal):
				return ErrRefundExceedsTotal
			default:
				return errs.Mark(err, ErrOrderNotRefundable)
			}
		}
		snapshot = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	refundResult, err := u.gateway.CreateRefund(ctx, RefundRequest{
		GatewayPaymentID: snapshot.GatewayPaymentID(),
		AmountCents:      amount,
		Reason:           cmd.Reason,
	})
	if err != nil {
		return nil, errs.Mark(err, ErrRefundRejected)
	}

	refund := order.Refund{
		ID:          refundResult.ID,
		AmountCents: amount,
		Reason:      cmd.Reason,
		IsPartial:   isPartial,
	}

	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if isPartial {
			if err := tx.Orders().RecordPartialRefund(ctx, cmd.OrderID, refund); err != nil {
				if errors.Is(err, shared.ErrStaleTransition) {
					return ErrOrderNotRefundable
				}
				return errs.Mark(err, ErrDatabaseOperation)
			}
			return nil
		}

		if err := tx.Orders().MarkRefunded(ctx, cmd.OrderID, refund); err != nil {
			if errors.Is(err, shared.ErrStaleTransition) {
				return ErrOrderNotRefundable
			}
			return errs.Mark(err, ErrDatabaseOperation)
		}
		for _, item := range snapshot.Items() {
			if err := tx.Inventory().RollbackSold(ctx, item.TicketTypeID(), item.Quantity()); err != nil {
				return errs.Mark(err, ErrDatabaseOperation)
			}
		}
		if _, err := tx.Attendees().CancelByOrderID(ctx, cmd.OrderID); err != nil {
			return errs.Mark(err, ErrDatabaseOperation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RefundOutcome{RefundID: refund.ID, AmountCents: amount, IsPartial: isPartial}, nil
}
