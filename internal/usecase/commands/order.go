package commands

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"event-ticketing/internal/domain/order"
	"event-ticketing/internal/domain/promo"
	"event-ticketing/internal/domain/ticket"
	"event-ticketing/internal/infra"
	"event-ticketing/internal/pkg/clock"
	"event-ticketing/internal/pkg/config"
	"event-ticketing/internal/pkg/errs"
	"event-ticketing/internal/usecase/shared"
)

var (
	ErrInvalidEmail          = errs.New("invalid buyer email address")
	ErrEmptyItems            = errs.New("order must contain at least one item")
	ErrInvalidQuantity       = errs.New("item quantity must be positive")
	ErrTicketTypeNotFound    = errs.New("ticket type not found")
	ErrTicketTypeInactive    = errs.New("ticket type is not on sale")
	ErrOutsideSalesWindow    = errs.New("ticket type is outside its sales window")
	ErrExceedsMaxPerOrder    = errs.New("quantity exceeds the per-order limit")
	ErrSoldOut               = errs.New("ticket type is sold out")
	ErrInsufficientInventory = errs.New("not enough tickets remaining")
	ErrMixedEvents           = errs.New("all items must belong to the same event")
	ErrPromoNotFound         = errs.New("promo code not found")
	ErrPromoInactive         = errs.New("promo code is inactive")
	ErrPromoNotYetValid      = errs.New("promo code is not yet valid")
	ErrPromoExpired          = errs.New("promo code has expired")
	ErrPromoExhausted        = errs.New("promo code has reached its usage limit")
	ErrDatabaseOperation     = errs.New("database operation failed")
)

type CreateOrderItem struct {
	TicketTypeID uuid.UUID
	Quantity     int32
}

type CreateOrderCommand struct {
	BuyerEmail string
	BuyerName  string
	BuyerPhone string
	Items      []CreateOrderItem
	PromoCode  *string
}

type CreateOrderResult struct {
	OrderID     uuid.UUID
	OrderNumber string
	Breakdown   order.Breakdown
	Currency    string
	ExpiresAt   time.Time
}

type OrderCommands interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error)
}

type orderCommandsImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
	cfg   config.TicketingConfig
}

func NewOrderCommands(uow shared.UnitOfWork, clk clock.Clock, cfg config.Config) OrderCommands {
	return &orderCommandsImpl{
		uow:   uow,
		clock: clk,
		cfg:   cfg.Ticketing,
	}
}

// CreateOrder validates every line item and reserves inventory as one atomic
// unit: ticket-type rows are locked up front, so two buyers racing for the
// last ticket serialize and exactly one succeeds. Nothing is reserved unless
// the whole order validates.
func (u *orderCommandsImpl) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	buyer, err := order.NewBuyer(cmd.BuyerEmail, cmd.BuyerName, cmd.BuyerPhone)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidEmail)
	}

	lines, err := mergeItems(cmd.Items)
	if err != nil {
		return nil, err
	}

	now := u.clock.Now()

	var result *CreateOrderResult
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.TicketTypeID)
		}

		types, err := tx.Inventory().LockForOrder(ctx, ids)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperation)
		}
		byID := make(map[uuid.UUID]*ticket.TicketType, len(types))
		for _, t := range types {
			byID[t.ID()] = t
		}

		var (
			eventID  uuid.UUID
			currency string
			items    []order.Item
			subtotal int64
		)
		for _, line := range lines {
			t, ok := byID[line.TicketTypeID]
			if !ok {
				return ErrTicketTypeNotFound
			}
			if eventID == uuid.Nil {
				eventID = t.EventID()
				currency = t.Currency()
			} else if t.EventID() != eventID {
				return ErrMixedEvents
			}

			if err := t.CanSell(line.Quantity, now); err != nil {
				return mapSaleError(err)
			}

			item, err := order.NewItem(t.ID(), line.Quantity, t.PriceCents())
			if err != nil {
				return errs.Mark(err, ErrInvalidQuantity)
			}
			items = append(items, item)
			subtotal += item.SubtotalCents()
		}

		var (
			discount    int64
			promoCodeID *uuid.UUID
		)
		if cmd.PromoCode != nil && *cmd.PromoCode != "" {
			code, err := tx.Promos().FindByCodeForUpdate(ctx, eventID, promo.Normalize(*cmd.PromoCode))
			if err != nil {
				if infra.IsKind(err, infra.KindNotFound) {
					return ErrPromoNotFound
				}
				return errs.Mark(err, ErrDatabaseOperation)
			}
			if err := code.ValidateUsage(now); err != nil {
				return mapPromoError(err)
			}
			discount = code.DiscountFor(subtotal)
			id := code.ID()
			promoCodeID = &id
		}

		breakdown := order.ComputeBreakdown(items, discount, u.cfg.PlatformFeeRateBps)

		o, err := order.NewOrder(eventID, buyer, items, breakdown, currency, promoCodeID, now, u.cfg.ReservationWindow)
		if err != nil {
			return errs.Mark(err, ErrEmptyItems)
		}

		if err := createWithNumberRetry(ctx, tx, o, func() (*order.Order, error) {
			return order.NewOrder(eventID, buyer, items, breakdown, currency, promoCodeID, now, u.cfg.ReservationWindow)
		}); err != nil {
			return errs.Mark(err, ErrDatabaseOperation)
		}

		// Reservation increments happen only after every line item
		// validated; the SQL predicate re-checks capacity as a belt.
		for _, item := range items {
			if err := tx.Inventory().Reserve(ctx, item.TicketTypeID(), item.Quantity()); err != nil {
				if infra.IsKind(err, infra.KindConflict) {
					return ErrInsufficientInventory
				}
				return errs.Mark(err, ErrDatabaseOperation)
			}
		}

		// used_count moves in the same transaction as the reservation, so a
		// failed order leaves no half-applied discount.
		if promoCodeID != nil {
			if err := tx.Promos().IncrementUsage(ctx, *promoCodeID); err != nil {
				if infra.IsKind(err, infra.KindConflict) {
					return ErrPromoExhausted
				}
				return errs.Mark(err, ErrDatabaseOperation)
			}
		}

		result = &CreateOrderResult{
			OrderID:     o.ID(),
			OrderNumber: o.OrderNumber(),
			Breakdown:   o.Breakdown(),
			Currency:    o.Currency(),
			ExpiresAt:   o.ExpiresAt(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// createWithNumberRetry retries exactly once with a freshly generated order
// number on a collision. Create reports the collision as a duplicate-key
// repository error without poisoning the transaction, so the second insert
// runs on a healthy connection.
func createWithNumberRetry(ctx context.Context, tx shared.Tx, o *order.Order, rebuild func() (*order.Order, error)) error {
	err := tx.Orders().Create(ctx, o)
	if err == nil || !infra.IsKind(err, infra.KindDuplicateKey) {
		return err
	}
	retry, buildErr := rebuild()
	if buildErr != nil {
		return buildErr
	}
	*o = *retry
	return tx.Orders().Create(ctx, o)
}

func mergeItems(items []CreateOrderItem) ([]CreateOrderItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	merged := make([]CreateOrderItem, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if i, ok := index[item.TicketTypeID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.TicketTypeID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func mapSaleError(err error) error {
	var insufficient *ticket.InsufficientError
	switch {
	case errors.Is(err, ticket.ErrInactive):
		return ErrTicketTypeInactive
	case errors.Is(err, ticket.ErrSalesNotStarted), errors.Is(err, ticket.ErrSalesEnded):
		return errs.Mark(err, ErrOutsideSalesWindow)
	case errors.Is(err, ticket.ErrExceedsMaxPerOrder):
		return ErrExceedsMaxPerOrder
	case errors.Is(err, ticket.ErrSoldOut):
		return ErrSoldOut
	case errors.As(err, &insufficient):
		// Keep the typed error reachable so the handler can surface the
		// exact remaining count.
		return errs.Mark(err, ErrInsufficientInventory)
	default:
		return err
	}
}

func mapPromoError(err error) error {
	switch {
	case errors.Is(err, promo.ErrInactive):
		return ErrPromoInactive
	case errors.Is(err, promo.ErrNotYetValid):
		return ErrPromoNotYetValid
	case errors.Is(err, promo.ErrExpired):
		return ErrPromoExpired
	case errors.Is(err, promo.ErrExhausted):
		return ErrPromoExhausted
	default:
		return err
	}
}
