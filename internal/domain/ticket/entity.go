package ticket

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInactive          = errors.New("ticket type is not on sale")
	ErrSalesNotStarted   = errors.New("ticket sales have not started")
	ErrSalesEnded        = errors.New("ticket sales have ended")
	ErrExceedsMaxPerOrder = errors.New("quantity exceeds the per-order limit")
	ErrSoldOut           = errors.New("ticket type is sold out")
	ErrNegativeCounter   = errors.New("inventory counters cannot be negative")
)

// InsufficientError reports the exact number of tickets still available when
// a request asks for more than that.
type InsufficientError struct {
	TicketTypeID uuid.UUID
	Requested    int32
	Remaining    int32
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("only %d tickets remaining (requested %d)", e.Remaining, e.Requested)
}

// TicketType is a snapshot of one inventory row. The authoritative counters
// live in the database; this entity evaluates sale rules against a snapshot
// taken under a row lock.
type TicketType struct {
	id          uuid.UUID
	eventID     uuid.UUID
	name        string
	priceCents  int64
	currency    string
	capacity    *int32
	sold        int32
	reserved    int32
	maxPerOrder int32
	salesStart  *time.Time
	salesEnd    *time.Time
	isActive    bool
}

func Reconstruct(
	id, eventID uuid.UUID,
	name string,
	priceCents int64,
	currency string,
	capacity *int32,
	sold, reserved, maxPerOrder int32,
	salesStart, salesEnd *time.Time,
	isActive bool,
) (*TicketType, error) {
	if sold < 0 || reserved < 0 {
		return nil, ErrNegativeCounter
	}
	return &TicketType{
		id:          id,
		eventID:     eventID,
		name:        name,
		priceCents:  priceCents,
		currency:    currency,
		capacity:    capacity,
		sold:        sold,
		reserved:    reserved,
		maxPerOrder: maxPerOrder,
		salesStart:  salesStart,
		salesEnd:    salesEnd,
		isActive:    isActive,
	}, nil
}

// Remaining returns how many tickets can still be reserved, or nil when
// capacity is unlimited.
func (t *TicketType) Remaining() *int32 {
	if t.capacity == nil {
		return nil
	}
	remaining := *t.capacity - t.sold - t.reserved
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// CanSell applies every per-line-item sale rule in order: active flag, sales
// window, per-order limit, then availability.
func (t *TicketType) CanSell(quantity int32, now time.Time) error {
	if !t.isActive {
		return ErrInactive
	}
	if t.salesStart != nil && now.Before(*t.salesStart) {
		return ErrSalesNotStarted
	}
	if t.salesEnd != nil && now.After(*t.salesEnd) {
		return ErrSalesEnded
	}
	if t.maxPerOrder > 0 && quantity > t.maxPerOrder {
		return ErrExceedsMaxPerOrder
	}
	if remaining := t.Remaining(); remaining != nil && quantity > *remaining {
		if *remaining == 0 {
			return ErrSoldOut
		}
		return &InsufficientError{TicketTypeID: t.id, Requested: quantity, Remaining: *remaining}
	}
	return nil
}

func (t *TicketType) ID() uuid.UUID          { return t.id }
func (t *TicketType) EventID() uuid.UUID     { return t.eventID }
func (t *TicketType) Name() string           { return t.name }
func (t *TicketType) PriceCents() int64      { return t.priceCents }
func (t *TicketType) Currency() string       { return t.currency }
func (t *TicketType) Capacity() *int32       { return t.capacity }
func (t *TicketType) Sold() int32            { return t.sold }
func (t *TicketType) Reserved() int32        { return t.reserved }
func (t *TicketType) MaxPerOrder() int32     { return t.maxPerOrder }
func (t *TicketType) SalesStart() *time.Time { return t.salesStart }
func (t *TicketType) SalesEnd() *time.Time   { return t.salesEnd }
func (t *TicketType) IsActive() bool         { return t.isActive }
