package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"event-ticketing/internal/infra"
	"event-ticketing/internal/pkg/errs"
)

var (
	ErrOrderNotFound = errs.New("order not found")
	ErrInvalidCursor = errs.New("invalid pagination cursor")
)

type orderQueriesImpl struct {
	readStore OrderReadStore
}

func NewOrderQueries(readStore OrderReadStore) OrderQueries {
	return &orderQueriesImpl{readStore: readStore}
}

func (q *orderQueriesImpl) GetByNumber(ctx context.Context, orderNumber string) (*OrderView, error) {
	view, err := q.readStore.FindByNumber(ctx, orderNumber)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errs.Wrap(err, "failed to find order by number")
	}
	return view, nil
}

func (q *orderQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*OrderView, error) {
	view, err := q.readStore.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errs.Wrap(err, "failed to find order by id")
	}
	return view, nil
}

func (q *orderQueriesImpl) ListByEvent(ctx context.Context, eventID uuid.UUID, status *string, after *Cursor, limit int) ([]*OrderListItem, *Cursor, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	var (
		items []*OrderListItem
		err   error
	)
	if after == nil || after.After == "" {
		items, err = q.readStore.ListByEventFirstPage(ctx, eventID, status, int32(limit)+1)
	} else {
		var lastCreatedAt time.Time
		var lastID uuid.UUID
		lastCreatedAt, lastID, err = DecodeAfterCursor(after.After)
		if err != nil {
			return nil, nil, errs.Mark(err, ErrInvalidCursor)
		}
		items, err = q.readStore.ListByEventKeyset(ctx, eventID, status, lastCreatedAt, lastID, int32(limit)+1)
	}
	if err != nil {
		return nil, nil, errs.Wrap(err, "failed to list orders by event")
	}

	var next *Cursor
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		next = &Cursor{After: EncodeAfterCursor(last.CreatedAt, last.ID)}
	}
	return items, next, nil
}

type ticketTypeQueriesImpl struct {
	readStore TicketTypeReadStore
}

func NewTicketTypeQueries(readStore TicketTypeReadStore) TicketTypeQueries {
	return &ticketTypeQueriesImpl{readStore: readStore}
}

func (q *ticketTypeQueriesImpl) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*TicketTypeView, error) {
	views, err := q.readStore.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list ticket types by event")
	}
	return views, nil
}
