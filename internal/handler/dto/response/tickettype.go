package response

import (
	"time"

	"github.com/google/uuid"

	"event-ticketing/internal/usecase/queries"
)

type TicketTypeResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	PriceCents  int64      `json:"priceCents"`
	Currency    string     `json:"currency"`
	Capacity    *int32     `json:"capacity,omitempty"`
	Remaining   *int32     `json:"remaining,omitempty"`
	MaxPerOrder int32      `json:"maxPerOrder"`
	SalesStart  *time.Time `json:"salesStart,omitempty"`
	SalesEnd    *time.Time `json:"salesEnd,omitempty"`
	IsActive    bool       `json:"isActive"`
}

func FromTicketTypeView(v *queries.TicketTypeView) *TicketTypeResponse {
	return &TicketTypeResponse{
		ID:          v.ID,
		Name:        v.Name,
		PriceCents:  v.PriceCents,
		Currency:    v.Currency,
		Capacity:    v.Capacity,
		Remaining:   v.Remaining,
		MaxPerOrder: v.MaxPerOrder,
		SalesStart:  v.SalesStart,
		SalesEnd:    v.SalesEnd,
		IsActive:    v.IsActive,
	}
}
