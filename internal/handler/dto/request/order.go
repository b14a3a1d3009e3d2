package request

import (
	"strings"

	"github.com/google/uuid"

	"event-ticketing/internal/usecase/commands"
)

type OrderItemRequest struct {
	TicketTypeID uuid.UUID `json:"ticket_type_id" binding:"required"`
	Quantity     int32     `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	BuyerEmail string             `json:"buyer_email" binding:"required"`
	BuyerName  string             `json:"buyer_name" binding:"required"`
	BuyerPhone *string            `json:"buyer_phone,omitempty"`
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	PromoCode  *string            `json:"promo_code,omitempty"`
}

func (r CreateOrderRequest) ToCommand() commands.CreateOrderCommand {
	items := make([]commands.CreateOrderItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = commands.CreateOrderItem{
			TicketTypeID: item.TicketTypeID,
			Quantity:     item.Quantity,
		}
	}

	var phone string
	if r.BuyerPhone != nil {
		phone = strings.TrimSpace(*r.BuyerPhone)
	}

	return commands.CreateOrderCommand{
		BuyerEmail: strings.TrimSpace(r.BuyerEmail),
		BuyerName:  strings.TrimSpace(r.BuyerName),
		BuyerPhone: phone,
		Items:      items,
		PromoCode:  r.GetPromoCode(),
	}
}

func (r CreateOrderRequest) GetPromoCode() *string {
	if r.PromoCode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*r.PromoCode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type RefundOrderRequest struct {
	// AmountCents omitted or zero requests a full refund.
	AmountCents int64  `json:"amount_cents" binding:"omitempty,gt=0"`
	Reason      string `json:"reason,omitempty"`
}
