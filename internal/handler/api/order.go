package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"event-ticketing/internal/domain/ticket"
	reqdto "event-ticketing/internal/handler/dto/request"
	resdto "event-ticketing/internal/handler/dto/response"
	"event-ticketing/internal/handler/httperr"
	"event-ticketing/internal/pkg/config"
	"event-ticketing/internal/usecase/commands"
	"event-ticketing/internal/usecase/queries"
)

type OrderHandler struct {
	orderCommands    commands.OrderCommands
	checkoutCommands commands.CheckoutCommands
	refundCommands   commands.RefundCommands
	orderQueries     queries.OrderQueries
	maxPageSize      int
}

func NewOrderHandler(
	orderCommands commands.OrderCommands,
	checkoutCommands commands.CheckoutCommands,
	refundCommands commands.RefundCommands,
	orderQueries queries.OrderQueries,
	cfg config.Config,
) *OrderHandler {
	return &OrderHandler{
		orderCommands:    orderCommands,
		checkoutCommands: checkoutCommands,
		refundCommands:   refundCommands,
		orderQueries:     orderQueries,
		maxPageSize:      cfg.Ticketing.MaxPageSize,
	}
}

// @Summary Create order
// @Description Reserve tickets and create a pending order
// @Tags orders
// @Accept json
// @Produce json
// @Param request body reqdto.CreateOrderRequest true "Order request"
// @Success 201 {object} resdto.CreateOrderResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req reqdto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	result, err := h.orderCommands.CreateOrder(c.Request.Context(), req.ToCommand())
	if err != nil {
		h.abortCreateOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resdto.FromCreateOrderResult(result))
}

func (h *OrderHandler) abortCreateOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, commands.ErrInvalidEmail),
		errors.Is(err, commands.ErrEmptyItems),
		errors.Is(err, commands.ErrInvalidQuantity):
		httperr.AbortWithError(c, http.StatusBadRequest, err, err.Error(), nil)
	case errors.Is(err, commands.ErrTicketTypeNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Ticket type not found", nil)
	case errors.Is(err, commands.ErrPromoNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Promo code not found", nil)
	case errors.Is(err, commands.ErrInsufficientInventory),
		errors.Is(err, commands.ErrSoldOut):
		httperr.AbortWithError(c, http.StatusConflict, err, "Not enough tickets remaining", insufficientDetail(err))
	case errors.Is(err, commands.ErrPromoExhausted):
		httperr.AbortWithError(c, http.StatusConflict, err, "Promo code has reached its usage limit", nil)
	case errors.Is(err, commands.ErrTicketTypeInactive),
		errors.Is(err, commands.ErrOutsideSalesWindow),
		errors.Is(err, commands.ErrExceedsMaxPerOrder),
		errors.Is(err, commands.ErrMixedEvents),
		errors.Is(err, commands.ErrPromoInactive),
		errors.Is(err, commands.ErrPromoNotYetValid),
		errors.Is(err, commands.ErrPromoExpired):
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, err.Error(), nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	}
}

func insufficientDetail(err error) any {
	var insufficient *ticket.InsufficientError
	if errors.As(err, &insufficient) {
		return gin.H{
			"ticket_type_id": insufficient.TicketTypeID,
			"requested":      insufficient.Requested,
			"remaining":      insufficient.Remaining,
		}
	}
	return nil
}

// @Summary Create checkout session
// @Description Create or reuse a hosted checkout session for a pending order
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.CheckoutSessionResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 410 {object} httperr.Response
// @Failure 502 {object} httperr.Response
// @Router /orders/{id}/checkout [post]
func (h *OrderHandler) CreateCheckoutSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid order ID format", nil)
		return
	}

	result, err := h.checkoutCommands.CreateCheckoutSession(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrOrderNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Order not found", nil)
		case errors.Is(err, commands.ErrOrderExpired):
			httperr.AbortWithError(c, http.StatusGone, err, "Order reservation has expired", nil)
		case errors.Is(err, commands.ErrOrderNotPayable):
			httperr.AbortWithError(c, http.StatusConflict, err, "Order is not awaiting payment", nil)
		case errors.Is(err, commands.ErrGatewayUnavailable):
			httperr.AbortWithError(c, http.StatusBadGateway, err, "Payment gateway unavailable", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromCheckoutSessionResult(result))
}

// @Summary Refund order
// @Description Refund a completed order, fully or partially
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body reqdto.RefundOrderRequest true "Refund request"
// @Success 200 {object} resdto.RefundResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Failure 502 {object} httperr.Response
// @Router /orders/{id}/refund [post]
func (h *OrderHandler) RefundOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid order ID format", nil)
		return
	}

	var req reqdto.RefundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	outcome, err := h.refundCommands.Refund(c.Request.Context(), commands.RefundCommand{
		OrderID:     id,
		AmountCents: req.AmountCents,
		Reason:      req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrOrderNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Order not found", nil)
		case errors.Is(err, commands.ErrOrderNotRefundable):
			httperr.AbortWithError(c, http.StatusConflict, err, "Order is not refundable", nil)
		case errors.Is(err, commands.ErrRefundExceedsTotal):
			httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, "Refund amount exceeds order total", nil)
		case errors.Is(err, commands.ErrRefundRejected):
			httperr.AbortWithError(c, http.StatusBadGateway, err, "Gateway rejected the refund", nil)
		case errors.Is(err, commands.ErrGatewayUnavailable):
			httperr.AbortWithError(c, http.StatusBadGateway, err, "Payment gateway unavailable", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromRefundOutcome(outcome))
}

// @Summary Get order by number
// @Description Look up an order by its public order number
// @Tags orders
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} resdto.OrderResponse
// @Failure 404 {object} httperr.Response
// @Router /orders/by-number/{orderNumber} [get]
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	view, err := h.orderQueries.GetByNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		switch {
		case errors.Is(err, queries.ErrOrderNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Order not found", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromOrderView(view))
}

// @Summary List event orders
// @Description List orders for an event, newest first, with cursor pagination
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param eventId path string true "Event ID"
// @Param status query string false "Filter by payment status"
// @Param cursor query string false "Pagination cursor"
// @Param limit query int false "Page size"
// @Success 200 {object} resdto.OrderListResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Router /events/{eventId}/orders [get]
func (h *OrderHandler) ListEventOrders(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid event ID format", nil)
		return
	}

	var status *string
	if s := c.Query("status"); s != "" {
		status = &s
	}

	var after *queries.Cursor
	if cur := c.Query("cursor"); cur != "" {
		after = &queries.Cursor{After: cur}
	}

	limit := h.maxPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httperr.AbortWithError(c, http.StatusBadRequest, errors.New("invalid limit"), "Invalid limit parameter", nil)
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	items, next, err := h.orderQueries.ListByEvent(c.Request.Context(), eventID, status, after, limit)
	if err != nil {
		switch {
		case errors.Is(err, queries.ErrInvalidCursor):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid pagination cursor", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromOrderList(items, next))
}
