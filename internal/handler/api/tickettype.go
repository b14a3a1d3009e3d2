package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	resdto "event-ticketing/internal/handler/dto/response"
	"event-ticketing/internal/handler/httperr"
	"event-ticketing/internal/usecase/queries"
)

type TicketTypeHandler struct {
	ticketTypeQueries queries.TicketTypeQueries
}

func NewTicketTypeHandler(ticketTypeQueries queries.TicketTypeQueries) *TicketTypeHandler {
	return &TicketTypeHandler{ticketTypeQueries: ticketTypeQueries}
}

// @Summary List event ticket types
// @Description List ticket types for an event with current availability
// @Tags ticket-types
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {array} resdto.TicketTypeResponse
// @Failure 400 {object} httperr.Response
// @Router /events/{eventId}/ticket-types [get]
func (h *TicketTypeHandler) ListEventTicketTypes(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid event ID format", nil)
		return
	}

	views, err := h.ticketTypeQueries.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	response := make([]*resdto.TicketTypeResponse, len(views))
	for i, v := range views {
		response[i] = resdto.FromTicketTypeView(v)
	}

	c.JSON(http.StatusOK, response)
}
