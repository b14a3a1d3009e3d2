//go:build unit

package api_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"event-ticketing/internal/handler/api"
	resdto "event-ticketing/internal/handler/dto/response"
	"event-ticketing/internal/usecase/queries"
	"event-ticketing/tests/common/httptest"
	queriesmock "event-ticketing/tests/mock/queries"
)

type TicketTypeHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockCtrl    *gomock.Controller
	mockQueries *queriesmock.MockTicketTypeQueries
	handler     *api.TicketTypeHandler
}

func (s *TicketTypeHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockQueries = queriesmock.NewMockTicketTypeQueries(s.mockCtrl)
	s.handler = api.NewTicketTypeHandler(s.mockQueries)

	s.router.GET("/events/:eventId/ticket-types", s.handler.ListEventTicketTypes)
}

func (s *TicketTypeHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestTicketTypeHandlerSuite(t *testing.T) {
	suite.Run(t, new(TicketTypeHandlerTestSuite))
}

func (s *TicketTypeHandlerTestSuite) TestListEventTicketTypes() {
	eventID := uuid.New()
	url := "/events/" + eventID.String() + "/ticket-types"

	capacity := int32(100)
	remaining := int32(37)
	salesEnd := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	views := []*queries.TicketTypeView{
		{
			ID:          uuid.New(),
			EventID:     eventID,
			Name:        "General Admission",
			PriceCents:  2500,
			Currency:    "USD",
			Capacity:    &capacity,
			Remaining:   &remaining,
			MaxPerOrder: 10,
			SalesEnd:    &salesEnd,
			IsActive:    true,
		},
		{
			ID:         uuid.New(),
			EventID:    eventID,
			Name:       "Livestream",
			PriceCents: 1000,
			Currency:   "USD",
			IsActive:   true,
		},
	}

	s.Run("success: returns 200 OK with availability", func() {
		s.mockQueries.EXPECT().ListByEvent(gomock.Any(), eventID).
			Return(views, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")

		var response []resdto.TicketTypeResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Require().Len(response, 2)
		s.Equal("General Admission", response[0].Name)
		s.Require().NotNil(response[0].Remaining)
		s.Equal(int32(37), *response[0].Remaining)
		// Unlimited capacity reports no remaining count.
		s.Nil(response[1].Remaining)
	})

	s.Run("error: 400 Bad Request for invalid event ID", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/events/not-a-uuid/ticket-types", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid event ID")
	})

	s.Run("error: 500 on read failure", func() {
		s.mockQueries.EXPECT().ListByEvent(gomock.Any(), eventID).
			Return(nil, errors.New("database error")).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusInternalServerError, "Internal server error")
	})
}
