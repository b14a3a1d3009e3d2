//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	resdto "event-ticketing/internal/handler/dto/response"
	"event-ticketing/internal/infra/gateway"
	"event-ticketing/internal/infra/readstore"
	"event-ticketing/internal/infra/uow"
	"event-ticketing/internal/pkg/clock"
	"event-ticketing/internal/pkg/jwt"
	"event-ticketing/internal/worker"
	"event-ticketing/tests/common/dbtest"
	"event-ticketing/tests/common/httptest"
)

type PaymentFlowE2ETestSuite struct {
	SharedSuite
}

func TestPaymentFlowE2E(t *testing.T) {
	suite.Run(t, new(PaymentFlowE2ETestSuite))
}

// seededOrder is one pending order with a single line item, created through
// the public API against freshly seeded inventory.
type seededOrder struct {
	EventID      uuid.UUID
	TicketTypeID uuid.UUID
	OrderID      uuid.UUID
	OrderNumber  string
	TotalCents   int64
}

func (s *PaymentFlowE2ETestSuite) seedOrder(quantity int) seededOrder {
	eventID := dbtest.CreateTestEvent(s.T(), s.DB, "Concert")
	capacity := int32(50)
	ttID := dbtest.CreateTestTicketType(s.T(), s.DB, eventID, dbtest.TicketTypeFixture{
		PriceCents: 2500, Capacity: &capacity,
	})

	rec := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, "/api/orders", map[string]any{
		"buyer_email": "buyer@example.com",
		"buyer_name":  "Jamie Buyer",
		"items": []map[string]any{
			{"ticket_type_id": ttID.String(), "quantity": quantity},
		},
	}, "")

	var created resdto.CreateOrderResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &created)

	return seededOrder{
		EventID:      eventID,
		TicketTypeID: ttID,
		OrderID:      created.OrderID,
		OrderNumber:  created.OrderNumber,
		TotalCents:   created.TotalCents,
	}
}

func (s *PaymentFlowE2ETestSuite) checkout(orderID uuid.UUID) resdto.CheckoutSessionResponse {
	rec := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, "/api/orders/"+orderID.String()+"/checkout", nil, "")
	var session resdto.CheckoutSessionResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &session)
	return session
}

func (s *PaymentFlowE2ETestSuite) deliverWebhook(eventID, eventType, sessionID, paymentID string, amountCents int64) *map[string]string {
	body, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{
			"session_id":   sessionID,
			"payment_id":   paymentID,
			"amount_cents": amountCents,
		},
	})
	s.Require().NoError(err)

	signature := gateway.ComputeSignature(s.Config.Payment.WebhookSecret, time.Now(), body)
	rec := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, "/api/webhooks/payment", body, map[string]string{
		gateway.SignatureHeader: signature,
	})

	var response map[string]string
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
	return &response
}

func (s *PaymentFlowE2ETestSuite) staffToken() string {
	token, err := jwt.NewService(s.Config.JWT.Secret).SignToken(uuid.New(), "staff", time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *PaymentFlowE2ETestSuite) TestCheckout() {
	s.Run("creates a session and reuses it while open", func() {
		o := s.seedOrder(2)
		before := s.Gateway.SessionCalls()

		first := s.checkout(o.OrderID)
		s.NotEmpty(first.SessionID)
		s.Contains(first.CheckoutURL, first.SessionID)
		s.Equal("processing", dbtest.OrderStatus(s.T(), s.DB, o.OrderID))

		second := s.checkout(o.OrderID)
		s.Equal(first.SessionID, second.SessionID)
		// The gateway was only called once; the open session was reused.
		s.Equal(before+1, s.Gateway.SessionCalls())
	})

	s.Run("502 when the gateway is down, order stays payable", func() {
		o := s.seedOrder(1)
		s.Gateway.FailNext()

		rec := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, "/api/orders/"+o.OrderID.String()+"/checkout", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadGateway, "Payment gateway unavailable")
		s.Equal("pending", dbtest.OrderStatus(s.T(), s.DB, o.OrderID))

		// The retry succeeds.
		s.checkout(o.OrderID)
	})

	s.Run("410 for an expired reservation", func() {
		o := s.seedOrder(1)
		dbtest.ExpireOrder(s.T(), s.DB, o.OrderID)

		rec := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, "/api/orders/"+o.OrderID.String()+"/checkout", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusGone, "expired")
	})
}

func (s *PaymentFlowE2ETestSuite) TestWebhookReconciliation() {
	s.Run("checkout.completed settles the order exactly once", func() {
		o := s.seedOrder(2)
		session := s.checkout(o.OrderID)

		outcome := s.deliverWebhook("evt_done_1", "checkout.completed", session.SessionID, "pi_123", o.TotalCents)
		s.Equal("applied", (*outcome)["status"])

		s.Equal("completed", dbtest.OrderStatus(s.T(), s.DB, o.OrderID))
		sold, reserved := dbtest.InventoryCounters(s.T(), s.DB, o.TicketTypeID)
		s.Equal(int32(2), sold)
		s.Equal(int32(0), reserved)
		s.Equal(2, dbtest.AttendeeCount(s.T(), s.DB, o.OrderID, "active"))

		// Redelivery of the same event id is absorbed without side effects.
		outcome = s.deliverWebhook("evt_done_1", "checkout.completed", session.SessionID, "pi_123", o.TotalCents)
		s.Equal("duplicate", (*outcome)["status"])
		s.Equal(2, dbtest.AttendeeCount(s.T(), s.DB, o.OrderID, "active"))
	})

	s.Run("checkout.failed releases the reservation", func() {
		o := s.seedOrder(3)
		session := s.checkout(o.OrderID)

		outcome := s.deliverWebhook("evt_fail_1", "checkout.failed", session.SessionID, "", 0)
		s.Equal("applied", (*outcome)["status"])

		s.Equal("failed", dbtest.OrderStatus(s.T(), s.DB, o.OrderID))
		sold, reserved := dbtest.InventoryCounters(s.T(), s.DB, o.TicketTypeID)
		s.Equal(int32(0), sold)
		s.Equal(int32(0), reserved)
	})

	s.Run("payment.refunded mirrors a gateway-initiated full refund", func() {
		o := s.seedOrder(1)
		session := s.checkout(o.OrderID)
		s.deliverWebhook("evt_done_2", "checkout.completed", session.SessionID, "pi_456", o.TotalCents)

		body, err := json.Marshal(map[string]any{
			"id":   "evt_refund_1",
			"type": "payment.refunded",
			"data": map[string]any{
				"payment_id":   "pi_456",
				"refund_id":    "re_gateway_1",
				"amount_cents": o.TotalCents,
			},
		})
		s.Require().NoError(err)
		signature := gateway.ComputeSignature(s.Config.Payment.WebhookSecret, time.Now(), body)
		rec := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, "/api/webhooks/payment", body, map[string]string{
			gateway.SignatureHeader: signature,
		})
		var outcome map[string]string
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &outcome)
		s.Equal("applied", outcome["status"])

		s.Equal("refunded", dbtest.OrderStatus(s.T(), s.DB, o.OrderID))
		s.Equal("re_gateway_1", dbtest.OrderRefundRef(s.T(), s.DB, o.OrderID))
		sold, _ := dbtest.InventoryCounters(s.T(), s.DB, o.TicketTypeID)
		s.Equal(int32(0), sold)
		s.Equal(1, dbtest.AttendeeCount(s.T(), s.DB, o.OrderID, "cancelled"))
	})

	s.Run("event for an unknown session is acknowledged as ignored", func() {
		outcome := s.deliverWebhook("evt_orphan_1", "checkout.completed", "cs_unknown", "pi_unknown", 1000)
		s.Equal("ignored", (*outcome)["status"])
	})

	s.Run("401 for an unsigned delivery", func() {
		body := []byte(`{"id":"evt_x","type":"checkout.completed","data":{}}`)
		rec := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, "/api/webhooks/payment", body, nil)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Invalid webhook signature")
	})
}

func (s *PaymentFlowE2ETestSuite) TestRefund() {
	s.Run("full refund rolls back sold inventory and cancels attendees", func() {
		o := s.seedOrder(2)
		session := s.checkout(o.OrderID)
		s.deliverWebhook("evt_done_3", "checkout.completed", session.SessionID, "pi_789", o.TotalCents)

		rec := httptest.PerformRequest(s.T(), s.Router, http.MethodPost,
			"/api/orders/"+o.OrderID.String()+"/refund", map[string]any{}, s.staffToken())

		var response resdto.RefundResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal(o.TotalCents, response.AmountCents)
		s.False(response.IsPartial)

		s.Equal("refunded", dbtest.OrderStatus(s.T(), s.DB, o.OrderID))
		sold, _ := dbtest.InventoryCounters(s.T(), s.DB, o.TicketTypeID)
		s.Equal(int32(0), sold)
		s.Equal(2, dbtest.AttendeeCount(s.T(), s.DB, o.OrderID, "cancelled"))
	})

	s.Run("partial refund keeps the order completed", func() {
		o := s.seedOrder(2)
		session := s.checkout(o.OrderID)
		s.deliverWebhook("evt_done_4", "checkout.completed", session.SessionID, "pi_790", o.TotalCents)

		rec := httptest.PerformRequest(s.T(), s.Router, http.MethodPost,
			"/api/orders/"+o.OrderID.String()+"/refund",
			map[string]any{"amount_cents": 1000, "reason": "goodwill"}, s.staffToken())

		var response resdto.RefundResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal(int64(1000), response.AmountCents)
		s.True(response.IsPartial)

		s.Equal("completed", dbtest.OrderStatus(s.T(), s.DB, o.OrderID))
		sold, _ := dbtest.InventoryCounters(s.T(), s.DB, o.TicketTypeID)
		s.Equal(int32(2), sold)
		s.Equal(2, dbtest.AttendeeCount(s.T(), s.DB, o.OrderID, "active"))
	})

	s.Run("422 when the amount exceeds the total", func() {
		o := s.seedOrder(1)
		session := s.checkout(o.OrderID)
		s.deliverWebhook("evt_done_5", "checkout.completed", session.SessionID, "pi_791", o.TotalCents)

		rec := httptest.PerformRequest(s.T(), s.Router, http.MethodPost,
			"/api/orders/"+o.OrderID.String()+"/refund",
			map[string]any{"amount_cents": o.TotalCents + 1}, s.staffToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnprocessableEntity, "exceeds order total")
	})

	s.Run("409 for a pending order", func() {
		o := s.seedOrder(1)
		rec := httptest.PerformRequest(s.T(), s.Router, http.MethodPost,
			"/api/orders/"+o.OrderID.String()+"/refund", map[string]any{}, s.staffToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "not refundable")
	})
}

func (s *PaymentFlowE2ETestSuite) TestSweeper() {
	s.Run("cancels expired reservations and returns inventory", func() {
		o := s.seedOrder(2)
		live := s.seedOrder(1)
		dbtest.ExpireOrder(s.T(), s.DB, o.OrderID)

		s.runSweep()

		s.Equal("cancelled", dbtest.OrderStatus(s.T(), s.DB, o.OrderID))
		_, reserved := dbtest.InventoryCounters(s.T(), s.DB, o.TicketTypeID)
		s.Equal(int32(0), reserved)

		s.Equal("pending", dbtest.OrderStatus(s.T(), s.DB, live.OrderID))
		_, reserved = dbtest.InventoryCounters(s.T(), s.DB, live.TicketTypeID)
		s.Equal(int32(1), reserved)
	})

	s.Run("leaves completed orders alone even when past the deadline", func() {
		o := s.seedOrder(1)
		session := s.checkout(o.OrderID)
		s.deliverWebhook("evt_done_6", "checkout.completed", session.SessionID, "pi_792", o.TotalCents)
		dbtest.ExpireOrder(s.T(), s.DB, o.OrderID)

		s.runSweep()

		s.Equal("completed", dbtest.OrderStatus(s.T(), s.DB, o.OrderID))
		sold, _ := dbtest.InventoryCounters(s.T(), s.DB, o.TicketTypeID)
		s.Equal(int32(1), sold)
	})
}

// runSweep drives one sweep pass directly instead of waiting for the ticker.
func (s *PaymentFlowE2ETestSuite) runSweep() {
	sweeper := worker.NewSweeper(
		uow.NewPostgresUoW(s.DB),
		readstore.NewOrderReadStore(s.DB),
		clock.NewRealClock(),
		s.Config.Ticketing,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sweeper.SweepOnce(ctx)
}
