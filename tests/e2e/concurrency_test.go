//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	resdto "event-ticketing/internal/handler/dto/response"
	"event-ticketing/internal/infra/gateway"
	"event-ticketing/internal/infra/readstore"
	"event-ticketing/internal/infra/uow"
	"event-ticketing/internal/pkg/clock"
	"event-ticketing/internal/worker"
	"event-ticketing/tests/common/dbtest"
	"event-ticketing/tests/common/httptest"
)

type ConcurrencyE2ETestSuite struct {
	SharedSuite
}

func TestConcurrencyE2E(t *testing.T) {
	suite.Run(t, new(ConcurrencyE2ETestSuite))
}

func (s *ConcurrencyE2ETestSuite) orderBody(ttID uuid.UUID, quantity int) []byte {
	body, err := json.Marshal(map[string]any{
		"buyer_email": "buyer@example.com",
		"buyer_name":  "Jamie Buyer",
		"items": []map[string]any{
			{"ticket_type_id": ttID.String(), "quantity": quantity},
		},
	})
	s.Require().NoError(err)
	return body
}

func (s *ConcurrencyE2ETestSuite) signedWebhookBody(eventID, eventType, sessionID string, amountCents int64) ([]byte, string) {
	body, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{
			"session_id":   sessionID,
			"payment_id":   "pi_" + eventID,
			"amount_cents": amountCents,
		},
	})
	s.Require().NoError(err)
	return body, gateway.ComputeSignature(s.Config.Payment.WebhookSecret, time.Now(), body)
}

func (s *ConcurrencyE2ETestSuite) sweepOnce() {
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

// TestLastTicketRace fires parallel buyers at a single remaining ticket and
// expects exactly one reservation to win.
func (s *ConcurrencyE2ETestSuite) TestLastTicketRace() {
	eventID := dbtest.CreateTestEvent(s.T(), s.DB, "Final Night")
	capacity := int32(1)
	ttID := dbtest.CreateTestTicketType(s.T(), s.DB, eventID, dbtest.TicketTypeFixture{
		PriceCents: 2500, Capacity: &capacity,
	})
	body := s.orderBody(ttID, 1)

	const buyers = 8
	codes := make(chan int, buyers)
	var wg sync.WaitGroup
	wg.Add(buyers)
	for i := 0; i < buyers; i++ {
		go func() {
			defer wg.Done()
			rec := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, "/api/orders", body, map[string]string{
				"Content-Type": "application/json",
			})
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	created, conflicts := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		default:
			s.Failf("unexpected status", "got %d", code)
		}
	}
	s.Equal(1, created)
	s.Equal(buyers-1, conflicts)

	sold, reserved := dbtest.InventoryCounters(s.T(), s.DB, ttID)
	s.Equal(int32(0), sold)
	s.Equal(int32(1), reserved)
}

// TestRacingTerminalWebhooks delivers a completion and an expiry for the same
// session at once; the guarded transitions must let exactly one land.
func (s *ConcurrencyE2ETestSuite) TestRacingTerminalWebhooks() {
	eventID := dbtest.CreateTestEvent(s.T(), s.DB, "Concert")
	capacity := int32(50)
	ttID := dbtest.CreateTestTicketType(s.T(), s.DB, eventID, dbtest.TicketTypeFixture{
		PriceCents: 2500, Capacity: &capacity,
	})

	rec := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, "/api/orders", s.orderBody(ttID, 2), map[string]string{
		"Content-Type": "application/json",
	})
	var created resdto.CreateOrderResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &created)

	rec = httptest.PerformRequest(s.T(), s.Router, http.MethodPost, "/api/orders/"+created.OrderID.String()+"/checkout", nil, "")
	var session resdto.CheckoutSessionResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &session)

	completedBody, completedSig := s.signedWebhookBody("evt_race_completed", "checkout.completed", session.SessionID, created.TotalCents)
	expiredBody, expiredSig := s.signedWebhookBody("evt_race_expired", "checkout.expired", session.SessionID, created.TotalCents)

	deliveries := [][2]any{{completedBody, completedSig}, {expiredBody, expiredSig}}
	outcomes := make(chan int, len(deliveries))
	var wg sync.WaitGroup
	wg.Add(len(deliveries))
	for _, d := range deliveries {
		body, sig := d[0].([]byte), d[1].(string)
		go func() {
			defer wg.Done()
			rec := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, "/api/webhooks/payment", body, map[string]string{
				gateway.SignatureHeader: sig,
			})
			outcomes <- rec.Code
		}()
	}
	wg.Wait()
	close(outcomes)
	for code := range outcomes {
		s.Equal(http.StatusOK, code)
	}

	status := dbtest.OrderStatus(s.T(), s.DB, created.OrderID)
	sold, reserved := dbtest.InventoryCounters(s.T(), s.DB, ttID)
	s.Equal(int32(0), reserved)
	switch status {
	case "completed":
		s.Equal(int32(2), sold)
		s.Equal(2, dbtest.AttendeeCount(s.T(), s.DB, created.OrderID, "active"))
	case "cancelled":
		s.Equal(int32(0), sold)
		s.Equal(0, dbtest.AttendeeCount(s.T(), s.DB, created.OrderID, "active"))
	default:
		s.Failf("expected a terminal status", "got %s", status)
	}
}

// TestSweepAgainstSettlement runs a sweep while a completion webhook settles a
// neighboring order; each order must end in exactly one state.
func (s *ConcurrencyE2ETestSuite) TestSweepAgainstSettlement() {
	eventID := dbtest.CreateTestEvent(s.T(), s.DB, "Concert")
	capacity := int32(50)
	ttID := dbtest.CreateTestTicketType(s.T(), s.DB, eventID, dbtest.TicketTypeFixture{
		PriceCents: 2500, Capacity: &capacity,
	})

	// Order A stays pending past its window; order B is mid-checkout.
	rec := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, "/api/orders", s.orderBody(ttID, 3), map[string]string{
		"Content-Type": "application/json",
	})
	var abandoned resdto.CreateOrderResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &abandoned)
	dbtest.ExpireOrder(s.T(), s.DB, abandoned.OrderID)

	rec = httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, "/api/orders", s.orderBody(ttID, 2), map[string]string{
		"Content-Type": "application/json",
	})
	var settling resdto.CreateOrderResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &settling)

	rec = httptest.PerformRequest(s.T(), s.Router, http.MethodPost, "/api/orders/"+settling.OrderID.String()+"/checkout", nil, "")
	var session resdto.CheckoutSessionResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &session)

	body, sig := s.signedWebhookBody("evt_sweep_settle", "checkout.completed", session.SessionID, settling.TotalCents)

	var wg sync.WaitGroup
	wg.Add(2)
	webhookCode := make(chan int, 1)
	go func() {
		defer wg.Done()
		s.sweepOnce()
	}()
	go func() {
		defer wg.Done()
		rec := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, "/api/webhooks/payment", body, map[string]string{
			gateway.SignatureHeader: sig,
		})
		webhookCode <- rec.Code
	}()
	wg.Wait()

	s.Equal(http.StatusOK, <-webhookCode)
	s.Equal("cancelled", dbtest.OrderStatus(s.T(), s.DB, abandoned.OrderID))
	s.Equal("completed", dbtest.OrderStatus(s.T(), s.DB, settling.OrderID))

	sold, reserved := dbtest.InventoryCounters(s.T(), s.DB, ttID)
	s.Equal(int32(2), sold)
	s.Equal(int32(0), reserved)
	s.Equal(2, dbtest.AttendeeCount(s.T(), s.DB, settling.OrderID, "active"))
}
