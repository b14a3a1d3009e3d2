//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func CreateTestEvent(t *testing.T, db DBLike, name string) uuid.UUID {
	t.Helper()

	eventID := uuid.New()
	ctx := context.Background()

	_, err := db.Exec(ctx,
		"INSERT INTO events (id, name, organizer_id, currency, is_published) VALUES ($1, $2, $3, 'USD', true)",
		eventID, name, uuid.New())
	require.NoError(t, err)

	return eventID
}

// TicketTypeFixture describes one inventory row; zero values fall back to a
// generally sellable ticket (active, unlimited capacity, max 10 per order).
type TicketTypeFixture struct {
	Name        string
	PriceCents  int64
	Capacity    *int32
	Sold        int32
	Reserved    int32
	MaxPerOrder int32
	SalesStart  *time.Time
	SalesEnd    *time.Time
	Inactive    bool
}

func CreateTestTicketType(t *testing.T, db DBLike, eventID uuid.UUID, fixture TicketTypeFixture) uuid.UUID {
	t.Helper()

	if fixture.Name == "" {
		fixture.Name = "General Admission"
	}
	if fixture.PriceCents == 0 {
		fixture.PriceCents = 2500
	}
	if fixture.MaxPerOrder == 0 {
		fixture.MaxPerOrder = 10
	}

	ticketTypeID := uuid.New()
	ctx := context.Background()

	_, err := db.Exec(ctx, `
		INSERT INTO ticket_types
		    (id, event_id, name, price_cents, currency, capacity, sold, reserved, max_per_order, sales_start, sales_end, is_active)
		VALUES ($1, $2, $3, $4, 'USD', $5, $6, $7, $8, $9, $10, $11)`,
		ticketTypeID, eventID, fixture.Name, fixture.PriceCents, fixture.Capacity,
		fixture.Sold, fixture.Reserved, fixture.MaxPerOrder, fixture.SalesStart, fixture.SalesEnd, !fixture.Inactive)
	require.NoError(t, err)

	return ticketTypeID
}

// PromoFixture describes a promo code row. MaxUses nil means unlimited.
type PromoFixture struct {
	Code          string
	DiscountType  string
	DiscountValue int64
	MaxUses       *int32
	UsedCount     int32
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	Inactive      bool
}

func CreateTestPromoCode(t *testing.T, db DBLike, eventID uuid.UUID, fixture PromoFixture) uuid.UUID {
	t.Helper()

	promoID := uuid.New()
	ctx := context.Background()

	_, err := db.Exec(ctx, `
		INSERT INTO promo_codes
		    (id, event_id, code, discount_type, discount_value, max_uses, used_count, valid_from, valid_until, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		promoID, eventID, fixture.Code, fixture.DiscountType, fixture.DiscountValue,
		fixture.MaxUses, fixture.UsedCount, fixture.ValidFrom, fixture.ValidUntil, !fixture.Inactive)
	require.NoError(t, err)

	return promoID
}

// InventoryCounters reads the authoritative sold/reserved counters for a
// ticket type so tests can assert reservation bookkeeping directly.
func InventoryCounters(t *testing.T, db DBLike, ticketTypeID uuid.UUID) (sold, reserved int32) {
	t.Helper()

	err := db.QueryRow(context.Background(),
		"SELECT sold, reserved FROM ticket_types WHERE id = $1", ticketTypeID).
		Scan(&sold, &reserved)
	require.NoError(t, err)
	return sold, reserved
}

func OrderStatus(t *testing.T, db DBLike, orderID uuid.UUID) string {
	t.Helper()

	var status string
	err := db.QueryRow(context.Background(),
		"SELECT payment_status FROM orders WHERE id = $1", orderID).Scan(&status)
	require.NoError(t, err)
	return status
}

func AttendeeCount(t *testing.T, db DBLike, orderID uuid.UUID, status string) int {
	t.Helper()

	var count int
	err := db.QueryRow(context.Background(),
		"SELECT count(*) FROM attendees WHERE order_id = $1 AND status = $2", orderID, status).Scan(&count)
	require.NoError(t, err)
	return count
}

// OrderRefundRef reads the refund audit reference stored on an order.
func OrderRefundRef(t *testing.T, db DBLike, orderID uuid.UUID) string {
	t.Helper()

	var ref *string
	err := db.QueryRow(context.Background(),
		"SELECT refund_id FROM orders WHERE id = $1", orderID).Scan(&ref)
	require.NoError(t, err)
	if ref == nil {
		return ""
	}
	return *ref
}

// ExpireOrder backdates an order's reservation deadline so sweeper tests do
// not have to wait out the real window.
func ExpireOrder(t *testing.T, db DBLike, orderID uuid.UUID) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		"UPDATE orders SET expires_at = now() - interval '1 minute' WHERE id = $1", orderID)
	require.NoError(t, err)
}

// inserts basic reference data needed by tests
func SeedReferenceData(pool *pgxpool.Pool) error {
	// Every fixture is test-local; nothing is shared across suites.
	_ = pool
	return nil
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables and reseeds reference data
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return SeedReferenceData(pool)
}
