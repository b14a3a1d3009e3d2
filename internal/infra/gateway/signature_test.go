//go:build unit

package gateway_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"event-ticketing/internal/infra/gateway"
	"event-ticketing/internal/pkg/clock"
)

const testSecret = "whsec_test"

func newVerifier(now time.Time) *gateway.SignatureVerifier {
	return gateway.NewSignatureVerifier(testSecret, 5*time.Minute, clock.NewMockClock(now))
}

func TestVerify(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	body := []byte(`{"id":"evt_1","type":"checkout.completed"}`)

	t.Run("accepts a fresh signature", func(t *testing.T) {
		v := newVerifier(now)
		header := gateway.ComputeSignature(testSecret, now, body)
		assert.NoError(t, v.Verify(header, body))
	})

	t.Run("accepts a signature at the tolerance edge", func(t *testing.T) {
		v := newVerifier(now)
		header := gateway.ComputeSignature(testSecret, now.Add(-5*time.Minute), body)
		assert.NoError(t, v.Verify(header, body))
	})

	t.Run("rejects a stale timestamp", func(t *testing.T) {
		v := newVerifier(now)
		header := gateway.ComputeSignature(testSecret, now.Add(-6*time.Minute), body)
		assert.ErrorIs(t, v.Verify(header, body), gateway.ErrSignatureExpired)
	})

	t.Run("rejects a far-future timestamp", func(t *testing.T) {
		v := newVerifier(now)
		header := gateway.ComputeSignature(testSecret, now.Add(6*time.Minute), body)
		assert.ErrorIs(t, v.Verify(header, body), gateway.ErrSignatureExpired)
	})

	t.Run("rejects a tampered body", func(t *testing.T) {
		v := newVerifier(now)
		header := gateway.ComputeSignature(testSecret, now, body)
		tampered := []byte(`{"id":"evt_1","type":"checkout.failed"}`)
		assert.ErrorIs(t, v.Verify(header, tampered), gateway.ErrSignatureMismatch)
	})

	t.Run("rejects the wrong secret", func(t *testing.T) {
		v := newVerifier(now)
		header := gateway.ComputeSignature("whsec_other", now, body)
		assert.ErrorIs(t, v.Verify(header, body), gateway.ErrSignatureMismatch)
	})

	t.Run("rejects a replay with the timestamp moved forward", func(t *testing.T) {
		v := newVerifier(now)
		header := gateway.ComputeSignature(testSecret, now.Add(-10*time.Minute), body)
		// Swap in a fresh timestamp without re-signing.
		fresh := fmt.Sprintf("t=%d,%s", now.Unix(), header[strings.Index(header, "v1="):])
		assert.ErrorIs(t, v.Verify(fresh, body), gateway.ErrSignatureMismatch)
	})

	t.Run("rejects malformed headers", func(t *testing.T) {
		v := newVerifier(now)
		for _, header := range []string{
			"",
			"t=123",
			"v1=abc",
			"t=abc,v1=def",
			"nonsense",
		} {
			assert.ErrorIs(t, v.Verify(header, body), gateway.ErrMalformedSignature, "header %q", header)
		}
	})
}
