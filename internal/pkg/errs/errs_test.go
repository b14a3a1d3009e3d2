//go:build unit

package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-ticketing/internal/pkg/errs"
)

type quantityError struct {
	Remaining int32
}

func (e *quantityError) Error() string {
	return fmt.Sprintf("only %d remaining", e.Remaining)
}

func TestMark(t *testing.T) {
	sentinel := errs.New("order not payable")

	t.Run("mark is visible to errors.Is", func(t *testing.T) {
		cause := errs.New("payment_status was completed")
		err := errs.Mark(cause, sentinel)

		assert.True(t, errors.Is(err, sentinel))
	})

	t.Run("cause chain stays reachable", func(t *testing.T) {
		typed := &quantityError{Remaining: 2}
		err := errs.Mark(fmt.Errorf("reserve failed: %w", typed), sentinel)

		var got *quantityError
		require.True(t, errors.As(err, &got))
		assert.Equal(t, int32(2), got.Remaining)
		assert.True(t, errors.Is(err, sentinel))
	})

	t.Run("survives further wrapping", func(t *testing.T) {
		err := errs.Wrap(errs.Mark(errs.New("boom"), sentinel), "while settling")

		assert.True(t, errors.Is(err, sentinel))
	})

	t.Run("message comes from the cause", func(t *testing.T) {
		err := errs.Mark(errs.New("boom"), sentinel)

		assert.Equal(t, "boom", err.Error())
	})

	t.Run("nil cause returns the mark itself", func(t *testing.T) {
		assert.Equal(t, sentinel, errs.Mark(nil, sentinel))
	})
}
