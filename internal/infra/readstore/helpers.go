package readstore

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"event-ticketing/internal/infra"
)

func wrapPgErr(msg string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return infra.WrapRepoErr(msg, err, infra.KindNotFound)
	}
	return infra.WrapRepoErr(msg, err, infra.KindDBFailure)
}
