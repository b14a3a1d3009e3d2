package components

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"event-ticketing/internal/infra/db"
	"event-ticketing/internal/infra/readstore"
	"event-ticketing/internal/infra/uow"
	"event-ticketing/internal/usecase/queries"
	"event-ticketing/internal/usecase/shared"
	"event-ticketing/internal/worker"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewDBTX,
		// UnitOfWork
		fx.Annotate(
			uow.NewPostgresUoW,
			fx.As(new(shared.UnitOfWork)),
		),
		// Order read side
		fx.Annotate(
			readstore.NewOrderReadStore,
			fx.As(new(queries.OrderReadStore)),
			fx.As(new(worker.ExpiredOrderSource)),
		),
		// TicketType read side
		fx.Annotate(
			readstore.NewTicketTypeReadStore,
			fx.As(new(queries.TicketTypeReadStore)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
