package components

import (
	"go.uber.org/fx"

	"event-ticketing/internal/handler"
	"event-ticketing/internal/handler/api"
	"event-ticketing/internal/handler/middleware"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewOrderHandler,
		api.NewTicketTypeHandler,
		api.NewWebhookHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
