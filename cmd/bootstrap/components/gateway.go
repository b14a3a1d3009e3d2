package components

import (
	"go.uber.org/fx"

	"event-ticketing/internal/infra/gateway"
	"event-ticketing/internal/pkg/clock"
	"event-ticketing/internal/pkg/config"
	"event-ticketing/internal/usecase/commands"
)

var GatewayModule = fx.Module("gateway",
	fx.Provide(
		fx.Annotate(
			NewGatewayClient,
			fx.As(new(commands.PaymentGateway)),
		),
		NewSignatureVerifier,
	),
)

func NewGatewayClient(cfg config.Config) *gateway.Client {
	return gateway.NewClient(cfg.Payment)
}

func NewSignatureVerifier(cfg config.Config, clk clock.Clock) *gateway.SignatureVerifier {
	return gateway.NewSignatureVerifier(cfg.Payment.WebhookSecret, cfg.Payment.SignatureTolerance, clk)
}
