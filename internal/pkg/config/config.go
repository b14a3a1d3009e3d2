package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection,
//   gateway credentials), security settings
// - default: Values common across all environments (timeouts, windows, rates)
// -----------------------------------------------------------------------------

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	CORS      CORSConfig
	Log       LogConfig
	JWT       JWTConfig
	Payment   PaymentConfig
	Ticketing TicketingConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	TimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
}

type JWTConfig struct {
	Secret string `envconfig:"JWT_SECRET" required:"true"`
}

// PaymentConfig points at the hosted-checkout gateway. The adapter never
// retries on its own; Timeout bounds every outbound call.
type PaymentConfig struct {
	BaseURL            string        `envconfig:"PAYMENT_BASE_URL" required:"true"`
	APIKey             string        `envconfig:"PAYMENT_API_KEY" required:"true"`
	WebhookSecret      string        `envconfig:"PAYMENT_WEBHOOK_SECRET" required:"true"`
	Timeout            time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"10s"`
	SignatureTolerance time.Duration `envconfig:"PAYMENT_SIGNATURE_TOLERANCE" default:"5m"`
	SuccessURL         string        `envconfig:"PAYMENT_SUCCESS_URL" default:"http://localhost:3000/orders/success"`
	CancelURL          string        `envconfig:"PAYMENT_CANCEL_URL" default:"http://localhost:3000/orders/cancel"`
}

type TicketingConfig struct {
	// ReservationWindow is how long a pending order holds its inventory.
	ReservationWindow time.Duration `envconfig:"TICKETING_RESERVATION_WINDOW" default:"30m"`
	// PlatformFeeRateBps is the platform fee in basis points (300 = 3%).
	PlatformFeeRateBps int64         `envconfig:"TICKETING_PLATFORM_FEE_BPS" default:"300"`
	SweepInterval      time.Duration `envconfig:"TICKETING_SWEEP_INTERVAL" default:"2m"`
	WebhookRetention   time.Duration `envconfig:"TICKETING_WEBHOOK_RETENTION" default:"168h"`
	MaxPageSize        int           `envconfig:"TICKETING_MAX_PAGE_SIZE" default:"100"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433",
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Log: LogConfig{
			Level:      "error",
			TimeFormat: "2006-01-02 15:04:05.000",
		},
		JWT: JWTConfig{
			Secret: "test-secret",
		},
		CORS: CORSConfig{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		},
		Payment: PaymentConfig{
			BaseURL:            "http://localhost:18080",
			APIKey:             "test-key",
			WebhookSecret:      "test-webhook-secret",
			Timeout:            5 * time.Second,
			SignatureTolerance: 5 * time.Minute,
			SuccessURL:         "http://localhost:3000/orders/success",
			CancelURL:          "http://localhost:3000/orders/cancel",
		},
		Ticketing: TicketingConfig{
			ReservationWindow:  30 * time.Minute,
			PlatformFeeRateBps: 300,
			SweepInterval:      2 * time.Minute,
			WebhookRetention:   7 * 24 * time.Hour,
			MaxPageSize:        100,
		},
	}
}
