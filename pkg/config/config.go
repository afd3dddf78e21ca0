package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/botify-mailer/botify/pkg/logx"
)

// APIConfig configures the campaign-api service.
type APIConfig struct {
	Port      string `envconfig:"PORT" default:"8080"`
	Env       string `envconfig:"ENV" default:"production"`
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	RMQURL    string `envconfig:"RMQ_URL" required:"true"`
	Queue     string `envconfig:"QUEUE" default:"campaign_dispatch"`
	UploadDir string `envconfig:"UPLOAD_DIR" default:"uploads"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Shared system mailbox. Deliberately not required here: their absence
	// is surfaced as a ConfigError on the endpoints that need them.
	BotEmail    string `envconfig:"BOT_EMAIL"`
	BotPassword string `envconfig:"BOT_PASSWORD"`
}

// WorkerConfig configures the dispatch-worker service.
type WorkerConfig struct {
	Env          string  `envconfig:"ENV" default:"production"`
	DBDSN        string  `envconfig:"DB_DSN" required:"true"`
	RMQURL       string  `envconfig:"RMQ_URL" required:"true"`
	Queue        string  `envconfig:"QUEUE" default:"campaign_dispatch"`
	MetricsPort  string  `envconfig:"METRICS_PORT" default:"9090"`
	SendRate     float64 `envconfig:"SEND_RATE" default:"10"`
	Prefetch     int     `envconfig:"PREFETCH" default:"10"`
	PollInterval int     `envconfig:"POLL_INTERVAL_SECONDS" default:"15"`

	BotEmail    string `envconfig:"BOT_EMAIL"`
	BotPassword string `envconfig:"BOT_PASSWORD"`
}

var (
	API    APIConfig
	Worker WorkerConfig
)

func MustLoadAPI() {
	if err := envconfig.Process("", &API); err != nil {
		logx.L().Fatalw("config_load_error", "error", err)
	}
}

func MustLoadWorker() {
	if err := envconfig.Process("", &Worker); err != nil {
		logx.L().Fatalw("config_load_error", "error", err)
	}
}

// IsProduction reports whether error detail should be withheld from clients.
func IsProduction(env string) bool {
	return strings.ToLower(env) != "development"
}
