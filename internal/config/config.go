package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	DatabaseURI   string        `envconfig:"DATABASE_URI" required:"true"`
	TelegramToken string        `envconfig:"TELEGRAM_TOKEN"`
	AIAPIKey      string        `envconfig:"AI_API_KEY"`
	AIBaseURL     string        `envconfig:"AI_BASE_URL" default:"https://openrouter.ai/api/v1"`
	AIModel       string        `envconfig:"AI_MODEL" default:"openai/gpt-4o-mini"`
	DefaultTZ     string        `envconfig:"DEFAULT_TZ" default:"UTC"`
	HTTPAddr      string        `envconfig:"HTTP_ADDR" default:":8080"`
	DispatchCron  string        `envconfig:"DISPATCH_CRON" default:"0 * * * *"`
	GroupTimeout  time.Duration `envconfig:"DISPATCH_GROUP_TIMEOUT" default:"30s"`
	UpcomingLimit int           `envconfig:"UPCOMING_LIMIT" default:"10"`
	HorizonDays   int           `envconfig:"HORIZON_DAYS" default:"730"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty     bool          `envconfig:"LOG_PRETTY" default:"true"`
}

// Load reads the environment into a Config. A .env file is picked up when
// present; it is optional in production.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
