// Package config collects every environment-driven setting from spec §6
// into one validated struct, loaded once at process startup by both
// cmd/api and cmd/worker.
//
// The teacher reads os.Getenv piecemeal across main.go (see
// cmd/worker/main.go's REDIS_ADDR/DB_URL/PROXY_LIST sequence); that style
// doesn't scale to the bulk worker's dozen interdependent keys (four
// throttle windows, five queue names, rabbitmq/postgres DSNs, webhook URL)
// which need validating as a unit before the worker starts — a partially
// valid config should fail fast with exit code 1, not panic mid-run on the
// first job. godotenv loads a local .env for development the way the
// teacher's deployment scripts expect one to be present; go-playground's
// validator enforces the required/url/oneof constraints declaratively.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is every setting named in spec §6.
type Config struct {
	BackendName  string `validate:"required"`
	HTTPHost     string `validate:"required"`
	HTTPPort     int    `validate:"required,min=1,max=65535"`
	HeaderSecret string

	HelloName string `validate:"required"`
	FromEmail string `validate:"omitempty,email"`

	WebdriverAddr string `validate:"omitempty,url"`

	Proxy ProxyConfig

	VerifMethod VerifMethodConfig

	Worker WorkerConfig
}

// ProxyConfig is the SOCKS5 descriptor used exclusively by the SMTP Prober.
type ProxyConfig struct {
	Host string
	Port int
	User string
	Pass string
}

func (p ProxyConfig) Enabled() bool { return p.Host != "" }

// VerifMethodConfig maps verif_method.{gmail,hotmailb2b,hotmailb2c,yahoo}.
type VerifMethodConfig struct {
	Gmail      string `validate:"omitempty,oneof=smtp headless api"`
	HotmailB2B string `validate:"omitempty,oneof=smtp headless api"`
	HotmailB2C string `validate:"omitempty,oneof=smtp headless api"`
	Yahoo      string `validate:"omitempty,oneof=smtp headless api"`
}

// WorkerConfig is the bulk-worker-only configuration surface.
type WorkerConfig struct {
	Enable      bool
	Throttle    ThrottleConfig
	RabbitMQURL string `validate:"required_if=Enable true"`
	Queues      []string
	Concurrency int    `validate:"omitempty,min=1"`
	PostgresURL string `validate:"required_if=Enable true"`
	WebhookURL  string `validate:"omitempty,url"`
}

// ThrottleConfig maps worker.throttle.max_requests_per_{second,minute,hour,day}.
type ThrottleConfig struct {
	PerSecond int
	PerMinute int
	PerHour   int
	PerDay    int
}

var allQueues = []string{"check.gmail", "check.hotmailb2b", "check.hotmailb2c", "check.yahoo", "check.everything_else"}

// Load reads .env (if present) then the process environment into a Config
// and validates it. A returned error means the caller should exit 1.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is not an error; env vars still apply

	cfg := Config{
		BackendName:   getenv("BACKEND_NAME", "mailvetter-core"),
		HTTPHost:      getenv("HTTP_HOST", "0.0.0.0"),
		HTTPPort:      getenvInt("HTTP_PORT", 8080),
		HeaderSecret:  os.Getenv("HEADER_SECRET"),
		HelloName:     getenv("HELLO_NAME", "probe.local"),
		FromEmail:     os.Getenv("FROM_EMAIL"),
		WebdriverAddr: os.Getenv("WEBDRIVER_ADDR"),
		Proxy: ProxyConfig{
			Host: os.Getenv("PROXY_HOST"),
			Port: getenvInt("PROXY_PORT", 1080),
			User: os.Getenv("PROXY_USER"),
			Pass: os.Getenv("PROXY_PASS"),
		},
		VerifMethod: VerifMethodConfig{
			Gmail:      os.Getenv("VERIF_METHOD_GMAIL"),
			HotmailB2B: os.Getenv("VERIF_METHOD_HOTMAILB2B"),
			HotmailB2C: os.Getenv("VERIF_METHOD_HOTMAILB2C"),
			Yahoo:      os.Getenv("VERIF_METHOD_YAHOO"),
		},
		Worker: WorkerConfig{
			Enable: getenvBool("WORKER_ENABLE", false),
			Throttle: ThrottleConfig{
				PerSecond: getenvInt("WORKER_THROTTLE_MAX_REQUESTS_PER_SECOND", 0),
				PerMinute: getenvInt("WORKER_THROTTLE_MAX_REQUESTS_PER_MINUTE", 0),
				PerHour:   getenvInt("WORKER_THROTTLE_MAX_REQUESTS_PER_HOUR", 0),
				PerDay:    getenvInt("WORKER_THROTTLE_MAX_REQUESTS_PER_DAY", 0),
			},
			RabbitMQURL: os.Getenv("WORKER_RABBITMQ_URL"),
			Queues:      parseQueues(os.Getenv("WORKER_QUEUES")),
			Concurrency: getenvInt("WORKER_CONCURRENCY", 4),
			PostgresURL: os.Getenv("WORKER_POSTGRES_DB_URL"),
			WebhookURL:  os.Getenv("WORKER_WEBHOOK_ON_EACH_EMAIL_URL"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	for _, q := range cfg.Worker.Queues {
		if !isAllowedQueue(q) {
			return Config{}, fmt.Errorf("config: worker.queues: %q is not one of %v", q, allQueues)
		}
	}
	return cfg, nil
}

func parseQueues(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return append([]string(nil), allQueues...)
	}
	var out []string
	for _, q := range strings.Split(raw, ",") {
		q = strings.TrimSpace(q)
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

func isAllowedQueue(q string) bool {
	for _, a := range allQueues {
		if q == a {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1"
}
