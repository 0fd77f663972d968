package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "certus/pkg/platform/strings"
)

// Config is the full process configuration, built once in main.
type Config struct {
	Environment string
	LogLevel    string
	Server      Server
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Exam        ExamConfig
	Anchor      AnchorConfig
	RateLimit   RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	JWTSigningKey   string
	JWTIssuer       string
	AllowedOrigins  []string
}

// DatabaseConfig selects Postgres; an empty URL keeps every store in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig backs the anchor validation cache and rate limit windows; an
// empty URL keeps both in process.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig drives the outbox relay; no brokers means events stay in the outbox.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
	BatchSize    int
}

// ExamConfig holds exam and certificate lifecycle settings.
type ExamConfig struct {
	QuestionCount       int
	ExpirySweepSchedule string
}

// RateLimitConfig budgets public callers per IP and signed-in callers per
// user. Windows are shared across replicas when Redis is configured.
type RateLimitConfig struct {
	Enabled     bool
	PublicLimit int
	UserLimit   int
	Window      time.Duration
}

// AnchorConfig is the ledger connection. Enabled with any field missing is a
// startup error; disabled leaves issuance and verification untouched.
type AnchorConfig struct {
	Enabled           bool
	NetworkURL        string
	PackageID         string
	SignerKey         string
	ImageURL          string
	ExplorerBaseURL   string
	GasBudget         uint64
	RequestTimeout    time.Duration
	FinalityTimeout   time.Duration
	ReconcileSchedule string
	ReconcileGrace    time.Duration
	ValidateCacheTTL  time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: Server{
			Addr:            getEnv("CERTUS_ADDR", ":8080"),
			ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			// Use a default for development - should be overridden in production
			JWTSigningKey:  getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:      os.Getenv("JWT_ISSUER"),
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      getList("KAFKA_BROKERS", nil),
			Topic:        getEnv("KAFKA_TOPIC", "certus.events"),
			PollInterval: getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 100),
		},
		Exam: ExamConfig{
			QuestionCount:       getInt("EXAM_QUESTION_COUNT", 10),
			ExpirySweepSchedule: getEnv("CERTIFICATE_EXPIRY_SCHEDULE", "@every 1h"),
		},
		Anchor: AnchorConfig{
			Enabled:           getBool("ANCHOR_ENABLED", true),
			NetworkURL:        os.Getenv("SUI_NETWORK_URL"),
			PackageID:         os.Getenv("SUI_PACKAGE_ID"),
			SignerKey:         os.Getenv("SUI_ADMIN_PRIVATE_KEY"),
			ImageURL:          getEnv("ANCHOR_IMAGE_URL", "https://certus.example/certificate.png"),
			ExplorerBaseURL:   getEnv("ANCHOR_EXPLORER_URL", "https://suiscan.xyz/testnet"),
			GasBudget:         uint64(getInt("ANCHOR_GAS_BUDGET", 10_000_000)),
			RequestTimeout:    getDuration("ANCHOR_REQUEST_TIMEOUT", 15*time.Second),
			FinalityTimeout:   getDuration("ANCHOR_FINALITY_TIMEOUT", 30*time.Second),
			ReconcileSchedule: getEnv("ANCHOR_RECONCILE_SCHEDULE", "@every 5m"),
			ReconcileGrace:    getDuration("ANCHOR_RECONCILE_GRACE", 2*time.Minute),
			ValidateCacheTTL:  getDuration("ANCHOR_VALIDATE_CACHE_TTL", time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBool("RATE_LIMIT_ENABLED", true),
			PublicLimit: getInt("RATE_LIMIT_PUBLIC", 60),
			UserLimit:   getInt("RATE_LIMIT_USER", 120),
			Window:      getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

// Validate rejects configurations the process cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required"))
	}
	if c.Exam.QuestionCount <= 0 {
		errs = append(errs, errors.New("EXAM_QUESTION_COUNT must be positive"))
	}
	if c.RateLimit.Enabled && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if err := c.Anchor.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate requires the full ledger triple when anchoring is enabled.
func (a AnchorConfig) Validate() error {
	if !a.Enabled {
		return nil
	}
	var missing []string
	if a.NetworkURL == "" {
		missing = append(missing, "SUI_NETWORK_URL")
	}
	if a.PackageID == "" {
		missing = append(missing, "SUI_PACKAGE_ID")
	}
	if a.SignerKey == "" {
		missing = append(missing, "SUI_ADMIN_PRIVATE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("anchoring enabled but %s not set (set ANCHOR_ENABLED=false to run without it)", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	if out := pstrings.SplitList(os.Getenv(key)); out != nil {
		return out
	}
	return fallback
}
