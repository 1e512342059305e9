package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "geopulse/pkg/platform/strings"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Server    Server
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	LLM       LLM
	Ledger    Ledger
	Screening Screening
	Jobs      Jobs
	Log       Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string // empty disables bearer auth on /transactions
	JWTIssuer       string
	JWTAudience     string
	ShutdownTimeout time.Duration
}

// Database selects the Postgres store. Empty URL keeps everything in memory.
type Database struct {
	URL string
}

// RedisConfig holds connection settings for the verdict cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit sink. No brokers means audit events stay in
// memory.
type Kafka struct {
	Brokers     []string
	AuditTopic  string
	AuditBuffer int
}

type LLM struct {
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Ledger configures the JSON-RPC node. Without a URL an in-process fake
// ledger is used.
type Ledger struct {
	URL           string
	IssuerAccount string
	IssuerSecret  string
	Currency      string
	Timeout       time.Duration
}

type Screening struct {
	SanctionsFile string
	PolicyFile    string
}

// JobDisabled as a schedule turns a job off.
const JobDisabled = "off"

// Jobs holds cron specs for the batch jobs.
type Jobs struct {
	RiskRefreshSpec  string
	ReconcileSpec    string
	RefreshCountries []string
	Concurrency      int
}

type Log struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envOr("GEOPULSE_ADDR", ":8080"),
			JWTSigningKey:   os.Getenv("JWT_SIGNING_KEY"),
			JWTIssuer:       envOr("JWT_ISSUER", "geopulse"),
			JWTAudience:     envOr("JWT_AUDIENCE", "geopulse-api"),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:     envList("KAFKA_BROKERS"),
			AuditTopic:  envOr("AUDIT_TOPIC", "geopulse.audit"),
			AuditBuffer: envInt("AUDIT_BUFFER", 256),
		},
		LLM: LLM{
			APIKey:   os.Getenv("OPENAI_API_KEY"),
			Model:    os.Getenv("OPENAI_MODEL"),
			BaseURL:  os.Getenv("OPENAI_BASE_URL"),
			Timeout:  envDuration("LLM_TIMEOUT", 10*time.Second),
			CacheTTL: envDuration("LLM_CACHE_TTL", time.Hour),
		},
		Ledger: Ledger{
			URL:           os.Getenv("XRPL_RPC_URL"),
			IssuerAccount: os.Getenv("XRPL_ISSUER_ACCOUNT"),
			IssuerSecret:  os.Getenv("XRPL_ISSUER_SECRET"),
			Currency:      os.Getenv("XRPL_CURRENCY"),
			Timeout:       envDuration("XRPL_TIMEOUT", 15*time.Second),
		},
		Screening: Screening{
			SanctionsFile: envOr("SANCTIONS_FILE", "data/sanctions.csv"),
			PolicyFile:    os.Getenv("POLICY_FILE"),
		},
		Jobs: Jobs{
			RiskRefreshSpec:  envOr("RISK_REFRESH_SCHEDULE", "@every 1h"),
			ReconcileSpec:    envOr("RECONCILE_SCHEDULE", "@every 5m"),
			RefreshCountries: envList("RISK_REFRESH_COUNTRIES"),
			Concurrency:      envInt("JOB_CONCURRENCY", 4),
		},
		Log: Log{
			Level:      envOr("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: envInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 28),
		},
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envList(key string) []string {
	return pstrings.SplitList(os.Getenv(key))
}
