package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Env             string   `mapstructure:"env"`
	Port            string   `mapstructure:"port"`
	LogLevel        string   `mapstructure:"log_level"`
	CORSAllowOrigin []string `mapstructure:"-"`

	ObjectStoreType string `mapstructure:"object_store"`
	LocalStoreDir   string `mapstructure:"local_store_dir"`
	AWSRegion       string `mapstructure:"aws_region"`
	S3Bucket        string `mapstructure:"s3_bucket"`
	S3Prefix        string `mapstructure:"s3_prefix"`
	SSEKMSKeyID     string `mapstructure:"sse_kms_key_id"`

	DatabaseURL string `mapstructure:"database_url"`
	DBDriver    string `mapstructure:"db_driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`

	LLMProvider       string `mapstructure:"llm_provider"`
	LLMModel          string `mapstructure:"llm_model"`
	LLMBaseURL        string `mapstructure:"llm_base_url"`
	LLMAPIKey         string `mapstructure:"llm_api_key"`
	LLMTimeoutSeconds int    `mapstructure:"llm_timeout_seconds"`
	AnalysisVersion   string `mapstructure:"analysis_version"`

	JWTSecret           string `mapstructure:"jwt_secret"`
	JWTAccessTTLMinutes int    `mapstructure:"jwt_access_ttl_minutes"`
	JWTRefreshTTLHours  int    `mapstructure:"jwt_refresh_ttl_hours"`
	BcryptCost          int    `mapstructure:"bcrypt_cost"`

	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GoogleRedirectURL  string `mapstructure:"google_redirect_url"`
	UIRedirectURL      string `mapstructure:"ui_redirect_url"`

	SQSQueueURL            string `mapstructure:"ra_sqs_queue_url"`
	AMQPURL                string `mapstructure:"ra_amqp_url"`
	AMQPQueue              string `mapstructure:"ra_amqp_queue"`
	WorkerConcurrency      int    `mapstructure:"ra_worker_concurrency"`
	ShutdownTimeoutSeconds int    `mapstructure:"ra_shutdown_timeout_seconds"`

	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

var defaults = map[string]any{
	"env":                         "dev",
	"port":                        "8080",
	"log_level":                   "info",
	"cors_allow_origins":          "http://localhost:5173",
	"object_store":                "local",
	"local_store_dir":             "./data",
	"aws_region":                  "",
	"s3_bucket":                   "",
	"s3_prefix":                   "",
	"sse_kms_key_id":              "",
	"database_url":                "",
	"db_driver":                   "pgx",
	"sqlite_path":                 "./data/skills.db",
	"llm_provider":                "openai",
	"llm_model":                   "",
	"llm_base_url":                "",
	"llm_api_key":                 "",
	"llm_timeout_seconds":         120,
	"analysis_version":            "resume-insights:v1",
	"jwt_secret":                  "",
	"jwt_access_ttl_minutes":      60,
	"jwt_refresh_ttl_hours":       24 * 7,
	"bcrypt_cost":                 12,
	"google_client_id":            "",
	"google_client_secret":        "",
	"google_redirect_url":         "",
	"ui_redirect_url":             "",
	"ra_sqs_queue_url":            "",
	"ra_amqp_url":                 "",
	"ra_amqp_queue":               "resume-analyses",
	"ra_worker_concurrency":       4,
	"ra_shutdown_timeout_seconds": 30,
	"rate_limit_rps":              5.0,
	"rate_limit_burst":            10,
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg, err := LoadFile("")
	if err != nil {
		// Env-only loading cannot fail on a missing file; fall back to defaults.
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}
	return cfg
}

// LoadFile is Load with an optional YAML/JSON/TOML config file layered under
// the environment.
func LoadFile(path string) (Config, error) {
	// Best-effort load of local env files for dev convenience.
	for _, f := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(f)
	}

	v := newViper()
	var fileErr error
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			fileErr = fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSAllowOrigin = splitAndTrim(v.GetString("cors_allow_origins"))
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.DBDriver = normalizeDriver(cfg.DBDriver)
	return cfg, fileErr
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	v.AutomaticEnv()
	// Provider specific key names are accepted as fallbacks.
	_ = v.BindEnv("llm_api_key", "LLM_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("llm_timeout_seconds", "LLM_TIMEOUT_SECONDS", "OPENAI_TIMEOUT_SECONDS")
	return v
}

// IsDevLike reports whether the environment allows in-memory fallbacks.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

// Validate reports settings that are required outside development.
func (c Config) Validate() error {
	if c.IsDevLike() {
		return nil
	}
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.ObjectStoreType == "s3" && c.S3Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when OBJECT_STORE=s3"))
	}
	return errors.Join(errs...)
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pq", "lib/pq":
		return "postgres"
	default:
		return "pgx"
	}
}
