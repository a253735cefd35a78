package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	JWT      JWTConfig
	S3       S3Config
	Log      LogConfig
	CORS     CORSConfig
	Queue    QueueConfig
	Email    EmailConfig
	Vision   VisionConfig
	Ensemble EnsembleConfig
	DVLA     DVLAConfig
}

// EmailConfig holds review-notification email settings.
type EmailConfig struct {
	Provider     string `mapstructure:"provider"`
	Region       string `mapstructure:"region"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
	ReviewInbox  string `mapstructure:"review_inbox"`
	DashboardURL string `mapstructure:"dashboard_url"`
}

// QueueConfig holds extraction queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// VisionProviderConfig holds settings for a single vision-model backend.
type VisionProviderConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Weight      float64 `mapstructure:"weight"`
	TimeoutSecs int     `mapstructure:"timeout_secs"`
}

// VisionConfig holds the set of configured vision-model backends.
// A slot with an empty API key is treated as disabled.
type VisionConfig struct {
	Claude VisionProviderConfig `mapstructure:"claude"`
	OpenAI VisionProviderConfig `mapstructure:"openai"`
	Gemini VisionProviderConfig `mapstructure:"gemini"`
}

// Enabled returns the configured provider slots that have an API key set.
func (v *VisionConfig) Enabled() []VisionProviderConfig {
	var out []VisionProviderConfig
	for _, p := range []VisionProviderConfig{v.Claude, v.OpenAI, v.Gemini} {
		if p.APIKey != "" {
			out = append(out, p)
		}
	}
	return out
}

// EnsembleConfig holds consensus and review-decision thresholds.
type EnsembleConfig struct {
	MinRequiredSuccesses  int      `mapstructure:"min_required_successes"`
	MinModelAgreement     int      `mapstructure:"min_model_agreement"`
	LowAgreementCeiling   float64  `mapstructure:"low_agreement_ceiling"`
	MinConfidenceScore    float64  `mapstructure:"min_confidence_score"`
	MinAgreementLevel     float64  `mapstructure:"min_agreement_level"`
	MaxDistinctValues     int      `mapstructure:"max_distinct_values"`
	MismatchDiscount      float64  `mapstructure:"mismatch_discount"`
	OverallTimeoutSecs    int      `mapstructure:"overall_timeout_secs"`
	RequestTimeoutSecs    int      `mapstructure:"request_timeout_secs"`
	MaxConcurrentRequests int      `mapstructure:"max_concurrent_requests"`
	ModelPriority         []string `mapstructure:"model_priority"`
	RequiredFields        []string `mapstructure:"required_fields"`
}

// DVLAConfig holds Vehicle Enquiry Service client settings.
type DVLAConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	APIURL      string  `mapstructure:"api_url"`
	TimeoutSecs int     `mapstructure:"timeout_secs"`
	RateLimit   float64 `mapstructure:"rate_limit"`
	RateBurst   int     `mapstructure:"rate_burst"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer             string        `mapstructure:"issuer"`
}

// S3Config holds AWS S3 settings for screenshot storage.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the MOTSCAN_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MOTSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "motscan")
	v.SetDefault("db.password", "motscan_secret")
	v.SetDefault("db.name", "motscan_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "15m")
	v.SetDefault("jwt.refresh_expiry", "168h")
	v.SetDefault("jwt.issuer", "motscan")

	// S3 defaults
	v.SetDefault("s3.region", "eu-west-2")
	v.SetDefault("s3.bucket", "motscan-screenshots")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 10)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 5)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.concurrency", 4)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "eu-west-2")
	v.SetDefault("email.from_address", "noreply@motscan.io")
	v.SetDefault("email.from_name", "motscan")
	v.SetDefault("email.review_inbox", "")
	v.SetDefault("email.dashboard_url", "http://localhost:3000")

	// Vision provider defaults
	v.SetDefault("vision.claude.provider", "claude")
	v.SetDefault("vision.claude.api_key", "")
	v.SetDefault("vision.claude.model", "claude-sonnet-4-20250514")
	v.SetDefault("vision.claude.weight", 0.35)
	v.SetDefault("vision.claude.timeout_secs", 60)
	v.SetDefault("vision.openai.provider", "openai")
	v.SetDefault("vision.openai.api_key", "")
	v.SetDefault("vision.openai.model", "gpt-4o")
	v.SetDefault("vision.openai.weight", 0.30)
	v.SetDefault("vision.openai.timeout_secs", 60)
	v.SetDefault("vision.gemini.provider", "gemini")
	v.SetDefault("vision.gemini.api_key", "")
	v.SetDefault("vision.gemini.model", "gemini-2.0-flash")
	v.SetDefault("vision.gemini.weight", 0.25)
	v.SetDefault("vision.gemini.timeout_secs", 60)

	// Ensemble defaults
	v.SetDefault("ensemble.min_required_successes", 2)
	v.SetDefault("ensemble.min_model_agreement", 2)
	v.SetDefault("ensemble.low_agreement_ceiling", 0.5)
	v.SetDefault("ensemble.min_confidence_score", 0.85)
	v.SetDefault("ensemble.min_agreement_level", 0.5)
	v.SetDefault("ensemble.max_distinct_values", 3)
	v.SetDefault("ensemble.mismatch_discount", 0.6)
	v.SetDefault("ensemble.overall_timeout_secs", 90)
	v.SetDefault("ensemble.request_timeout_secs", 300)
	v.SetDefault("ensemble.max_concurrent_requests", 10)
	v.SetDefault("ensemble.model_priority", "claude,openai,gemini")
	v.SetDefault("ensemble.required_fields", "registration,mot_expiry")

	// DVLA defaults
	v.SetDefault("dvla.api_key", "")
	v.SetDefault("dvla.api_url", "https://driver-vehicle-licensing.api.gov.uk/vehicle-enquiry/v1/vehicles")
	v.SetDefault("dvla.timeout_secs", 30)
	v.SetDefault("dvla.rate_limit", 5)
	v.SetDefault("dvla.rate_burst", 5)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                      "MOTSCAN_SERVER_PORT",
		"server.read_timeout":              "MOTSCAN_SERVER_READ_TIMEOUT",
		"server.write_timeout":             "MOTSCAN_SERVER_WRITE_TIMEOUT",
		"server.environment":               "MOTSCAN_SERVER_ENVIRONMENT",
		"db.host":                          "MOTSCAN_DB_HOST",
		"db.port":                          "MOTSCAN_DB_PORT",
		"db.user":                          "MOTSCAN_DB_USER",
		"db.password":                      "MOTSCAN_DB_PASSWORD",
		"db.name":                          "MOTSCAN_DB_NAME",
		"db.sslmode":                       "MOTSCAN_DB_SSLMODE",
		"db.max_open":                      "MOTSCAN_DB_MAX_OPEN",
		"db.max_idle":                      "MOTSCAN_DB_MAX_IDLE",
		"jwt.secret":                       "MOTSCAN_JWT_SECRET",
		"jwt.access_expiry":                "MOTSCAN_JWT_ACCESS_EXPIRY",
		"jwt.refresh_expiry":               "MOTSCAN_JWT_REFRESH_EXPIRY",
		"jwt.issuer":                       "MOTSCAN_JWT_ISSUER",
		"s3.region":                        "MOTSCAN_S3_REGION",
		"s3.bucket":                        "MOTSCAN_S3_BUCKET",
		"s3.endpoint":                      "MOTSCAN_S3_ENDPOINT",
		"s3.access_key":                    "MOTSCAN_S3_ACCESS_KEY",
		"s3.secret_key":                    "MOTSCAN_S3_SECRET_KEY",
		"s3.max_file_size_mb":              "MOTSCAN_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":                "MOTSCAN_S3_PRESIGN_EXPIRY",
		"log.level":                        "MOTSCAN_LOG_LEVEL",
		"log.format":                       "MOTSCAN_LOG_FORMAT",
		"cors.allowed_origins":             "MOTSCAN_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":         "MOTSCAN_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":                "MOTSCAN_QUEUE_MAX_RETRIES",
		"queue.concurrency":                "MOTSCAN_QUEUE_CONCURRENCY",
		"email.provider":                   "MOTSCAN_EMAIL_PROVIDER",
		"email.region":                     "MOTSCAN_EMAIL_REGION",
		"email.from_address":               "MOTSCAN_EMAIL_FROM_ADDRESS",
		"email.from_name":                  "MOTSCAN_EMAIL_FROM_NAME",
		"email.review_inbox":               "MOTSCAN_EMAIL_REVIEW_INBOX",
		"email.dashboard_url":              "MOTSCAN_EMAIL_DASHBOARD_URL",
		"vision.claude.api_key":            "MOTSCAN_VISION_CLAUDE_API_KEY",
		"vision.claude.model":              "MOTSCAN_VISION_CLAUDE_MODEL",
		"vision.claude.weight":             "MOTSCAN_VISION_CLAUDE_WEIGHT",
		"vision.claude.timeout_secs":       "MOTSCAN_VISION_CLAUDE_TIMEOUT_SECS",
		"vision.openai.api_key":            "MOTSCAN_VISION_OPENAI_API_KEY",
		"vision.openai.model":              "MOTSCAN_VISION_OPENAI_MODEL",
		"vision.openai.weight":             "MOTSCAN_VISION_OPENAI_WEIGHT",
		"vision.openai.timeout_secs":       "MOTSCAN_VISION_OPENAI_TIMEOUT_SECS",
		"vision.gemini.api_key":            "MOTSCAN_VISION_GEMINI_API_KEY",
		"vision.gemini.model":              "MOTSCAN_VISION_GEMINI_MODEL",
		"vision.gemini.weight":             "MOTSCAN_VISION_GEMINI_WEIGHT",
		"vision.gemini.timeout_secs":       "MOTSCAN_VISION_GEMINI_TIMEOUT_SECS",
		"ensemble.min_required_successes":  "MOTSCAN_ENSEMBLE_MIN_REQUIRED_SUCCESSES",
		"ensemble.min_model_agreement":     "MOTSCAN_ENSEMBLE_MIN_MODEL_AGREEMENT",
		"ensemble.low_agreement_ceiling":   "MOTSCAN_ENSEMBLE_LOW_AGREEMENT_CEILING",
		"ensemble.min_confidence_score":    "MOTSCAN_ENSEMBLE_MIN_CONFIDENCE_SCORE",
		"ensemble.min_agreement_level":     "MOTSCAN_ENSEMBLE_MIN_AGREEMENT_LEVEL",
		"ensemble.max_distinct_values":     "MOTSCAN_ENSEMBLE_MAX_DISTINCT_VALUES",
		"ensemble.mismatch_discount":       "MOTSCAN_ENSEMBLE_MISMATCH_DISCOUNT",
		"ensemble.overall_timeout_secs":    "MOTSCAN_ENSEMBLE_OVERALL_TIMEOUT_SECS",
		"ensemble.request_timeout_secs":    "MOTSCAN_ENSEMBLE_REQUEST_TIMEOUT_SECS",
		"ensemble.max_concurrent_requests": "MOTSCAN_ENSEMBLE_MAX_CONCURRENT_REQUESTS",
		"ensemble.model_priority":          "MOTSCAN_ENSEMBLE_MODEL_PRIORITY",
		"ensemble.required_fields":         "MOTSCAN_ENSEMBLE_REQUIRED_FIELDS",
		"dvla.api_key":                     "MOTSCAN_DVLA_API_KEY",
		"dvla.api_url":                     "MOTSCAN_DVLA_API_URL",
		"dvla.timeout_secs":                "MOTSCAN_DVLA_TIMEOUT_SECS",
		"dvla.rate_limit":                  "MOTSCAN_DVLA_RATE_LIMIT",
		"dvla.rate_burst":                  "MOTSCAN_DVLA_RATE_BURST",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if MOTSCAN_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("MOTSCAN_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:             v.GetString("jwt.secret"),
		AccessTokenExpiry:  v.GetDuration("jwt.access_expiry"),
		RefreshTokenExpiry: v.GetDuration("jwt.refresh_expiry"),
		Issuer:             v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("cors.allowed_origins")),
	}
	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
	}
	cfg.Email = EmailConfig{
		Provider:     v.GetString("email.provider"),
		Region:       v.GetString("email.region"),
		FromAddress:  v.GetString("email.from_address"),
		FromName:     v.GetString("email.from_name"),
		ReviewInbox:  v.GetString("email.review_inbox"),
		DashboardURL: v.GetString("email.dashboard_url"),
	}
	cfg.Vision = VisionConfig{
		Claude: VisionProviderConfig{
			Provider:    v.GetString("vision.claude.provider"),
			APIKey:      v.GetString("vision.claude.api_key"),
			Model:       v.GetString("vision.claude.model"),
			Weight:      v.GetFloat64("vision.claude.weight"),
			TimeoutSecs: v.GetInt("vision.claude.timeout_secs"),
		},
		OpenAI: VisionProviderConfig{
			Provider:    v.GetString("vision.openai.provider"),
			APIKey:      v.GetString("vision.openai.api_key"),
			Model:       v.GetString("vision.openai.model"),
			Weight:      v.GetFloat64("vision.openai.weight"),
			TimeoutSecs: v.GetInt("vision.openai.timeout_secs"),
		},
		Gemini: VisionProviderConfig{
			Provider:    v.GetString("vision.gemini.provider"),
			APIKey:      v.GetString("vision.gemini.api_key"),
			Model:       v.GetString("vision.gemini.model"),
			Weight:      v.GetFloat64("vision.gemini.weight"),
			TimeoutSecs: v.GetInt("vision.gemini.timeout_secs"),
		},
	}
	cfg.Ensemble = EnsembleConfig{
		MinRequiredSuccesses:  v.GetInt("ensemble.min_required_successes"),
		MinModelAgreement:     v.GetInt("ensemble.min_model_agreement"),
		LowAgreementCeiling:   v.GetFloat64("ensemble.low_agreement_ceiling"),
		MinConfidenceScore:    v.GetFloat64("ensemble.min_confidence_score"),
		MinAgreementLevel:     v.GetFloat64("ensemble.min_agreement_level"),
		MaxDistinctValues:     v.GetInt("ensemble.max_distinct_values"),
		MismatchDiscount:      v.GetFloat64("ensemble.mismatch_discount"),
		OverallTimeoutSecs:    v.GetInt("ensemble.overall_timeout_secs"),
		RequestTimeoutSecs:    v.GetInt("ensemble.request_timeout_secs"),
		MaxConcurrentRequests: v.GetInt("ensemble.max_concurrent_requests"),
		ModelPriority:         splitAndTrim(v.GetString("ensemble.model_priority")),
		RequiredFields:        splitAndTrim(v.GetString("ensemble.required_fields")),
	}
	cfg.DVLA = DVLAConfig{
		APIKey:      v.GetString("dvla.api_key"),
		APIURL:      v.GetString("dvla.api_url"),
		TimeoutSecs: v.GetInt("dvla.timeout_secs"),
		RateLimit:   v.GetFloat64("dvla.rate_limit"),
		RateBurst:   v.GetInt("dvla.rate_burst"),
	}

	return cfg, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
