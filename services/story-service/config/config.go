package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
	"go.uber.org/zap"
)

const (
	LedgerPostgres = "postgres"
	LedgerDynamoDB = "dynamodb"

	MediaLocal = "local"
	MediaS3    = "s3"
)

// Secret names read when AWS_USE_SECRETS=true.
const (
	RazorpaySecretName = "story/RAZORPAY_CREDENTIALS"
	DBSecretName       = "story/DB_CREDENTIALS"
)

// Config holds all configuration for the story service.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	LedgerBackend string
	DynamoTable   string

	RedisURL   string
	SessionTTL time.Duration

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	VerifySignature       bool
	EnforceQuote          bool
	MerchantID            string

	StoryEndpoint string
	StoryTimeout  time.Duration
	UploadTimeout time.Duration
	ShareHost     string
	PublicBaseURL string

	MediaBackend    string
	MediaDir        string
	MediaBaseURL    string
	MediaBucket     string
	PresignExpiry   time.Duration
	MaxFileSize     int64
	MaxRequestBytes int64

	StorySNSTopicARN  string
	ShareLinkQueueURL string

	CloudWatchEnabled bool
	MetricsNamespace  string
	LogGroup          string

	AllowedOrigins     []string
	RateLimitPerMinute int
	RateLimitBurst     int
	RequestTimeout     time.Duration

	UseSecrets bool
}

// SecretSource fetches a secret stored as a flat JSON object.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from .env and the environment, with an
// optional Secrets Manager override of credentials. A failed override is
// logged and the environment values stay in place.
func LoadConfig(logger *zap.Logger) (*Config, error) {
	return loadConfig(context.Background(), logger, secretsManager)
}

func secretsManager(ctx context.Context) (SecretSource, error) {
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return awspkg.NewSecretsClient(awsCfg), nil
}

func loadConfig(ctx context.Context, logger *zap.Logger, secrets func(context.Context) (SecretSource, error)) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.UseSecrets {
		src, err := secrets(ctx)
		if err != nil {
			logger.Warn("AWS_USE_SECRETS set but AWS config unavailable, using environment credentials", zap.Error(err))
		} else if err := ApplySecrets(ctx, cfg, src); err != nil {
			logger.Warn("Secrets Manager override incomplete", zap.Error(err))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads the environment without validating the result.
func FromEnv() (*Config, error) {
	port := getEnv("PORT", "8080")
	publicBase := strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/")

	cfg := &Config{
		Port:     port,
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: os.Getenv("LOG_LEVEL"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Kolkata"),

		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", LedgerPostgres)),
		DynamoTable:   getEnv("LEDGER_DYNAMO_TABLE", "story-payment-attempts"),

		RedisURL: os.Getenv("REDIS_URL"),

		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		MerchantID:            getEnv("MERCHANT_ID", "8"),

		StoryEndpoint: getEnv("STORY_ENDPOINT", "https://api.rmtechsolution.com/saveStory.php"),
		ShareHost:     getEnv("SHARE_HOST", "valentine.rmtechsolution.com"),
		PublicBaseURL: publicBase,

		MediaBackend: strings.ToLower(getEnv("MEDIA_BACKEND", MediaLocal)),
		MediaDir:     getEnv("MEDIA_DIR", "./uploads"),
		MediaBaseURL: strings.TrimSuffix(getEnv("MEDIA_BASE_URL", publicBase+"/media"), "/"),
		MediaBucket:  os.Getenv("MEDIA_S3_BUCKET"),

		StorySNSTopicARN:  os.Getenv("STORY_SNS_TOPIC_ARN"),
		ShareLinkQueueURL: os.Getenv("SHARE_LINK_QUEUE_URL"),

		MetricsNamespace: getEnv("CLOUDWATCH_NAMESPACE", "ValentineStory"),
		LogGroup:         getEnv("CLOUDWATCH_LOG_GROUP", "/valentine/story-service"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.StoryTimeout, err = getDuration("STORY_TIMEOUT", 100*time.Second); err != nil {
		return nil, err
	}
	if cfg.UploadTimeout, err = getDuration("UPLOAD_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PresignExpiry, err = getDuration("MEDIA_PRESIGN_EXPIRY", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxFileSize, err = getInt64("MAX_FILE_SIZE", 10<<20); err != nil {
		return nil, err
	}
	if cfg.MaxRequestBytes, err = getInt64("MAX_REQUEST_BYTES", 60<<20); err != nil {
		return nil, err
	}
	var n int64
	if n, err = getInt64("RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return nil, err
	}
	cfg.RateLimitPerMinute = int(n)
	if n, err = getInt64("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}
	cfg.RateLimitBurst = int(n)

	cfg.VerifySignature = getBool("RAZORPAY_VERIFY_SIGNATURE", false)
	cfg.EnforceQuote = getBool("ENFORCE_QUOTE", false)
	cfg.CloudWatchEnabled = getBool("CLOUDWATCH_ENABLED", false)
	cfg.UseSecrets = getBool("AWS_USE_SECRETS", false)
	return cfg, nil
}

// ApplySecrets overwrites credentials with the values found in the secret
// store. Missing secrets and empty values leave the current value in place;
// the secrets that could not be read are reported together.
func ApplySecrets(ctx context.Context, cfg *Config, src SecretSource) error {
	var errs []error
	if m, err := src.GetSecretMap(ctx, RazorpaySecretName); err == nil {
		override(&cfg.RazorpayKeyID, m["RAZORPAY_KEY_ID"])
		override(&cfg.RazorpayKeySecret, m["RAZORPAY_KEY_SECRET"])
		override(&cfg.RazorpayWebhookSecret, m["RAZORPAY_WEBHOOK_SECRET"])
	} else {
		errs = append(errs, fmt.Errorf("%s: %w", RazorpaySecretName, err))
	}
	if m, err := src.GetSecretMap(ctx, DBSecretName); err == nil {
		override(&cfg.PostgresUser, m["POSTGRES_USER"])
		override(&cfg.PostgresPassword, m["POSTGRES_PASSWORD"])
		override(&cfg.PostgresDB, m["POSTGRES_DB"])
		override(&cfg.PostgresHost, m["POSTGRES_HOST"])
		override(&cfg.PostgresPort, m["POSTGRES_PORT"])
	} else {
		errs = append(errs, fmt.Errorf("%s: %w", DBSecretName, err))
	}
	return errors.Join(errs...)
}

// Validate checks that the selected backends have what they need. Razorpay
// keys are optional here; order creation reports them missing per request.
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case LedgerPostgres:
		if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
			return fmt.Errorf("database config incomplete")
		}
	case LedgerDynamoDB:
		if c.DynamoTable == "" {
			return fmt.Errorf("LEDGER_DYNAMO_TABLE not set")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}

	switch c.MediaBackend {
	case MediaLocal:
		if c.MediaDir == "" {
			return fmt.Errorf("MEDIA_DIR not set")
		}
	case MediaS3:
		if c.MediaBucket == "" {
			return fmt.Errorf("MEDIA_S3_BUCKET not set")
		}
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q", c.MediaBackend)
	}

	if c.StoryEndpoint == "" {
		return fmt.Errorf("STORY_ENDPOINT not set")
	}
	if c.MaxFileSize <= 0 || c.MaxRequestBytes < c.MaxFileSize {
		return fmt.Errorf("MAX_REQUEST_BYTES must be at least MAX_FILE_SIZE")
	}
	if c.RateLimitPerMinute <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

// UsesPostgres reports whether the service needs a database connection.
func (c *Config) UsesPostgres() bool {
	return c.LedgerBackend == LedgerPostgres
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
