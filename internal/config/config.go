package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret       string
	JwtTTL          time.Duration
	CaptchaTokenTTL time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string

	// Cloudflare
	CloudflareTurnstileSecretKey string
	CloudflareSiteVerifyURL      string

	// Appointments
	AppointmentTransitions  string // "Pending>Confirmed,Cancelled;..." override, empty = built-in table
	DefaultViewingDuration  int    // minutes
	MinViewingDuration      int    // minutes
	AgentScheduleWindowDays int    // day window for the agent schedule view

	// Inquiries
	InquiryFirstResponseSLA time.Duration // how long a New inquiry may sit unanswered
	InquirySLACheckInterval time.Duration // how often the background check runs
	StaffNotifyAddress      string        // where new-inquiry and SLA emails go

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string

	// AWS S3 (inquiry response attachments)
	AwsAccessKeyID      string
	AwsSecretAccessKey  string
	AwsRegion           string
	AwsS3Bucket         string
	AttachmentMaxSizeMB int

	// App Defaults
	AppName        string
	PasswordRegexp string
	GetCacheTTL    time.Duration
	ObscureEncode  bool

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	// Load basic string values
	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.CloudflareTurnstileSecretKey = getEnv("CLOUDFLARE_TURNSTILE_SECRET_KEY", "")
	cfg.CloudflareSiteVerifyURL = getEnv("CLOUDFLARE_SITEVERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	cfg.AppointmentTransitions = getEnv("APPOINTMENT_TRANSITIONS", "")
	cfg.StaffNotifyAddress = getEnv("STAFF_NOTIFY_ADDRESS", "")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@adoor.example.com")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.AppName = getEnv("APP_NAME", "Adoor")
	cfg.PasswordRegexp = getEnv("PASSWORD_REGEXP", "^.{8,}$")

	// Load numeric and time duration values with defaults and parsing
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	captchaTTLSeconds, err := strconv.ParseInt(getEnv("CAPTCHA_TOKEN_TTL", "1200"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CAPTCHA_TOKEN_TTL: %w", err)
	}
	cfg.CaptchaTokenTTL = time.Duration(captchaTTLSeconds) * time.Second

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.DefaultViewingDuration, err = strconv.Atoi(getEnv("DEFAULT_VIEWING_DURATION_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_VIEWING_DURATION_MINUTES: %w", err)
	}

	cfg.MinViewingDuration, err = strconv.Atoi(getEnv("MIN_VIEWING_DURATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_VIEWING_DURATION_MINUTES: %w", err)
	}

	cfg.AgentScheduleWindowDays, err = strconv.Atoi(getEnv("AGENT_SCHEDULE_WINDOW_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid AGENT_SCHEDULE_WINDOW_DAYS: %w", err)
	}

	slaHours, err := strconv.ParseInt(getEnv("INQUIRY_FIRST_RESPONSE_SLA_HOURS", "24"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid INQUIRY_FIRST_RESPONSE_SLA_HOURS: %w", err)
	}
	cfg.InquiryFirstResponseSLA = time.Duration(slaHours) * time.Hour

	slaCheckMinutes, err := strconv.ParseInt(getEnv("INQUIRY_SLA_CHECK_INTERVAL_MINUTES", "30"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid INQUIRY_SLA_CHECK_INTERVAL_MINUTES: %w", err)
	}
	cfg.InquirySLACheckInterval = time.Duration(slaCheckMinutes) * time.Minute

	cfg.AttachmentMaxSizeMB, err = strconv.Atoi(getEnv("ATTACHMENT_MAX_SIZE_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTACHMENT_MAX_SIZE_MB: %w", err)
	}

	getCacheTTLSeconds, err := strconv.ParseInt(getEnv("GET_CACHE_TTL_SECONDS", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GET_CACHE_TTL_SECONDS: %w", err)
	}
	cfg.GetCacheTTL = time.Duration(getCacheTTLSeconds) * time.Second

	// Rate Limiting
	cfg.RateLimitSoftBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_BUCKET_SIZE", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitSoftRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_REFILL_RATE", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_REFILL_RATE: %w", err)
	}
	cfg.RateLimitHardBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitHardRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
