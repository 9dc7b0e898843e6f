// config/config.go - Typed application configuration
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	Env  string `envconfig:"APP_ENV" default:"development"`
	Port string `envconfig:"PORT" default:"3000"`
	// Base URL of the web front end, used in email links
	AppURL string `envconfig:"APP_URL" default:"http://localhost:5173"`

	// DB
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"teetime"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`
	DBLogLevel  string `envconfig:"DB_LOG_LEVEL" default:"warn"`

	// JWT
	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireHours int    `envconfig:"JWT_EXPIRE_HOURS" default:"168"`

	// HTTP
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	BodyLimitMB int    `envconfig:"BODY_LIMIT_MB" default:"6"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Rate limiting
	RateLimitEnabled    bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRequests   int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"100"`
	RateLimitWindow     time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	AuthRateLimitMax    int           `envconfig:"AUTH_RATE_LIMIT_MAX" default:"10"`
	AuthRateLimitWindow time.Duration `envconfig:"AUTH_RATE_LIMIT_WINDOW" default:"5m"`

	// Object storage: "s3", "supabase" or "none"
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"none"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Region       string `envconfig:"AWS_REGION" default:"us-east-1"`
	S3PublicURL    string `envconfig:"S3_PUBLIC_URL"`
	SupabaseURL    string `envconfig:"SUPABASE_URL"`
	SupabaseKey    string `envconfig:"SUPABASE_SERVICE_KEY"`
	SupabaseBucket string `envconfig:"SUPABASE_BUCKET" default:"uploads"`

	// Mail queue; an empty RABBIT_URL logs emails instead of publishing them
	Mail

	ContactInbox string `envconfig:"CONTACT_INBOX" default:"hello@teetime.local"`

	// Housekeeping
	CleanupInterval       time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`
	NotificationRetention time.Duration `envconfig:"NOTIFICATION_RETENTION" default:"2160h"`
}

// Mail is shared by the API, which publishes, and the mail worker.
type Mail struct {
	RabbitURL    string `envconfig:"RABBIT_URL"`
	MailExchange string `envconfig:"MAIL_EXCHANGE" default:"teetime.mail"`
	MailQueue    string `envconfig:"MAIL_QUEUE" default:"teetime.mail.send"`
	MailPrefetch int    `envconfig:"MAIL_PREFETCH" default:"8"`
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"TeeTime <no-reply@teetime.local>"`
}

// Worker configures cmd/mail-worker.
type Worker struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	Mail
}

// Load reads an optional .env file and parses the environment.
func Load() (App, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	var c App
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// LoadWorker reads the mail worker's settings.
func LoadWorker() (Worker, error) {
	_ = godotenv.Load()

	var w Worker
	if err := envconfig.Process("", &w); err != nil {
		return w, err
	}
	if w.RabbitURL == "" {
		return w, errors.New("RABBIT_URL is required")
	}
	return w, nil
}

func (c App) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	switch c.StorageBackend {
	case "none", "s3", "supabase":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StorageBackend == "s3" && c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3")
	}
	if c.StorageBackend == "supabase" && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		return errors.New("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when STORAGE_BACKEND=supabase")
	}
	if c.CleanupInterval <= 0 {
		return errors.New("CLEANUP_INTERVAL must be positive")
	}
	if c.JWTExpireHours <= 0 {
		return errors.New("JWT_EXPIRE_HOURS must be positive")
	}
	return nil
}

// DSN returns DATABASE_URL or builds one from the DB_* parts.
func (c App) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func (c App) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c App) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpireHours) * time.Hour
}
