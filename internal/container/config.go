// Package container provides dependency injection and lifecycle management
// for the travel desk service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Auth configuration
	Auth AuthConfig

	// Email (SMTP) configuration
	Email EmailConfig

	// Lark messaging configuration
	Lark LarkConfig

	// Notification delivery configuration
	Notification NotificationConfig

	// Storage configuration
	Storage StorageConfig

	// Server configuration
	Server ServerConfig

	// Worker configuration
	Worker WorkerConfig

	// Bootstrap configuration
	Bootstrap BootstrapConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the database lock
	BusyTimeout time.Duration
}

// AuthConfig holds session token and password settings.
type AuthConfig struct {
	// JWTSecret signs session tokens
	JWTSecret string

	// Issuer and Audience are embedded in and required from tokens
	Issuer   string
	Audience string

	// TokenTTL is the session lifetime
	TokenTTL time.Duration

	// BcryptCost is the password hashing cost
	BcryptCost int
}

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	// Enabled turns on Lark chat notifications
	Enabled bool

	// AppID is the Lark application ID
	AppID string

	// AppSecret is the Lark application secret
	AppSecret string

	// BaseURL is the open platform endpoint
	BaseURL string

	// APITimeout is the timeout for API calls
	APITimeout time.Duration
}

// NotificationConfig holds inline delivery settings.
type NotificationConfig struct {
	// MaxRetries is the number of inline attempts per channel
	MaxRetries int

	// RetryBackoff is multiplied by the attempt number between retries
	RetryBackoff time.Duration

	// HandlerTimeout bounds one event's delivery
	HandlerTimeout time.Duration
}

// StorageConfig holds document storage settings.
type StorageConfig struct {
	// DocumentDir is the base directory for uploaded documents
	DocumentDir string

	// PublicBaseURL prefixes stored document names in URLs
	PublicBaseURL string

	// MaxUploadBytes caps one upload
	MaxUploadBytes int64

	// AllowedExtensions lists accepted upload extensions
	AllowedExtensions []string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration

	// AllowedOrigins for CORS
	AllowedOrigins []string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// Notification redelivery worker settings
	RedeliveryEnabled      bool
	RedeliveryPollInterval time.Duration
	RedeliveryBatchSize    int
	RedeliveryMaxAttempts  int
	RedeliveryStaleAfter   time.Duration
}

// BootstrapConfig holds the initial admin account.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/traveldesk.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:     "TravelDeskApi",
			Audience:   "TravelDeskClient",
			TokenTTL:   8 * time.Hour,
			BcryptCost: 10,
		},
		Email: EmailConfig{
			Port:     587,
			FromName: "Travel Desk",
		},
		Lark: LarkConfig{
			BaseURL:    "https://open.larksuite.com",
			APITimeout: 30 * time.Second,
		},
		Notification: NotificationConfig{
			MaxRetries:     3,
			RetryBackoff:   time.Second,
			HandlerTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			DocumentDir:       "data/documents",
			PublicBaseURL:     "/files",
			MaxUploadBytes:    10 << 20,
			AllowedExtensions: []string{".pdf", ".jpg", ".jpeg", ".png"},
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Worker: WorkerConfig{
			RedeliveryEnabled:      true,
			RedeliveryPollInterval: time.Minute,
			RedeliveryBatchSize:    20,
			RedeliveryMaxAttempts:  6,
			RedeliveryStaleAfter:   10 * time.Minute,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Email.Enabled && (c.Email.Host == "" || c.Email.FromEmail == "") {
		return fmt.Errorf("email.host and email.from_email are required when email is enabled")
	}

	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret are required when lark is enabled")
	}

	if c.Storage.DocumentDir == "" {
		return fmt.Errorf("storage.document_dir is required")
	}

	return nil
}
