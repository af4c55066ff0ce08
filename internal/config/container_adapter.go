package config

import (
	"github.com/garyjia/travel-desk/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Auth: container.AuthConfig{
			JWTSecret:  c.Auth.JWTSecret,
			Issuer:     c.Auth.Issuer,
			Audience:   c.Auth.Audience,
			TokenTTL:   c.Auth.TokenTTL,
			BcryptCost: c.Auth.BcryptCost,
		},
		Email: container.EmailConfig{
			Enabled:   c.Email.Enabled,
			Host:      c.Email.Host,
			Port:      c.Email.Port,
			Username:  c.Email.Username,
			Password:  c.Email.Password,
			FromName:  c.Email.FromName,
			FromEmail: c.Email.FromEmail,
			UseTLS:    c.Email.UseTLS,
		},
		Lark: container.LarkConfig{
			Enabled:    c.Lark.Enabled,
			AppID:      c.Lark.AppID,
			AppSecret:  c.Lark.AppSecret,
			BaseURL:    c.Lark.BaseURL,
			APITimeout: c.Lark.APITimeout,
		},
		Notification: container.NotificationConfig{
			MaxRetries:     c.Notification.MaxRetries,
			RetryBackoff:   c.Notification.RetryBackoff,
			HandlerTimeout: c.Notification.HandlerTimeout,
		},
		Storage: container.StorageConfig{
			DocumentDir:       c.Storage.DocumentDir,
			PublicBaseURL:     c.Storage.PublicBaseURL,
			MaxUploadBytes:    c.Storage.MaxUploadBytes,
			AllowedExtensions: c.Storage.AllowedExtensions,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			AllowedOrigins:  c.CORS.AllowedOrigins,
		},
		Worker: container.WorkerConfig{
			RedeliveryEnabled:      c.Notification.Redelivery.Enabled,
			RedeliveryPollInterval: c.Notification.Redelivery.PollInterval,
			RedeliveryBatchSize:    c.Notification.Redelivery.BatchSize,
			RedeliveryMaxAttempts:  c.Notification.Redelivery.MaxAttempts,
			RedeliveryStaleAfter:   c.Notification.Redelivery.StaleAfter,
		},
		Bootstrap: container.BootstrapConfig{
			AdminEmail:    c.Bootstrap.AdminEmail,
			AdminPassword: c.Bootstrap.AdminPassword,
		},
	}
}
