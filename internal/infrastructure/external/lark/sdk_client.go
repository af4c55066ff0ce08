package lark

import (
	"errors"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
)

// Config holds Lark app credentials
type Config struct {
	AppID     string
	AppSecret string
	BaseURL   string // empty means the public Lark endpoint
	Timeout   time.Duration
}

// NewSDKClient creates a Lark SDK client with tenant token caching
func NewSDKClient(cfg Config) (*lark.Client, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, errors.New("lark app id and secret are required")
	}

	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lark.WithOpenBaseUrl(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, lark.WithReqTimeout(cfg.Timeout))
	}

	return lark.NewClient(cfg.AppID, cfg.AppSecret, opts...), nil
}
