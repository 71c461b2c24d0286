package lark

import (
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Client wraps the Lark SDK client used for ops-channel messaging
type Client struct {
	client *lark.Client
	logger *zap.Logger
}

// Config holds Lark client configuration
type Config struct {
	AppID      string
	AppSecret  string
	APITimeout time.Duration
}

// NewClient creates a new Lark client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	}
	if cfg.APITimeout > 0 {
		opts = append(opts, lark.WithReqTimeout(cfg.APITimeout))
	}

	return &Client{
		client: lark.NewClient(cfg.AppID, cfg.AppSecret, opts...),
		logger: logger,
	}
}
