package vapi

import (
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/assistdesk/internal/config"
	"github.com/xiaot623/assistdesk/internal/logger"
)

// NewPlatform creates a platform client based on cfg. ASSISTDESK_MODE=MOCK
// returns a MockClient; otherwise a real Client.
func NewPlatform(cfg *config.Config, log *logger.Logger, opts ...Option) Platform {
	if cfg.MockMode() {
		log.Warn("mock mode detected, using in-memory platform client", logrus.Fields{"env": config.EnvMode})
		return NewMockClient()
	}
	opts = append([]Option{WithLogger(log)}, opts...)
	return NewClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPTimeout, opts...)
}
