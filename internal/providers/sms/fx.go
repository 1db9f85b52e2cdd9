package sms

import (
	"github.com/smallbiznis/printflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.sms",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.ProvidersConfig, log *zap.Logger) Provider {
	if !cfg.Twilio.Enabled() {
		log.Named("providers.sms").Info("twilio not configured, sms disabled")
		return &NoOpProvider{}
	}
	return NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
}
