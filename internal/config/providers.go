package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ProvidersConfig carries credentials for outbound collaborators. Every
// provider is optional; an empty block selects its no-op implementation.
type ProvidersConfig struct {
	SMTP        SMTPConfig
	Twilio      TwilioConfig
	MercadoPago MercadoPagoConfig
	StaffNotify StaffNotifyConfig
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"no-reply@printflow.local"`
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" }

type TwilioConfig struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	From       string `env:"TWILIO_FROM"`
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

type MercadoPagoConfig struct {
	AccessToken string `env:"MERCADOPAGO_ACCESS_TOKEN"`
}

func (c MercadoPagoConfig) Enabled() bool { return c.AccessToken != "" }

// StaffNotifyConfig routes staff-facing alerts (SLA breaches, reorder alerts).
type StaffNotifyConfig struct {
	Emails []string `env:"STAFF_NOTIFY_EMAILS" envSeparator:","`
}

// LoadProviders parses provider settings from the environment.
func LoadProviders() (ProvidersConfig, error) {
	var cfg ProvidersConfig
	if err := env.Parse(&cfg); err != nil {
		return ProvidersConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
