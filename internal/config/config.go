package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`
	APIPort     int    `env:"API_PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	SMTPHost     string `env:"SMTP_HOST,required=true"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM,required=true"`
	MailDomain   string `env:"MAIL_DOMAIN,default=eventcraft.io"`

	SMSAPIURL string `env:"SMS_API_URL,required=true"`
	SMSAPIKey string `env:"SMS_API_KEY,required=true"`
	SMSFrom   string `env:"SMS_FROM,default=EventCraft"`

	RateLimitPerSec   int `env:"RATE_LIMIT_PER_SEC,default=50"`
	SendTimeoutSec    int `env:"SEND_TIMEOUT_SEC,default=5"`
	DueScanSec        int `env:"DUE_SCAN_SEC,default=30"`
	DailyReminderHour int `env:"DAILY_REMINDER_HOUR,default=9"`
	LockTTLSec        int `env:"LOCK_TTL_SEC,default=300"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
