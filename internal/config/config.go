package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort            string `env:"HTTP_PORT" envDefault:"8000"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	TokenSecret         string `env:"TOKEN_SECRET,required"`
	SessionTTLMinutes   int    `env:"SESSION_TTL_MINUTES" envDefault:"10080"`
	RateLimitMax        int    `env:"RATE_LIMIT_MAX" envDefault:"10"`
	RateLimitWindowSecs int    `env:"RATE_LIMIT_WINDOW_SECS" envDefault:"60"`
	HypervisorMode      string `env:"HYPERVISOR_MODE" envDefault:"proxmox"`
	ProxmoxHost         string `env:"PROXMOX_HOST"`
	ProxmoxUser         string `env:"PROXMOX_USER"`
	ProxmoxPassword     string `env:"PROXMOX_PASSWORD"`
	ProxmoxNode         string `env:"PROXMOX_NODE" envDefault:"pve"`
	ProxmoxVerifySSL    bool   `env:"PROXMOX_VERIFY_SSL" envDefault:"false"`
	CORSOrigins         string `env:"CORS_ORIGINS" envDefault:"*"`
	SMTPHost            string `env:"SMTP_HOST"`
	SMTPPort            int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser            string `env:"SMTP_USER"`
	SMTPPass            string `env:"SMTP_PASS"`
	SMTPFrom            string `env:"SMTP_FROM"`
	SMTPFromName        string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS          bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	ContactInbox        string `env:"CONTACT_INBOX"`
	RedisAddr           string `env:"REDIS_ADDR"`
	RedisPassword       string `env:"REDIS_PASSWORD"`
	RedisDB             int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
