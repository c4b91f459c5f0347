package app

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"Gin_postgres_redis_borrow_return/db"
)

// Config is read from the environment (see config.LoadEnv for .env support).
type Config struct {
	// DB: DATABASE_URL wins over the DB_* parts
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"pte"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`

	// Redis
	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPwd  string `envconfig:"REDIS_PASSWORD"`

	// HTTP / WebAuthn
	Port          string        `envconfig:"PORT" default:"3001"`
	WebOrigin     string        `envconfig:"WEB_ORIGIN" default:"http://localhost:5173"`
	RPID          string        `envconfig:"RP_ID" default:"localhost"`
	RPOrigins     []string      `envconfig:"RP_ORIGINS"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"10m"`
	AppSessionTTL time.Duration `envconfig:"APP_SESSION_TTL" default:"24h"`
	AdminEmails   []string      `envconfig:"ADMIN_EMAILS"`
	InviteTTL     time.Duration `envconfig:"INVITE_TTL" default:"24h"`

	// Borrow lifecycle
	Timezone              string `envconfig:"TIMEZONE" default:"Asia/Bangkok"`
	ConflictRetryAttempts int    `envconfig:"CONFLICT_RETRY_ATTEMPTS" default:"4"`
	SeedCatalog           bool   `envconfig:"SEED_CATALOG" default:"true"`

	// Notifications: queue if RABBIT_URL is set, else SMTP if SMTP_HOST is set, else log only
	RabbitURL    string `envconfig:"RABBIT_URL"`
	MQExchange   string `envconfig:"MQ_EXCHANGE" default:"pte.events"`
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     string `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`
	AppName      string `envconfig:"APP_NAME" default:"PTE Borrow & Return"`

	// Tracing, off when empty
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func LoadConfig() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	c.AdminEmails = normalizeList(c.AdminEmails, true)
	c.RPOrigins = normalizeList(c.RPOrigins, false)
	if len(c.RPOrigins) == 0 {
		c.RPOrigins = []string{c.WebOrigin}
	}
	if c.ConflictRetryAttempts <= 0 {
		c.ConflictRetryAttempts = 1
	}
	return c, nil
}

func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return db.BuildDSN(c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Location falls back to UTC when TIMEZONE is unknown to the system tz database.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdminEmail marks addresses that register only through an admin invite.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if email == admin {
			return true
		}
	}
	return false
}

func normalizeList(in []string, lower bool) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if lower {
			s = strings.ToLower(s)
		}
		out = append(out, s)
	}
	return out
}
