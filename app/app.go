package app

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"Gin_postgres_redis_borrow_return/db"
	"Gin_postgres_redis_borrow_return/lifecycle"
	"Gin_postgres_redis_borrow_return/notify"
	"Gin_postgres_redis_borrow_return/session"
)

// short aliases for handlers
type Ctx = gin.Context
type H = gin.H

// App holds every long-lived dependency of the API process.
type App struct {
	Router    *gin.Engine
	DB        *gorm.DB
	RDB       *redis.Client
	WA        *webauthn.WebAuthn
	Config    Config
	Log       *slog.Logger
	Repo      *db.Repo
	Notifier  notify.Notifier
	Mailer    *notify.SMTPNotifier
	Inviter   *Inviter
	Lifecycle *lifecycle.Service

	appSess   *session.AppSessionStore
	ceremony  *session.Store
	shutdowns []func(context.Context) error
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }
func (a *App) Ceremonies() *session.Store            { return a.ceremony }

func MustNew() *App {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	a := &App{Config: cfg, Log: logger}

	// --- Tracing ---
	if cfg.OTLPEndpoint != "" {
		shutdown, err := InitTracer(context.Background(), "pte-borrow-api", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("tracing: %v", err)
		}
		a.shutdowns = append(a.shutdowns, shutdown)
	}

	// --- DB: Postgres ---
	a.DB = db.ConnectDB(cfg.DSN())
	a.Repo = db.NewRepo(a.DB)

	// --- Redis ---
	a.RDB = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.RDB.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}
	a.appSess = session.NewAppSessionStore(a.RDB, cfg.AppSessionTTL)
	a.ceremony = session.NewStore(a.RDB, cfg.SessionTTL)

	// --- WebAuthn RP ---
	a.WA, err = webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.AppName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		log.Fatalf("webauthn: %v", err)
	}

	// --- Notifications + lifecycle ---
	a.Mailer = notify.NewSMTPNotifier(cfg.SMTP(), logger)
	a.Inviter = NewInviter(a.Repo, a.Mailer, cfg.WebOrigin, cfg.InviteTTL, cfg.Location())
	a.Notifier = a.buildNotifier()
	a.Lifecycle = lifecycle.New(a.Repo, a.Notifier,
		lifecycle.WithLogger(logger),
		lifecycle.WithLocation(cfg.Location()),
		lifecycle.WithRetry(lifecycle.WithMaxAttempts(cfg.ConflictRetryAttempts)),
	)

	// --- Gin ---
	a.Router = gin.Default()
	useCORS(a.Router, cfg.WebOrigin, cfg.RPOrigins)
	return a
}

// buildNotifier prefers the queue, then direct SMTP, then log-only.
func (a *App) buildNotifier() notify.Notifier {
	cfg := a.Config
	if cfg.RabbitURL != "" {
		pub, err := notify.NewPublisher(cfg.RabbitURL, cfg.MQExchange)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		a.shutdowns = append(a.shutdowns, func(context.Context) error { return pub.Close() })
		a.Log.Info("[notify] publishing lifecycle events", "exchange", cfg.MQExchange)
		return notify.NewQueueNotifier(pub)
	}
	if cfg.SMTPHost != "" {
		a.Log.Info("[notify] sending mail directly", "host", cfg.SMTPHost)
		return a.Mailer
	}
	a.Log.Warn("[notify] no RABBIT_URL or SMTP_HOST, events are only logged")
	return notify.NewLogNotifier(a.Log)
}

func (c Config) SMTP() notify.SMTPConf {
	return notify.SMTPConf{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		AppName:  c.AppName,
	}
}

func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](ctx); err != nil {
			a.Log.Warn("shutdown", "err", err)
		}
	}
	_ = a.RDB.Close()
}

// NewUserID returns a fresh UUID string; its 16 raw bytes are the WebAuthn user handle.
func NewUserID() string { return uuid.NewString() }
