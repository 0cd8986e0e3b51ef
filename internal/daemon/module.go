// Package daemon composes the bot process with fx: stores, platforms, the
// dispatcher, the scheduler and the conversation handler, plus a gRPC
// health server on the profile socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/postbot/internal/article"
	"github.com/matheus3301/postbot/internal/bus"
	"github.com/matheus3301/postbot/internal/config"
	"github.com/matheus3301/postbot/internal/conversation"
	"github.com/matheus3301/postbot/internal/dispatch"
	"github.com/matheus3301/postbot/internal/lock"
	"github.com/matheus3301/postbot/internal/logging"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/profile"
	"github.com/matheus3301/postbot/internal/scheduler"
	"github.com/matheus3301/postbot/internal/sessionstore"
	"github.com/matheus3301/postbot/internal/status"
	"github.com/matheus3301/postbot/internal/store"
	"github.com/matheus3301/postbot/internal/tg"
	"github.com/matheus3301/postbot/internal/wa"
	"github.com/matheus3301/postbot/internal/worker"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	queueSize   = 64
	pingTimeout = 15 * time.Second
)

// Params holds the resolved profile passed to the fx module.
type Params struct {
	Profile    string
	SocketPath string // optional override for testing; empty = use default
	Debug      bool
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideConfig,
			provideStore,
			provideSessions,
			provideTelegram,
			provideWhatsApp,
			provideDispatcher,
			provideScheduler,
			providePool,
			provideHandler,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile, p.Debug)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideConfig depends on the lock so a second daemon fails before
// touching anything.
func provideConfig(p Params, _ *lock.Lock, logger *zap.Logger) (*config.Config, error) {
	path := profile.ConfigPath(p.Profile)
	cfg, err := config.Load(path, ".env", profile.EnvPath(p.Profile))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	logger.Info("config loaded",
		zap.String("path", path),
		zap.Int("channels", len(cfg.Channels)),
		zap.String("timezone", cfg.Timezone),
		zap.String("session_backend", cfg.Session.Backend))
	return cfg, nil
}

func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideSessions(cfg *config.Config, logger *zap.Logger) (sessionstore.Store, error) {
	if cfg.Session.Backend != config.SessionValkey {
		return sessionstore.NewMemory(cfg.Session.TTL.Duration), nil
	}
	v, err := sessionstore.NewValkey(sessionstore.ValkeyConfig{
		Address:  cfg.Session.ValkeyAddress,
		Password: cfg.Session.ValkeyPassword,
		DB:       cfg.Session.ValkeyDB,
		TTL:      cfg.Session.TTL.Duration,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("sessions stored in valkey", zap.String("address", cfg.Session.ValkeyAddress))
	return v, nil
}

func provideTelegram(cfg *config.Config, logger *zap.Logger) (*tg.Bot, error) {
	return tg.New(cfg.Telegram.Token, tg.Options{}, logger)
}

// provideWhatsApp returns nil when no channel needs WhatsApp.
func provideWhatsApp(p Params, cfg *config.Config, b *bus.Bus, logger *zap.Logger) (*wa.Adapter, error) {
	if !cfg.WhatsApp.Enabled && !cfg.HasPlatform(config.PlatformWhatsApp) {
		return nil, nil
	}
	return wa.NewAdapter(context.Background(), profile.WhatsAppDBPath(p.Profile), b, logger)
}

func provideDispatcher(cfg *config.Config, db *store.DB, bot *tg.Bot, adapter *wa.Adapter, b *bus.Bus, logger *zap.Logger) *dispatch.Dispatcher {
	publishers := map[string]platform.Publisher{config.PlatformTelegram: bot}
	if adapter != nil {
		publishers[config.PlatformWhatsApp] = adapter.Publisher(bot)
	}
	return dispatch.New(db, publishers, article.New(nil, logger.Named("article")), dispatch.Options{
		RichArticleHosts: cfg.Dispatch.RichArticleHosts,
		SendTimeout:      cfg.Dispatch.SendTimeout.Duration,
	}, b, logger.Named("dispatch"))
}

func provideScheduler(cfg *config.Config, db *store.DB, b *bus.Bus, logger *zap.Logger) *scheduler.Scheduler {
	return scheduler.New(db, scheduler.Options{
		Tick:          cfg.Scheduler.Tick.Duration,
		MaxConcurrent: cfg.Scheduler.MaxConcurrent,
	}, b, logger.Named("scheduler"))
}

func providePool(cfg *config.Config, logger *zap.Logger) *worker.Pool {
	return worker.New(cfg.Workers.Count, queueSize, logger.Named("worker"))
}

func provideHandler(cfg *config.Config, bot *tg.Bot, sessions sessionstore.Store, db *store.DB, d *dispatch.Dispatcher, s *scheduler.Scheduler, logger *zap.Logger) *conversation.Handler {
	h := conversation.New(conversation.Deps{
		Config:     cfg,
		Bot:        bot,
		Sessions:   sessions,
		Store:      db,
		Dispatcher: d,
		Scheduler:  s,
		Logger:     logger,
	})
	s.SetFireFunc(h.FireScheduled)
	return h
}

type lifecycleParams struct {
	fx.In

	Server    *Server
	Lock      *lock.Lock
	DB        *store.DB
	Sessions  sessionstore.Store
	Bot       *tg.Bot
	Adapter   *wa.Adapter
	Scheduler *scheduler.Scheduler
	Pool      *worker.Pool
	Handler   *conversation.Handler
	Machine   *status.Machine
	Bus       *bus.Bus
	Logger    *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, p lifecycleParams) {
	runCtx, cancel := context.WithCancel(context.Background())
	logger := p.Logger

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Mirror status changes onto the health service.
			events, unsub := p.Bus.Subscribe(bus.KindStatusChanged, 16)
			go func() {
				defer unsub()
				for {
					select {
					case <-runCtx.Done():
						return
					case evt := <-events:
						if change, ok := evt.Payload.(status.StatusChange); ok {
							logger.Info("status changed", zap.String("from", string(change.From)), zap.String("to", string(change.To)))
							p.Server.SetStatus(change.To)
						}
					}
				}
			}()

			go func() {
				if err := p.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			_ = p.Machine.Transition(status.Connecting)

			if err := p.Scheduler.Start(runCtx); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			p.Pool.Start(runCtx)
			p.Bot.SetHandler(conversation.NewSerial(p.Handler, p.Pool, logger))

			pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
			username, err := p.Bot.Ping(pingCtx)
			pingCancel()
			if err != nil {
				logger.Error("telegram unreachable, polling will retry", zap.Error(err))
				_ = p.Machine.Transition(status.Degraded)
			} else {
				logger.Info("telegram bot ready", zap.String("username", username))
				_ = p.Machine.Transition(status.Ready)
			}
			go p.Bot.Start(runCtx)

			if p.Adapter != nil {
				startWhatsApp(runCtx, p.Adapter, p.Machine, p.Bus, logger)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = p.Machine.Transition(status.Stopping)
			cancel()
			p.Pool.Stop()
			p.Scheduler.Stop()
			if p.Adapter != nil {
				p.Adapter.Disconnect()
			}
			p.Server.Stop(ctx)
			if c, ok := p.Sessions.(interface{ Close() }); ok {
				c.Close()
			}
			if err := p.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := p.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

// startWhatsApp connects a paired device, or starts pairing and prints the
// QR codes to stderr.
func startWhatsApp(ctx context.Context, adapter *wa.Adapter, machine *status.Machine, b *bus.Bus, logger *zap.Logger) {
	handler := wa.NewEventHandler(b, machine, logger.Named("whatsapp"))
	adapter.RegisterEventHandler(handler.Handle)

	if adapter.IsLoggedIn() {
		logger.Info("connecting whatsapp device", zap.String("phone", adapter.PhoneNumber()))
		go func() {
			if err := adapter.Connect(); err != nil {
				logger.Error("whatsapp connect failed", zap.Error(err))
				_ = machine.Transition(status.Degraded)
			}
		}()
		return
	}

	logger.Info("no whatsapp credentials found, pairing required")
	_ = machine.Transition(status.AuthRequired)
	auth, err := adapter.StartQRAuth(ctx)
	if err != nil {
		if !errors.Is(err, wa.ErrAlreadyPaired) {
			logger.Error("whatsapp pairing failed", zap.Error(err))
		}
		return
	}
	go func() {
		for evt := range auth {
			switch evt.Type {
			case wa.AuthEventQRCode:
				qr, err := wa.RenderQR(evt.QRCode)
				if err != nil {
					logger.Warn("render QR", zap.Error(err))
					continue
				}
				fmt.Fprintf(os.Stderr, "Scan with WhatsApp > Linked devices:\n%s\n", qr)
			case wa.AuthEventAuthenticated:
				logger.Info("whatsapp paired")
			default:
				logger.Warn("whatsapp pairing ended", zap.String("reason", evt.Message))
			}
		}
	}()
}
