// Package app assembles the bot: configuration, logging, storage, the
// Telegram adapter, the router and the background services, with a hot
// reload loop for the access section.
package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/Habibullo22/Kinouz/internal/bot"
	"github.com/Habibullo22/Kinouz/internal/broadcast"
	"github.com/Habibullo22/Kinouz/internal/config"
	"github.com/Habibullo22/Kinouz/internal/digest"
	"github.com/Habibullo22/Kinouz/internal/gate"
	"github.com/Habibullo22/Kinouz/internal/health"
	"github.com/Habibullo22/Kinouz/internal/session"
	"github.com/Habibullo22/Kinouz/internal/storage"
	"github.com/Habibullo22/Kinouz/internal/transport"
	"github.com/Habibullo22/Kinouz/internal/transport/telegram"
	"github.com/Habibullo22/Kinouz/pkg/logx"
)

// updateWorkers bounds concurrent update handling. Per-user ordering is
// enforced by the session locks, not by worker count.
const updateWorkers = 4

const updateBuffer = 256

type App struct {
	cfgPath string

	log      logx.Logger
	closeLog func() error

	store   storage.Store
	adapter *telegram.Adapter
	router  *bot.Router
	health  *health.Server
	digest  *digest.Service

	dyn atomic.Pointer[config.Dynamic]

	updates chan transport.Update
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	a := &App{
		cfgPath:  cfgPath,
		log:      log.With(logx.String("comp", "app")),
		closeLog: closeLog,
		updates:  make(chan transport.Update, updateBuffer),
	}
	a.dyn.Store(cfg.Snapshot())

	a.store, err = storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.StorageBusyTimeout(),
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a.adapter, err = telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.PollTimeout(),
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = a.store.Close()
		_ = closeLog()
		return nil, fmt.Errorf("init telegram: %w", err)
	}

	sessions := session.NewStore()
	checker := gate.New(a.adapter, log.With(logx.String("comp", "gate")))
	dispatcher := broadcast.New(a.store, a.adapter, cfg.Broadcast.RatePerSec, log.With(logx.String("comp", "broadcast")))
	a.router = bot.NewRouter(a.adapter, a.store, sessions, checker, dispatcher, a.dynamic, log)

	a.health = health.New(health.Config{
		Enabled: cfg.Health.Enabled,
		Addr:    cfg.Health.Addr,
		Metrics: cfg.Health.Metrics,
	}, log)

	a.digest = digest.New(digest.Config{
		Enabled:  cfg.Digest.Enabled,
		Schedule: cfg.Digest.Schedule,
		Timezone: cfg.Digest.Timezone,
	}, a.store, func(ctx context.Context, chatID int64, text string) error {
		return a.adapter.SendText(ctx, chatID, text, nil)
	}, a.dynamic, log)

	return a, nil
}

// dynamic returns the current access snapshot. The pointer is swapped whole
// on config reload; callers must not mutate it.
func (a *App) dynamic() *config.Dynamic { return a.dyn.Load() }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.health.Start()

	if err := a.digest.Start(); err != nil {
		return fmt.Errorf("start digest: %w", err)
	}

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return fmt.Errorf("start telegram: %w", err)
	}

	for i := 0; i < updateWorkers; i++ {
		a.wg.Add(1)
		go a.worker(runCtx)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := config.Watch(runCtx, a.cfgPath, a.log, func(cfg *config.Config) {
			a.dyn.Store(cfg.Snapshot())
			a.log.Info("access config reloaded",
				logx.Int("admins", len(cfg.Access.Admins)),
				logx.Int("required_channels", len(cfg.Access.RequiredChannels)))
		})
		if err != nil && runCtx.Err() == nil {
			a.log.Error("config watch stopped", logx.Err(err))
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("app started")
	return nil
}

func (a *App) worker(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-a.updates:
			a.handle(ctx, up)
		}
	}
}

// handle isolates one update: a panic in a handler must not take the worker
// (and with it the bot) down.
func (a *App) handle(ctx context.Context, up transport.Update) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("update handler panicked",
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	a.router.HandleUpdate(ctx, up)
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.cancel != nil {
		a.cancel()
	}
	err := a.adapter.Stop(ctx)
	a.wg.Wait()

	a.digest.Stop()
	a.health.Stop(ctx)

	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	a.log.Info("app stopped")
	if a.closeLog != nil {
		_ = a.closeLog()
	}
	return err
}
