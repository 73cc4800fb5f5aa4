package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"callmonitor_sdk/internal/adapters/memstore"
	"callmonitor_sdk/internal/adapters/redistore"
	"callmonitor_sdk/internal/callmonitor"
	"callmonitor_sdk/internal/callmonitor/domain"
	"callmonitor_sdk/internal/callmonitor/ports"
	"callmonitor_sdk/internal/events"
	"callmonitor_sdk/internal/monitorhttp"
	"callmonitor_sdk/internal/presence"
	"callmonitor_sdk/platform/config"
	"callmonitor_sdk/platform/logger"
)

// staticAccount is the fixed account context for a single-tenant deployment.
type staticAccount struct {
	countryCode string
}

func (a staticAccount) CountryCode() string { return a.countryCode }
func (a staticAccount) Ready() bool         { return true }

// Both storage adapters and both presence adapters surface change
// notifications; the composition root routes them into the monitor.
type presenceFeed interface {
	ports.PresenceSource
	OnChange(fn func())
}

type stateStore interface {
	ports.Storage
	OnChange(fn func())
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting call monitor", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	eventBus := events.NewInMemoryBus(log)

	store, closeStore := initStorage(ctx, cfg, log)
	if closeStore != nil {
		defer closeStore()
	}

	feed, runFeed := initPresence(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	monitor, err := callmonitor.New(callmonitor.Deps{
		Presence:  feed,
		Account:   staticAccount{countryCode: cfg.CountryCode},
		Storage:   store,
		Bus:       eventBus,
		Logger:    log,
		Callbacks: busCallbacks(ctx, eventBus),
	})
	if err != nil {
		log.Error("failed to construct call monitor", "error", err)
		panic("failed to construct call monitor: " + err.Error())
	}

	// Route upstream change notifications into the reconciliation loop.
	feed.OnChange(monitor.OnStateChange)
	store.OnChange(monitor.OnStateChange)
	monitor.OnStateChange()

	// ========================================================================
	// Observer Surface
	// ========================================================================

	stream := monitorhttp.NewStream(log)
	stream.RegisterHandlers(eventBus)
	engine := monitorhttp.NewRouter(cfg, log, monitor, stream)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: engine}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runFeed(gctx) })
	g.Go(func() error {
		log.Info("observer surface listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("runtime error", "error", err)
		panic("runtime error: " + err.Error())
	}
	log.Info("shutdown complete")
}

// initStorage prefers redis-backed persistence and falls back to the
// in-memory store when redis is not configured.
func initStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (stateStore, func()) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not configured; associations will not survive restarts")
		return memstore.New(), nil
	}

	store, err := redistore.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	log.Info("redis association store initialized", "prefix", cfg.RedisKeyPrefix)
	return store, func() { _ = store.Close() }
}

// initPresence returns the configured feed plus the goroutine that drives it.
func initPresence(cfg *config.Config, log *logger.Logger) (presenceFeed, func(context.Context) error) {
	if cfg.PresenceURL == "" {
		log.Warn("PRESENCE_URL not configured; running the scripted simulator feed")
		sim := presence.NewSimulator()
		return sim, func(ctx context.Context) error {
			return sim.Run(ctx, 3*time.Second)
		}
	}

	poller, err := presence.NewPoller(cfg, log)
	if err != nil {
		log.Error("failed to initialize presence poller", "error", err)
		panic("failed to initialize presence poller: " + err.Error())
	}
	log.Info("presence poller initialized",
		"url", cfg.PresenceURL, "interval", cfg.PresencePollInterval.String())
	return poller, poller.Run
}

// busCallbacks forwards call lifecycle transitions onto the event bus.
func busCallbacks(ctx context.Context, bus events.Bus) callmonitor.Callbacks {
	return callmonitor.Callbacks{
		OnNewCall: func(call domain.MatchedCall) {
			bus.Publish(ctx, events.CallStarted{
				BaseEvent: events.NewBaseEvent(),
				Call:      events.NewCallPayload(call),
			})
		},
		OnRinging: func(call domain.MatchedCall) {
			bus.Publish(ctx, events.CallRinging{
				BaseEvent: events.NewBaseEvent(),
				Call:      events.NewCallPayload(call),
			})
		},
		OnCallUpdated: func(call domain.MatchedCall) {
			bus.Publish(ctx, events.CallUpdated{
				BaseEvent: events.NewBaseEvent(),
				Call:      events.NewCallPayload(call),
			})
		},
		OnCallEnded: func(call domain.MatchedCall) {
			bus.Publish(ctx, events.CallEnded{
				BaseEvent: events.NewBaseEvent(),
				Call:      events.NewCallPayload(call),
			})
		},
	}
}
