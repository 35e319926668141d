// Package app composes the client out of its parts: config, logging, the
// sqlite cache, the bus transport, the REST history client and the chat
// coordinator, wired together with fx.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campusconnect/campuschat/internal/chat"
	"github.com/campusconnect/campuschat/internal/config"
	"github.com/campusconnect/campuschat/internal/events"
	"github.com/campusconnect/campuschat/internal/history"
	"github.com/campusconnect/campuschat/internal/logging"
	"github.com/campusconnect/campuschat/internal/store"
	"github.com/campusconnect/campuschat/internal/token"
	"github.com/campusconnect/campuschat/internal/transport"
)

// Params holds the resolved invocation settings passed to the fx module.
type Params struct {
	ConfigPath string
	Token      string
}

// Module returns the fx module for the chat client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("campuschat",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideClaims,
			provideFeed,
			provideStore,
			provideTransport,
			provideHistory,
			provideCoordinator,
		),
		fx.Invoke(registerLifecycle),
		fx.Invoke(registerEventLog),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	return config.Load(p.ConfigPath)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogPath)
}

func provideClaims(p Params, logger *zap.Logger) (token.Claims, error) {
	claims, err := token.Decode(p.Token)
	if err != nil {
		return token.Claims{}, err
	}
	logger.Info("token decoded",
		zap.Int64("user_id", claims.UserID),
		zap.String("role", string(claims.Role)),
		zap.Int64("department_id", claims.DepartmentID))
	return claims, nil
}

func provideFeed() *events.Feed {
	return events.NewFeed()
}

func provideStore(cfg *config.Config, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(cfg.CachePath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("cache migrations applied", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", cfg.CachePath))
	return db, nil
}

func provideTransport(cfg *config.Config, feed *events.Feed, logger *zap.Logger) *transport.Client {
	return transport.NewClient(transport.Options{
		URL:            cfg.BusURL(),
		ReconnectDelay: time.Duration(cfg.ReconnectSeconds) * time.Second,
		Logger:         logger,
		OnStatus: func(s transport.Status) {
			switch s {
			case transport.StatusConnected:
				// The coordinator publishes KindConnected itself once
				// it has re-primed state.
			case transport.StatusReconnecting:
				feed.Publish(events.Event{Kind: events.KindReconnecting})
			case transport.StatusDisconnected:
				feed.Publish(events.Event{Kind: events.KindDisconnected})
			}
		},
	})
}

func provideHistory(p Params, cfg *config.Config) *history.Client {
	return history.New(cfg.ServerURL, p.Token)
}

func provideCoordinator(p Params, t *transport.Client, h *history.Client, db *store.DB, feed *events.Feed, claims token.Claims, logger *zap.Logger) *chat.Coordinator {
	return chat.New(chat.Options{
		Transport: t,
		History:   h,
		Cache:     db,
		Feed:      feed,
		Logger:    logger,
		Bearer:    p.Token,
		Self:      claims,
	})
}

// registerEventLog mirrors the event feed into the log so a headless run
// still shows delivery activity.
func registerEventLog(lc fx.Lifecycle, feed *events.Feed, logger *zap.Logger) {
	ch, cancel := feed.Subscribe("chat.", 64)
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				for {
					select {
					case evt := <-ch:
						logger.Info("event", zap.String("kind", string(evt.Kind)))
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			close(done)
			return nil
		},
	})
}

func registerLifecycle(lc fx.Lifecycle, coord *chat.Coordinator, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return coord.Start(context.Background())
		},
		OnStop: func(_ context.Context) error {
			coord.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing cache", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
