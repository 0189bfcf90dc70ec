package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/stanthony/volunteer-hours/internal/config"
	"github.com/stanthony/volunteer-hours/pkg/clients/geoclient"
	"github.com/stanthony/volunteer-hours/pkg/clients/gmailclient"
	"github.com/stanthony/volunteer-hours/pkg/core/location"
	"github.com/stanthony/volunteer-hours/pkg/core/services"
	"github.com/stanthony/volunteer-hours/pkg/store"
	"github.com/stanthony/volunteer-hours/pkg/utils"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg         *config.Config
	Gateway     *store.Gateway
	Resolver    *location.Resolver
	GmailClient *gmailclient.Client // nil unless gmail is enabled and a credential works
	Logger      *zap.Logger
	Ctx         context.Context

	closers []func() error
}

// NewAppContext connects storage, builds the location resolver and the optional mail client.
// Storage that cannot be reached leaves the gateway in demo mode rather than failing.
func NewAppContext(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*AppContext, error) {
	app := &AppContext{
		Cfg:    cfg,
		Logger: logger,
		Ctx:    ctx,
	}

	logger.Info("Connecting to storage", zap.String("store", cfg.Store))
	app.Gateway = store.Connect(ctx, store.AttemptsFromConfig(cfg), cfg.ConnectTimeout, cfg.AppendTimeout, logger)
	app.closers = append(app.closers, app.Gateway.Close)

	resolver, err := app.newResolver(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create location resolver: %w", err)
	}
	app.Resolver = resolver

	if cfg.Gmail.Enabled {
		app.GmailClient = app.newGmailClient(ctx)
	}

	return app, nil
}

// PunchClock builds the punch workflow over the shared dependencies
func (a *AppContext) PunchClock() *services.PunchClock {
	return services.NewPunchClock(a.Cfg.VenueModel(), a.Resolver, a.Gateway, a.Logger)
}

// Registrar builds the registration workflow over the shared dependencies
func (a *AppContext) Registrar() (*services.Registrar, error) {
	var mailer services.Mailer
	if a.GmailClient != nil {
		mailer = a.GmailClient
	}
	return services.NewRegistrar(a.Cfg, a.Gateway, mailer, a.Logger)
}

// Close releases storage and cache connections
func (a *AppContext) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *AppContext) newResolver(ctx context.Context) (*location.Resolver, error) {
	loc := a.Cfg.Location

	geo := geoclient.NewClient(geoclient.Options{
		Providers:         loc.Providers,
		ReverseGeocodeURL: loc.ReverseGeocodeURL,
		Timeout:           loc.Timeout,
		UserAgent:         loc.UserAgent,
	})

	opts := location.Options{
		Strategy: loc.Strategy,
		TTL:      loc.CacheTTL,
		// Providers are tried in turn, each under its own request timeout
		Timeout: loc.Timeout * time.Duration(max(len(loc.Providers), 1)),
	}
	if loc.Strategy == config.LocationStrategyIP {
		opts.Locator = geo
	}
	if loc.ReverseGeocodeURL != "" {
		opts.Geocoder = geo
	}

	if a.Cfg.RedisAddr != "" {
		client, err := location.NewRedisClient(ctx, a.Cfg.RedisAddr)
		if err != nil {
			a.Logger.Warn("Redis unavailable, caching locations in memory", zap.Error(err))
		} else {
			cache := location.NewRedisCache(client)
			opts.Cache = cache
			a.closers = append(a.closers, cache.Close)
			a.Logger.Info("Caching locations in redis", zap.String("addr", a.Cfg.RedisAddr))
		}
	}

	return location.NewResolver(opts, a.Logger)
}

// newGmailClient impersonates the configured sender with the first working credential
func (a *AppContext) newGmailClient(ctx context.Context) *gmailclient.Client {
	for _, cred := range a.Cfg.Credentials() {
		ts, err := utils.ServiceAccountTokenSource(ctx, cred.JSON, a.Cfg.Gmail.Sender)
		if err != nil {
			a.Logger.Warn("Gmail credential rejected", zap.String("source", cred.Source), zap.Error(err))
			continue
		}

		client, err := gmailclient.NewClient(ctx, a.Cfg.Gmail.Sender, option.WithHTTPClient(utils.HTTPClient(ctx, ts)))
		if err != nil {
			a.Logger.Warn("Failed to create gmail client", zap.String("source", cred.Source), zap.Error(err))
			continue
		}

		a.Logger.Info("Confirmation emails enabled", zap.String("sender", client.Sender()))
		return client
	}

	a.Logger.Warn("Gmail enabled but no credential works, confirmation emails disabled")
	return nil
}
