package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/stanthony/volunteer-hours/pkg/clients/geoclient"
	"github.com/stanthony/volunteer-hours/pkg/core/model"
)

const (
	StrategyDevice = "device"
	StrategyIP     = "ip"
)

// IPLocator resolves approximate coordinates for a network address
type IPLocator interface {
	LookupIP(ctx context.Context, ip string) (geoclient.IPLocation, error)
}

// ReverseGeocoder labels a coordinate with a place name
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, coord model.Coordinate) (string, error)
}

// Resolver produces a best-effort coordinate for the person punching.
// It owns every outbound location call so the HTTP layer performs no network I/O itself.
type Resolver struct {
	strategy string
	locator  IPLocator
	geocoder ReverseGeocoder
	cache    Cache
	ttl      time.Duration
	timeout  time.Duration
	group    singleflight.Group
	logger   *zap.Logger
}

// Options configures a Resolver
type Options struct {
	Strategy string
	Locator  IPLocator       // required for the ip strategy
	Geocoder ReverseGeocoder // optional
	Cache    Cache           // defaults to a MemoryCache
	TTL      time.Duration
	// Timeout bounds one shared ip lookup, independent of the callers waiting on it
	Timeout time.Duration
}

func NewResolver(opts Options, logger *zap.Logger) (*Resolver, error) {
	switch opts.Strategy {
	case StrategyDevice:
	case StrategyIP:
		if opts.Locator == nil {
			return nil, fmt.Errorf("ip strategy requires a locator")
		}
	default:
		return nil, fmt.Errorf("unknown location strategy %q", opts.Strategy)
	}

	cache := opts.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Resolver{
		strategy: opts.Strategy,
		locator:  opts.Locator,
		geocoder: opts.Geocoder,
		cache:    cache,
		ttl:      ttl,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Strategy returns the configured strategy name
func (r *Resolver) Strategy() string {
	return r.strategy
}

// Resolve returns the position for req.
// Errors wrap ErrLocationPending (device has not answered) or ErrLocationUnavailable (anything else).
func (r *Resolver) Resolve(ctx context.Context, req Request) (Fix, error) {
	if r.strategy == StrategyDevice {
		return r.resolveDevice(ctx, req)
	}
	return r.resolveIP(ctx, req)
}

func (r *Resolver) resolveDevice(ctx context.Context, req Request) (Fix, error) {
	report := DeviceReport{Status: DevicePending}
	if req.Device != nil {
		report = *req.Device
	}

	coord, err := report.Coordinate()
	switch {
	case err == nil:
		fix := Fix{Coordinate: coord}
		r.store(ctx, req.cacheKey(), fix)
		return fix, nil
	case errors.Is(err, ErrLocationPending):
		// A page reload can lose the device answer; a recent fix for this session still counts
		if cached, ok := r.lookup(ctx, req.cacheKey()); ok {
			return cached, nil
		}
		return Fix{}, err
	default:
		r.logger.Debug("Device location unavailable",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		return Fix{}, err
	}
}

func (r *Resolver) resolveIP(ctx context.Context, req Request) (Fix, error) {
	key := req.cacheKey()
	if cached, ok := r.lookup(ctx, key); ok {
		return cached, nil
	}

	// Concurrent requests from the same session share one provider round.
	// The round runs detached from whichever caller started it so that one
	// caller going away does not fail the others.
	ch := r.group.DoChan(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if cached, ok := r.lookup(lookupCtx, key); ok {
			return cached, nil
		}
		loc, err := r.locator.LookupIP(lookupCtx, req.ClientIP)
		if err != nil {
			return nil, err
		}
		fix := Fix{Coordinate: loc.Coordinate, City: loc.City}
		r.store(lookupCtx, key, fix)
		r.logger.Debug("Resolved location from ip",
			zap.String("session_id", req.SessionID),
			zap.String("provider", loc.Provider),
			zap.String("city", loc.City))
		return fix, nil
	})

	var v interface{}
	var err error
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		r.logger.Warn("IP geolocation failed",
			zap.String("session_id", req.SessionID),
			zap.String("client_ip", req.ClientIP),
			zap.Error(err))
		return Fix{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	return v.(Fix), nil
}

// Label returns a place name for fix: the reverse geocoded name when a geocoder is configured,
// otherwise the city reported with the fix. Geocoding failure is only logged; it never blocks a punch.
func (r *Resolver) Label(ctx context.Context, fix Fix) string {
	if r.geocoder == nil {
		return fix.City
	}

	label, err := r.geocoder.ReverseGeocode(ctx, fix.Coordinate)
	if err != nil {
		r.logger.Debug("Reverse geocoding failed", zap.Error(err))
		return fix.City
	}
	return label
}

func (r *Resolver) lookup(ctx context.Context, key string) (Fix, bool) {
	fix, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("Location cache read failed", zap.String("key", key), zap.Error(err))
		return Fix{}, false
	}
	return fix, ok
}

func (r *Resolver) store(ctx context.Context, key string, fix Fix) {
	if err := r.cache.Set(ctx, key, fix, r.ttl); err != nil {
		r.logger.Warn("Location cache write failed", zap.String("key", key), zap.Error(err))
	}
}
