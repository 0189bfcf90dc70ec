package store

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/stanthony/volunteer-hours/internal/config"
	"github.com/stanthony/volunteer-hours/pkg/clients/sheetsclient"
	"github.com/stanthony/volunteer-hours/pkg/db"
	"github.com/stanthony/volunteer-hours/pkg/postgres"
	"github.com/stanthony/volunteer-hours/pkg/utils"
)

// Attempt is one way of reaching durable storage
type Attempt struct {
	Mode   Mode
	Source string
	Open   func(ctx context.Context) (db.Database, error)
}

// Connect tries each attempt in order and returns a gateway over the first that succeeds.
// Each attempt gets connectTimeout; one that overruns counts as failed.
// If none succeed the gateway is in demo mode for the rest of the process lifetime.
func Connect(ctx context.Context, attempts []Attempt, connectTimeout, appendTimeout time.Duration, logger *zap.Logger) *Gateway {
	for _, attempt := range attempts {
		database, err := openAttempt(ctx, attempt, connectTimeout, logger)
		if err != nil {
			logger.Warn("Storage connection attempt failed",
				zap.String("mode", string(attempt.Mode)),
				zap.String("source", attempt.Source),
				zap.Error(err))
			continue
		}

		logger.Info("Connected to storage",
			zap.String("mode", string(attempt.Mode)),
			zap.String("source", attempt.Source))
		return NewGateway(database, attempt.Mode, attempt.Source, appendTimeout, logger)
	}

	logger.Warn("No storage available, running in demo mode: records are NOT saved",
		zap.Int("attempts", len(attempts)))
	return NewDemoGateway(logger)
}

type openResult struct {
	database db.Database
	err      error
}

// openAttempt runs attempt.Open under a deadline. Open runs in its own
// goroutine so an implementation that ignores ctx cannot hold up startup;
// a connection it returns after the deadline is closed.
func openAttempt(ctx context.Context, attempt Attempt, timeout time.Duration, logger *zap.Logger) (db.Database, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan openResult, 1)
	go func() {
		database, err := attempt.Open(ctx)
		done <- openResult{database: database, err: err}
	}()

	select {
	case r := <-done:
		return r.database, r.err
	case <-ctx.Done():
		go func() {
			r := <-done
			if r.err == nil && r.database != nil {
				logger.Debug("Closing storage connection opened after its deadline",
					zap.String("source", attempt.Source))
				_ = closeDatabase(r.database)
			}
		}()
		return nil, fmt.Errorf("no connection within %s: %w", timeout, ctx.Err())
	}
}

// AttemptsFromConfig lists the connection attempts for the configured store:
// for sheets, the environment credential and then the local key file; for postgres, the URL.
func AttemptsFromConfig(cfg *config.Config) []Attempt {
	if cfg.Store == config.StorePostgres {
		if cfg.PostgresURL == "" {
			return nil
		}
		url := cfg.PostgresURL
		return []Attempt{{
			Mode:   ModePostgres,
			Source: "postgresURL",
			Open: func(ctx context.Context) (db.Database, error) {
				return postgres.Open(ctx, url)
			},
		}}
	}

	if cfg.SpreadsheetID == "" {
		return nil
	}

	var attempts []Attempt
	for _, cred := range cfg.Credentials() {
		attempts = append(attempts, Attempt{
			Mode:   ModeSheets,
			Source: cred.Source,
			Open: func(ctx context.Context) (db.Database, error) {
				return openSheets(ctx, cfg, cred)
			},
		})
	}
	return attempts
}

func openSheets(ctx context.Context, cfg *config.Config, cred config.Credential) (db.Database, error) {
	if _, err := config.ParseServiceAccount(cred.JSON); err != nil {
		return nil, err
	}

	columns, err := cfg.AvailabilityColumns()
	if err != nil {
		return nil, err
	}

	// The token source outlives this attempt and refreshes for the life of
	// the process, so it must not inherit the attempt deadline. Each token
	// fetch is bounded by its own HTTP client instead.
	tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient,
		&http.Client{Timeout: cfg.ConnectTimeout})

	ts, err := utils.ServiceAccountTokenSource(tokenCtx, cred.JSON, "")
	if err != nil {
		return nil, err
	}
	if err := utils.VerifyTokenSource(ts); err != nil {
		return nil, err
	}

	client, err := sheetsclient.NewClient(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, err
	}

	database, err := db.Open(ctx, client, cfg.SpreadsheetID, db.Layout{
		PunchTab:            cfg.Tabs.Punch,
		RegistrationTab:     cfg.Tabs.Registration,
		AvailabilityColumns: columns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", cfg.SpreadsheetID, err)
	}

	return database, nil
}
