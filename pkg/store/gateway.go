package store

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/pkg/db"
)

// Mode describes where appended rows end up
type Mode string

const (
	ModeSheets   Mode = "sheets"
	ModePostgres Mode = "postgres"
	// ModeDemo accepts every append and keeps rows only in a process-local mirror
	ModeDemo Mode = "demo"
)

// Status is the gateway state reported on every response
type Status struct {
	Mode    Mode   `json:"mode"`
	Durable bool   `json:"durable"`
	Source  string `json:"source,omitempty"`
}

// Gateway is the single write path for punches and registrations.
// It is built once at start; its mode never changes afterwards.
type Gateway struct {
	database db.Database
	mode     Mode
	source   string
	timeout  time.Duration
	logger   *zap.Logger

	mu                  sync.Mutex
	mirrorPunches       []db.Punch
	mirrorRegistrations []db.Registration
}

// NewGateway wraps a connected database. timeout bounds each append; zero means no extra bound.
func NewGateway(database db.Database, mode Mode, source string, timeout time.Duration, logger *zap.Logger) *Gateway {
	return &Gateway{
		database: database,
		mode:     mode,
		source:   source,
		timeout:  timeout,
		logger:   logger,
	}
}

// NewDemoGateway returns a gateway that stores nothing durably
func NewDemoGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		mode:   ModeDemo,
		logger: logger,
	}
}

// Durable reports whether appends reach persistent storage
func (g *Gateway) Durable() bool {
	return g.mode != ModeDemo
}

func (g *Gateway) Status() Status {
	return Status{
		Mode:    g.mode,
		Durable: g.Durable(),
		Source:  g.source,
	}
}

// AppendPunch writes one punch row. Failures are returned once and never retried.
func (g *Gateway) AppendPunch(ctx context.Context, punch db.Punch) error {
	if !g.Durable() {
		g.mu.Lock()
		g.mirrorPunches = append(g.mirrorPunches, punch)
		g.mu.Unlock()
		g.logger.Info("Demo mode: punch kept in memory only",
			zap.String("name", punch.Name),
			zap.String("direction", punch.Direction),
			zap.String("timestamp", punch.Timestamp))
		return nil
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.database.InsertPunch(ctx, &punch); err != nil {
		return fmt.Errorf("failed to append punch to %s: %w", g.mode, err)
	}
	return nil
}

// AppendRegistration writes one registration row. Failures are returned once and never retried.
func (g *Gateway) AppendRegistration(ctx context.Context, registration db.Registration) error {
	if !g.Durable() {
		g.mu.Lock()
		g.mirrorRegistrations = append(g.mirrorRegistrations, registration)
		g.mu.Unlock()
		g.logger.Info("Demo mode: registration kept in memory only",
			zap.String("first_name", registration.FirstName),
			zap.String("last_name", registration.LastName))
		return nil
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.database.InsertRegistration(ctx, &registration); err != nil {
		return fmt.Errorf("failed to append registration to %s: %w", g.mode, err)
	}
	return nil
}

// Punches lists punch rows from the durable table, or the local mirror in demo mode
func (g *Gateway) Punches(ctx context.Context) ([]db.Punch, error) {
	if !g.Durable() {
		g.mu.Lock()
		defer g.mu.Unlock()
		return append([]db.Punch(nil), g.mirrorPunches...), nil
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	return g.database.GetPunches(ctx)
}

// Registrations lists registration rows from the durable table, or the local mirror in demo mode
func (g *Gateway) Registrations(ctx context.Context) ([]db.Registration, error) {
	if !g.Durable() {
		g.mu.Lock()
		defer g.mu.Unlock()
		return append([]db.Registration(nil), g.mirrorRegistrations...), nil
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	return g.database.GetRegistrations(ctx)
}

// Close releases the underlying connection, if it holds one
func (g *Gateway) Close() error {
	return closeDatabase(g.database)
}

func closeDatabase(database db.Database) error {
	if closer, ok := database.(io.Closer); ok {
		return closer.Close()
	}
	if closer, ok := database.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}
