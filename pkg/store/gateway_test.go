package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/internal/config"
	"github.com/stanthony/volunteer-hours/pkg/db"
)

// mockDatabase implements db.Database for testing
type mockDatabase struct {
	punches       []db.Punch
	registrations []db.Registration
	insertErr     error
	insertCalls   int
	sawDeadline   bool
	closed        bool
}

func (m *mockDatabase) InsertPunch(ctx context.Context, punch *db.Punch) error {
	m.insertCalls++
	_, m.sawDeadline = ctx.Deadline()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.punches = append(m.punches, *punch)
	return nil
}

func (m *mockDatabase) GetPunches(ctx context.Context) ([]db.Punch, error) {
	return m.punches, nil
}

func (m *mockDatabase) InsertRegistration(ctx context.Context, registration *db.Registration) error {
	m.insertCalls++
	if m.insertErr != nil {
		return m.insertErr
	}
	m.registrations = append(m.registrations, *registration)
	return nil
}

func (m *mockDatabase) GetRegistrations(ctx context.Context) ([]db.Registration, error) {
	return m.registrations, nil
}

func (m *mockDatabase) Close() {
	m.closed = true
}

var testPunch = db.Punch{Name: "Maria Lopez", Service: "Parking", Direction: "In", Timestamp: "2025-10-10 17:02:11"}

func TestConnect_FirstSuccessfulAttemptWins(t *testing.T) {
	database := &mockDatabase{}
	var opened []string

	gateway := Connect(context.Background(), []Attempt{
		{Mode: ModeSheets, Source: config.CredentialSourceEnvironment, Open: func(ctx context.Context) (db.Database, error) {
			opened = append(opened, "environment")
			return nil, errors.New("invalid_grant")
		}},
		{Mode: ModeSheets, Source: config.CredentialSourceFile, Open: func(ctx context.Context) (db.Database, error) {
			opened = append(opened, "file")
			return database, nil
		}},
	}, time.Second, time.Second, zap.NewNop())

	assert.Equal(t, []string{"environment", "file"}, opened)
	assert.True(t, gateway.Durable())
	assert.Equal(t, Status{Mode: ModeSheets, Durable: true, Source: config.CredentialSourceFile}, gateway.Status())
}

func TestConnect_NoAttemptsMeansDemoMode(t *testing.T) {
	gateway := Connect(context.Background(), nil, time.Second, time.Second, zap.NewNop())

	assert.False(t, gateway.Durable())
	assert.Equal(t, ModeDemo, gateway.Status().Mode)
}

func TestConnect_AllAttemptsFailMeansDemoMode(t *testing.T) {
	failing := func(ctx context.Context) (db.Database, error) { return nil, errors.New("no such file") }

	gateway := Connect(context.Background(), []Attempt{
		{Mode: ModeSheets, Open: failing},
		{Mode: ModeSheets, Open: failing},
	}, time.Second, time.Second, zap.NewNop())

	assert.False(t, gateway.Durable())
}

func TestConnect_AttemptIsBoundedByConnectTimeout(t *testing.T) {
	database := &mockDatabase{}
	var sawDeadline bool

	start := time.Now()
	gateway := Connect(context.Background(), []Attempt{
		{Mode: ModeSheets, Source: config.CredentialSourceEnvironment, Open: func(ctx context.Context) (db.Database, error) {
			_, sawDeadline = ctx.Deadline()
			<-ctx.Done()
			return nil, ctx.Err()
		}},
		{Mode: ModeSheets, Source: config.CredentialSourceFile, Open: func(ctx context.Context) (db.Database, error) {
			return database, nil
		}},
	}, 50*time.Millisecond, time.Second, zap.NewNop())

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, sawDeadline)
	assert.True(t, gateway.Durable())
	assert.Equal(t, config.CredentialSourceFile, gateway.Status().Source)
}

// closeTracker records a Close from another goroutine
type closeTracker struct {
	mockDatabase
	closed chan struct{}
}

func (c *closeTracker) Close() { close(c.closed) }

func TestConnect_AttemptIgnoringDeadlineFallsBackToDemo(t *testing.T) {
	release := make(chan struct{})
	late := &closeTracker{closed: make(chan struct{})}

	gateway := Connect(context.Background(), []Attempt{
		{Mode: ModePostgres, Source: "postgresURL", Open: func(ctx context.Context) (db.Database, error) {
			<-release
			return late, nil
		}},
	}, 50*time.Millisecond, time.Second, zap.NewNop())

	assert.False(t, gateway.Durable())
	assert.Equal(t, ModeDemo, gateway.Status().Mode)

	// A connection that turns up after the deadline is not leaked
	close(release)
	select {
	case <-late.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("late connection was never closed")
	}
}

func TestDemoMode_AppendsAlwaysSucceedAndMirror(t *testing.T) {
	gateway := NewDemoGateway(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, gateway.AppendPunch(ctx, testPunch))
	require.NoError(t, gateway.AppendPunch(ctx, testPunch))
	require.NoError(t, gateway.AppendRegistration(ctx, db.Registration{FirstName: "Maria"}))

	punches, err := gateway.Punches(ctx)
	require.NoError(t, err)
	assert.Len(t, punches, 2)

	registrations, err := gateway.Registrations(ctx)
	require.NoError(t, err)
	assert.Len(t, registrations, 1)

	// The returned slice is a copy
	punches[0].Name = "changed"
	again, _ := gateway.Punches(ctx)
	assert.Equal(t, "Maria Lopez", again[0].Name)
}

func TestAppendPunch_Durable(t *testing.T) {
	database := &mockDatabase{}
	gateway := NewGateway(database, ModeSheets, config.CredentialSourceFile, time.Second, zap.NewNop())

	require.NoError(t, gateway.AppendPunch(context.Background(), testPunch))
	require.NoError(t, gateway.AppendPunch(context.Background(), testPunch))

	assert.Len(t, database.punches, 2)
	assert.True(t, database.sawDeadline)
}

func TestAppendPunch_FailureIsNotRetried(t *testing.T) {
	database := &mockDatabase{insertErr: errors.New("quota exceeded")}
	gateway := NewGateway(database, ModeSheets, config.CredentialSourceFile, time.Second, zap.NewNop())

	err := gateway.AppendPunch(context.Background(), testPunch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, database.insertCalls)
	// A connected gateway never degrades to demo mode
	assert.True(t, gateway.Durable())
}

func TestAppendRegistration_FailureIsNotRetried(t *testing.T) {
	database := &mockDatabase{insertErr: errors.New("timeout")}
	gateway := NewGateway(database, ModePostgres, "postgresURL", 0, zap.NewNop())

	err := gateway.AppendRegistration(context.Background(), db.Registration{FirstName: "Maria"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to append registration to postgres")
	assert.Equal(t, 1, database.insertCalls)
}

func TestClose(t *testing.T) {
	database := &mockDatabase{}
	gateway := NewGateway(database, ModePostgres, "postgresURL", 0, zap.NewNop())

	require.NoError(t, gateway.Close())
	assert.True(t, database.closed)

	assert.NoError(t, NewDemoGateway(zap.NewNop()).Close())
}

func TestAttemptsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Store:              config.StoreSheets,
		SpreadsheetID:      "sheet123",
		ServiceAccountJSON: `{"type":"service_account"}`,
		ServiceAccountFile: "/nonexistent/service_account.json",
	}

	attempts := AttemptsFromConfig(cfg)
	require.Len(t, attempts, 1)
	assert.Equal(t, config.CredentialSourceEnvironment, attempts[0].Source)

	// The credential is structurally invalid, so opening fails before any network call
	_, err := attempts[0].Open(context.Background())
	assert.Error(t, err)

	cfg.SpreadsheetID = ""
	assert.Empty(t, AttemptsFromConfig(cfg))

	pg := &config.Config{Store: config.StorePostgres, PostgresURL: "postgres://localhost/volunteers"}
	attempts = AttemptsFromConfig(pg)
	require.Len(t, attempts, 1)
	assert.Equal(t, ModePostgres, attempts[0].Mode)
}
