package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/pkg/core/location"
	"github.com/stanthony/volunteer-hours/pkg/core/model"
	"github.com/stanthony/volunteer-hours/pkg/core/services"
	"github.com/stanthony/volunteer-hours/pkg/db"
	"github.com/stanthony/volunteer-hours/pkg/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockPunches implements PunchRecorder for testing
type mockPunches struct {
	result services.PunchResult
	last   services.PunchRequest
	calls  int
}

func (m *mockPunches) RecordPunch(ctx context.Context, req services.PunchRequest) services.PunchResult {
	m.calls++
	m.last = req
	return m.result
}

// mockRegistrations implements RegistrationSubmitter for testing
type mockRegistrations struct {
	result services.RegistrationResult
	last   services.RegistrationInput
	calls  int
}

func (m *mockRegistrations) Form() services.RegistrationForm {
	return services.RegistrationForm{Festival: "Harvest Festival", Variant: "shifts"}
}

func (m *mockRegistrations) SubmitRegistration(ctx context.Context, input services.RegistrationInput) services.RegistrationResult {
	m.calls++
	m.last = input
	return m.result
}

// mockStorage implements StorageStatus for testing
type mockStorage struct {
	status  store.Status
	punches []db.Punch
	err     error
}

func (m *mockStorage) Status() store.Status {
	return m.status
}

func (m *mockStorage) Punches(ctx context.Context) ([]db.Punch, error) {
	return m.punches, m.err
}

type testServer struct {
	router        *gin.Engine
	punches       *mockPunches
	registrations *mockRegistrations
	storage       *mockStorage
	sessions      *SessionStore
}

func newTestServer(durable bool) *testServer {
	return newTestServerBehind(durable, nil)
}

func newTestServerBehind(durable bool, trustedProxies []string) *testServer {
	mode := store.ModeDemo
	if durable {
		mode = store.ModeSheets
	}

	ts := &testServer{
		punches:       &mockPunches{},
		registrations: &mockRegistrations{},
		storage:       &mockStorage{status: store.Status{Mode: mode, Durable: durable}},
		sessions:      NewSessionStore(time.Hour),
	}

	h := NewHandler(Options{
		Punches:          ts.punches,
		Registrations:    ts.registrations,
		Storage:          ts.storage,
		Services:         []string{"Food Stand", "Parking"},
		LocationStrategy: "device",
		Logger:           zap.NewNop(),
	})
	h.now = func() time.Time { return time.Date(2025, 10, 9, 17, 45, 0, 0, time.Local) }

	router, err := NewRouter(h, ts.sessions, trustedProxies, zap.NewNop())
	if err != nil {
		panic(err)
	}
	ts.router = router
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSelectView(t *testing.T) {
	tests := map[string]string{
		"":          ViewRegister,
		"register":  ViewRegister,
		"punch_in":  ViewPunchIn,
		"punch_out": ViewPunchOut,
		"PUNCH_IN":  ViewRegister,
		"dance":     ViewRegister,
	}

	for action, want := range tests {
		assert.Equal(t, want, SelectView(action), action)
	}
}

func TestEntry_PunchView(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/?action=punch_out", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "punch_out", body["mode"])
	assert.Equal(t, "Out", body["direction"])
	assert.Equal(t, "device", body["locationStrategy"])
	assert.Equal(t, []any{"Food Stand", "Parking"}, body["services"])
	assert.Equal(t, true, body["sheetsEnabled"])
	assert.Nil(t, body["form"])
}

func TestEntry_DefaultsToRegistration(t *testing.T) {
	ts := newTestServer(false)

	w := ts.do(t, http.MethodGet, "/?action=unknown", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "register", body["mode"])
	assert.Equal(t, false, body["sheetsEnabled"])
	form, ok := body["form"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Harvest Festival", form["festival"])
}

func TestEntry_HealthQuery(t *testing.T) {
	ts := newTestServer(false)

	w := ts.do(t, http.MethodGet, "/?health=true&action=punch_in", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2025-10-09 17:45:00", body["timestamp"])
	assert.Equal(t, false, body["sheetsEnabled"])
	assert.Equal(t, "demo", body["mode"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["sheetsEnabled"])
	assert.Equal(t, "sheets", body["mode"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	assert.Empty(t, w.Header().Get(sessionHeader))
}

func TestReadOnlyRoutesDoNotStartSessions(t *testing.T) {
	ts := newTestServer(true)

	for _, path := range []string{"/health", "/", "/api/form", "/api/punches"} {
		w := ts.do(t, http.MethodGet, path, nil, nil)
		assert.Empty(t, w.Header().Get(sessionHeader), path)
		assert.Empty(t, w.Result().Cookies(), path)
	}
	assert.Equal(t, 0, ts.sessions.Len())

	ts.punches.result = services.PunchResult{Outcome: services.OutcomeAccepted}
	w := ts.do(t, http.MethodPost, "/api/punch", map[string]any{"name": "Alex", "direction": "In"}, nil)
	assert.NotEmpty(t, w.Header().Get(sessionHeader))
	assert.Equal(t, 1, ts.sessions.Len())
}

func TestRecordPunch_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	ts := newTestServer(true)
	ts.punches.result = services.PunchResult{Outcome: services.OutcomeAccepted}

	ts.do(t, http.MethodPost, "/api/punch", map[string]any{"name": "Alex", "direction": "In"},
		map[string]string{"X-Forwarded-For": "203.0.113.9"})

	// httptest requests come from 192.0.2.1
	assert.Equal(t, "192.0.2.1", ts.punches.last.Location.ClientIP)
}

func TestRecordPunch_HonoursForwardedForFromTrustedProxy(t *testing.T) {
	ts := newTestServerBehind(true, []string{"192.0.2.0/24"})
	ts.punches.result = services.PunchResult{Outcome: services.OutcomeAccepted}

	ts.do(t, http.MethodPost, "/api/punch", map[string]any{"name": "Alex", "direction": "In"},
		map[string]string{"X-Forwarded-For": "203.0.113.9"})

	assert.Equal(t, "203.0.113.9", ts.punches.last.Location.ClientIP)
}

func TestNewRouter_RejectsInvalidTrustedProxy(t *testing.T) {
	_, err := NewRouter(NewHandler(Options{Logger: zap.NewNop()}), NewSessionStore(time.Hour), []string{"not-an-ip"}, zap.NewNop())
	assert.Error(t, err)
}

func TestRecordPunch_PassesRequestThrough(t *testing.T) {
	ts := newTestServer(true)
	ts.punches.result = services.PunchResult{Outcome: services.OutcomeAccepted}

	lat, lon := 39.8637, -74.8284
	w := ts.do(t, http.MethodPost, "/api/punch", map[string]any{
		"name":    "Alex",
		"service": "Parking",
		"action":  "punch_in",
		"location": map[string]any{
			"status":    "resolved",
			"latitude":  lat,
			"longitude": lon,
		},
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "accepted", decode(t, w)["outcome"])

	req := ts.punches.last
	assert.Equal(t, "Alex", req.Name)
	assert.Equal(t, "Parking", req.Service)
	assert.Equal(t, "punch_in", req.Direction)
	require.NotNil(t, req.Session)
	assert.Equal(t, req.Session.ID, req.Location.SessionID)
	require.NotNil(t, req.Location.Device)
	assert.Equal(t, location.DeviceResolved, req.Location.Device.Status)
	assert.Equal(t, lat, *req.Location.Device.Latitude)
}

func TestRecordPunch_DirectionFromQuery(t *testing.T) {
	ts := newTestServer(true)
	ts.punches.result = services.PunchResult{Outcome: services.OutcomeAccepted}

	ts.do(t, http.MethodPost, "/api/punch?action=punch_out", map[string]any{"name": "Alex"}, nil)

	assert.Equal(t, "punch_out", ts.punches.last.Direction)
}

func TestRecordPunch_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		result services.PunchResult
		want   int
	}{
		{"accepted", services.PunchResult{Outcome: services.OutcomeAccepted}, http.StatusCreated},
		{"already recorded", services.PunchResult{Outcome: services.OutcomeAlreadyRecorded}, http.StatusOK},
		{"missing name", services.PunchResult{Outcome: services.OutcomeRejected, Reason: services.ReasonMissingName}, http.StatusUnprocessableEntity},
		{"location unavailable", services.PunchResult{Outcome: services.OutcomeRejected, Reason: services.ReasonLocationUnavailable}, http.StatusUnprocessableEntity},
		{"out of range", services.PunchResult{Outcome: services.OutcomeRejected, Reason: services.ReasonOutOfRange}, http.StatusForbidden},
		{"persistence failed", services.PunchResult{Outcome: services.OutcomePersistenceFailed}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(true)
			ts.punches.result = tt.result

			w := ts.do(t, http.MethodPost, "/api/punch", map[string]any{"name": "Alex", "direction": "In"}, nil)

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, true, decode(t, w)["sheetsEnabled"])
		})
	}
}

func TestRecordPunch_PersistenceFailureIncludesEvent(t *testing.T) {
	ts := newTestServer(true)
	ts.punches.result = services.PunchResult{
		Outcome: services.OutcomePersistenceFailed,
		Detail:  "quota exceeded",
		Event: &model.PunchEvent{
			ActorName: "Alex",
			Direction: model.DirectionIn,
			Timestamp: time.Date(2025, 10, 9, 12, 0, 0, 0, time.Local),
		},
	}

	w := ts.do(t, http.MethodPost, "/api/punch", map[string]any{"name": "Alex", "direction": "In"}, nil)

	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "quota exceeded", body["detail"])
	event, ok := body["event"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alex", event["actorName"])
	assert.Equal(t, "In", event["direction"])
	assert.Equal(t, "2025-10-09 12:00:00", event["timestamp"])
}

func TestRecordPunch_InvalidBody(t *testing.T) {
	ts := newTestServer(false)

	req := httptest.NewRequest(http.MethodPost, "/api/punch", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["sheetsEnabled"])
	assert.Equal(t, 0, ts.punches.calls)
}

func TestRecordPunch_SessionIsReused(t *testing.T) {
	ts := newTestServer(true)
	ts.punches.result = services.PunchResult{Outcome: services.OutcomeAccepted}

	first := ts.do(t, http.MethodPost, "/api/punch", map[string]any{"name": "Alex", "direction": "In"}, nil)
	sessionID := first.Header().Get(sessionHeader)
	require.NotEmpty(t, sessionID)
	firstSession := ts.punches.last.Session

	ts.do(t, http.MethodPost, "/api/punch", map[string]any{"name": "Alex", "direction": "In"},
		map[string]string{sessionHeader: sessionID})

	assert.Same(t, firstSession, ts.punches.last.Session)
}

func TestRecordPunch_SessionFromCookie(t *testing.T) {
	ts := newTestServer(true)
	ts.punches.result = services.PunchResult{Outcome: services.OutcomeAccepted}

	session := ts.sessions.Get("")

	ts.do(t, http.MethodPost, "/api/punch", map[string]any{"name": "Alex", "direction": "In"},
		map[string]string{"Cookie": sessionCookie + "=" + session.ID})

	assert.Same(t, session, ts.punches.last.Session)
}

func TestSubmitRegistration(t *testing.T) {
	ts := newTestServer(false)
	ts.registrations.result = services.RegistrationResult{Outcome: services.OutcomeAccepted}

	w := ts.do(t, http.MethodPost, "/api/registrations", map[string]any{
		"firstName":  "Alex",
		"lastName":   "Rivera",
		"phone":      "555-0100",
		"ageBracket": "18+",
		"availability": []map[string]any{
			{"day": "Friday, October 10, 2025", "shift": "Other"},
		},
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "accepted", body["outcome"])
	assert.Equal(t, false, body["sheetsEnabled"])

	input := ts.registrations.last
	assert.Equal(t, "Alex", input.FirstName)
	require.Len(t, input.Availability, 1)
	assert.Equal(t, "Other", input.Availability[0].Shift)
}

func TestSubmitRegistration_ValidationFailed(t *testing.T) {
	ts := newTestServer(true)
	ts.registrations.result = services.RegistrationResult{
		Outcome: services.OutcomeValidationFailed,
		Errors:  []services.FieldError{{Field: "phone", Rule: "required"}},
	}

	w := ts.do(t, http.MethodPost, "/api/registrations", map[string]any{"firstName": "Alex"}, nil)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, []any{map[string]any{"field": "phone", "rule": "required"}}, body["errors"])
}

func TestListPunches(t *testing.T) {
	ts := newTestServer(false)
	ts.storage.punches = []db.Punch{
		{Name: "Alex", Direction: "In", Timestamp: "2025-10-09 12:00:00"},
		{Name: "Alex", Direction: "Out", Timestamp: "2025-10-09 17:00:00"},
	}

	w := ts.do(t, http.MethodGet, "/api/punches", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, false, body["sheetsEnabled"])
}

func TestListPunches_StorageError(t *testing.T) {
	ts := newTestServer(true)
	ts.storage.err = errors.New("sheets unavailable")

	w := ts.do(t, http.MethodGet, "/api/punches", nil, nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "sheets unavailable", decode(t, w)["error"])
}

func TestForm(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/api/form", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []any{"Food Stand", "Parking"}, body["services"])
	assert.Equal(t, true, body["sheetsEnabled"])
}

func TestRequestID_KeepsIncomingHeader(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/health", nil, map[string]string{requestIDHeader: "abc-123"})

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}
