package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/pkg/core/location"
	"github.com/stanthony/volunteer-hours/pkg/core/model"
	"github.com/stanthony/volunteer-hours/pkg/core/services"
	"github.com/stanthony/volunteer-hours/pkg/db"
	"github.com/stanthony/volunteer-hours/pkg/store"
)

// View modes selected by the ?action= entry point
const (
	ViewRegister = "register"
	ViewPunchIn  = "punch_in"
	ViewPunchOut = "punch_out"
)

// PunchRecorder is the punch workflow
type PunchRecorder interface {
	RecordPunch(ctx context.Context, req services.PunchRequest) services.PunchResult
}

// RegistrationSubmitter is the registration workflow
type RegistrationSubmitter interface {
	Form() services.RegistrationForm
	SubmitRegistration(ctx context.Context, input services.RegistrationInput) services.RegistrationResult
}

// StorageStatus is the read side of the persistence gateway
type StorageStatus interface {
	Status() store.Status
	Punches(ctx context.Context) ([]db.Punch, error)
}

// Handler serves the volunteer endpoints. It performs no network I/O of its own.
type Handler struct {
	punches       PunchRecorder
	registrations RegistrationSubmitter
	storage       StorageStatus
	services      []string
	strategy      string
	deviceWait    time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// Options wires a Handler
type Options struct {
	Punches          PunchRecorder
	Registrations    RegistrationSubmitter
	Storage          StorageStatus
	Services         []string // choices for the punch form
	LocationStrategy string   // tells the client whether to send device coordinates
	DeviceWait       time.Duration
	Logger           *zap.Logger
}

func NewHandler(opts Options) *Handler {
	return &Handler{
		punches:       opts.Punches,
		registrations: opts.Registrations,
		storage:       opts.Storage,
		services:      opts.Services,
		strategy:      opts.LocationStrategy,
		deviceWait:    opts.DeviceWait,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// HealthResponse reports liveness and whether writes are durable
type HealthResponse struct {
	Status        string     `json:"status"`
	Timestamp     string     `json:"timestamp"`
	SheetsEnabled bool       `json:"sheetsEnabled"`
	Mode          store.Mode `json:"mode"`
}

// ViewResponse describes which form the entry point should show
type ViewResponse struct {
	Mode          string                     `json:"mode"`
	Direction     model.Direction            `json:"direction,omitempty"`
	Services      []string                   `json:"services,omitempty"`
	Location      string                     `json:"locationStrategy,omitempty"`
	DeviceWaitMS  int64                      `json:"deviceWaitMs,omitempty"`
	Form          *services.RegistrationForm `json:"form,omitempty"`
	SheetsEnabled bool                       `json:"sheetsEnabled"`
	Storage       store.Status               `json:"storage"`
}

type punchBody struct {
	Name      string                 `json:"name"`
	Service   string                 `json:"service"`
	Direction string                 `json:"direction"`
	Action    string                 `json:"action"`
	Location  *location.DeviceReport `json:"location"`
}

type punchResponse struct {
	services.PunchResult
	SheetsEnabled bool `json:"sheetsEnabled"`
}

type registrationResponse struct {
	services.RegistrationResult
	SheetsEnabled bool `json:"sheetsEnabled"`
}

type errorResponse struct {
	Error         string `json:"error"`
	SheetsEnabled bool   `json:"sheetsEnabled"`
}

// SelectView maps the action query parameter to a view mode. Unknown values show registration.
func SelectView(action string) string {
	switch strings.TrimSpace(action) {
	case ViewPunchIn:
		return ViewPunchIn
	case ViewPunchOut:
		return ViewPunchOut
	}
	return ViewRegister
}

// Entry handles GET /?action=... and GET /?health=true
func (h *Handler) Entry(c *gin.Context) {
	if c.Query("health") == "true" {
		h.Health(c)
		return
	}

	status := h.storage.Status()
	view := ViewResponse{
		Mode:          SelectView(c.Query("action")),
		SheetsEnabled: status.Durable,
		Storage:       status,
	}

	switch view.Mode {
	case ViewPunchIn, ViewPunchOut:
		view.Direction, _ = model.ParseDirection(view.Mode)
		view.Services = h.services
		view.Location = h.strategy
		view.DeviceWaitMS = h.deviceWait.Milliseconds()
	default:
		form := h.registrations.Form()
		view.Form = &form
	}

	c.JSON(http.StatusOK, view)
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	status := h.storage.Status()
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "healthy",
		Timestamp:     h.now().Format(model.TimestampLayout),
		SheetsEnabled: status.Durable,
		Mode:          status.Mode,
	})
}

// Form handles GET /api/form
func (h *Handler) Form(c *gin.Context) {
	status := h.storage.Status()
	c.JSON(http.StatusOK, gin.H{
		"form":          h.registrations.Form(),
		"services":      h.services,
		"sheetsEnabled": status.Durable,
	})
}

// RecordPunch handles POST /api/punch
func (h *Handler) RecordPunch(c *gin.Context) {
	durable := h.storage.Status().Durable

	var body punchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Debug("Invalid punch body", zap.Error(err))
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body", SheetsEnabled: durable})
		return
	}

	direction := body.Direction
	if direction == "" {
		direction = body.Action
	}
	if direction == "" {
		direction = c.Query("action")
	}

	session := sessionFrom(c)
	req := services.PunchRequest{
		Name:      body.Name,
		Service:   body.Service,
		Direction: direction,
		Session:   session,
		Location: location.Request{
			ClientIP: c.ClientIP(),
			Device:   body.Location,
		},
	}
	if session != nil {
		req.Location.SessionID = session.ID
	}

	result := h.punches.RecordPunch(c.Request.Context(), req)
	c.JSON(punchStatus(result), punchResponse{PunchResult: result, SheetsEnabled: durable})
}

// SubmitRegistration handles POST /api/registrations
func (h *Handler) SubmitRegistration(c *gin.Context) {
	durable := h.storage.Status().Durable

	var input services.RegistrationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Debug("Invalid registration body", zap.Error(err))
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body", SheetsEnabled: durable})
		return
	}

	result := h.registrations.SubmitRegistration(c.Request.Context(), input)
	c.JSON(registrationStatus(result), registrationResponse{RegistrationResult: result, SheetsEnabled: durable})
}

// ListPunches handles GET /api/punches
func (h *Handler) ListPunches(c *gin.Context) {
	status := h.storage.Status()

	punches, err := h.storage.Punches(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error(), SheetsEnabled: status.Durable})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"punches":       punches,
		"count":         len(punches),
		"sheetsEnabled": status.Durable,
	})
}

func punchStatus(result services.PunchResult) int {
	switch result.Outcome {
	case services.OutcomeAccepted:
		return http.StatusCreated
	case services.OutcomeAlreadyRecorded:
		return http.StatusOK
	case services.OutcomeRejected:
		if result.Reason == services.ReasonOutOfRange {
			return http.StatusForbidden
		}
		return http.StatusUnprocessableEntity
	case services.OutcomePersistenceFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func registrationStatus(result services.RegistrationResult) int {
	switch result.Outcome {
	case services.OutcomeAccepted:
		return http.StatusCreated
	case services.OutcomeValidationFailed:
		return http.StatusUnprocessableEntity
	case services.OutcomePersistenceFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
