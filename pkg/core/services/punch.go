package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stanthony/volunteer-hours/pkg/core/geofence"
	"github.com/stanthony/volunteer-hours/pkg/core/location"
	"github.com/stanthony/volunteer-hours/pkg/core/model"
	"github.com/stanthony/volunteer-hours/pkg/db"
)

// Outcome is the definite result of an action
type Outcome string

const (
	OutcomeAccepted          Outcome = "accepted"
	OutcomeRejected          Outcome = "rejected"
	OutcomeAlreadyRecorded   Outcome = "already_recorded"
	OutcomeValidationFailed  Outcome = "validation_failed"
	OutcomePersistenceFailed Outcome = "persistence_failed"
)

// RejectReason explains a rejected punch
type RejectReason string

const (
	ReasonMissingName         RejectReason = "missing_name"
	ReasonInvalidDirection    RejectReason = "invalid_direction"
	ReasonLocationPending     RejectReason = "location_pending"
	ReasonLocationUnavailable RejectReason = "location_unavailable"
	ReasonOutOfRange          RejectReason = "out_of_range"
)

// LocationResolver resolves where the person punching is
type LocationResolver interface {
	Resolve(ctx context.Context, req location.Request) (location.Fix, error)
	Label(ctx context.Context, fix location.Fix) string
}

// PunchAppender defines the persistence needed to record punches
type PunchAppender interface {
	AppendPunch(ctx context.Context, punch db.Punch) error
}

// PunchRequest is one click of the punch in/out button
type PunchRequest struct {
	Name      string
	Service   string
	Direction string // "In", "Out", "punch_in" or "punch_out"
	Session   *Session
	Location  location.Request
}

// PunchResult carries the outcome and everything the caller needs to show it
type PunchResult struct {
	Outcome        Outcome           `json:"outcome"`
	Reason         RejectReason      `json:"reason,omitempty"`
	Detail         string            `json:"detail,omitempty"`
	DistanceMeters *float64          `json:"distanceMeters,omitempty"`
	RadiusMeters   float64           `json:"radiusMeters,omitempty"`
	Event          *model.PunchEvent `json:"event,omitempty"`
	Verse          *Verse            `json:"verse,omitempty"`
}

// PunchClock validates, gates and records punch events
type PunchClock struct {
	venue    model.Venue
	resolver LocationResolver
	store    PunchAppender
	logger   *zap.Logger

	now        func() time.Time
	pickVerse  func(n int) int
	mu         sync.Mutex
	lastByName map[string]time.Time
}

func NewPunchClock(venue model.Venue, resolver LocationResolver, store PunchAppender, logger *zap.Logger) *PunchClock {
	return &PunchClock{
		venue:      venue,
		resolver:   resolver,
		store:      store,
		logger:     logger,
		now:        time.Now,
		lastByName: make(map[string]time.Time),
	}
}

// RecordPunch runs the checks in order (name, location and geofence, session guard),
// stopping at the first that fails, then appends exactly one row.
// A storage failure is reported with the event's fields for manual recovery and is never retried.
func (p *PunchClock) RecordPunch(ctx context.Context, req PunchRequest) PunchResult {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return PunchResult{Outcome: OutcomeRejected, Reason: ReasonMissingName}
	}

	direction, ok := model.ParseDirection(strings.TrimSpace(req.Direction))
	if !ok {
		return PunchResult{
			Outcome: OutcomeRejected,
			Reason:  ReasonInvalidDirection,
			Detail:  "direction must be In or Out",
		}
	}

	fix, err := p.resolver.Resolve(ctx, req.Location)
	if err != nil {
		reason := ReasonLocationUnavailable
		if errors.Is(err, location.ErrLocationPending) {
			reason = ReasonLocationPending
		}
		return PunchResult{Outcome: OutcomeRejected, Reason: reason, Detail: err.Error()}
	}

	check := geofence.Check(&fix.Coordinate, p.venue)
	if !check.Within {
		distance := check.DistanceMeters
		p.logger.Info("Punch outside venue",
			zap.String("name", name),
			zap.String("direction", string(direction)),
			zap.Float64("distance_meters", distance),
			zap.Float64("radius_meters", check.RadiusMeters))
		return PunchResult{
			Outcome:        OutcomeRejected,
			Reason:         ReasonOutOfRange,
			DistanceMeters: &distance,
			RadiusMeters:   check.RadiusMeters,
		}
	}

	session := req.Session
	if session == nil {
		session = NewSession("")
	}
	if !session.claim(name, direction) {
		return PunchResult{Outcome: OutcomeAlreadyRecorded}
	}

	event := model.PunchEvent{
		ID:        uuid.NewString(),
		ActorName: name,
		Service:   strings.TrimSpace(req.Service),
		Direction: direction,
		Timestamp: p.nextTimestamp(name),
		Location:  p.resolver.Label(ctx, fix),
	}

	if err := p.store.AppendPunch(ctx, db.PunchFromEvent(event)); err != nil {
		session.release(name, direction)
		p.logger.Error("Failed to record punch, manual entry needed",
			zap.String("name", event.ActorName),
			zap.String("service", event.Service),
			zap.String("direction", string(event.Direction)),
			zap.String("timestamp", event.FormattedTimestamp()),
			zap.Error(err))
		return PunchResult{
			Outcome: OutcomePersistenceFailed,
			Detail:  err.Error(),
			Event:   &event,
		}
	}

	p.logger.Info("Punch recorded",
		zap.String("id", event.ID),
		zap.String("name", event.ActorName),
		zap.String("direction", string(event.Direction)),
		zap.String("timestamp", event.FormattedTimestamp()))

	verse := randomVerse(p.pickVerse)
	return PunchResult{
		Outcome: OutcomeAccepted,
		Event:   &event,
		Verse:   &verse,
	}
}

// nextTimestamp returns the wall clock at second precision, never earlier than the
// previous punch by the same name in this process
func (p *PunchClock) nextTimestamp(name string) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := p.now().Truncate(time.Second)
	if last, ok := p.lastByName[name]; ok && ts.Before(last) {
		ts = last
	}
	p.lastByName[name] = ts
	return ts
}
