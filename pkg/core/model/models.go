package model

import (
	"encoding/json"
	"strings"
	"time"
)

// TimestampLayout is the wall-clock layout written to every stored row
const TimestampLayout = "2006-01-02 15:04:05"

type Direction string

const (
	DirectionIn  Direction = "In"
	DirectionOut Direction = "Out"
)

func (d Direction) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}

// ParseDirection accepts the stored form ("In", "Out") as well as the entry point
// actions ("punch_in", "punch_out") and lower-case variants
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "In", "in", "punch_in", "IN":
		return DirectionIn, true
	case "Out", "out", "punch_out", "OUT":
		return DirectionOut, true
	}
	return "", false
}

// Coordinate is a WGS84 latitude/longitude pair
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Venue is the fixed reference point punches are gated against
type Venue struct {
	Name         string
	Center       Coordinate
	RadiusMeters float64
}

// PunchEvent is one accepted in/out action
type PunchEvent struct {
	ID        string    `json:"id"`
	ActorName string    `json:"actorName"`
	Service   string    `json:"service,omitempty"`
	Direction Direction `json:"direction"`
	Timestamp time.Time `json:"-"`
	Location  string    `json:"location,omitempty"`
}

// FormattedTimestamp returns the timestamp in the stored layout
func (p PunchEvent) FormattedTimestamp() string {
	return p.Timestamp.Format(TimestampLayout)
}

// MarshalJSON writes the timestamp exactly as it would be stored,
// so a failed punch can be copied into the sheet by hand
func (p PunchEvent) MarshalJSON() ([]byte, error) {
	type event PunchEvent
	return json.Marshal(struct {
		event
		Timestamp string `json:"timestamp"`
	}{event: event(p), Timestamp: p.FormattedTimestamp()})
}

// DayAvailability is what a volunteer offered for one festival day.
// Shift is set in the shift variant; Station and Slots in the station variant.
type DayAvailability struct {
	Day     string   `json:"day"`
	Shift   string   `json:"shift,omitempty"`
	Station string   `json:"station,omitempty"`
	Slots   []string `json:"slots,omitempty"`
}

func (a DayAvailability) String() string {
	if a.Station != "" {
		if len(a.Slots) == 0 {
			return a.Day + ": " + a.Station
		}
		return a.Day + ": " + a.Station + " (" + strings.Join(a.Slots, ", ") + ")"
	}
	return a.Day + ": " + a.Shift
}

// Registration represents a single volunteer sign-up
type Registration struct {
	ID               string            `json:"id"`
	FirstName        string            `json:"firstName"`
	LastName         string            `json:"lastName"`
	Phone            string            `json:"phone"`
	Email            string            `json:"email,omitempty"` // optional in the shift variant
	AgeBracket       string            `json:"ageBracket"`
	EmergencyContact string            `json:"emergencyContact,omitempty"`
	Experience       string            `json:"experience,omitempty"`
	Availability     []DayAvailability `json:"availability"` // in festival day order
	Notes            string            `json:"notes,omitempty"`
	SubmittedAt      time.Time         `json:"submittedAt"`
}

// FullName returns "First Last"
func (r Registration) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// AvailabilitySummary renders availability as a single cell,
// e.g. "Friday: Cosmetology (12-3pm, 3-6pm) | Saturday: Inflatables (6-9pm)"
func (r Registration) AvailabilitySummary() string {
	parts := make([]string, 0, len(r.Availability))
	for _, a := range r.Availability {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, " | ")
}

// Station is a festival station volunteers can sign up for
type Station struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
}

// FestivalDay is one day of the event with the shifts/time slots on offer
type FestivalDay struct {
	Date   time.Time `json:"date"`
	Label  string    `json:"label"`
	Shifts []string  `json:"shifts"`
}
