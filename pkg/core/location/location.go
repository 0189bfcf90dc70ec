package location

import (
	"errors"
	"fmt"

	"github.com/stanthony/volunteer-hours/pkg/core/model"
)

var (
	// ErrLocationUnavailable means no coordinate could be obtained; punches treat it as a gate failure
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrLocationPending means the device has not answered yet; the caller may ask again
	ErrLocationPending = errors.New("location pending")
)

// DeviceStatus is what the client reports about its own geolocation attempt
type DeviceStatus string

const (
	DeviceResolved DeviceStatus = "resolved"
	DevicePending  DeviceStatus = "pending"
	DeviceError    DeviceStatus = "error"
)

// DeviceReport is the client-side geolocation result sent with a punch
type DeviceReport struct {
	Status    DeviceStatus `json:"status"`
	Latitude  *float64     `json:"latitude,omitempty"`
	Longitude *float64     `json:"longitude,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Coordinate validates the report and returns the coordinate it carries
func (d DeviceReport) Coordinate() (model.Coordinate, error) {
	switch d.Status {
	case DevicePending, "":
		return model.Coordinate{}, ErrLocationPending
	case DeviceError:
		reason := d.Error
		if reason == "" {
			reason = "device reported an error"
		}
		return model.Coordinate{}, fmt.Errorf("%w: %s", ErrLocationUnavailable, reason)
	case DeviceResolved:
	default:
		return model.Coordinate{}, fmt.Errorf("%w: unknown device status %q", ErrLocationUnavailable, d.Status)
	}

	if d.Latitude == nil || d.Longitude == nil {
		return model.Coordinate{}, fmt.Errorf("%w: resolved report without coordinates", ErrLocationUnavailable)
	}

	lat, lon := *d.Latitude, *d.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return model.Coordinate{}, fmt.Errorf("%w: coordinate out of range (%v, %v)", ErrLocationUnavailable, lat, lon)
	}

	return model.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// Fix is a resolved position plus whatever place name came with it
type Fix struct {
	Coordinate model.Coordinate `json:"coordinate"`
	City       string           `json:"city,omitempty"`
}

// Request identifies who is asking and carries whatever the client already knows
type Request struct {
	SessionID string
	ClientIP  string
	Device    *DeviceReport
}

func (r Request) cacheKey() string {
	if r.SessionID != "" {
		return "session:" + r.SessionID
	}
	return "ip:" + r.ClientIP
}
