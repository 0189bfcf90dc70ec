package geoclient

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stanthony/volunteer-hours/pkg/core/model"
)

// ParseProviderResponse extracts a coordinate from any of the supported provider shapes:
//
//	{"latitude": 39.86, "longitude": -74.83}  (ipapi.co)
//	{"lat": 39.86, "lon": -74.83}             (ip-api.com)
//	{"loc": "39.86,-74.83"}                   (ipinfo.io)
//
// Numbers may also arrive as strings. Explicit provider failures and out-of-range or
// non-finite values are malformed.
func ParseProviderResponse(body []byte) (model.Coordinate, string, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return model.Coordinate{}, "", err
	}

	if failed, reason := providerFailure(obj); failed {
		return model.Coordinate{}, "", fmt.Errorf("%w: provider reported failure: %s", ErrMalformedResponse, reason)
	}

	city, _ := obj["city"].(string)

	// A shape whose fields are present but unusable gives way to the next one;
	// its error is reported only if no shape yields a coordinate.
	var firstErr error
	for _, shape := range coordinateShapes {
		coord, found, err := shape(obj)
		if !found {
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return coord, city, nil
	}

	if firstErr != nil {
		return model.Coordinate{}, "", firstErr
	}
	return model.Coordinate{}, "", fmt.Errorf("%w: no coordinate fields", ErrMalformedResponse)
}

// coordinateShape reads one provider layout; found is false when its fields are absent
type coordinateShape func(obj map[string]interface{}) (coord model.Coordinate, found bool, err error)

var coordinateShapes = []coordinateShape{
	fieldPair("latitude", "longitude"),
	fieldPair("lat", "lon"),
	locField,
}

func fieldPair(latKey, lonKey string) coordinateShape {
	return func(obj map[string]interface{}) (model.Coordinate, bool, error) {
		latRaw, hasLat := obj[latKey]
		lonRaw, hasLon := obj[lonKey]
		if !hasLat || !hasLon {
			return model.Coordinate{}, false, nil
		}
		coord, err := coordinateFrom(latRaw, lonRaw)
		return coord, true, err
	}
}

func locField(obj map[string]interface{}) (model.Coordinate, bool, error) {
	loc, ok := obj["loc"].(string)
	if !ok {
		return model.Coordinate{}, false, nil
	}
	parts := strings.Split(loc, ",")
	if len(parts) != 2 {
		return model.Coordinate{}, true, fmt.Errorf("%w: loc %q", ErrMalformedResponse, loc)
	}
	coord, err := coordinateFrom(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	return coord, true, err
}

// ParseReverseGeocodeResponse reads a Nominatim-style answer, preferring the town-level name
func ParseReverseGeocodeResponse(body []byte) (string, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return "", err
	}

	if address, ok := obj["address"].(map[string]interface{}); ok {
		for _, key := range []string{"city", "town", "village", "hamlet", "county"} {
			if name, ok := address[key].(string); ok && name != "" {
				return name, nil
			}
		}
	}

	if name, ok := obj["display_name"].(string); ok && name != "" {
		return name, nil
	}

	return "", fmt.Errorf("%w: no place name", ErrMalformedResponse)
}

// providerFailure recognises the error envelopes used by ip-api.com and ipapi.co
func providerFailure(obj map[string]interface{}) (bool, string) {
	if status, ok := obj["status"].(string); ok && status == "fail" {
		msg, _ := obj["message"].(string)
		return true, msg
	}
	if isErr, ok := obj["error"].(bool); ok && isErr {
		reason, _ := obj["reason"].(string)
		return true, reason
	}
	if _, ok := obj["bogon"]; ok {
		return true, "bogon address"
	}
	return false, ""
}

func coordinateFrom(latRaw, lonRaw interface{}) (model.Coordinate, error) {
	lat, err := toFloat(latRaw)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: latitude: %v", ErrMalformedResponse, err)
	}
	lon, err := toFloat(lonRaw)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: longitude: %v", ErrMalformedResponse, err)
	}

	if !finite(lat) || !finite(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return model.Coordinate{}, fmt.Errorf("%w: coordinate out of range (%v, %v)", ErrMalformedResponse, lat, lon)
	}

	return model.Coordinate{Latitude: lat, Longitude: lon}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
