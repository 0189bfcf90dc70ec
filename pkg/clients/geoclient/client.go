package geoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stanthony/volunteer-hours/pkg/core/model"
)

// maxBodyBytes caps provider responses; every provider answers with a small JSON object
const maxBodyBytes = 64 << 10

// ErrMalformedResponse is returned when a provider answers without a usable coordinate
var ErrMalformedResponse = errors.New("malformed provider response")

// Options configures a Client
type Options struct {
	// Providers are URL templates tried in order; "{ip}" is replaced with the address being looked up
	Providers []string
	// ReverseGeocodeURL is a template with "{lat}" and "{lon}"; empty disables reverse geocoding
	ReverseGeocodeURL string
	Timeout           time.Duration
	UserAgent         string
	HTTPClient        *http.Client
}

// Client looks up approximate coordinates for an IP address and labels coordinates with a place name
type Client struct {
	http              *http.Client
	providers         []string
	reverseGeocodeURL string
	timeout           time.Duration
	userAgent         string
}

// IPLocation is a resolved provider answer
type IPLocation struct {
	Coordinate model.Coordinate
	City       string
	Provider   string
}

// NewClient creates a new geolocation client
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		http:              httpClient,
		providers:         append([]string(nil), opts.Providers...),
		reverseGeocodeURL: opts.ReverseGeocodeURL,
		timeout:           timeout,
		userAgent:         opts.UserAgent,
	}
}

// LookupIP queries each provider in order and returns the first structurally valid answer.
// A failing or malformed provider is skipped; if all fail the joined errors are returned.
func (c *Client) LookupIP(ctx context.Context, ip string) (IPLocation, error) {
	if len(c.providers) == 0 {
		return IPLocation{}, fmt.Errorf("no ip geolocation providers configured")
	}

	var errs []error
	for _, template := range c.providers {
		url := providerURL(template, ip)

		var loc IPLocation
		body, err := c.get(ctx, url)
		if err == nil {
			loc.Coordinate, loc.City, err = ParseProviderResponse(body)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			// Cancellation applies to every remaining provider too
			if ctx.Err() != nil {
				break
			}
			continue
		}

		loc.Provider = url
		return loc, nil
	}

	return IPLocation{}, fmt.Errorf("all ip geolocation providers failed: %w", errors.Join(errs...))
}

// ReverseGeocode returns a human-readable label for a coordinate
func (c *Client) ReverseGeocode(ctx context.Context, coord model.Coordinate) (string, error) {
	if c.reverseGeocodeURL == "" {
		return "", fmt.Errorf("reverse geocoding not configured")
	}

	url := strings.NewReplacer(
		"{lat}", formatCoordinate(coord.Latitude),
		"{lon}", formatCoordinate(coord.Longitude),
	).Replace(c.reverseGeocodeURL)

	body, err := c.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("reverse geocode failed: %w", err)
	}

	label, err := ParseReverseGeocodeResponse(body)
	if err != nil {
		return "", fmt.Errorf("reverse geocode failed: %w", err)
	}

	return label, nil
}

// get performs a bounded GET; a timeout is reported exactly like any other error
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return body, nil
}

// providerURL fills in the address; with no address the provider reports on the caller itself
func providerURL(template, ip string) string {
	if ip == "" {
		template = strings.ReplaceAll(template, "{ip}/", "")
	}
	return strings.ReplaceAll(template, "{ip}", ip)
}

func formatCoordinate(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

// decodeObject decodes a JSON object keeping numbers exact
func decodeObject(body []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedResponse)
	}
	return obj, nil
}
