package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/stanthony/volunteer-hours/pkg/core/model"
)

const (
	StoreSheets   = "sheets"
	StorePostgres = "postgres"

	LocationStrategyDevice = "device"
	LocationStrategyIP     = "ip"

	VariantShifts   = "shifts"
	VariantStations = "stations"
)

// DefaultIPProviders is the fixed fallback order used when no providers are configured.
// "{ip}" is replaced with the caller's address.
var DefaultIPProviders = []string{
	"https://ipapi.co/{ip}/json/",
	"http://ip-api.com/json/{ip}",
	"https://ipinfo.io/{ip}/json",
}

// DefaultServices are offered on the punch form when none are configured
var DefaultServices = []string{"Food Stand", "Parking", "Setup/Cleanup", "Other"}

// VenueConfig defines the geofence centre and radius. There is deliberately no default radius.
type VenueConfig struct {
	Name         string   `yaml:"name"`
	Latitude     *float64 `yaml:"latitude" validate:"required,latitude"`
	Longitude    *float64 `yaml:"longitude" validate:"required,longitude"`
	RadiusMeters float64  `yaml:"radiusMeters" validate:"required,gt=0"`
}

// LocationConfig selects how a punch location is obtained
type LocationConfig struct {
	Strategy          string        `yaml:"strategy" validate:"required,oneof=device ip"`
	Providers         []string      `yaml:"providers,omitempty" validate:"dive,required,url"`
	ReverseGeocodeURL string        `yaml:"reverseGeocodeURL,omitempty" validate:"omitempty,url"`
	CacheTTL          time.Duration `yaml:"cacheTTL,omitempty" validate:"gte=0"`
	Timeout           time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	DeviceWait        time.Duration `yaml:"deviceWait,omitempty" validate:"gte=0"`
	UserAgent         string        `yaml:"userAgent,omitempty"`
}

// TabsConfig maps the logical tables to spreadsheet tab titles
type TabsConfig struct {
	Punch        string `yaml:"punch,omitempty"`
	Registration string `yaml:"registration,omitempty"`
}

// StationConfig describes a station volunteers can choose in the station variant
type StationConfig struct {
	Name         string `yaml:"name" validate:"required"`
	Description  string `yaml:"description,omitempty"`
	Requirements string `yaml:"requirements,omitempty"`
}

// DayOverride replaces the shift options for festival days matched by RRule
type DayOverride struct {
	RRule  string   `yaml:"rrule" validate:"required"`
	Shifts []string `yaml:"shifts" validate:"required,min=1,dive,required"`
}

// FestivalConfig describes the event days and the availability choices on offer
type FestivalConfig struct {
	Name             string          `yaml:"name" validate:"required"`
	Variant          string          `yaml:"variant" validate:"required,oneof=shifts stations"`
	StartDate        string          `yaml:"startDate" validate:"required,datetime=2006-01-02"`
	Schedule         string          `yaml:"schedule" validate:"required"`
	Shifts           []string        `yaml:"shifts" validate:"required,min=1,dive,required"`
	DayOverrides     []DayOverride   `yaml:"dayOverrides,omitempty" validate:"dive"`
	Stations         []StationConfig `yaml:"stations,omitempty" validate:"required_if=Variant stations,dive"`
	AgeBrackets      []string        `yaml:"ageBrackets" validate:"required,min=1,dive,required"`
	ExperienceLevels []string        `yaml:"experienceLevels,omitempty" validate:"required_if=Variant stations,dive,required"`
}

// GmailConfig enables registration confirmation e-mails
type GmailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Sender  string `yaml:"sender,omitempty" validate:"required_if=Enabled true"`
}

// Config represents the application configuration
type Config struct {
	Store              string         `yaml:"store" validate:"required,oneof=sheets postgres"`
	SpreadsheetID      string         `yaml:"spreadsheetID,omitempty"`
	Tabs               TabsConfig     `yaml:"tabs,omitempty"`
	ServiceAccountFile string         `yaml:"serviceAccountFile,omitempty"`
	PostgresURL        string         `yaml:"postgresURL,omitempty"`
	AppendTimeout      time.Duration  `yaml:"appendTimeout,omitempty" validate:"gte=0"`
	ConnectTimeout     time.Duration  `yaml:"connectTimeout,omitempty" validate:"gte=0"`
	RedisAddr          string         `yaml:"redisAddr,omitempty" validate:"omitempty,hostname_port"`
	ServerAddr         string         `yaml:"serverAddr,omitempty"`
	TrustedProxies     []string       `yaml:"trustedProxies,omitempty" validate:"dive,ip|cidr"`
	Venue              VenueConfig    `yaml:"venue"`
	Location           LocationConfig `yaml:"location"`
	Festival           FestivalConfig `yaml:"festival"`
	Services           []string       `yaml:"services,omitempty" validate:"dive,required"`
	Gmail              GmailConfig    `yaml:"gmail,omitempty"`

	// ServiceAccountJSON is only ever populated from the environment
	ServiceAccountJSON string `yaml:"-"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads the configuration for an environment and applies environment variable overrides.
// For example, env="test" will look for "volunteer_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	cfg, err := readConfig(configPath)
	if err != nil {
		return nil, err
	}

	vars, err := ParseEnvironment()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvironment(vars)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills operational defaults. The venue radius is never defaulted.
func (c *Config) applyDefaults() {
	if c.Store == "" {
		c.Store = StoreSheets
	}
	if c.Tabs.Punch == "" {
		c.Tabs.Punch = "punch"
	}
	if c.Tabs.Registration == "" {
		c.Tabs.Registration = "registration"
	}
	if c.ServiceAccountFile == "" {
		c.ServiceAccountFile = "service_account.json"
	}
	if c.AppendTimeout == 0 {
		c.AppendTimeout = 10 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 20 * time.Second
	}
	if c.ServerAddr == "" {
		c.ServerAddr = ":8501"
	}
	if c.Location.Strategy == LocationStrategyIP && len(c.Location.Providers) == 0 {
		c.Location.Providers = append([]string(nil), DefaultIPProviders...)
	}
	if c.Location.CacheTTL == 0 {
		c.Location.CacheTTL = 5 * time.Minute
	}
	if c.Location.Timeout == 0 {
		c.Location.Timeout = 5 * time.Second
	}
	if c.Location.DeviceWait == 0 {
		c.Location.DeviceWait = 10 * time.Second
	}
	if c.Location.UserAgent == "" {
		c.Location.UserAgent = "volunteer-hours/1.0"
	}
	if len(c.Services) == 0 {
		c.Services = append([]string(nil), DefaultServices...)
	}
	if c.Venue.Name == "" {
		c.Venue.Name = c.Festival.Name
	}
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := rrule.StrToRRule(cfg.Festival.Schedule); err != nil {
		return fmt.Errorf("invalid rrule in festival.schedule: %w", err)
	}

	// Validate rrule syntax for each override
	for i, override := range cfg.Festival.DayOverrides {
		if _, err := rrule.StrToRRule(override.RRule); err != nil {
			return fmt.Errorf("invalid rrule in festival.dayOverrides[%d]: %w", i, err)
		}
	}

	days, err := cfg.FestivalDays()
	if err != nil {
		return err
	}
	if len(days) == 0 {
		return fmt.Errorf("festival.schedule produces no days from %s", cfg.Festival.StartDate)
	}

	return nil
}

// VenueModel converts the venue configuration into the geofence model
func (c *Config) VenueModel() model.Venue {
	venue := model.Venue{
		Name:         c.Venue.Name,
		RadiusMeters: c.Venue.RadiusMeters,
	}
	if c.Venue.Latitude != nil {
		venue.Center.Latitude = *c.Venue.Latitude
	}
	if c.Venue.Longitude != nil {
		venue.Center.Longitude = *c.Venue.Longitude
	}
	return venue
}

// Stations returns the configured station catalogue
func (c *Config) Stations() []model.Station {
	stations := make([]model.Station, 0, len(c.Festival.Stations))
	for _, s := range c.Festival.Stations {
		stations = append(stations, model.Station{
			Name:         s.Name,
			Description:  s.Description,
			Requirements: s.Requirements,
		})
	}
	return stations
}

// findConfigFile searches for volunteer_config.yaml in current directory and home directory
// If env is provided, it adds it as an extension (e.g., "volunteer_config.test.yaml")
func findConfigFile(env string) (string, error) {
	configFileName := "volunteer_config.yaml"
	if env != "" {
		configFileName = "volunteer_config." + env + ".yaml"
	}

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", configFileName)
}
