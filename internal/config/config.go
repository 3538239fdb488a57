package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/clemjvdm/libcal-cli/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App     AppConfig     `yaml:"app"`
	Service ServiceConfig `yaml:"service"`
	Booking BookingConfig `yaml:"booking"`
	Redis   RedisConfig   `yaml:"redis"`
	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
	Exports ExportConfig  `yaml:"exports"`
	Logging LoggingConfig `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// ServiceConfig describes the remote room-booking service: endpoints, the
// fixed query identifiers and the transport settings every request uses.
type ServiceConfig struct {
	BaseURL        string            `yaml:"base_url"`
	LocationID     int64             `yaml:"location_id"`
	GroupID        int64             `yaml:"group_id"`
	EventID        int64             `yaml:"event_id"`
	Zone           int64             `yaml:"zone"`
	Capacity       int64             `yaml:"capacity"`
	PageSize       int               `yaml:"page_size"`
	PageIndex      int               `yaml:"page_index"`
	Timezone       string            `yaml:"timezone"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Timeout        time.Duration     `yaml:"-"`
	Headers        map[string]string `yaml:"headers"`
	RateRPS        float64           `yaml:"rate_rps"`
	RateBurst      int               `yaml:"rate_burst"`
}

type BookingConfig struct {
	MinDurationMinutes int           `yaml:"min_duration_minutes"`
	MinDuration        time.Duration `yaml:"-"`
	EmailDomain        string        `yaml:"email_domain"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTLSeconds int           `yaml:"ttl_seconds"`
	TTL        time.Duration `yaml:"-"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// Load reads the YAML config at configPath, expanding ${VAR} references from
// the environment (.env is merged in first when present). A missing config
// file is not an error: the CLI works against the default service settings.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var config Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expandedData := []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(expandedData, &config); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Service.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("service base_url %q is not a valid URL", c.Service.BaseURL)
	}

	if c.Service.PageSize <= 0 {
		return errors.New("service page_size must be positive")
	}

	if c.Booking.MinDuration <= 0 {
		return errors.New("booking min_duration_minutes must be positive")
	}

	if !strings.HasPrefix(c.Booking.EmailDomain, "@") {
		return fmt.Errorf("booking email_domain %q must start with '@'", c.Booking.EmailDomain)
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return errors.New("cache ttl_seconds must be positive when cache is enabled")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "libcal-cli"
	}
	if c.App.Environment == "" {
		c.App.Environment = "production"
	}

	if c.Service.BaseURL == "" {
		c.Service.BaseURL = "https://libcal.rug.nl"
	}
	c.Service.BaseURL = strings.TrimRight(c.Service.BaseURL, "/")
	if c.Service.LocationID == 0 {
		c.Service.LocationID = models.DefaultLocationID
	}
	if c.Service.GroupID == 0 {
		c.Service.GroupID = models.DefaultGroupID
	}
	if c.Service.EventID == 0 {
		c.Service.EventID = models.DefaultEventID
	}
	if c.Service.Zone == 0 {
		c.Service.Zone = models.DefaultZone
	}
	if c.Service.Capacity == 0 {
		c.Service.Capacity = models.DefaultCapacity
	}
	if c.Service.PageSize == 0 {
		c.Service.PageSize = models.DefaultPageSize
	}
	if c.Service.PageIndex == 0 {
		c.Service.PageIndex = models.DefaultPageIndex
	}
	if c.Service.Timezone == "" {
		c.Service.Timezone = "Europe/Amsterdam"
	}
	if c.Service.TimeoutSeconds <= 0 {
		c.Service.TimeoutSeconds = 30
	}
	c.Service.Timeout = time.Duration(c.Service.TimeoutSeconds) * time.Second
	if c.Service.RateRPS == 0 {
		c.Service.RateRPS = 2
	}
	if c.Service.RateBurst == 0 {
		c.Service.RateBurst = 4
	}
	if c.Service.Headers == nil {
		c.Service.Headers = defaultHeaders(c.Service)
	}

	if c.Booking.MinDurationMinutes <= 0 {
		c.Booking.MinDurationMinutes = int(models.DefaultMinDuration / time.Minute)
	}
	c.Booking.MinDuration = time.Duration(c.Booking.MinDurationMinutes) * time.Minute
	if c.Booking.EmailDomain == "" {
		c.Booking.EmailDomain = models.DefaultEmailDomain
	}

	if c.Cache.Enabled {
		if c.Cache.TTLSeconds <= 0 {
			c.Cache.TTLSeconds = 600
		}
		c.Cache.TTL = time.Duration(c.Cache.TTLSeconds) * time.Second
	}

	if c.History.Path == "" {
		c.History.Path = "data/history.db"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}

// defaultHeaders are the request headers the service expects on its AJAX
// endpoints; without them the grid and booking calls are rejected.
func defaultHeaders(svc ServiceConfig) map[string]string {
	referer := fmt.Sprintf("%s/r/new/availability?lid=%d&zone=%d&gid=%d&capacity=%d",
		svc.BaseURL, svc.LocationID, svc.Zone, svc.GroupID, svc.Capacity)
	return map[string]string{
		"User-Agent":       "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
		"Accept":           "application/json, text/javascript, */*; q=0.01",
		"X-Requested-With": "XMLHttpRequest",
		"Origin":           svc.BaseURL,
		"Referer":          referer,
	}
}
