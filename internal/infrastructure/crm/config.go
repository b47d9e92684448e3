package crm

import (
	"errors"
	"strings"
	"time"
)

// DefaultBaseURL is the public HubSpot API endpoint
const DefaultBaseURL = "https://api.hubapi.com"

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxBodySize = 1 << 20
)

// Config errors
var (
	ErrMissingAPIKey  = errors.New("crm: API key is required")
	ErrMissingBaseURL = errors.New("crm: base URL is required")
)

// Config holds CRM contact API settings
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxBodySize int64
}

// Validate checks required settings and fills defaults
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = defaultMaxBodySize
	}
	return nil
}
