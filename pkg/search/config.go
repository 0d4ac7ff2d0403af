package search

import (
	"fmt"
	"time"
)

const (
	// DefaultRequestTimeout bounds every engine request. Bulk and scroll
	// calls against large indexes can legitimately take minutes.
	DefaultRequestTimeout = 600 * time.Second

	// DefaultScrollTTL keeps a cursor alive between page fetches.
	DefaultScrollTTL = 2 * time.Hour
)

// Config holds search engine connection configuration
type Config struct {
	Addresses      []string `toml:"addresses"`
	Username       string   `toml:"username"`
	Password       string   `toml:"password"`
	InsecureSSL    bool     `toml:"insecure_ssl"`
	RequestTimeout string   `toml:"request_timeout"`
	ScrollTTL      string   `toml:"scroll_ttl"`
}

// Validate checks engine configuration
func (c *Config) Validate() error {
	if len(c.Addresses) == 0 {
		return fmt.Errorf("addresses is required")
	}
	if c.RequestTimeout != "" {
		if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
			return fmt.Errorf("request_timeout is invalid: %v", err)
		}
	}
	if c.ScrollTTL != "" {
		if _, err := time.ParseDuration(c.ScrollTTL); err != nil {
			return fmt.Errorf("scroll_ttl is invalid: %v", err)
		}
	}
	return nil
}

func (c *Config) requestTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return DefaultRequestTimeout
	}
	return d
}

func (c *Config) scrollTTL() time.Duration {
	d, err := time.ParseDuration(c.ScrollTTL)
	if err != nil || d <= 0 {
		return DefaultScrollTTL
	}
	return d
}
