package push

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultTokenEndpoint  = "https://oauth2.googleapis.com/token"
	defaultFCMEndpoint    = "https://fcm.googleapis.com"
	defaultLegacyEndpoint = "https://fcm.googleapis.com/fcm/send"

	defaultWorkers = 5
	defaultTimeout = 10 * time.Second
)

// Config carries everything the dispatch engine needs. Secrets are
// passed in explicitly rather than read from the environment at the
// point of use; the endpoint fields exist so tests can stand in for
// Google's servers.
type Config struct {
	ProjectID          string
	ServiceAccountJSON string
	LegacyServerKey    string

	TokenEndpoint  string
	FCMEndpoint    string
	LegacyEndpoint string

	Timeout time.Duration
	Workers int
}

// ConfigFromEnv builds a Config from the process environment.
func ConfigFromEnv() Config {
	cfg := Config{
		ProjectID:          os.Getenv("FIREBASE_PROJECT_ID"),
		ServiceAccountJSON: os.Getenv("FIREBASE_SERVICE_ACCOUNT"),
		LegacyServerKey:    os.Getenv("FCM_SERVER_KEY"),
		TokenEndpoint:      os.Getenv("FCM_TOKEN_ENDPOINT"),
		FCMEndpoint:        os.Getenv("FCM_ENDPOINT"),
		LegacyEndpoint:     os.Getenv("FCM_LEGACY_ENDPOINT"),
	}
	if v := os.Getenv("PUSH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("PUSH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.TokenEndpoint == "" {
		c.TokenEndpoint = defaultTokenEndpoint
	}
	if c.FCMEndpoint == "" {
		c.FCMEndpoint = defaultFCMEndpoint
	}
	if c.LegacyEndpoint == "" {
		c.LegacyEndpoint = defaultLegacyEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
}

// structuredConfigured reports whether the FCM v1 channel can be used.
func (c Config) structuredConfigured() bool {
	return c.ProjectID != "" && c.ServiceAccountJSON != ""
}

// legacyConfigured reports whether the deprecated server-key channel
// can be used.
func (c Config) legacyConfigured() bool {
	return c.LegacyServerKey != ""
}
