package tokenmanager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied by Config when a field is left at its zero value.
const (
	DefaultAuthPath           = "/services/oauth2/token"
	DefaultMaxRefreshAttempts = 3
	DefaultBackoffBaseDelay   = 1000 * time.Millisecond
	DefaultBackoffMultiplier  = 2.0
	DefaultJitterFactor       = 0.5
	DefaultBackoffMaxDelay    = 30 * time.Second
)

// NoBackoff disables the delay between attempts when used as
// Config.BackoffBaseDelay. A zero delay means "use the default".
const NoBackoff time.Duration = -1

// Environment variables read by LoadConfig.
const (
	EnvHost              = "SALESFORCE_HOST"
	EnvUsername          = "SALESFORCE_USERNAME"
	EnvPassword          = "SALESFORCE_PASSWORD"
	EnvClientID          = "SALESFORCE_CLIENT_ID"
	EnvClientSecret      = "SALESFORCE_CLIENT_SECRET"
	EnvAuthPath          = "SALESFORCE_AUTH_URI"
	EnvMaxRefreshRetries = "SALESFORCE_MAX_AUTH_TOKEN_RETRIES"
	EnvBackoffDelay      = "SALESFORCE_RETRY_BACKOFF_DELAY"
	EnvBackoffMultiplier = "SALESFORCE_RETRY_BACKOFF_MULTIPLIER"
)

// unresolvedPlaceholder matches values like "${SALESFORCE_PASSWORD}" that were
// copied from a template without being substituted.
var unresolvedPlaceholder = regexp.MustCompile(`^\$\{.+\}$`)

// Config describes the identity endpoint, the password-grant credentials and
// the refresh policy.
type Config struct {
	// Host is the base URL of the identity endpoint (e.g., "https://login.example.com").
	Host string

	Username     string
	Password     string
	ClientID     string
	ClientSecret string

	// AuthPath is appended to Host. Defaults to DefaultAuthPath.
	AuthPath string

	// MaxRefreshAttempts is the total number of issue attempts per refresh,
	// the first one included. Defaults to 3.
	MaxRefreshAttempts int

	// BackoffBaseDelay is the delay before the second attempt and the minimum
	// delay of the jittered policy. Defaults to 1s; set NoBackoff to retry
	// immediately.
	BackoffBaseDelay time.Duration

	// BackoffMultiplier grows the blocking delay per attempt. Defaults to 2.
	BackoffMultiplier float64

	// JitterFactor randomizes the non-blocking delay by +/- the given fraction.
	// Defaults to 0.5.
	JitterFactor float64

	// BackoffMaxDelay caps every single delay. Defaults to 30s.
	BackoffMaxDelay time.Duration
}

// TokenURL returns the absolute URL of the token endpoint.
func (c Config) TokenURL() string {
	path := c.AuthPath
	if path == "" {
		path = DefaultAuthPath
	}
	return strings.TrimSuffix(c.Host, "/") + path
}

// backoffBudget bounds the total time a refresh can spend waiting between
// attempts. c must already carry its defaults.
func (c Config) backoffBudget() time.Duration {
	if c.MaxRefreshAttempts <= 1 {
		return 0
	}
	return time.Duration(c.MaxRefreshAttempts-1) * c.BackoffMaxDelay
}

// withDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.AuthPath == "" {
		c.AuthPath = DefaultAuthPath
	}
	if c.MaxRefreshAttempts == 0 {
		c.MaxRefreshAttempts = DefaultMaxRefreshAttempts
	}
	switch c.BackoffBaseDelay {
	case 0:
		c.BackoffBaseDelay = DefaultBackoffBaseDelay
	case NoBackoff:
		c.BackoffBaseDelay = 0
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if c.JitterFactor == 0 {
		c.JitterFactor = DefaultJitterFactor
	}
	if c.BackoffMaxDelay == 0 {
		c.BackoffMaxDelay = DefaultBackoffMaxDelay
	}
	return c
}

// Validate checks that all credentials are present and the refresh policy is usable.
// Zero-valued policy fields are valid because they fall back to defaults.
func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"host", c.Host},
		{"username", c.Username},
		{"password", c.Password},
		{"client id", c.ClientID},
		{"client secret", c.ClientSecret},
	}

	var errs []error
	for _, field := range required {
		switch {
		case strings.TrimSpace(field.value) == "":
			errs = append(errs, fmt.Errorf("%s is required", field.name))
		case unresolvedPlaceholder.MatchString(field.value):
			errs = append(errs, fmt.Errorf("%s: environment variable is missing", field.name))
		}
	}

	if c.AuthPath != "" && !strings.HasPrefix(c.AuthPath, "/") {
		errs = append(errs, fmt.Errorf("auth path %q must start with /", c.AuthPath))
	}
	if c.MaxRefreshAttempts < 0 {
		errs = append(errs, errors.New("max refresh attempts must not be negative"))
	}
	if c.BackoffBaseDelay < 0 && c.BackoffBaseDelay != NoBackoff {
		errs = append(errs, errors.New("backoff base delay must not be negative"))
	}
	if c.BackoffMultiplier != 0 && c.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("backoff multiplier must be at least 1"))
	}
	if c.JitterFactor < 0 || c.JitterFactor > 1 {
		errs = append(errs, errors.New("jitter factor must be between 0 and 1"))
	}
	if c.BackoffMaxDelay < 0 {
		errs = append(errs, errors.New("backoff max delay must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("tokenmanager: invalid config: %w", err)
	}
	return nil
}

// LoadConfig reads the given .env files (or ".env" when none are given) and
// builds a Config from the process environment. Variables that are already
// set win over file values. A missing default ".env" is not an error.
func LoadConfig(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("tokenmanager: load env files: %w", err)
		}
	}

	cfg := Config{
		Host:         os.Getenv(EnvHost),
		Username:     os.Getenv(EnvUsername),
		Password:     os.Getenv(EnvPassword),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		AuthPath:     os.Getenv(EnvAuthPath),
	}

	if v := os.Getenv(EnvMaxRefreshRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("tokenmanager: parse %s: %w", EnvMaxRefreshRetries, err)
		}
		if n < 1 {
			return Config{}, fmt.Errorf("tokenmanager: %s must be at least 1, got %d", EnvMaxRefreshRetries, n)
		}
		cfg.MaxRefreshAttempts = n
	}

	if v := os.Getenv(EnvBackoffDelay); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("tokenmanager: parse %s: %w", EnvBackoffDelay, err)
		}
		cfg.BackoffBaseDelay = time.Duration(ms) * time.Millisecond
		if ms == 0 {
			cfg.BackoffBaseDelay = NoBackoff
		}
	}

	if v := os.Getenv(EnvBackoffMultiplier); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("tokenmanager: parse %s: %w", EnvBackoffMultiplier, err)
		}
		cfg.BackoffMultiplier = m
	}

	return cfg, nil
}
