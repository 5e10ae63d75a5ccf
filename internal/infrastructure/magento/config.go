package magento

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the connection settings for the Magento REST API
type Config struct {
	// BaseURL is the store URL. It may already include the /rest/<store>/V1 root.
	BaseURL string
	// StoreCode is the store view used when BaseURL has no REST root
	StoreCode string

	// OAuth 1.0a integration credentials
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string

	// BasicUser and BasicPassword are only used when AllowBasicAuth is set
	// and the OAuth credentials are incomplete. Non-production only.
	BasicUser      string
	BasicPassword  string
	AllowBasicAuth bool

	// Timeout bounds every single attempt, including reading the body
	Timeout time.Duration
	// MaxAttempts is the number of tries for a retryable request
	MaxAttempts int
	// InitialBackoff is the wait before the first retry; it doubles per retry
	InitialBackoff time.Duration
	// MaxBackoff caps a single wait
	MaxBackoff time.Duration
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64
}

// AuthMode is how requests are authenticated
type AuthMode string

const (
	AuthOAuth1 AuthMode = "oauth1"
	AuthBasic  AuthMode = "basic"
)

const (
	DefaultStoreCode      = "default"
	DefaultTimeout        = 60 * time.Second
	DefaultMaxAttempts    = 5
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// Errors for Magento configuration
var (
	ErrConfigMissingBaseURL     = errors.New("magento: base URL is required")
	ErrConfigInvalidBaseURL     = errors.New("magento: base URL must be an absolute http(s) URL")
	ErrConfigMissingCredentials = errors.New("magento: OAuth credentials are required")
)

// Validate applies defaults and checks that a request could be signed.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	u, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrConfigInvalidBaseURL, c.BaseURL)
	}

	if !c.HasOAuth() {
		if !(c.AllowBasicAuth && c.BasicUser != "" && c.BasicPassword != "") {
			return fmt.Errorf("%w: missing %s", ErrConfigMissingCredentials, strings.Join(c.missingOAuth(), ", "))
		}
	}

	if c.StoreCode == "" {
		c.StoreCode = DefaultStoreCode
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.RequestsPerSecond < 0 {
		c.RequestsPerSecond = 0
	}
	return nil
}

// HasOAuth reports whether all four OAuth values are present.
func (c *Config) HasOAuth() bool {
	return len(c.missingOAuth()) == 0
}

// AuthMode returns the authentication the transport will use.
func (c *Config) AuthMode() AuthMode {
	if c.HasOAuth() {
		return AuthOAuth1
	}
	return AuthBasic
}

func (c *Config) missingOAuth() []string {
	var missing []string
	if c.ConsumerKey == "" {
		missing = append(missing, "consumer key")
	}
	if c.ConsumerSecret == "" {
		missing = append(missing, "consumer secret")
	}
	if c.AccessToken == "" {
		missing = append(missing, "access token")
	}
	if c.AccessTokenSecret == "" {
		missing = append(missing, "access token secret")
	}
	return missing
}
