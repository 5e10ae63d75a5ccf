package magento

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dghubble/oauth1"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxResponseSize limits how much of a response body is read (10MB)
const maxResponseSize = 10 << 20

// ErrTransport marks failures where no usable response was obtained:
// connection errors, timeouts and retryable statuses after the last attempt.
var ErrTransport = errors.New("magento: transport failure")

// Response is a raw HTTP response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// TransportError is returned by Transport.Send when a request could not be
// completed. StatusCode and Body hold the last response seen, if any.
type TransportError struct {
	Method     string
	URL        string
	Attempts   int
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "magento: %s %s failed after %d attempt(s)", e.Method, e.URL, e.Attempts)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Body) > 0 {
		fmt.Fprintf(&b, ": %s", truncate(e.Body, 512))
	}
	return b.String()
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// RetryPolicy decides which requests are retried and how long to wait.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Statuses        map[int]bool
	Methods         map[string]bool
}

// NewRetryPolicy returns the policy for cfg: GET and POST are retried on
// 429, 500, 502, 503, 504 and on connection failures.
func NewRetryPolicy(cfg *Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialBackoff,
		MaxInterval:     cfg.MaxBackoff,
		Statuses: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
		Methods: map[string]bool{
			http.MethodGet:  true,
			http.MethodPost: true,
		},
	}
}

func (p RetryPolicy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}

// RequestObserver is notified once per Send with the final outcome.
type RequestObserver interface {
	ObserveRequest(ctx context.Context, method string, statusCode, attempts int, err error)
}

// Transport signs and sends requests, retrying transient failures.
type Transport struct {
	client   *http.Client
	policy   RetryPolicy
	limiter  *rate.Limiter
	observer RequestObserver
	logger   *zap.Logger
}

// TransportOption configures a Transport
type TransportOption func(*transportOptions)

type transportOptions struct {
	base     http.RoundTripper
	logger   *zap.Logger
	observer RequestObserver
}

// WithBaseTransport sets the round tripper requests are sent through after signing
func WithBaseTransport(rt http.RoundTripper) TransportOption {
	return func(o *transportOptions) {
		o.base = rt
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) TransportOption {
	return func(o *transportOptions) {
		o.logger = logger
	}
}

// WithObserver registers a RequestObserver
func WithObserver(observer RequestObserver) TransportOption {
	return func(o *transportOptions) {
		o.observer = observer
	}
}

// NewTransport validates cfg and builds the signing client. It fails before
// any request is made when credentials are missing.
func NewTransport(cfg *Config, opts ...TransportOption) (*Transport, error) {
	if cfg == nil {
		return nil, ErrConfigMissingBaseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &transportOptions{
		base:   http.DefaultTransport,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	var client *http.Client
	switch cfg.AuthMode() {
	case AuthOAuth1:
		oauthConfig := &oauth1.Config{
			ConsumerKey:    cfg.ConsumerKey,
			ConsumerSecret: cfg.ConsumerSecret,
			Signer:         &oauth1.HMAC256Signer{ConsumerSecret: cfg.ConsumerSecret},
		}
		token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
		// The oauth1 transport signs every RoundTrip, so each retry gets a
		// fresh nonce and timestamp.
		ctx := context.WithValue(context.Background(), oauth1.HTTPClient, &http.Client{Transport: o.base})
		client = oauthConfig.Client(ctx, token)
	default:
		o.logger.Warn("Magento OAuth credentials incomplete, using basic auth (non-production only)")
		client = &http.Client{Transport: &basicAuthTransport{
			username: cfg.BasicUser,
			password: cfg.BasicPassword,
			base:     o.base,
		}}
	}
	client.Timeout = cfg.Timeout

	t := &Transport{
		client:   client,
		policy:   NewRetryPolicy(cfg),
		observer: o.observer,
		logger:   o.logger,
	}
	if cfg.RequestsPerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return t, nil
}

// statusError asks the retry loop for another attempt.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.code)
}

// Send issues method against rawURL. Non-2xx statuses outside the retry set
// are returned as a normal Response for the caller to interpret.
func (t *Transport) Send(ctx context.Context, method, rawURL string, body []byte) (*Response, error) {
	retryable := t.policy.Methods[method]
	attempts := 0
	var last *Response

	operation := func() error {
		attempts++
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		resp, err := t.do(ctx, method, rawURL, body)
		if err != nil {
			if ctx.Err() != nil || !retryable {
				return backoff.Permanent(err)
			}
			return err
		}
		last = resp
		if retryable && t.policy.Statuses[resp.StatusCode] {
			return &statusError{code: resp.StatusCode}
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		t.logger.Warn("Retrying Magento request",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(t.policy.newBackOff(), ctx)
	err := backoff.RetryNotify(operation, b, notify)
	if err != nil {
		terr := &TransportError{
			Method:   method,
			URL:      rawURL,
			Attempts: attempts,
			Err:      err,
		}
		if last != nil {
			terr.StatusCode = last.StatusCode
			terr.Body = last.Body
		}
		t.observe(ctx, method, terr.StatusCode, attempts, terr)
		return nil, terr
	}

	t.observe(ctx, method, last.StatusCode, attempts, nil)
	return last, nil
}

func (t *Transport) observe(ctx context.Context, method string, status, attempts int, err error) {
	if t.observer != nil {
		t.observer.ObserveRequest(ctx, method, status, attempts, err)
	}
}

func (t *Transport) do(ctx context.Context, method, rawURL string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("magento: failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("magento: failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(clone)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
