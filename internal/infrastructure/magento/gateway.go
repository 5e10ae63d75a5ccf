package magento

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/erp/salesreport/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrInvalidResponse is returned when a 2xx body cannot be decoded.
var ErrInvalidResponse = errors.New("magento: invalid response")

// errAPI is the generic cause of an APIError that is not a 404.
var errAPI = errors.New("magento: API error")

// APIError is a non-2xx response that was not retried.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("magento: %s returned HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap lets callers match 404s with errors.Is(err, sales.ErrNotFound).
func (e *APIError) Unwrap() error {
	if e.IsNotFound() {
		return sales.ErrNotFound
	}
	return errAPI
}

// IsNotFound reports whether the resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether the platform rejected the credentials.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Sender is the transport contract the gateway needs.
type Sender interface {
	Send(ctx context.Context, method, rawURL string, body []byte) (*Response, error)
}

// Query holds query string parameters.
type Query map[string]string

// Encode percent-encodes q in key order. Spaces become %20, never "+",
// because Magento rejects "+" inside filter values.
func (q Query) Encode() string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeQuery(k))
		b.WriteByte('=')
		b.WriteString(escapeQuery(q[k]))
	}
	return b.String()
}

func escapeQuery(s string) string {
	// QueryEscape encodes a literal "+" as %2B, so any "+" left is a space.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ResolveAPIRoot returns the versioned REST root for baseURL, adding only
// the segments baseURL does not already have:
//
//	https://shop.example            -> https://shop.example/rest/default/V1
//	https://shop.example/rest       -> https://shop.example/rest/default/V1
//	https://shop.example/rest/br    -> https://shop.example/rest/br/V1
//	https://shop.example/rest/V1    -> unchanged
func ResolveAPIRoot(baseURL, storeCode string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrConfigInvalidBaseURL, baseURL)
	}
	if storeCode == "" {
		storeCode = DefaultStoreCode
	}

	trimmed := strings.Trim(u.Path, "/")
	var segments []string
	if trimmed != "" {
		segments = strings.Split(trimmed, "/")
	}
	n := len(segments)

	switch {
	case n > 0 && strings.EqualFold(segments[n-1], "V1"):
	case n > 0 && strings.EqualFold(segments[n-1], "rest"):
		segments = append(segments, storeCode, "V1")
	case n > 1 && strings.EqualFold(segments[n-2], "rest"):
		segments = append(segments, "V1")
	default:
		segments = append(segments, "rest", storeCode, "V1")
	}

	u.Path = "/" + strings.Join(segments, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Gateway issues typed GET calls against the REST root.
type Gateway struct {
	sender Sender
	root   string
	logger *zap.Logger
}

// NewGateway resolves the REST root of cfg.
func NewGateway(cfg *Config, sender Sender, logger *zap.Logger) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrConfigMissingBaseURL
	}
	root, err := ResolveAPIRoot(cfg.BaseURL, cfg.StoreCode)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{sender: sender, root: root, logger: logger}, nil
}

// Root returns the resolved REST root.
func (g *Gateway) Root() string {
	return g.root
}

// URL builds the full URL of endpoint. endpoint segments that may contain
// reserved characters must already be path-escaped.
func (g *Gateway) URL(endpoint string, query Query) string {
	u := g.root + "/" + strings.TrimLeft(endpoint, "/")
	if q := query.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

// Get fetches endpoint and decodes the JSON body into out.
func (g *Gateway) Get(ctx context.Context, endpoint string, query Query, out any) error {
	ctx, span := telemetry.StartClientSpan(ctx, "magento.get", telemetry.AttrEndpoint.String(endpoint))
	defer span.End()

	rawURL := g.URL(endpoint, query)
	g.logger.Debug("Magento GET", zap.String("endpoint", endpoint), zap.String("url", rawURL))

	resp, err := g.sender.Send(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	span.SetAttributes(telemetry.AttrStatusCode.Int(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       truncate(resp.Body, 2048),
		}
		telemetry.RecordError(span, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, endpoint, err)
	}
	return nil
}
