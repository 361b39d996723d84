// Package submit carries completed nominations to the submission endpoint.
// The contract is deliberately small: one request in, a reference code or an
// error out, within a bounded timeout. Callers decide whether and when to
// retry; this package never does.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a submission round trip when the caller supplies no
// tighter deadline.
const DefaultTimeout = 15 * time.Second

// ErrRejected signals a well-formed response that reports failure.
var ErrRejected = errors.New("submit: submission rejected")

// Encoding selects the request body serialization.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingForm Encoding = "form"
)

// Payload is the aggregate the session controller hands over.
type Payload struct {
	FormID        string         `json:"formId"`
	FormatVersion string         `json:"formatVersion"`
	SubmittedAt   time.Time      `json:"submittedAt"`
	Values        map[string]any `json:"values"`
}

// Receipt is the successful endpoint response.
type Receipt struct {
	ReferenceNumber string `json:"referenceNumber"`
}

// Client delivers a payload to the configured endpoint.
type Client interface {
	Submit(ctx context.Context, payload Payload) (Receipt, error)
}

// Option configures the HTTP client.
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout bounds each submission round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithEncoding selects JSON (default) or form-encoded request bodies.
func WithEncoding(encoding Encoding) Option {
	return func(c *HTTPClient) {
		if encoding != "" {
			c.encoding = encoding
		}
	}
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	encoding Encoding
}

// NewHTTPClient constructs a client posting to endpoint.
func NewHTTPClient(endpoint string, options ...Option) (*HTTPClient, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("submit: endpoint is required")
	}
	c := &HTTPClient{
		endpoint: endpoint,
		http:     &http.Client{},
		timeout:  DefaultTimeout,
		encoding: EncodingJSON,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

type wireResponse struct {
	Success         bool   `json:"success"`
	ReferenceNumber string `json:"referenceNumber"`
	Error           string `json:"error"`
}

// Submit posts the payload and decodes the endpoint's verdict. Timeouts and
// transport failures come back as errors wrapping the underlying cause; a
// response with success=false comes back wrapping ErrRejected.
func (c *HTTPClient) Submit(ctx context.Context, payload Payload) (Receipt, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, contentType, err := c.encodeBody(payload)
	if err != nil {
		return Receipt{}, err
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return Receipt{}, fmt.Errorf("submit: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Receipt{}, fmt.Errorf("submit: timed out after %s: %w", c.timeout, err)
		}
		return Receipt{}, fmt.Errorf("submit: send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Receipt{}, fmt.Errorf("submit: read response: %w", err)
	}

	var wire wireResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return Receipt{}, fmt.Errorf("submit: decode response: %w", err)
	}
	if !wire.Success {
		msg := wire.Error
		if msg == "" {
			msg = resp.Status
		}
		return Receipt{}, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return Receipt{ReferenceNumber: wire.ReferenceNumber}, nil
}

func (c *HTTPClient) encodeBody(payload Payload) (io.Reader, string, error) {
	switch c.encoding {
	case EncodingForm:
		form := url.Values{}
		form.Set("formId", payload.FormID)
		form.Set("formatVersion", payload.FormatVersion)
		form.Set("submittedAt", payload.SubmittedAt.Format(time.RFC3339))
		for name, value := range payload.Values {
			switch v := value.(type) {
			case []string:
				for _, item := range v {
					form.Add(name, item)
				}
			case []any:
				for _, item := range v {
					form.Add(name, fmt.Sprint(item))
				}
			default:
				form.Set(name, fmt.Sprint(v))
			}
		}
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", fmt.Errorf("submit: encode payload: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}
