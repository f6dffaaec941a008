package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/eventbus"
)

// DefaultTimeout bounds one HTTP round trip to the device cloud.
const DefaultTimeout = 15 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Logger is the logging interface used by the cloud client.
// It is satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Client.
type Options struct {
	// ClientID and Secret are the cloud project credentials. Required.
	ClientID string
	Secret   string

	// Region selects the API host. Unknown or empty regions use DefaultRegion.
	Region string

	// BaseURL overrides Region when set. Used by tests and private deployments.
	BaseURL string

	// HomeID scopes scene operations.
	HomeID string

	// HTTPClient is used for all requests. Defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration

	Logger Logger

	// Bus receives webhook-derived events. Optional.
	Bus *eventbus.Bus[Event]

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Client is a signed HTTP client for the device cloud.
//
// Reads log failures and return empty values. Commands return false on
// failure. Only authentication errors are surfaced.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	tr      *transport
	session *SessionManager
	logger  Logger
	homeID  string
	bus     *eventbus.Bus[Event]
}

// NewClient validates options and returns a Client. No network I/O happens
// until the first call.
//
// Returns:
//   - *Client: Ready client
//   - error: ErrMissingCredentials if the client id or secret is empty
func NewClient(opts Options) (*Client, error) {
	if opts.ClientID == "" || opts.Secret == "" {
		return nil, ErrMissingCredentials
	}

	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = BaseURL(opts.Region)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	tr := &transport{
		baseURL:  base,
		clientID: opts.ClientID,
		secret:   opts.Secret,
		http:     hc,
		now:      now,
		nonce:    newNonce,
	}

	return &Client{
		tr:      tr,
		session: newSessionManager(tr, logger),
		logger:  logger,
		homeID:  opts.HomeID,
		bus:     opts.Bus,
	}, nil
}

// Session returns the client's session manager.
func (c *Client) Session() *SessionManager {
	return c.session
}

// Authenticate forces a new token pair. Called once at startup.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.session.Authenticate(ctx)
	return err
}

// BaseURL returns the API host in use.
func (c *Client) BaseURL() string {
	return c.tr.baseURL
}

// request performs a signed API call and decodes the envelope result into out.
// path includes any query string; it is signed verbatim.
func (c *Client) request(ctx context.Context, method, path string, body any, out any) error {
	start := time.Now()
	err := c.do(ctx, method, path, body, out)
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(method, outcomeError).Inc()
		return err
	}
	requestsTotal.WithLabelValues(method, outcomeOK).Inc()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	sess, err := c.session.EnsureValid(ctx)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	t := c.tr.timestamp()
	nonce := c.tr.nonce()
	sign := Sign(c.tr.secret, c.tr.clientID+sess.AccessToken+t+nonce+requestStringToSign(method, payload, path))

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.tr.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	setSignedHeaders(req, c.tr.clientID, sess.AccessToken, sign, t, nonce)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.tr.send(req, out)
}

// envelope is the common response wrapper of every API endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Msg     string          `json:"msg"`
	Code    int             `json:"code"`
	T       int64           `json:"t"`
}

// transport holds what both the session manager and the client need to
// build and send signed requests.
type transport struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client
	now      func() time.Time
	nonce    func() string
}

// timestamp returns the current time in milliseconds as a decimal string.
func (tr *transport) timestamp() string {
	return strconv.FormatInt(tr.now().UnixMilli(), 10)
}

// send executes req, unwraps the envelope and decodes its result into out.
// out may be nil when the result is not needed.
func (tr *transport) send(req *http.Request, out any) error {
	resp, err := tr.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPStatusError{Status: resp.StatusCode, Body: string(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding envelope: %w", err)
	}
	if !env.Success {
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

// setSignedHeaders applies the authentication headers. accessToken is
// omitted for token endpoint calls.
func setSignedHeaders(req *http.Request, clientID, accessToken, sign, t, nonce string) {
	req.Header.Set("client_id", clientID)
	if accessToken != "" {
		req.Header.Set("access_token", accessToken)
	}
	req.Header.Set("sign", sign)
	req.Header.Set("sign_method", SignMethod)
	req.Header.Set("t", t)
	req.Header.Set("nonce", nonce)
}

// newNonce returns a random 32 character hex string.
func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
