package servicelayer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"sync"
	"time"

	"github.com/erp/replicator/internal/domain/replication"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// codeTransport is reported through LastError when the request never produced a host answer
const codeTransport = -1

// maxErrorBody bounds how much of an error response is read
const maxErrorBody = 64 << 10

// Config configures the Service Layer HTTP client
type Config struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	LoginAttempts      uint
}

// Client talks to one Service Layer session. It implements replication.DataAPI.
// The last-error and new-object-key channels are shared by all handles of the session.
type Client struct {
	http   *http.Client
	base   string
	logger *zap.Logger

	// credentials of the last successful login, replayed when the session expires
	credentials *loginRequest
	relogins    singleflight.Group

	mu        sync.Mutex
	lastCode  int
	lastDesc  string
	newObjKey string
}

var _ replication.DataAPI = (*Client)(nil)

// NewClient creates a client for the Service Layer at baseURL
func NewClient(baseURL string, cfg Config, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // B1 installs ship self-signed certificates
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		base:   baseURL,
		logger: logger,
	}, nil
}

// GetBusinessObject returns a handle bound to the entity set of kind
func (c *Client) GetBusinessObject(_ context.Context, kind replication.DocumentKind) (replication.BusinessObject, error) {
	set, ok := EntitySet(kind)
	if !ok {
		return nil, fmt.Errorf("no service layer entity set for object type %s", kind)
	}
	return &businessObject{client: c, kind: kind, entitySet: set}, nil
}

// LastError returns the code and message of the most recent failed operation
func (c *Client) LastError() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCode, c.lastDesc
}

// NewObjectKey returns the DocEntry assigned by the most recent successful Add
func (c *Client) NewObjectKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newObjKey
}

func (c *Client) setLastError(code int, desc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCode, c.lastDesc = code, desc
}

func (c *Client) setNewObjectKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.newObjKey = key
}

// do sends a JSON request. A nil body sends no payload.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// get sends a GET. An expired session is renewed once and the request replayed.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || c.credentials == nil {
		return resp, err
	}
	drain(resp)

	if err := c.relogin(ctx); err != nil {
		return nil, fmt.Errorf("session expired and renewal failed: %w", err)
	}
	return c.do(ctx, http.MethodGet, path, nil)
}

// relogin replaces an expired session cookie. Concurrent callers share one login.
func (c *Client) relogin(ctx context.Context) error {
	if c.credentials == nil {
		return errors.New("no credentials to renew the session with")
	}
	_, err, _ := c.relogins.Do("login", func() (any, error) {
		c.logger.Info("service layer session expired, logging in again")
		res, err := c.login(ctx, *c.credentials)
		if err != nil {
			c.logger.Error("service layer session renewal failed", zap.Error(err))
			return nil, err
		}
		c.logger.Info("service layer session renewed", zap.Int("session_timeout_minutes", res.SessionTimeout))
		return res, nil
	})
	return err
}

// HostError is a non-success answer from the Service Layer
type HostError struct {
	Status  int
	Code    int
	Message string
}

func (e *HostError) Error() string {
	return fmt.Sprintf("service layer returned %d (code %d): %s", e.Status, e.Code, e.Message)
}

// readHostError decodes the OData error envelope. Responses without one still yield a HostError.
func readHostError(resp *http.Response) *HostError {
	he := &HostError{Status: resp.StatusCode, Code: -resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return he
	}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return he
	}
	if code, err := strconv.Atoi(env.Error.Code.String()); err == nil && code != 0 {
		he.Code = code
	}
	if env.Error.Message.Value != "" {
		he.Message = env.Error.Message.Value
	}
	return he
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}

// isTransient reports whether a login failure is worth retrying
func isTransient(err error) bool {
	var he *HostError
	if errors.As(err, &he) {
		return he.Status >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
