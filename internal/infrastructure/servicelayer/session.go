package servicelayer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/erp/replicator/internal/domain/replication"
	"go.uber.org/zap"
)

// Connector logs in to a Service Layer and returns the session
type Connector struct {
	cfg    Config
	logger *zap.Logger
}

var _ replication.Connector = (*Connector)(nil)

// NewConnector creates a new Connector
func NewConnector(cfg Config, logger *zap.Logger) *Connector {
	if cfg.LoginAttempts == 0 {
		cfg.LoginAttempts = 3
	}
	return &Connector{cfg: cfg, logger: logger}
}

// Connect parses the descriptor and logs in. Failures are returned as *replication.ConnectError.
func (c *Connector) Connect(ctx context.Context, descriptor string) (replication.Session, error) {
	d, err := ParseDescriptor(descriptor)
	if err != nil {
		return nil, &replication.ConnectError{Target: Redact(descriptor), Err: err}
	}
	client, err := NewClient(d.BaseURL, c.cfg, c.logger.With(zap.String("service_layer", d.Redacted())))
	if err != nil {
		return nil, &replication.ConnectError{Target: d.Redacted(), Err: err}
	}

	login := loginRequest{CompanyDB: d.Company, UserName: d.User, Password: d.Password}
	res, err := backoff.Retry(ctx, func() (*loginResponse, error) {
		res, err := client.login(ctx, login)
		if err != nil && !isTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.cfg.LoginAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("service layer login failed, retrying",
				zap.String("target", d.Redacted()),
				zap.Duration("retry_in", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, &replication.ConnectError{Target: d.Redacted(), Err: err}
	}
	client.credentials = &login

	c.logger.Info("connected to service layer",
		zap.String("target", d.Redacted()),
		zap.Int("session_timeout_minutes", res.SessionTimeout),
	)
	return &Session{client: client, target: d.Redacted(), logger: c.logger}, nil
}

func (c *Client) login(ctx context.Context, req loginRequest) (*loginResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/Login", req)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, readHostError(resp)
	}
	var res loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return &res, nil
}

// Session is a logged-in Service Layer session
type Session struct {
	client *Client
	target string
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ replication.Session = (*Session)(nil)

// DataAPI returns the session's data API
func (s *Session) DataAPI() replication.DataAPI {
	return s.client
}

// Target returns the redacted descriptor of the session
func (s *Session) Target() string {
	return s.target
}

// Close logs out. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		resp, err := s.client.do(ctx, http.MethodPost, "/Logout", nil)
		if err != nil {
			s.closeErr = fmt.Errorf("logout from %s: %w", s.target, err)
			return
		}
		defer drain(resp)
		if resp.StatusCode >= http.StatusBadRequest {
			s.closeErr = readHostError(resp)
			return
		}
		s.logger.Info("disconnected from service layer", zap.String("target", s.target))
	})
	return s.closeErr
}
