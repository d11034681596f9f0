// Package backendapi talks JSON/HTTP to the upstream workflow backend.
// It is the only place in the codebase that knows the backend's wire
// format; everything above it works with ports.GraphBackend.
package backendapi

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

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"flowcanvas/application/ports"
	"flowcanvas/domain/core/aggregates"
	"flowcanvas/infrastructure/config"
	"flowcanvas/pkg/common"
	pkgerrors "flowcanvas/pkg/errors"
)

const (
	serviceName = "workflow backend"

	// maxResponseSize bounds how much of a backend response is read.
	maxResponseSize = 8 << 20
)

// envelope is the common response wrapper every backend endpoint uses.
type envelope struct {
	Message    string          `json:"message"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

// Client implements ports.GraphBackend over HTTP. Every upstream call
// goes through a circuit breaker; transport failures and non-2xx
// responses surface as typed AppErrors, a business-level failed
// execution inside a 2xx response surfaces as data.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	graphPath   string
	executePath string
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

var _ ports.GraphBackend = (*Client)(nil)

// NewClient builds a backend client from the backend section of the
// configuration.
func NewClient(cfg config.BackendConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("backend base URL %q is not absolute", cfg.BaseURL))
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimSuffix(base.String(), "/"),
		graphPath:   cfg.GraphPath,
		executePath: cfg.ExecutePath,
		breaker:     newBreaker(cfg.Breaker, logger),
		logger:      logger,
	}, nil
}

// newBreaker wires the configured thresholds into gobreaker. The
// breaker only trips once enough requests have been observed and the
// failure ratio crosses the configured threshold.
func newBreaker(cfg config.BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "workflow-backend",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return !countsAsBreakerFailure(err)
		},
	})
}

// countsAsBreakerFailure classifies errors for the breaker. Responses
// the backend produced deliberately (4xx) report on the request, not
// on backend health, and must not trip the circuit.
func countsAsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil {
		return true
	}
	if sc, ok := appErr.Details["status_code"].(int); ok {
		return sc >= http.StatusInternalServerError
	}
	return appErr.Type == pkgerrors.ErrorTypeNetwork
}

// BreakerState reports the current circuit breaker state. The health
// endpoint and the metrics collector read it.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// SaveGraph persists the snapshot as the backend's current graph
func (c *Client) SaveGraph(ctx context.Context, snap aggregates.Snapshot) (*ports.SaveResult, error) {
	env, err := c.call(ctx, http.MethodPost, c.graphPath, snap)
	if err != nil {
		return nil, err
	}
	return &ports.SaveResult{Message: env.Message}, nil
}

// LoadGraph retrieves the backend's current graph. A backend with no
// saved graph answers with empty data, which loads as an empty
// document.
func (c *Client) LoadGraph(ctx context.Context) (aggregates.Snapshot, error) {
	env, err := c.call(ctx, http.MethodGet, c.graphPath, nil)
	if err != nil {
		return aggregates.Snapshot{}, err
	}
	if isEmptyData(env.Data) {
		return aggregates.Snapshot{}, nil
	}

	var snap aggregates.Snapshot
	if err := decodeData(env, &snap); err != nil {
		return aggregates.Snapshot{}, err
	}
	return snap, nil
}

// ClearGraph removes the backend's current graph
func (c *Client) ClearGraph(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodDelete, c.graphPath, nil)
	return err
}

// ValidateGraph asks the backend to validate the snapshot
func (c *Client) ValidateGraph(ctx context.Context, snap aggregates.Snapshot) (*ports.ValidationReport, error) {
	env, err := c.call(ctx, http.MethodPost, c.graphPath+"/validate", snap)
	if err != nil {
		return nil, err
	}

	report := &ports.ValidationReport{}
	if err := decodeData(env, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Execute runs one conversational turn through the workflow engine.
// A failed run is reported in ExecutionResult.Status, never as an
// error.
func (c *Client) Execute(ctx context.Context, req ports.ExecutionRequest) (*ports.ExecutionResult, error) {
	env, err := c.call(ctx, http.MethodPost, c.executePath, req)
	if err != nil {
		return nil, err
	}

	result := &ports.ExecutionResult{}
	if err := decodeData(env, result); err != nil {
		return nil, err
	}
	return result, nil
}

// call sends one request through the circuit breaker and returns the
// decoded envelope. Breaker rejections normalize to an Unavailable
// error so callers never see gobreaker sentinels.
func (c *Client) call(ctx context.Context, method, path string, payload interface{}) (*envelope, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, path, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, pkgerrors.NewUnavailableError(serviceName).
				WithCode("CIRCUIT_OPEN").
				WithCause(err)
		}
		return nil, err
	}
	return result.(*envelope), nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload interface{}) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.NewInternalError("failed to encode backend request").WithCause(err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build backend request").WithCause(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	meta := common.ExtractMetadata(ctx)
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", path),
	}
	if meta.RequestID != "" {
		fields = append(fields, zap.String("request_id", meta.RequestID))
	}
	if meta.SessionID != "" {
		fields = append(fields, zap.String("session_id", meta.SessionID))
	}
	c.logger.Debug("calling workflow backend", fields...)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
			return nil, pkgerrors.NewNetworkError("workflow backend timed out", err).WithCode("UPSTREAM_TIMEOUT")
		}
		return nil, pkgerrors.NewNetworkError("workflow backend unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, pkgerrors.NewNetworkError("failed to read backend response", err)
	}

	var env envelope
	parseErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := ""
		if parseErr == nil {
			if env.Error != "" {
				msg = env.Error
			} else if env.Message != "" {
				msg = env.Message
			}
		}
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d (%s)", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		c.logger.Warn("workflow backend rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, pkgerrors.NewExternalError(serviceName, msg).
			WithDetails(map[string]interface{}{"status_code": resp.StatusCode})
	}

	if parseErr != nil {
		return nil, pkgerrors.NewExternalError(serviceName, "malformed response envelope").WithCause(parseErr)
	}
	return &env, nil
}

func isEmptyData(data json.RawMessage) bool {
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

func decodeData(env *envelope, out interface{}) error {
	if isEmptyData(env.Data) {
		return pkgerrors.NewExternalError(serviceName, "response carried no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return pkgerrors.NewExternalError(serviceName, "malformed response data").WithCause(err)
	}
	return nil
}
