// Package engine is a thin client for the external workflow engine. The
// engine owns execution semantics; this client only persists configurations
// and reads status records back for display.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultUserAgent = "flowline-composer/0.1"

var tracer = otel.Tracer("flowline.internal.engine")

// Config controls how the engine client behaves. BaseURL is required and is
// passed in explicitly; there is no package-level default endpoint.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
}

// Client wraps the engine REST endpoints used by the composer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// APIError is a non-2xx engine response. The body is carried verbatim: the
// composer surfaces it as opaque error text without parsing.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("engine: status %d", e.StatusCode)
	}
	return fmt.Sprintf("engine: status %d: %s", e.StatusCode, e.Body)
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("engine: base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// Submit persists a workflow configuration. The request carries a
// cache-busting timestamp query param; the call is made exactly once, so a
// slow engine never results in a double submission.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*WorkflowRecord, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("engine: workflow name required")
	}
	ctx, span := tracer.Start(ctx, "engine.Submit", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("workflow.name", req.Name))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal submit payload: %w", err)
	}
	q := url.Values{}
	q.Set("t", strconv.FormatInt(time.Now().UnixMilli(), 10))
	data, err := c.invoke(ctx, http.MethodPost, "/api/workflows", q, body)
	if err != nil {
		return nil, err
	}
	var record WorkflowRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("engine: decode workflow record: %w", err)
	}
	return &record, nil
}

// Get fetches a previously persisted workflow for editing.
func (c *Client) Get(ctx context.Context, id string) (*WorkflowRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("engine: workflow id required")
	}
	data, err := c.invoke(ctx, http.MethodGet, "/api/workflows/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var record WorkflowRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("engine: decode workflow record: %w", err)
	}
	return &record, nil
}

// Execute asks the engine to run a workflow.
func (c *Client) Execute(ctx context.Context, id string) (*Execution, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("engine: workflow id required")
	}
	data, err := c.invoke(ctx, http.MethodPost, "/api/workflows/"+url.PathEscape(id)+"/execute", nil, nil)
	if err != nil {
		return nil, err
	}
	var exec Execution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, fmt.Errorf("engine: decode execution: %w", err)
	}
	return &exec, nil
}

// ListExecutions fetches the run history of a workflow.
func (c *Client) ListExecutions(ctx context.Context, id string) ([]Execution, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("engine: workflow id required")
	}
	data, err := c.invoke(ctx, http.MethodGet, "/api/workflows/"+url.PathEscape(id)+"/executions", nil, nil)
	if err != nil {
		return nil, err
	}
	var execs []Execution
	if err := json.Unmarshal(data, &execs); err != nil {
		return nil, fmt.Errorf("engine: decode executions: %w", err)
	}
	if execs == nil {
		execs = []Execution{}
	}
	return execs, nil
}

// GetExecution fetches a single execution's status record.
func (c *Client) GetExecution(ctx context.Context, workflowID, executionID string) (*Execution, error) {
	if strings.TrimSpace(workflowID) == "" || strings.TrimSpace(executionID) == "" {
		return nil, errors.New("engine: workflow and execution ids required")
	}
	path := "/api/workflows/" + url.PathEscape(workflowID) + "/executions/" + url.PathEscape(executionID)
	data, err := c.invoke(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var exec Execution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, fmt.Errorf("engine: decode execution: %w", err)
	}
	return &exec, nil
}

func (c *Client) invoke(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("engine: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("engine: http error: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("engine: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("engine request failed", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
