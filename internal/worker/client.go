// Package worker is the HTTP client for the external resume analysis worker.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single worker request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// ProcessRequest is the payload of POST /process.
type ProcessRequest struct {
	FileURL             string `json:"file_url"`
	FileName            string `json:"file_name"`
	UserID              string `json:"user_id"`
	JobID               string `json:"job_id"`
	CandidateID         string `json:"candidate_id"`
	Mode                string `json:"mode"`
	IsRetry             bool   `json:"is_retry"`
	SkipCreditDeduction bool   `json:"skip_credit_deduction"`
}

// EnqueueRequest is the payload of POST /queue/enqueue.
type EnqueueRequest struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
	Mode     string `json:"mode"`
}

// Error describes a failed worker call.
type Error struct {
	Endpoint   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("worker %s: %s: %v", e.Endpoint, e.Message, e.Cause)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("worker %s: %s (status %d)", e.Endpoint, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("worker %s: %s", e.Endpoint, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the worker service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a worker client. A zero timeout uses DefaultTimeout.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Process asks the worker to (re)analyze a resume. Any non-2xx response is an error.
func (c *Client) Process(ctx context.Context, req ProcessRequest) error {
	return c.post(ctx, "/process", req)
}

// Enqueue places a queued job on the worker's queue.
func (c *Client) Enqueue(ctx context.Context, req EnqueueRequest) error {
	return c.post(ctx, "/queue/enqueue", req)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) error {
	if c.baseURL == "" {
		return &Error{Endpoint: endpoint, Message: "worker URL not configured"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Endpoint: endpoint, Message: "failed to encode payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{Endpoint: endpoint, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Endpoint: endpoint, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
