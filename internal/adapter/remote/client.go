package remote

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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/ebookctl/internal/adapter"
	"github.com/mmcdole/ebookctl/internal/domain"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
	requestIDHeader   = "X-Request-ID"
)

// Client implements domain.BookClient and domain.JobClient for the ebookgen API
type Client struct {
	baseURL     string
	readRetries int
	retryDelay  time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a new ebookgen API client
func NewClient(cfg adapter.APIConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		readRetries: max(cfg.ReadRetries, 0),
		retryDelay:  delay,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the API base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an HTTP request against the API and returns the raw body.
// Only GETs are retried, with exponential backoff on transport errors and 5xx.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	reqURL := c.baseURL + path

	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	retries := 0
	if method == http.MethodGet {
		retries = c.readRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "url", reqURL)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		requestID := uuid.NewString()
		req.Header.Set("Accept", "application/json")
		req.Header.Set(requestIDHeader, requestID)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.Debug("api request", "method", method, "url", reqURL, "requestID", requestID, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Error("api request failed", "method", method, "url", reqURL, "requestID", requestID, "error", err)
			lastErr = &domain.RemoteError{Message: domain.ErrServerOffline.Error(), Err: domain.ErrServerOffline}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 500 && resp.StatusCode < 600 {
			lastErr = parseError(resp.StatusCode, respBody)
			c.logger.Warn("api server error",
				"status", resp.StatusCode,
				"method", method,
				"path", path,
				"requestID", requestID,
				"attempt", attempt,
				"maxRetries", retries,
			)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			rerr := parseError(resp.StatusCode, respBody)
			c.logger.Info("api request rejected", "status", resp.StatusCode, "path", path, "requestID", requestID, "detail", rerr.Message)
			return nil, rerr
		}

		if resp.StatusCode == http.StatusNoContent {
			return nil, nil
		}
		return respBody, nil
	}

	c.logger.Error("api request failed after retries", "error", lastErr, "method", method, "path", path)
	return nil, lastErr
}

// parseError builds a RemoteError from an error response body.
// The detail field wins; anything else falls back to "HTTP <code>".
func parseError(code int, body []byte) *domain.RemoteError {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err == nil {
		switch detail := payload.Detail.(type) {
		case string:
			if detail != "" {
				return &domain.RemoteError{StatusCode: code, Message: detail}
			}
		case nil:
		default:
			if raw, err := json.Marshal(detail); err == nil {
				return &domain.RemoteError{StatusCode: code, Message: string(raw)}
			}
		}
	}
	return domain.NewStatusError(code)
}

// decode unmarshals body into T. An empty body yields nil without error.
func decode[T any](body []byte) (*T, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &v, nil
}

func bookPath(id string) string {
	return "/api/books/" + url.PathEscape(id)
}

func jobPath(id string) string {
	return "/api/jobs/" + url.PathEscape(id)
}

// ListBooks returns every book in server order
func (c *Client) ListBooks(ctx context.Context) ([]domain.Book, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/books", nil)
	if err != nil {
		return nil, err
	}
	resp, err := decode[[]bookDTO](body)
	if err != nil || resp == nil {
		return nil, err
	}
	books := make([]domain.Book, len(*resp))
	for i, b := range *resp {
		books[i] = b.toDomain()
	}
	return books, nil
}

// GetBook returns the full record of one book
func (c *Client) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	body, err := c.doRequest(ctx, http.MethodGet, bookPath(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeBook(body)
}

// PreviewBook returns the first and last source file names of a book
func (c *Client) PreviewBook(ctx context.Context, id string) (*domain.Preview, error) {
	body, err := c.doRequest(ctx, http.MethodGet, bookPath(id)+"/preview", nil)
	if err != nil {
		return nil, err
	}
	return decode[domain.Preview](body)
}

// CreateBook registers a source directory as a new book
func (c *Client) CreateBook(ctx context.Context, path string) (*domain.Book, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/books", createBookRequest{Path: path})
	if err != nil {
		return nil, err
	}
	return decodeBook(body)
}

// UpdateBookSettings patches the configurable fields of a book
func (c *Client) UpdateBookSettings(ctx context.Context, id string, settings domain.BookSettings) (*domain.Book, error) {
	body, err := c.doRequest(ctx, http.MethodPatch, bookPath(id), settings)
	if err != nil {
		return nil, err
	}
	return decodeBook(body)
}

// DeleteBook removes a book and its workspace on the server
func (c *Client) DeleteBook(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, bookPath(id), nil)
	return err
}

// CreateJob asks the server to run or schedule a book
func (c *Client) CreateJob(ctx context.Context, req domain.JobRequest) (*domain.JobCreated, error) {
	payload := createJobRequest{
		BookID: req.BookID,
		RunNow: req.RunNow,
		Resume: req.Resume,
	}
	if req.ScheduledAt != nil {
		s := domain.FormatSchedule(*req.ScheduledAt)
		payload.ScheduledAt = &s
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/api/jobs", payload)
	if err != nil {
		return nil, err
	}
	return decodeJobCreated(body)
}

// GetJob returns the current state of a job
func (c *Client) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	body, err := c.doRequest(ctx, http.MethodGet, jobPath(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeJob(body)
}

// CancelJob cancels a pending or running job
func (c *Client) CancelJob(ctx context.Context, id string) (*domain.Job, error) {
	body, err := c.doRequest(ctx, http.MethodPost, jobPath(id)+"/cancel", nil)
	if err != nil {
		return nil, err
	}
	return decodeJob(body)
}

// RetryJob creates a new attempt for a finished job, resuming from its last stage
func (c *Client) RetryJob(ctx context.Context, id string, runNow bool) (*domain.JobCreated, error) {
	body, err := c.doRequest(ctx, http.MethodPost, jobPath(id)+"/retry", retryJobRequest{RunNow: runNow})
	if err != nil {
		return nil, err
	}
	return decodeJobCreated(body)
}

// OutputURL returns the download URL of a book artifact
func (c *Client) OutputURL(bookID, name string) string {
	return fmt.Sprintf("%s/api/output/%s/%s", c.baseURL, url.PathEscape(bookID), url.PathEscape(name))
}

// DownloadOutput streams a book artifact into w and returns the bytes written.
// Downloads are not retried since w may already hold partial data.
func (c *Client) DownloadOutput(ctx context.Context, bookID, name string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.OutputURL(bookID, name), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	// Artifacts can be large; the per-request timeout does not apply here
	client := &http.Client{Transport: c.httpClient.Transport}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		c.logger.Error("download failed", "book", bookID, "file", name, "requestID", requestID, "error", err)
		return 0, &domain.RemoteError{Message: domain.ErrServerOffline.Error(), Err: domain.ErrServerOffline}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return 0, parseError(resp.StatusCode, respBody)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", name, err)
	}
	c.logger.Info("downloaded artifact", "book", bookID, "file", name, "bytes", n, "requestID", requestID)
	return n, nil
}

func decodeBook(body []byte) (*domain.Book, error) {
	dto, err := decode[bookDTO](body)
	if err != nil || dto == nil {
		return nil, err
	}
	book := dto.toDomain()
	return &book, nil
}

func decodeJob(body []byte) (*domain.Job, error) {
	dto, err := decode[jobDTO](body)
	if err != nil || dto == nil {
		return nil, err
	}
	job := dto.toDomain()
	return &job, nil
}

func decodeJobCreated(body []byte) (*domain.JobCreated, error) {
	resp, err := decode[jobCreateResponse](body)
	if err != nil || resp == nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// IsOffline reports whether err means the server could not be reached
func IsOffline(err error) bool {
	return errors.Is(err, domain.ErrServerOffline)
}

var (
	_ domain.BookClient = (*Client)(nil)
	_ domain.JobClient  = (*Client)(nil)
)
