package generation

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

	"github.com/itory/itory/internal/domain"
	"github.com/itory/itory/internal/logging"
	"github.com/itory/itory/internal/ports"
)

// DefaultTimeout bounds a single request to the generation service
const DefaultTimeout = 15 * time.Second

// Client talks to the story generation service over HTTP
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

var _ ports.GenerationClient = (*Client)(nil)

// New creates a client for the service at baseURL
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: DefaultTimeout,
	}
}

// APIError wraps non-2xx responses. It matches domain.ErrJobNotFound for 404
// and domain.ErrRequestRejected for other 4xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return domain.ErrJobNotFound
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return domain.ErrRequestRejected
	default:
		return nil
	}
}

// Detail returns the service's error detail when the body carries one
func (e *APIError) Detail() string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return e.Body
}

type startRequest struct {
	ArtStyle  domain.ArtStyle `json:"art_style"`
	TaleTitle string          `json:"tale_title"`
}

type startResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type optionsResponse struct {
	Options []string `json:"options"`
}

type selectRequest struct {
	Choice string `json:"choice"`
	Text   string `json:"text"`
}

// StartJob creates a generation job for a story subject
func (c *Client) StartJob(ctx context.Context, subject string, style domain.ArtStyle) (string, error) {
	var resp startResponse
	if err := c.do(ctx, http.MethodPost, "api/story/start", startRequest{TaleTitle: subject, ArtStyle: style}, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("start job: response has no job id")
	}
	return resp.JobID, nil
}

// Status fetches the job status. Media references are returned as absolute URLs.
func (c *Client) Status(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	var status domain.JobStatus
	if err := c.do(ctx, http.MethodGet, "api/story/status/"+url.PathEscape(jobID), nil, &status); err != nil {
		return nil, err
	}
	status.VideoURL = c.ResolveMediaURL(status.VideoURL)
	status.FinalVideoURL = c.ResolveMediaURL(status.FinalVideoURL)
	return &status, nil
}

// Options fetches the choice texts the service proposes for a stage
func (c *Client) Options(ctx context.Context, jobID string, stageNo int) ([]string, error) {
	var resp optionsResponse
	endpoint := fmt.Sprintf("api/story/options/%s/%d", url.PathEscape(jobID), stageNo)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Options, nil
}

// SubmitChoice sends the user's choice for a stage
func (c *Client) SubmitChoice(ctx context.Context, jobID string, stageNo int, choiceID, text string) error {
	endpoint := fmt.Sprintf("api/story/select/%s/%d", url.PathEscape(jobID), stageNo)
	return c.do(ctx, http.MethodPost, endpoint, selectRequest{Choice: choiceID, Text: text}, nil)
}

// Finalize asks the service to assemble the final video
func (c *Client) Finalize(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodPost, "api/story/finalize/"+url.PathEscape(jobID), nil, nil)
}

// ResolveMediaURL turns a service-relative media path into an absolute URL
func (c *Client) ResolveMediaURL(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	base, err := url.Parse(c.base() + "/")
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logging.Logger.Debug("Generation request failed", "method", method, "url", url, "error", err)
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	logging.Logger.Debug("Generation request",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%s %s: decode response: %w", method, endpoint, err)
		}
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
