package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"callpipe/internal/config"
)

// HTTPDoer describes the HTTP client used by the transcription client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type httpClient struct {
	baseURL  string
	apiKey   string
	language string
	client   HTTPDoer
}

// NewHTTPClient constructs an HTTP-backed transcription client.
func NewHTTPClient(cfg *config.Config, client HTTPDoer) Client {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.Transcriber.RequestTimeout) * time.Second}
	}
	return &httpClient{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.Transcriber.BaseURL), "/"),
		apiKey:   strings.TrimSpace(cfg.Transcriber.APIKey),
		language: cfg.Transcriber.Language,
		client:   client,
	}
}

type submitPayload struct {
	AudioURL  string `json:"audio_url"`
	Language  string `json:"language,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type pollResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (c *httpClient) Submit(ctx context.Context, req SubmitRequest) (Job, error) {
	language := req.Language
	if language == "" {
		language = c.language
	}
	encoded, err := json.Marshal(submitPayload{
		AudioURL:  req.AudioURL,
		Language:  language,
		Reference: req.Reference,
	})
	if err != nil {
		return Job{}, fmt.Errorf("encode submission: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/jobs", bytes.NewReader(encoded))
	if err != nil {
		return Job{}, err
	}

	var payload submitResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Job{}, fmt.Errorf("decode submission response: %w", err)
	}
	if payload.JobID == "" {
		return Job{}, fmt.Errorf("%w: service returned no job id", ErrSubmissionRejected)
	}
	return Job{ID: payload.JobID, SubmittedAt: time.Now().UTC()}, nil
}

func (c *httpClient) Poll(ctx context.Context, jobID string) (JobStatus, error) {
	body, err := c.do(ctx, http.MethodGet, "/jobs/"+jobID, nil)
	if err != nil {
		return JobStatus{}, err
	}

	var payload pollResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return JobStatus{}, fmt.Errorf("decode job status: %w", err)
	}
	switch strings.ToLower(payload.Status) {
	case "queued", "pending":
		return JobStatus{State: StateQueued}, nil
	case "processing", "running":
		return JobStatus{State: StateProcessing}, nil
	case "done", "completed":
		return JobStatus{State: StateDone}, nil
	case "rejected", "failed":
		return JobStatus{State: StateRejected, Detail: payload.Detail}, nil
	default:
		return JobStatus{}, fmt.Errorf("%w: unknown job status %q", ErrTransient, payload.Status)
	}
}

func (c *httpClient) Result(ctx context.Context, jobID string) (Result, error) {
	body, err := c.do(ctx, http.MethodGet, "/jobs/"+jobID+"/result", nil)
	if err != nil {
		return Result{}, err
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, fmt.Errorf("decode transcript result: %w", err)
	}
	if result.JobID == "" {
		result.JobID = jobID
	}
	return result, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransient, err)
	}
	if err := classifyStatus(resp.StatusCode, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// classifyStatus maps HTTP status codes onto the package error taxonomy.
// 429 means back off and retry; other 4xx responses will not succeed on
// retry; 5xx is worth another attempt.
func classifyStatus(status int, body []byte) error {
	switch {
	case status < http.StatusBadRequest:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, status)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", ErrTransient, status)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrSubmissionRejected, status, truncateBody(body))
	}
}

func truncateBody(body []byte) string {
	const limit = 200
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit]
	}
	return text
}
