package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callpipe/internal/config"
)

// HTTPDoer describes the HTTP client used by the provider client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type httpClient struct {
	baseURL  string
	apiToken string
	client   HTTPDoer
}

// NewHTTPClient constructs a token-authenticated provider client.
func NewHTTPClient(cfg *config.Config, client HTTPDoer) Client {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.Telephony.RequestTimeout) * time.Second}
	}
	return &httpClient{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.Telephony.BaseURL), "/"),
		apiToken: strings.TrimSpace(cfg.Telephony.APIToken),
		client:   client,
	}
}

type callRecordPayload struct {
	ID                 string `json:"id"`
	SessionID          string `json:"session_id"`
	TelephonySessionID string `json:"telephony_session_id"`
	StartTime          string `json:"start_time"`
	DurationSecs       int    `json:"duration"`
	Direction          string `json:"direction"`
	From               struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"from"`
	To struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"to"`
	Recording struct {
		ContentURI string `json:"content_uri"`
	} `json:"recording"`
}

type callRecordListResponse struct {
	Records []json.RawMessage `json:"records"`
}

func (c *httpClient) ListCallRecordings(ctx context.Context, from, to time.Time) ([]CallRecording, error) {
	values := url.Values{}
	values.Set("date_from", from.UTC().Format(time.RFC3339))
	values.Set("date_to", to.UTC().Format(time.RFC3339))
	values.Set("with_recording", "true")

	endpoint := c.baseURL + "/call-log?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build call log request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch call log: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("call log returned status %d", resp.StatusCode)
	}

	var payload callRecordListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode call log: %w", err)
	}

	recordings := make([]CallRecording, 0, len(payload.Records))
	for _, raw := range payload.Records {
		var record callRecordPayload
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode call record: %w", err)
		}
		rec, err := record.toCallRecording(raw)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}
	return recordings, nil
}

func (p callRecordPayload) toCallRecording(raw json.RawMessage) (CallRecording, error) {
	var startTime time.Time
	if p.StartTime != "" {
		parsed, err := time.Parse(time.RFC3339, p.StartTime)
		if err != nil {
			return CallRecording{}, fmt.Errorf("parse start time for record %s: %w", p.ID, err)
		}
		startTime = parsed.UTC()
	}
	return CallRecording{
		ProviderID:         p.ID,
		SessionID:          p.SessionID,
		TelephonySessionID: p.TelephonySessionID,
		StartTime:          startTime,
		DurationSecs:       p.DurationSecs,
		Direction:          strings.ToLower(p.Direction),
		FromNumber:         p.From.PhoneNumber,
		ToNumber:           p.To.PhoneNumber,
		RecordingURL:       p.Recording.ContentURI,
		RawJSON:            string(raw),
	}, nil
}
