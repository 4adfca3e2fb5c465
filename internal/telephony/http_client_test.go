package telephony_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"callpipe/internal/telephony"
	"callpipe/internal/testsupport"
)

func TestListCallRecordings(t *testing.T) {
	var gotAuth, gotFrom, gotTo string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("date_from")
		gotTo = r.URL.Query().Get("date_to")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"records":[{
            "id":"R1",
            "session_id":"s-1",
            "telephony_session_id":"ts-1",
            "start_time":"2026-03-14T09:30:00Z",
            "duration":240,
            "direction":"Inbound",
            "from":{"phone_number":"+15550100"},
            "to":{"phone_number":"+15550199"},
            "recording":{"content_uri":"https://media.test.invalid/R1"}
        },{
            "id":"R2",
            "start_time":"2026-03-14T10:00:00Z",
            "duration":60,
            "direction":"Outbound",
            "from":{"phone_number":"+15550100"},
            "to":{"phone_number":"+15550300"},
            "recording":{}
        }]}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Telephony.BaseURL = server.URL
	client := telephony.NewHTTPClient(cfg, server.Client())

	from := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	records, err := client.ListCallRecordings(context.Background(), from, to)
	if err != nil {
		t.Fatalf("ListCallRecordings failed: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotFrom != "2026-03-14T00:00:00Z" || gotTo != "2026-03-15T00:00:00Z" {
		t.Fatalf("unexpected window: %s .. %s", gotFrom, gotTo)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.ProviderID != "R1" || first.SessionID != "s-1" || first.TelephonySessionID != "ts-1" {
		t.Fatalf("unexpected identifiers: %#v", first)
	}
	if !first.StartTime.Equal(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start time %v", first.StartTime)
	}
	if first.Direction != "inbound" {
		t.Fatalf("expected normalized direction, got %q", first.Direction)
	}
	if !first.HasRecording() {
		t.Fatal("expected recording URL on first record")
	}
	if first.RawJSON == "" {
		t.Fatal("expected raw payload preserved")
	}
	if records[1].HasRecording() {
		t.Fatal("second record has no recording")
	}
}

func TestListCallRecordingsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Telephony.BaseURL = server.URL
	client := telephony.NewHTTPClient(cfg, server.Client())

	if _, err := client.ListCallRecordings(context.Background(), time.Now().Add(-time.Hour), time.Now()); err == nil {
		t.Fatal("expected error on 500 response")
	}
}
