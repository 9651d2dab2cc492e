package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"receptionist_backend/internal/classify"
	"receptionist_backend/internal/session"
	"receptionist_backend/platform/logger"
	"receptionist_backend/platform/retryhttp"
)

func testClient(baseURL string, maxRetries int) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  "s3cret",
		http: retryhttp.New(
			retryhttp.WithTimeout(2*time.Second),
			retryhttp.WithMaxRetries(maxRetries),
			retryhttp.WithBaseDelay(time.Millisecond),
		),
		log: logger.New("test"),
	}
}

func classifiedSession(callID string) (*session.CallSession, classify.Classification) {
	s := session.NewCallSession(callID)
	problem := "no cooling upstairs"
	s.ProblemDescription = &problem
	s.Outcome = session.OutcomeCallbackRequested
	s.Urgency = session.UrgencyMedium

	return s, classify.Run(classify.Input{ProblemText: problem})
}

func TestSendPostsJobAndHistory(t *testing.T) {
	var jobs, history, alerts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(secretHeader) != "s3cret" {
			t.Errorf("missing shared secret on %s", r.URL.Path)
		}
		switch r.URL.Path {
		case pathJobs:
			atomic.AddInt32(&jobs, 1)
			var p JobPayload
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.CallID == "" {
				t.Errorf("job payload must carry the call id")
			}
		case pathCallHistory:
			atomic.AddInt32(&history, 1)
		case pathAlerts:
			atomic.AddInt32(&alerts, 1)
		}
		json.NewEncoder(w).Encode(UpsertResponse{ID: "row_1", Action: "created"})
	}))
	defer srv.Close()

	s, cls := classifiedSession("call_sync_1")
	res := testClient(srv.URL, 2).Send(context.Background(), s, cls)

	if res.Status != StatusAccepted {
		t.Fatalf("status = %s, want accepted (err %v)", res.Status, res.Err)
	}
	if jobs != 1 || history != 1 {
		t.Errorf("jobs=%d history=%d, want 1 each", jobs, history)
	}
	if alerts != 0 {
		t.Errorf("no alert warranted for a standard call, got %d", alerts)
	}
	if res.Job == nil || res.Job.Action != "created" {
		t.Errorf("upsert echo not decoded: %+v", res.Job)
	}
}

func TestSendEmitsAlertForSafetyEmergency(t *testing.T) {
	var alerts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathAlerts {
			atomic.AddInt32(&alerts, 1)
			var p AlertPayload
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.AlertType != AlertSafetyEmergency {
				t.Errorf("alert payload wrong: %+v err=%v", p, err)
			}
		}
		json.NewEncoder(w).Encode(UpsertResponse{ID: "row_2", Action: "updated"})
	}))
	defer srv.Close()

	s, cls := classifiedSession("call_sync_2")
	s.SafetyEmergency = true
	s.Urgency = session.UrgencyEmergency

	res := testClient(srv.URL, 1).Send(context.Background(), s, cls)
	if res.Status != StatusAccepted {
		t.Fatalf("status = %s, want accepted (err %v)", res.Status, res.Err)
	}
	if alerts != 1 {
		t.Fatalf("alerts = %d, want 1", alerts)
	}
}

func TestSendRetriesThenSucceeds(t *testing.T) {
	var jobAttempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathJobs {
			if atomic.AddInt32(&jobAttempts, 1) <= 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
		}
		json.NewEncoder(w).Encode(UpsertResponse{ID: "row_3", Action: "created"})
	}))
	defer srv.Close()

	s, cls := classifiedSession("call_sync_3")
	res := testClient(srv.URL, 3).Send(context.Background(), s, cls)

	if res.Status != StatusAccepted {
		t.Fatalf("status = %s after transient failures, want accepted (err %v)", res.Status, res.Err)
	}
	if jobAttempts != 3 {
		t.Fatalf("job attempts = %d, want 3 (two 502s then success)", jobAttempts)
	}
}

func TestSendReportsRetriableFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, cls := classifiedSession("call_sync_4")
	res := testClient(srv.URL, 1).Send(context.Background(), s, cls)

	if res.Status != StatusRetriable {
		t.Fatalf("status = %s, want retriable_failure", res.Status)
	}
	if res.Err == nil {
		t.Fatalf("exhausted retries must surface an error")
	}
}

func TestSendReportsTerminalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s, cls := classifiedSession("call_sync_5")
	res := testClient(srv.URL, 3).Send(context.Background(), s, cls)

	if res.Status != StatusTerminal {
		t.Fatalf("status = %s, want terminal_failure (err %v)", res.Status, res.Err)
	}
}

func TestNilClientSkips(t *testing.T) {
	var c *Client
	s, cls := classifiedSession("call_sync_6")

	res := c.Send(context.Background(), s, cls)
	if res.Status != StatusSkipped {
		t.Fatalf("nil client should skip, got %s", res.Status)
	}
}
