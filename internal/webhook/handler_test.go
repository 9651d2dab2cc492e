package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apphttp "receptionist_backend/internal/http"
	"receptionist_backend/platform/logger"
	"receptionist_backend/platform/validator"
)

type webhookCfgStub struct {
	secret string
}

func (c webhookCfgStub) GetWebhookSecret() string { return c.secret }

func newTestRouter(t *testing.T, store Store, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("test")
	svc := newTestService(store, &fakeScheduler{}, nil, nil, &recordBus{})
	mod := NewModule(svc, validator.New(), log)

	engine := gin.New()
	cfg := webhookCfgStub{secret: secret}
	group := engine.Group("/webhook", SharedSecretAuth(cfg, log))
	mod.RegisterRoutes(&apphttp.RouterContext{Engine: engine, Webhook: group, Config: cfg})
	return engine
}

func postJSON(router *gin.Engine, path, secret string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSharedSecretAuth(t *testing.T) {
	router := newTestRouter(t, newFakeStore(), "s3cret")
	body := map[string]any{"call": map[string]any{"call_id": "call_auth_1"}}

	tests := []struct {
		name       string
		secret     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong secret", "nope", http.StatusUnauthorized},
		{"correct secret", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, "/webhook/tools/lookup-customer", tt.secret, body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestSharedSecretAuthUnconfiguredRejectsAll(t *testing.T) {
	router := newTestRouter(t, newFakeStore(), "")
	body := map[string]any{"call": map[string]any{"call_id": "call_auth_2"}}

	w := postJSON(router, "/webhook/tools/lookup-customer", "anything", body)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("empty configured secret must reject, got %d", w.Code)
	}
}

func TestHandlerRejectsMalformedPayload(t *testing.T) {
	router := newTestRouter(t, newFakeStore(), "s3cret")

	// Missing the required call_id.
	w := postJSON(router, "/webhook/tools/collect-problem", "s3cret", map[string]any{
		"call": map[string]any{},
		"args": map[string]any{"description": "no heat"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestLifecycleNonAnalysisEventAcknowledged(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, "s3cret")

	w := postJSON(router, "/webhook/retell", "s3cret", map[string]any{
		"event": "call_started",
		"call":  map[string]any{"call_id": "call_lc_1"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Received  bool `json:"received"`
		Processed bool `json:"processed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Received || resp.Processed {
		t.Errorf("ack = %+v, want received without processing", resp)
	}
	if _, ok := store.sessions["call_lc_1"]; ok {
		t.Errorf("non-analysis event must not touch the store")
	}
}

func TestLifecycleAnalyzedEventProcessed(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store, "s3cret")

	w := postJSON(router, "/webhook/retell", "s3cret", map[string]any{
		"event": "call_analyzed",
		"call": map[string]any{
			"call_id":              "call_lc_2",
			"transcript":           "User: my furnace stopped working last night",
			"disconnection_reason": "user_hangup",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	cs := store.sessions["call_lc_2"]
	if cs == nil {
		t.Fatalf("analyzed event must persist a session")
	}
	if cs.Status != "analyzed" {
		t.Errorf("status = %s, want analyzed", cs.Status)
	}
}
