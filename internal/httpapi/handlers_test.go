package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"voice-concierge/internal/calls"
	"voice-concierge/internal/conversation"
	"voice-concierge/internal/intelligence"
	"voice-concierge/internal/notify"
	"voice-concierge/internal/orchestrator"
	"voice-concierge/internal/reporting"
)

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(ctx context.Context, e notify.Escalation) []string { return nil }

func testHandlers(t *testing.T, gw intelligence.Gateway) (Handlers, *calls.MemoryStore) {
	t.Helper()
	records := calls.NewMemoryStore()
	engine := orchestrator.NewEngine(
		conversation.NewMemoryStore(),
		records,
		gw,
		noopDispatcher{},
		orchestrator.NewMemoryLocker(),
	)
	return Handlers{
		Engine:  engine,
		Records: records,
		Reports: reporting.NewService(records),
	}, records
}

func testRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/simulate", h.Simulate)
	r.GET("/v1/calls", h.ListCalls)
	r.GET("/v1/calls/:call_id", h.GetCall)
	r.GET("/v1/reports/summary", h.CallsSummary)
	return r
}

func serve(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSimulateReturnsReplyAndAnalysis(t *testing.T) {
	h, _ := testHandlers(t, &intelligence.MockGateway{
		ReplyFunc: func(ctx context.Context, turns []conversation.Turn) (intelligence.Reply, error) {
			return intelligence.Reply{Text: "The office opens at nine.", Language: "en-US"}, nil
		},
		ClassifyFunc: func(ctx context.Context, turns []conversation.Turn) (intelligence.Classification, error) {
			return intelligence.Classification{Importance: calls.ImportanceBusiness, Topic: "Office hours", Summary: "Caller asked about office hours."}, nil
		},
	})
	w := serve(t, testRouter(h), http.MethodPost, "/simulate",
		`{"conversation":[{"role":"caller","content":"When do you open?"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res orchestrator.SimulationResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Reply != "The office opens at nine." || res.Analysis.Importance != calls.ImportanceBusiness {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSimulateRejectsMalformedConversation(t *testing.T) {
	h, _ := testHandlers(t, &intelligence.MockGateway{})
	r := testRouter(h)

	for name, body := range map[string]string{
		"not json":     `{"conversation": "hello"}`,
		"empty list":   `{"conversation": []}`,
		"unknown role": `{"conversation":[{"role":"operator","content":"hi"}]}`,
		"blank text":   `{"conversation":[{"role":"caller","content":"  "}]}`,
	} {
		w := serve(t, r, http.MethodPost, "/simulate", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, w.Code)
		}
	}
}

func TestGetCallNotFound(t *testing.T) {
	h, _ := testHandlers(t, &intelligence.MockGateway{})
	w := serve(t, testRouter(h), http.MethodGet, "/v1/calls/CA-missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListCallsAndSummary(t *testing.T) {
	h, records := testHandlers(t, &intelligence.MockGateway{})
	ended := time.Date(2025, 3, 1, 9, 2, 0, 0, time.UTC)
	dur := 120
	if _, err := records.Upsert(context.Background(), calls.Record{
		CallID: "CA1", Caller: "+15550001", Importance: calls.ImportanceCritical,
		State: calls.StateTerminated, StartedAt: ended.Add(-2 * time.Minute),
		EndedAt: &ended, DurationSeconds: &dur,
		NotifiedChannels: calls.NewChannelSet("slack"),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := testRouter(h)

	w := serve(t, r, http.MethodGet, "/v1/calls", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "CA1") {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	w = serve(t, r, http.MethodGet, "/v1/reports/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", w.Code, w.Body.String())
	}
	var sum reporting.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalCalls != 1 || sum.EscalatedCalls != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestSummaryRejectsBadTimeParam(t *testing.T) {
	h, _ := testHandlers(t, &intelligence.MockGateway{})
	w := serve(t, testRouter(h), http.MethodGet, "/v1/reports/summary?from=yesterday", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
