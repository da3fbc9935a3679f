package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
	"quote-broadcaster/src/quotes"
	"quote-broadcaster/src/utils"

	"github.com/gorilla/websocket"
)

type stubProvider struct {
	mu    sync.Mutex
	calls map[string]int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) History(_ context.Context, symbol, _, _ string) ([]models.MBar, error) {
	p.mu.Lock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[symbol]++
	p.mu.Unlock()

	start := time.Unix(1_700_000_000, 0)
	bars := make([]models.MBar, 30)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = models.MBar{Time: start.Add(time.Duration(i) * time.Minute), Open: c - 1, High: c + 1, Low: c - 2, Close: c, Volume: 10}
	}
	return bars, nil
}

func (p *stubProvider) count(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[symbol]
}

// -----------------------------------------------------------------------------

func newTestServer(t *testing.T) (*FastAPIServer, *stubProvider) {
	t.Helper()
	quiet := logger.NewLoggerWithWriter(io.Discard, "ServerTest")
	cfg := &models.MConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		Catalog:        models.DefaultCatalog(),
		Scheduler:      models.MSchedulerConfig{DefaultCadence: "1d", SendBufferSize: 8},
		Indices:        models.MIndicesConfig{Symbols: map[string]string{"nifty": "^NSEI", "sensex": "^BSESN"}, CacheMinutes: 30},
	}

	prov := &stubProvider{}
	sched := quotes.NewBroadcastScheduler(
		quotes.NewFetchAdapter(prov, time.Second, quiet),
		quotes.SchedulerOptions{TickInterval: 10 * time.Millisecond},
		quiet,
	)
	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx)
	<-sched.Started()

	market := utils.NewMarketScheduler([]string{"TCS.NS"}, quiet)
	s := NewFastAPIServer(cfg, sched, nil, prov, market, quiet)

	t.Cleanup(func() {
		s.Stop(context.Background())
		cancel()
		<-sched.Done()
	})
	return s, prov
}

func get(t *testing.T, h http.Handler, path string, out interface{}) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("GET %s: bad body %q: %v", path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

// -----------------------------------------------------------------------------

func TestGetStocksFallsBackToConfiguredCatalog(t *testing.T) {
	s, _ := newTestServer(t)

	var rows [][]string
	if code := get(t, s.Handler(), "/api/stocks", &rows); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(rows) != 10 || rows[1][0] != "TCS.NS" || rows[1][2] != "Technology" {
		t.Errorf("rows = %v", rows)
	}
}

func TestGetStockUsesCache(t *testing.T) {
	s, prov := newTestServer(t)

	var p models.MQuotePayload
	if code := get(t, s.Handler(), "/api/stock/TCS.NS?duration=1w", &p); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if p.Symbol != "TCS.NS" || p.Duration != "1w" || p.Price != 129 || len(p.Historical) != 30 {
		t.Errorf("payload = %+v", p)
	}

	get(t, s.Handler(), "/api/stock/TCS.NS?duration=1w", &p)
	if n := prov.count("TCS.NS"); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}

	// unknown durations fall back to 5m, empty to the default
	get(t, s.Handler(), "/api/stock/TCS.NS?duration=7y", &p)
	if p.Duration != "5m" {
		t.Errorf("unknown duration served as %q", p.Duration)
	}
	get(t, s.Handler(), "/api/stock/TCS.NS", &p)
	if p.Duration != "1d" {
		t.Errorf("default duration served as %q", p.Duration)
	}
}

func TestGetIndicators(t *testing.T) {
	s, _ := newTestServer(t)

	var body map[string]json.RawMessage
	if code := get(t, s.Handler(), "/api/stock/INFY.NS/indicators?duration=1d", &body); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	for _, key := range []string{"sma_20", "rsi", "macd", "bb_upper", "levels"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing %s", key)
		}
	}
}

func TestMarketIndicesAreCached(t *testing.T) {
	s, prov := newTestServer(t)

	var idx map[string]models.MMarketIndex
	if code := get(t, s.Handler(), "/api/market-indices", &idx); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	get(t, s.Handler(), "/api/market-indices", &idx)

	if prov.count("^NSEI") != 1 || prov.count("^BSESN") != 1 {
		t.Errorf("indices fetched %d/%d times, want once each", prov.count("^NSEI"), prov.count("^BSESN"))
	}
	// first open 99, last close 129
	if got := idx["nifty"]; got.Value != 129 || got.Change != 30.3 {
		t.Errorf("nifty = %+v", got)
	}
}

func TestHealthAndMarketStatus(t *testing.T) {
	s, _ := newTestServer(t)

	var health map[string]interface{}
	if code := get(t, s.Handler(), "/api/health", &health); code != http.StatusOK || health["status"] != "ok" {
		t.Errorf("health = %d %v", code, health)
	}

	var status struct {
		AnyOpen bool                   `json:"any_open"`
		Markets []models.MMarketStatus `json:"markets"`
	}
	if code := get(t, s.Handler(), "/api/market-status", &status); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(status.Markets) != 1 || status.Markets[0].Symbol != "TCS.NS" {
		t.Errorf("markets = %+v", status.Markets)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/stocks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stocks", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

// -----------------------------------------------------------------------------

func readPayload(t *testing.T, conn *websocket.Conn) models.MQuotePayload {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var p models.MQuotePayload
	if err := conn.ReadJSON(&p); err != nil {
		t.Fatalf("read: %v", err)
	}
	return p
}

func TestWebSocketSubscribeAndCadenceChange(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/TCS.NS?duration=1m"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if p := readPayload(t, conn); p.Symbol != "TCS.NS" || p.Duration != "1m" {
		t.Errorf("first push = %+v", p)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"duration":"1d"}`)); err != nil {
		t.Fatal(err)
	}
	if p := readPayload(t, conn); p.Duration != "1d" {
		t.Errorf("after change got %q", p.Duration)
	}

	// malformed messages are ignored and the connection keeps working
	for _, junk := range []string{"not json", `{"duration": 5}`, `{"other": "x"}`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(junk)); err != nil {
			t.Fatal(err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"duration":"1h"}`)); err != nil {
		t.Fatal(err)
	}
	if p := readPayload(t, conn); p.Duration != "1h" {
		t.Errorf("after junk got %q", p.Duration)
	}
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/ITC.NS"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	readPayload(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := s.quotes.Stats(context.Background())
		if err == nil && stats.Connections == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("connection still registered after close")
}
