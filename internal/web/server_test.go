package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/eventpipe/internal/config"
	"github.com/JonMunkholm/eventpipe/internal/core"
)

type fakeChecker struct {
	counts     map[string]int64
	dedup      *core.DedupReport
	enrichment *core.EnrichmentReport
	err        error
	lastTable  string
}

func (f *fakeChecker) CountTables(_ context.Context, tables []string) ([]core.TableCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]core.TableCount, 0, len(tables))
	for _, t := range tables {
		n, ok := f.counts[t]
		out = append(out, core.TableCount{Table: t, Exists: ok, Rows: n})
	}
	return out, nil
}

func (f *fakeChecker) CheckDedup(_ context.Context, table string) (*core.DedupReport, error) {
	f.lastTable = table
	if f.err != nil {
		return nil, f.err
	}
	return f.dedup, nil
}

func (f *fakeChecker) VerifyEnrichment(_ context.Context, table string) (*core.EnrichmentReport, error) {
	f.lastTable = table
	if f.err != nil {
		return nil, f.err
	}
	return f.enrichment, nil
}

func newTestServer(c Checker) *Server {
	return NewServer(c, []string{"data_2022_oct", "customers", "items"}, config.ServerConfig{
		RequestTimeout:  time.Minute,
		ShutdownTimeout: time.Second,
	})
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	rec := doGet(t, newTestServer(&fakeChecker{}), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Errorf("body = %v", got)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestListTables(t *testing.T) {
	fc := &fakeChecker{counts: map[string]int64{"data_2022_oct": 4102283, "customers": 20692840}}
	rec := doGet(t, newTestServer(fc), "/api/tables")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	got := decode[tablesResponse](t, rec)
	if len(got.Tables) != 3 {
		t.Fatalf("tables = %+v", got.Tables)
	}
	if got.Tables[0].Rows != 4102283 || !got.Tables[0].Exists {
		t.Errorf("first table = %+v", got.Tables[0])
	}
	if got.Tables[2].Table != "items" || got.Tables[2].Exists {
		t.Errorf("items should be reported missing: %+v", got.Tables[2])
	}
}

func TestTableCount(t *testing.T) {
	fc := &fakeChecker{counts: map[string]int64{"customers": 3}}
	s := newTestServer(fc)

	rec := doGet(t, s, "/api/tables/customers/count")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[core.TableCount](t, rec); got.Rows != 3 {
		t.Errorf("count = %+v", got)
	}

	rec = doGet(t, s, "/api/tables/items/count")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing table status = %d, want 404", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "TBL001" {
		t.Errorf("error = %+v", got)
	}

	rec = doGet(t, s, "/api/tables/bad-name;drop/count")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad name status = %d, want 400", rec.Code)
	}
}

func TestDedupCheck(t *testing.T) {
	var v core.Validation
	v.Add("exact_duplicates", true, "0 groups")
	v.Add("window_pairs", false, "1 pairs")

	fc := &fakeChecker{dedup: &core.DedupReport{
		Table:       "customers",
		Window:      time.Second,
		WindowPairs: 1,
		PairSamples: []core.AdjacentPair{{EventType: "view", ProductID: "1", GapSeconds: 0.5}},
		Validation:  v,
	}}
	s := newTestServer(fc)

	rec := doGet(t, s, "/api/checks/dedup")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if fc.lastTable != "customers" {
		t.Errorf("default table = %q, want customers", fc.lastTable)
	}

	got := decode[dedupResponse](t, rec)
	if got.Status != "failed" || got.Window != "1s" || got.WindowPairs != 1 {
		t.Errorf("response = %+v", got)
	}
	if len(got.PairSamples) != 1 || got.PairSamples[0].GapSeconds != 0.5 {
		t.Errorf("pair samples = %+v", got.PairSamples)
	}
	if got.ExactSamples == nil || len(got.Checks) != 2 {
		t.Errorf("exact samples should be an empty list, checks = %d", len(got.Checks))
	}

	doGet(t, s, "/api/checks/dedup?table=customers_old")
	if fc.lastTable != "customers_old" {
		t.Errorf("table param ignored: %q", fc.lastTable)
	}
}

func TestEnrichmentCheck(t *testing.T) {
	var v core.Validation
	v.Add("item_columns", true, "missing columns: []")

	fc := &fakeChecker{enrichment: &core.EnrichmentReport{
		Table:      "customers",
		Columns:    []string{"event_time", "category_id", "category_code", "brand"},
		Samples:    []core.EnrichedSample{{EventType: "view", ProductID: "1", CategoryCode: "electronics.smartphone", Brand: "samsung"}},
		Validation: v,
	}}

	rec := doGet(t, newTestServer(fc), "/api/checks/enrichment")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[enrichmentResponse](t, rec)
	if got.Status != "passed" || len(got.Samples) != 1 || got.Samples[0].Brand != "samsung" {
		t.Errorf("response = %+v", got)
	}
	if got.MissingColumns == nil {
		t.Error("missing_columns should be an empty list")
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		path     string
		wantCode int
		wantErr  string
	}{
		{"missing table", &core.MissingTableError{Table: "customers"}, "/api/checks/dedup", http.StatusNotFound, "TBL001"},
		{"database down", errors.New("dial tcp: connection refused"), "/api/checks/enrichment", http.StatusInternalServerError, "DB001"},
		{"count failure", errors.New("boom"), "/api/tables", http.StatusInternalServerError, "ERR000"},
		{"bad table param", nil, "/api/checks/dedup?table=x%3By", http.StatusBadRequest, "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, newTestServer(&fakeChecker{err: tt.err}), tt.path)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := decode[ErrorResponse](t, rec); got.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", got.Code, tt.wantErr)
			}
		})
	}
}

func TestRequestIDHeaderLogged(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	newTestServer(&fakeChecker{}).Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := newTestServer(&fakeChecker{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStatusFor(t *testing.T) {
	if got := statusFor(&core.MissingTableError{Table: "x"}); got != http.StatusNotFound {
		t.Errorf("missing table = %d", got)
	}
	if got := statusFor(errors.New("x")); got != http.StatusInternalServerError {
		t.Errorf("generic = %d", got)
	}
	if !strings.Contains(errInvalidRequest.Error(), "bad request") {
		t.Error("errInvalidRequest message")
	}
}
