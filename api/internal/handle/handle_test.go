package handle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"first-aid/api/internal/analyze"
	"first-aid/api/internal/injury"
	"first-aid/api/internal/store"
	"first-aid/api/internal/vision"

	"github.com/google/uuid"
)

type fakeEngine struct {
	reply string
	err   error
	dl    time.Duration
}

func (f *fakeEngine) Name() string     { return "gemini" }
func (f *fakeEngine) GetModel() string { return "test-model" }
func (f *fakeEngine) Describe(ctx context.Context, img []byte, mime string) (string, error) {
	if dl, ok := ctx.Deadline(); ok {
		f.dl = time.Until(dl)
	}
	return f.reply, f.err
}

type fakeHistory struct {
	rows []store.AnalysisRow
}

func (f *fakeHistory) FindByHash(context.Context, string, string, string, time.Duration) (*store.AnalysisRow, error) {
	return nil, store.ErrNotFound
}
func (f *fakeHistory) Upsert(_ context.Context, row *store.AnalysisRow) error {
	f.rows = append(f.rows, *row)
	return nil
}
func (f *fakeHistory) Get(_ context.Context, id uuid.UUID) (*store.AnalysisRow, error) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			return &f.rows[i], nil
		}
	}
	return nil, store.ErrNotFound
}
func (f *fakeHistory) Recent(context.Context, int) ([]store.AnalysisRow, error) {
	return f.rows, nil
}

func newServer(eng *fakeEngine, st analyze.Store) http.Handler {
	engs := &vision.Engines{Gemini: eng}
	return New(engs, analyze.New(st, nil, 0)).Routes()
}

func do(t *testing.T, h http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, newServer(&fakeEngine{}, nil), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected %d %q", rec.Code, rec.Body.String())
	}
}

func TestAnalyze(t *testing.T) {
	eng := &fakeEngine{reply: `{"injuryType":"Burn Injury","severity":"medium","description":"blister after touching a hot pan"}`}
	h := newServer(eng, nil)
	img := base64.StdEncoding.EncodeToString([]byte("jpeg-ish bytes"))
	body := `{"llm_name":"gemini","image_b64":"data:image/jpeg;base64,` + img + `"}`

	rec := do(t, h, http.MethodPost, "/v1/injury/analyze", body, map[string]string{"X-Request-Timeout": "5"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["injuryType"] != string(injury.BurnInjury) {
		t.Fatalf("unexpected injury %v", out["injuryType"])
	}
	for _, k := range []string{"id", "engine", "model", "steps", "warning", "details"} {
		if _, ok := out[k]; !ok {
			t.Fatalf("missing %q in %s", k, rec.Body.String())
		}
	}
	if eng.dl <= 0 || eng.dl > 5*time.Second {
		t.Fatalf("X-Request-Timeout not applied, deadline %v", eng.dl)
	}
}

func TestAnalyze_UpstreamDownStillAnswers(t *testing.T) {
	h := newServer(&fakeEngine{err: errors.New("connection reset")}, nil)
	body := `{"llm_name":"gemini","image_b64":"` + base64.StdEncoding.EncodeToString([]byte("x")) + `"}`
	rec := do(t, h, http.MethodPost, "/v1/injury/analyze", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var out analyze.Result
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if !out.FailSafe || out.InjuryType != injury.Bleeding || out.Details.Severity != injury.SeverityHigh {
		t.Fatalf("expected fail-safe bundle, got %s", rec.Body.String())
	}
}

func TestAnalyze_BadInput(t *testing.T) {
	h := newServer(&fakeEngine{}, nil)
	good := base64.StdEncoding.EncodeToString([]byte("x"))
	cases := []struct {
		name, body string
	}{
		{"bad json", `{`},
		{"bad base64", `{"llm_name":"gemini","image_b64":"%%%"}`},
		{"empty image", `{"llm_name":"gemini","image_b64":""}`},
		{"unknown engine", `{"llm_name":"deepseek","image_b64":"` + good + `"}`},
		{"unconfigured engine", `{"llm_name":"gpt","image_b64":"` + good + `"}`},
	}
	for _, tc := range cases {
		rec := do(t, h, http.MethodPost, "/v1/injury/analyze", tc.body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/v1/injury/analyze", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET analyze: expected 405, got %d", rec.Code)
	}
}

func TestClassify(t *testing.T) {
	h := newServer(&fakeEngine{}, nil)
	rec := do(t, h, http.MethodPost, "/v1/injury/classify",
		`{"tokens":["Deep cut","blood","red"],"redDominance":true,"violenceLikelihood":"UNLIKELY"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var b injury.Bundle
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.InjuryType != injury.Bleeding || b.Details.Severity != injury.SeverityHigh {
		t.Fatalf("unexpected bundle %+v", b)
	}

	rec = do(t, h, http.MethodPost, "/v1/injury/classify", `{"tokens":["scrape"],"bloodMentionCount":-1}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative count: expected 400, got %d", rec.Code)
	}
}

func TestClassify_ExplicitBloodCount(t *testing.T) {
	h := newServer(&fakeEngine{}, nil)
	rec := do(t, h, http.MethodPost, "/v1/injury/classify", `{"tokens":["ankle","twist","swelling"],"bloodMentionCount":0}`, nil)
	var b injury.Bundle
	_ = json.Unmarshal(rec.Body.Bytes(), &b)
	if b.InjuryType != injury.SprainStrain {
		t.Fatalf("expected sprain, got %s", b.InjuryType)
	}
}

func TestSteps(t *testing.T) {
	h := newServer(&fakeEngine{}, nil)
	rec := do(t, h, http.MethodGet, "/v1/injury/steps?category=burn&severity=high", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var out struct {
		Category string        `json:"category"`
		Steps    []injury.Step `json:"steps"`
		Warning  string        `json:"warning"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Category != string(injury.BurnInjury) || len(out.Steps) != 5 || out.Warning != "Seek immediate medical attention!" {
		t.Fatalf("unexpected %s", rec.Body.String())
	}
	for _, target := range []string{"/v1/injury/steps?category=frostbite", "/v1/injury/steps?category=burn&severity=extreme"} {
		if rec := do(t, h, http.MethodGet, target, "", nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestHistoryAndCard(t *testing.T) {
	st := &fakeHistory{}
	eng := &fakeEngine{reply: `{"injuryType":"Fracture","description":"broken wrist"}`}
	h := newServer(eng, st)

	body := `{"llm_name":"gemini","image_b64":"` + base64.StdEncoding.EncodeToString([]byte("img")) + `"}`
	rec := do(t, h, http.MethodPost, "/v1/injury/analyze", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze %d", rec.Code)
	}
	var res analyze.Result
	_ = json.Unmarshal(rec.Body.Bytes(), &res)

	rec = do(t, h, http.MethodGet, "/v1/injury/history?limit=5", "", nil)
	var items []historyItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil || len(items) != 1 {
		t.Fatalf("history: %v %s", err, rec.Body.String())
	}
	if items[0].ID != res.ID || items[0].InjuryType != injury.Fracture {
		t.Fatalf("unexpected history item %+v", items[0])
	}

	if rec := do(t, h, http.MethodGet, "/v1/injury/history?limit=x", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/v1/injury/not-a-uuid/card.pdf", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/v1/injury/"+uuid.NewString()+"/card.pdf", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: expected 404, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/v1/injury/"+res.ID.String()+"/card.pdf", "", nil)
	switch rec.Code {
	case http.StatusOK:
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
			t.Fatalf("not a pdf")
		}
	case http.StatusInternalServerError:
		if !strings.Contains(rec.Body.String(), "font") {
			t.Fatalf("unexpected pdf failure %s", rec.Body.String())
		}
	default:
		t.Fatalf("card: unexpected status %d", rec.Code)
	}
}

func TestHistory_NoStore(t *testing.T) {
	h := newServer(&fakeEngine{}, nil)
	rec := do(t, h, http.MethodGet, "/v1/injury/history", "", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/v1/injury/"+uuid.NewString()+"/card.pdf", "", nil); rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 without store, got %d", rec.Code)
	}
}
