package analyze

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"testing"
	"time"

	"first-aid/api/internal/alert"
	"first-aid/api/internal/injury"
	"first-aid/api/internal/store"

	"github.com/google/uuid"
)

type fakeEngine struct {
	reply string
	err   error
	calls int
}

func (f *fakeEngine) Name() string     { return "fake" }
func (f *fakeEngine) GetModel() string { return "fake-1" }
func (f *fakeEngine) Describe(ctx context.Context, img []byte, mime string) (string, error) {
	f.calls++
	return f.reply, f.err
}

type memStore struct {
	mu      sync.Mutex
	rows    map[string]*store.AnalysisRow
	upserts int
	failUp  error
}

func newMemStore() *memStore { return &memStore{rows: map[string]*store.AnalysisRow{}} }

func key(h, e, m string) string { return h + "|" + e + "|" + m }

func (m *memStore) FindByHash(ctx context.Context, h, e, model string, maxAge time.Duration) (*store.AnalysisRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[key(h, e, model)]
	if !ok || r.FailSafe {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) Upsert(ctx context.Context, row *store.AnalysisRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.failUp != nil {
		return m.failUp
	}
	k := key(row.ImageHash, row.Engine, row.Model)
	if old, ok := m.rows[k]; ok {
		row.ID = old.ID
	}
	cp := *row
	m.rows[k] = &cp
	return nil
}

func (m *memStore) Get(ctx context.Context, id uuid.UUID) (*store.AnalysisRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) Recent(ctx context.Context, limit int) ([]store.AnalysisRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.AnalysisRow{}
	for _, r := range m.rows {
		out = append(out, *r)
	}
	return out, nil
}

type recPublisher struct {
	events []alert.Event
	err    error
}

func (p *recPublisher) Publish(ctx context.Context, ev alert.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

var someImage = []byte("not really a jpeg but non-empty")

func TestAnalyze_UpstreamFailureIsFailSafe(t *testing.T) {
	eng := &fakeEngine{err: errors.New("dial tcp: connection refused")}
	pub := &recPublisher{}
	svc := New(nil, pub, 0)

	res, err := svc.Analyze(context.Background(), Request{Image: someImage, Engine: eng})
	if err != nil {
		t.Fatalf("analyze must not fail on upstream error: %v", err)
	}
	if res.InjuryType != injury.Bleeding || res.Details.Severity != injury.SeverityHigh {
		t.Fatalf("expected Bleeding/high, got %s/%s", res.InjuryType, res.Details.Severity)
	}
	if math.Abs(res.Probability-0.7) > 1e-9 || !res.FailSafe {
		t.Fatalf("expected fail-safe 0.7, got %+v", res)
	}
	if len(res.Steps) == 0 || res.Warning != "Seek immediate medical attention!" {
		t.Fatalf("fail-safe bundle incomplete: %+v", res.Bundle)
	}
	if len(pub.events) != 1 || !pub.events[0].FailSafe {
		t.Fatalf("expected one fail-safe alert, got %+v", pub.events)
	}
}

func TestAnalyze_StructuredReply(t *testing.T) {
	eng := &fakeEngine{reply: `{"injuryType":"Sprain","severity":"low","location":"ankle",
		"bloodLevel":"none","description":"swelling after a twist",
		"detectionDetails":{"detectedObjects":["ankle"]}}`}
	pub := &recPublisher{}
	svc := New(nil, pub, 0)

	res, err := svc.Analyze(context.Background(), Request{Image: someImage, Engine: eng})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.InjuryType != injury.SprainStrain || res.FailSafe || res.Cached {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Engine != "fake" || res.Model != "fake-1" || res.ID == uuid.Nil {
		t.Fatalf("missing metadata %+v", res)
	}
	if len(pub.events) != 0 {
		t.Fatalf("low severity must not alert")
	}
}

func TestAnalyze_LooselyTypedReplyRaisesNoAlert(t *testing.T) {
	eng := &fakeEngine{reply: "Sure! Result:\n" + `{"injuryType":"Burn Injury","severity":"medium",
		"bloodLevel":"none","confidence":"0.9","description":"blister on the palm"}`}
	pub := &recPublisher{}
	res, err := New(nil, pub, 0).Analyze(context.Background(), Request{Image: someImage, Engine: eng})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.InjuryType != injury.BurnInjury || res.Details.Severity != injury.SeverityMedium || res.Overridden {
		t.Fatalf("expected Burn Injury/medium, got %s/%s overridden=%v", res.InjuryType, res.Details.Severity, res.Overridden)
	}
	if len(pub.events) != 0 {
		t.Fatalf("medium severity must not alert, got %+v", pub.events)
	}
}

func TestAnalyze_GarbageReplyIsMinorWound(t *testing.T) {
	svc := New(nil, nil, 0)
	res, err := svc.Analyze(context.Background(), Request{Image: someImage, Engine: &fakeEngine{reply: "¯\\_(ツ)_/¯"}})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.InjuryType != injury.MinorWound || res.FailSafe {
		t.Fatalf("expected Minor Wound, got %+v", res)
	}
}

func redPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: 170, G: 15, B: 20, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestAnalyze_PixelRedDominanceOverrides(t *testing.T) {
	eng := &fakeEngine{reply: `{"injuryType":"Burn","description":"blister from a burn"}`}
	res, err := New(nil, nil, 0).Analyze(context.Background(), Request{Image: redPNG(t), Engine: eng})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.InjuryType != injury.Bleeding || !res.Overridden {
		t.Fatalf("red pixels must force Bleeding, got %s overridden=%v", res.InjuryType, res.Overridden)
	}
	if res.Details.BloodLevel == injury.BloodNone {
		t.Fatalf("blood level must not be none")
	}
}

func TestAnalyze_CacheHit(t *testing.T) {
	st := newMemStore()
	eng := &fakeEngine{reply: `{"injuryType":"Fracture","description":"broken bone"}`}
	svc := New(st, nil, time.Hour)

	first, err := svc.Analyze(context.Background(), Request{Image: someImage, Engine: eng})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.Analyze(context.Background(), Request{Image: someImage, Engine: eng})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if eng.calls != 1 {
		t.Fatalf("expected one model call, got %d", eng.calls)
	}
	if !second.Cached || second.ID != first.ID || second.InjuryType != injury.Fracture {
		t.Fatalf("unexpected cached result %+v", second)
	}

	got, err := svc.Get(context.Background(), first.ID)
	if err != nil || got.Bundle.InjuryType != injury.Fracture {
		t.Fatalf("get: %v %+v", err, got)
	}
}

func TestAnalyze_FailSafeNotServedFromCache(t *testing.T) {
	st := newMemStore()
	eng := &fakeEngine{err: context.DeadlineExceeded}
	svc := New(st, nil, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := svc.Analyze(context.Background(), Request{Image: someImage, Engine: eng}); err != nil {
			t.Fatalf("analyze: %v", err)
		}
	}
	if eng.calls != 2 {
		t.Fatalf("fail-safe result must not be cached, calls=%d", eng.calls)
	}
}

func TestAnalyze_StoreAndAlertErrorsAreSwallowed(t *testing.T) {
	st := newMemStore()
	st.failUp = errors.New("db down")
	pub := &recPublisher{err: errors.New("broker down")}
	eng := &fakeEngine{reply: `{"description":"deep cut, blood everywhere, blood on floor"}`}

	res, err := New(st, pub, 0).Analyze(context.Background(), Request{Image: someImage, Engine: eng})
	if err != nil {
		t.Fatalf("side-effect errors must not fail the request: %v", err)
	}
	if res.Details.Severity != injury.SeverityHigh || len(pub.events) != 1 {
		t.Fatalf("expected high severity with attempted alert, got %+v", res)
	}
	if st.upserts != 1 {
		t.Fatalf("expected one persist attempt")
	}
}

func TestAnalyze_InputErrors(t *testing.T) {
	svc := New(nil, nil, 0)
	if _, err := svc.Analyze(context.Background(), Request{Engine: &fakeEngine{}}); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
	if _, err := svc.Analyze(context.Background(), Request{Image: someImage}); !errors.Is(err, ErrNoEngine) {
		t.Fatalf("expected ErrNoEngine, got %v", err)
	}
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
	rows, err := svc.Recent(context.Background(), 5)
	if err != nil || rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty history without store, got %v %v", rows, err)
	}
}

func TestFromSignal(t *testing.T) {
	b := New(nil, nil, 0).FromSignal(injury.NewSignal([]string{"burn", "fire"}, false))
	if b.InjuryType != injury.BurnInjury || len(b.Steps) != 5 {
		t.Fatalf("unexpected bundle %+v", b)
	}
}
