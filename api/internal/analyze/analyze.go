package analyze

import (
	"context"
	"errors"
	"log"
	"time"

	"first-aid/api/internal/alert"
	"first-aid/api/internal/injury"
	"first-aid/api/internal/store"
	"first-aid/api/internal/util"
	"first-aid/api/internal/vision"

	"github.com/google/uuid"
)

var (
	ErrEmptyImage = errors.New("empty image")
	ErrNoEngine   = errors.New("no vision engine")
	ErrNoStore    = errors.New("history is not configured")
)

// sideEffectTimeout bounds persistence and alerting after the model call,
// which may have used up the request deadline.
const sideEffectTimeout = 3 * time.Second

type Store interface {
	FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*store.AnalysisRow, error)
	Upsert(ctx context.Context, row *store.AnalysisRow) error
	Get(ctx context.Context, id uuid.UUID) (*store.AnalysisRow, error)
	Recent(ctx context.Context, limit int) ([]store.AnalysisRow, error)
}

type Request struct {
	Image  []byte
	MIME   string
	Engine vision.Engine
	ChatID int64
}

type Result struct {
	ID         uuid.UUID `json:"id"`
	Engine     string    `json:"engine"`
	Model      string    `json:"model"`
	Cached     bool      `json:"cached"`
	FailSafe   bool      `json:"failSafe"`
	Overridden bool      `json:"overridden"`
	injury.Bundle
}

type Service struct {
	store    Store
	alerts   alert.Publisher
	cacheTTL time.Duration
}

// New wires the pipeline. st and pub may be nil.
func New(st Store, pub alert.Publisher, cacheTTL time.Duration) *Service {
	if pub == nil {
		pub = alert.Nop{}
	}
	return &Service{store: st, alerts: pub, cacheTTL: cacheTTL}
}

// Analyze runs photo -> model -> classification -> steps. Upstream and parse
// failures never surface as errors: a failed model call yields the fail-safe
// bundle.
func (s *Service) Analyze(ctx context.Context, req Request) (Result, error) {
	if len(req.Image) == 0 {
		return Result{}, ErrEmptyImage
	}
	if req.Engine == nil {
		return Result{}, ErrNoEngine
	}
	hash := util.SHA256Hex(req.Image)
	engName, model := req.Engine.Name(), req.Engine.GetModel()

	if s.store != nil {
		row, err := s.store.FindByHash(ctx, hash, engName, model, s.cacheTTL)
		switch {
		case err == nil:
			return Result{
				ID: row.ID, Engine: engName, Model: model,
				Cached: true, Overridden: row.Overridden, Bundle: row.Bundle,
			}, nil
		case !errors.Is(err, store.ErrNotFound):
			log.Printf("analyze: cache lookup %s: %v", hash[:12], err)
		}
	}

	mime := util.PickMIME(req.MIME, "", req.Image)
	var (
		cl       injury.Classification
		failSafe bool
	)
	raw, err := req.Engine.Describe(ctx, req.Image, mime)
	if err != nil {
		log.Printf("analyze: %s/%s unavailable, using fail-safe: %v", engName, model, err)
		cl, failSafe = injury.FailSafe(), true
	} else {
		sig := injury.ParseReply(raw).Signal()
		if !sig.RedDominance {
			if red, share, perr := injury.DecodeRedDominance(req.Image); perr == nil && red {
				log.Printf("analyze: pixel red dominance %.3f", share)
				sig.RedDominance = true
			}
		}
		cl = injury.Classify(sig)
	}

	res := Result{
		ID:         uuid.New(),
		Engine:     engName,
		Model:      model,
		FailSafe:   failSafe,
		Overridden: cl.Overridden,
		Bundle:     injury.Assemble(cl, injury.GenerateSteps(cl.InjuryType, cl.Severity)),
	}
	s.persist(ctx, req.ChatID, hash, &res)
	s.escalate(ctx, req.ChatID, res)
	return res, nil
}

// FromSignal runs the deterministic part of the pipeline on a caller-supplied signal.
func (s *Service) FromSignal(sig injury.Signal) injury.Bundle {
	_, b := injury.Instructions(sig)
	return b
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*store.AnalysisRow, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]store.AnalysisRow, error) {
	if s.store == nil {
		return []store.AnalysisRow{}, nil
	}
	return s.store.Recent(ctx, limit)
}

func (s *Service) persist(ctx context.Context, chatID int64, hash string, res *Result) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	row := &store.AnalysisRow{
		ID:         res.ID,
		ChatID:     chatID,
		ImageHash:  hash,
		Engine:     res.Engine,
		Model:      res.Model,
		Overridden: res.Overridden,
		FailSafe:   res.FailSafe,
		Bundle:     res.Bundle,
	}
	if err := s.store.Upsert(ctx, row); err != nil {
		log.Printf("analyze: persist %s: %v", res.ID, err)
		return
	}
	res.ID = row.ID
}

func (s *Service) escalate(ctx context.Context, chatID int64, res Result) {
	if res.Details.Severity != injury.SeverityHigh {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := s.alerts.Publish(ctx, alert.NewEvent(res.ID, chatID, res.Bundle, res.FailSafe)); err != nil {
		log.Printf("analyze: alert %s: %v", res.ID, err)
	}
}
