package telegram

import (
	"sync"
	"time"

	"first-aid/api/internal/injury"

	"github.com/google/uuid"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPixels = 18_000_000
)

type photoBatch struct {
	ChatID       int64
	Key          string // "grp:<mediaGroupID>" | "chat:<chatID>"
	MediaGroupID string

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
}

// session is the last analysis shown in a chat; steps are revealed one by one.
type session struct {
	mu       sync.Mutex
	ResultID uuid.UUID
	Bundle   injury.Bundle
	Next     int // index into Bundle.Steps
}

// nextStep returns the step to show and whether more remain after it.
func (s *session) nextStep() (injury.Step, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Next >= len(s.Bundle.Steps) {
		return injury.Step{}, false, false
	}
	st := s.Bundle.Steps[s.Next]
	s.Next++
	return st, true, s.Next < len(s.Bundle.Steps)
}

var (
	batches  sync.Map // key -> *photoBatch
	sessions sync.Map // chatID -> *session
)

func setSession(chatID int64, s *session) { sessions.Store(chatID, s) }

func getSession(chatID int64) (*session, bool) {
	v, ok := sessions.Load(chatID)
	if !ok {
		return nil, false
	}
	return v.(*session), true
}
