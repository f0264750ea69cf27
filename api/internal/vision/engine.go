package vision

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrUnknownEngine = errors.New("unknown llm_name; use 'gemini' or 'gpt'")

// Engine turns a photo into the raw model reply. The reply is either the JSON
// described by SystemPrompt or free text; parsing is the caller's business.
type Engine interface {
	Name() string
	GetModel() string
	Describe(ctx context.Context, img []byte, mime string) (string, error)
}

type Engines struct {
	Gemini Engine
	OpenAI Engine
}

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(llmName)) {
	case "gemini":
		if e.Gemini != nil {
			return e.Gemini, nil
		}
	case "gpt", "openai":
		if e.OpenAI != nil {
			return e.OpenAI, nil
		}
	}
	return nil, ErrUnknownEngine
}

// Manager keeps the engine chosen per chat, falling back to the default one.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}

func (m *Manager) Reset(chatID int64) {
	m.m.Delete(chatID)
}
