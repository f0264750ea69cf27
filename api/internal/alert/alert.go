package alert

import (
	"context"
	"encoding/json"
	"time"

	"first-aid/api/internal/injury"

	"github.com/google/uuid"
)

// Event is published for every high-severity result.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	ChatID     int64             `json:"chatId,omitempty"`
	InjuryType injury.Category   `json:"injuryType"`
	Severity   injury.Severity   `json:"severity"`
	BloodLevel injury.BloodLevel `json:"bloodLevel"`
	Location   string            `json:"location"`
	Confidence float64           `json:"confidence"`
	FailSafe   bool              `json:"failSafe"`
	At         time.Time         `json:"at"`
}

func NewEvent(id uuid.UUID, chatID int64, b injury.Bundle, failSafe bool) Event {
	return Event{
		ID:         id,
		ChatID:     chatID,
		InjuryType: b.InjuryType,
		Severity:   b.Details.Severity,
		BloodLevel: b.Details.BloodLevel,
		Location:   b.Details.Location,
		Confidence: b.Probability,
		FailSafe:   failSafe,
		At:         time.Now().UTC(),
	}
}

func (e Event) JSON() ([]byte, error) { return json.Marshal(e) }

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
