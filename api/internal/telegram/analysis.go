package telegram

import (
	"context"
	"log"
	"time"

	"first-aid/api/internal/analyze"
)

const defaultTimeout = 60 * time.Second

func (r *Router) runAnalysis(ctx context.Context, chatID int64, img []byte) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	eng := r.EngManager.Get(chatID)
	res, err := r.Analyzer.Analyze(ctx, analyze.Request{Image: img, Engine: eng, ChatID: chatID})
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	log.Printf("chat %d: %s %s/%.2f engine=%s cached=%v fail_safe=%v",
		chatID, res.ID, res.InjuryType, res.Probability, res.Engine, res.Cached, res.FailSafe)

	setSession(chatID, &session{ResultID: res.ID, Bundle: res.Bundle})
	kb := makeStepsKeyboard(len(res.Steps) > 0)
	r.sendMarkdown(chatID, formatSummary(res), &kb)
}
