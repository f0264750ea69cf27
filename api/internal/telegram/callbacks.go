package telegram

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"first-aid/api/internal/report"
)

const (
	cbStepNext = "step_next"
	cbStepsAll = "steps_all"
	cbCardPDF  = "card_pdf"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	s, ok := getSession(cid)
	if !ok {
		r.send(cid, "Nothing to show yet: send a photo first.")
		return
	}
	switch cb.Data {
	case cbStepNext:
		r.onStepNext(cid, cb.Message.MessageID, s)
	case cbStepsAll:
		r.sendMarkdown(cid, formatAllSteps(s.Bundle.InjuryType, s.Bundle.Steps), nil)
	case cbCardPDF:
		r.onCard(cid, s)
	}
}

func (r *Router) onStepNext(chatID int64, msgID int, s *session) {
	st, ok, more := s.nextStep()
	if !ok {
		r.dropKeyboard(chatID, msgID)
		r.send(chatID, "All steps have been shown.")
		return
	}
	text := formatStep(st, len(s.Bundle.Steps))
	if !more {
		text += "\n\n" + esc(s.Bundle.Warning)
	}
	r.sendMarkdown(chatID, text, nil)
}

func (r *Router) onCard(chatID int64, s *session) {
	pdf, err := report.Render(s.Bundle, report.Options{FontPath: r.FontPath, Reference: s.ResultID.String()})
	if err != nil {
		log.Printf("chat %d: pdf card: %v", chatID, err)
		r.send(chatID, "Could not build the PDF card right now.")
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("first-aid-%s.pdf", s.ResultID),
		Bytes: pdf,
	})
	doc.Caption = string(s.Bundle.InjuryType)
	_, _ = r.Bot.Send(doc)
}

func (r *Router) dropKeyboard(chatID int64, msgID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, _ = r.Bot.Send(edit)
}
