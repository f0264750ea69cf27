package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"first-aid/api/internal/analyze"
	"first-aid/api/internal/injury"
	"first-aid/api/internal/util"
	"first-aid/api/internal/vision"
)

// Bot is the subset of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req analyze.Request) (analyze.Result, error)
}

type Router struct {
	Bot        Bot
	EngManager *vision.Manager
	Engines    *vision.Engines
	Analyzer   Analyzer

	Timeout  time.Duration // per-photo model deadline
	FontPath string        // TTF font for PDF cards
}

// modelSwitcher is implemented by engines that can be rebound to another model.
type modelSwitcher interface {
	WithModel(model string) vision.Engine
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(*upd.Message)
		return
	}
	if len(upd.Message.Photo) > 0 {
		r.acceptPhoto(*upd.Message)
		return
	}
	if upd.Message.Document != nil && strings.HasPrefix(upd.Message.Document.MimeType, "image/") {
		r.acceptDocument(*upd.Message)
		return
	}
	r.send(upd.Message.Chat.ID, "Send a photo of the injury and I will suggest first-aid steps.")
}

func (r *Router) HandleCommand(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, startText)
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	case "steps":
		r.handleStepsCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "Unknown command. Try /start")
	}
}

// handleEngineCommand switches the chat's engine:
//
//	/engine gemini [model]
//	/engine gpt [model]
func (r *Router) handleEngineCommand(chatID int64, argLine string) {
	args := strings.Fields(argLine)
	if len(args) == 0 {
		cur := r.EngManager.Get(chatID)
		r.send(chatID, fmt.Sprintf("Current engine: %s (%s)\nUsage: /engine gemini|gpt [model]", cur.Name(), cur.GetModel()))
		return
	}
	eng, err := r.Engines.GetEngine(args[0])
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	if len(args) > 1 {
		if ms, ok := eng.(modelSwitcher); ok {
			eng = ms.WithModel(args[1])
		}
	}
	r.EngManager.Set(chatID, eng)
	r.send(chatID, fmt.Sprintf("✅ Engine: %s (%s)", eng.Name(), eng.GetModel()))
}

func (r *Router) handleStepsCommand(chatID int64, argLine string) {
	cat, ok := injury.ParseCategory(argLine)
	if !ok {
		names := make([]string, 0, len(injury.AllCategories))
		for _, c := range injury.AllCategories {
			names = append(names, string(c))
		}
		r.send(chatID, "Usage: /steps <category>\nCategories: "+strings.Join(names, ", "))
		return
	}
	r.sendMarkdown(chatID, formatAllSteps(cat, injury.GenerateSteps(cat, injury.SeverityMedium)), nil)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}

func (r *Router) sendMarkdown(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	_, _ = r.Bot.Send(msg)
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, util.Truncate(fmt.Sprintf("Error: %v", err), 3900))
}

const startText = "Send a photo of the injury. I will classify it and walk you through first-aid steps.\n" +
	"In an emergency call your local emergency number first.\n\n" +
	"Commands:\n/engine gemini|gpt [model]\n/steps <category>\n/health"
