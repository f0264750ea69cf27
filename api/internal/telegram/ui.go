package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"first-aid/api/internal/analyze"
	"first-aid/api/internal/injury"
)

func makeStepsKeyboard(withSteps bool) tgbotapi.InlineKeyboardMarkup {
	card := tgbotapi.NewInlineKeyboardButtonData("📄 PDF card", cbCardPDF)
	if !withSteps {
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(card))
	}
	next := tgbotapi.NewInlineKeyboardButtonData("Next step ▶", cbStepNext)
	all := tgbotapi.NewInlineKeyboardButtonData("All steps", cbStepsAll)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(next, all),
		tgbotapi.NewInlineKeyboardRow(card),
	)
}

var severityIcon = map[injury.Severity]string{
	injury.SeverityHigh:   "🔴",
	injury.SeverityMedium: "🟠",
	injury.SeverityLow:    "🟢",
}

func formatSummary(res analyze.Result) string {
	d := res.Details
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* (%.0f%%)\n", severityIcon[d.Severity], esc(string(res.InjuryType)), res.Probability*100)
	fmt.Fprintf(&b, "Severity: %s\nLocation: %s\nBlood: %s\n", d.Severity, esc(d.Location), d.BloodLevel)
	if d.ForeignObjects {
		b.WriteString("⚠️ Possible foreign object: do not remove it.\n")
	}
	if res.FailSafe {
		b.WriteString("_Image analysis was unavailable; showing the cautious default._\n")
	}
	fmt.Fprintf(&b, "\n*%s*\n", esc(res.Warning))
	fmt.Fprintf(&b, "\n%d steps, about %s.", len(res.Steps), res.EstimatedTime)
	return b.String()
}

func formatStep(st injury.Step, total int) string {
	mark := ""
	if st.Important {
		mark = "❗ "
	}
	return fmt.Sprintf("*Step %d/%d*\n%s%s", st.ID, total, mark, esc(st.Content))
}

func formatAllSteps(cat injury.Category, steps []injury.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", esc(string(cat)))
	for _, st := range steps {
		mark := ""
		if st.Important {
			mark = "❗ "
		}
		fmt.Fprintf(&b, "%d. %s%s\n", st.ID, mark, esc(st.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}

// esc escapes legacy Markdown control characters.
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
