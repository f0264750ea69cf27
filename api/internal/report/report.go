package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"first-aid/api/internal/injury"

	"github.com/signintech/gopdf"
)

var ErrNoFont = errors.New("no usable TTF font found; install ttf-dejavu or set PDF_FONT_PATH")

// fontPaths are tried after Options.FontPath.
var fontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
}

type Options struct {
	FontPath    string
	Title       string
	GeneratedAt time.Time
	Reference   string // analysis id printed in the footer
}

const (
	marginLeft = 40.0
	textWidth  = 515.0
	pageBottom = 800.0
	fontFamily = "card"
)

type card struct {
	pdf gopdf.GoPdf
}

// Render lays out a one-or-more page A4 first-aid card for the bundle.
func Render(b injury.Bundle, opt Options) ([]byte, error) {
	c := &card{}
	c.pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	c.pdf.SetMargins(marginLeft, 40, marginLeft, 40)
	c.pdf.AddPage()

	if err := c.loadFont(opt.FontPath); err != nil {
		return nil, err
	}

	title := opt.Title
	if title == "" {
		title = "First aid card"
	}
	at := opt.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}

	if err := c.heading(title, 20); err != nil {
		return nil, err
	}
	if err := c.line(fmt.Sprintf("Generated: %s", at.Format("02.01.2006 15:04")), 10, 14); err != nil {
		return nil, err
	}
	c.pdf.Br(10)

	if err := c.heading(fmt.Sprintf("%s (%.0f%%)", b.InjuryType, b.Probability*100), 16); err != nil {
		return nil, err
	}
	d := b.Details
	details := []string{
		"Severity: " + string(d.Severity),
		"Location: " + d.Location,
		"Blood level: " + string(d.BloodLevel),
		"Foreign objects: " + yesNo(d.ForeignObjects),
	}
	for _, s := range details {
		if err := c.line(s, 12, 16); err != nil {
			return nil, err
		}
	}
	c.pdf.Br(8)

	if b.Warning != "" {
		c.pdf.SetTextColor(180, 0, 0)
		if err := c.paragraph(b.Warning, 13, 17); err != nil {
			return nil, err
		}
		c.pdf.SetTextColor(0, 0, 0)
		c.pdf.Br(8)
	}

	if err := c.heading("Steps", 14); err != nil {
		return nil, err
	}
	for _, st := range b.Steps {
		prefix := fmt.Sprintf("%d. ", st.ID)
		if st.Important {
			prefix = fmt.Sprintf("%d. (!) ", st.ID)
		}
		if err := c.paragraph(prefix+st.Content, 12, 16); err != nil {
			return nil, err
		}
		c.pdf.Br(4)
	}
	if b.EstimatedTime != "" {
		if err := c.line("Estimated time: "+b.EstimatedTime, 11, 15); err != nil {
			return nil, err
		}
	}
	c.pdf.Br(10)

	if b.Note != "" {
		if err := c.paragraph(b.Note, 9, 12); err != nil {
			return nil, err
		}
		c.pdf.Br(6)
	}
	if len(b.Sources) > 0 {
		if err := c.paragraph("Sources: "+strings.Join(b.Sources, "; "), 9, 12); err != nil {
			return nil, err
		}
	}
	if opt.Reference != "" {
		c.pdf.Br(6)
		if err := c.line("Ref: "+opt.Reference, 8, 10); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := c.pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *card) loadFont(explicit string) error {
	paths := fontPaths
	if explicit != "" {
		paths = append([]string{explicit}, fontPaths...)
	}
	var lastErr error
	for _, p := range paths {
		if err := c.pdf.AddTTFFont(fontFamily, p); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("%w: %v", ErrNoFont, lastErr)
}

func (c *card) heading(text string, size float64) error {
	return c.line(text, size, size+8)
}

func (c *card) line(text string, size, height float64) error {
	if err := c.pdf.SetFont(fontFamily, "", size); err != nil {
		return err
	}
	c.breakIfNeeded(height)
	c.pdf.SetX(marginLeft)
	if err := c.pdf.Cell(nil, text); err != nil {
		return err
	}
	c.pdf.Br(height)
	return nil
}

func (c *card) paragraph(text string, size, height float64) error {
	if err := c.pdf.SetFont(fontFamily, "", size); err != nil {
		return err
	}
	lines, err := c.pdf.SplitText(text, textWidth)
	if err != nil {
		return err
	}
	for _, l := range lines {
		c.breakIfNeeded(height)
		c.pdf.SetX(marginLeft)
		if err := c.pdf.Cell(nil, l); err != nil {
			return err
		}
		c.pdf.Br(height)
	}
	return nil
}

func (c *card) breakIfNeeded(height float64) {
	if c.pdf.GetY()+height > pageBottom {
		c.pdf.AddPage()
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
