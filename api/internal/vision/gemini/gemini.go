package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"first-aid/api/internal/util"
	"first-aid/api/internal/vision"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// WithModel returns a copy bound to another model name.
func (e *Engine) WithModel(model string) vision.Engine {
	cp := *e
	if m := strings.TrimSpace(model); m != "" {
		cp.Model = m
	}
	return &cp
}

// Describe makes a single generateContent call and returns the reply text.
func (e *Engine) Describe(ctx context.Context, img []byte, mime string) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(vision.SystemPrompt)},
	}

	if mime == "" {
		mime = util.SniffMimeHTTP(img)
	}
	resp, err := m.GenerateContent(ctx,
		genai.Text(vision.UserPrompt),
		&genai.Blob{MIMEType: mime, Data: img},
	)
	if err != nil {
		return "", fmt.Errorf("gemini describe: %w", err)
	}
	out := strings.TrimSpace(firstText(resp))
	if out == "" {
		return "", errors.New("gemini describe: empty response")
	}
	return out, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
