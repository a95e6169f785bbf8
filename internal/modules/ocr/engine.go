// README: OCR engines: Gemini vision transcription behind a small interface.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Engine transcribes the text of an image.
type Engine interface {
	ExtractText(ctx context.Context, image []byte, format string) (string, error)
}

type GeminiEngine struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiEngine(ctx context.Context, apiKey string) (*GeminiEngine, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel("gemini-2.0-flash")
	model.SetTemperature(0)
	return &GeminiEngine{client: client, model: model}, nil
}

func (e *GeminiEngine) Close() {
	e.client.Close()
}

const transcribePrompt = `Transcribe every line of text in this order screenshot exactly as shown, top to bottom.
Keep emoji, arrow glyphs (such as ⌄ ▼ ›), currency symbols and line breaks.
Do not translate, summarize or add anything. Output plain text only.`

func (e *GeminiEngine) ExtractText(ctx context.Context, image []byte, format string) (string, error) {
	resp, err := e.model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(transcribePrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates from Gemini")
	}
	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	return stripFences(out.String()), nil
}

// stripFences drops a surrounding ``` block if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
