package extract

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiExtractor is the concrete Extractor backed by the Gemini API.
// The genai SDK reads its API key from the environment.
type GeminiExtractor struct {
	model string
}

// NewGeminiExtractor creates an extractor using the given model name,
// falling back to DefaultModelName when empty.
func NewGeminiExtractor(model string) *GeminiExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{model: model}
}

// Extract sends the document to Gemini with the kind-specific prompt and
// decodes the strict-JSON reply into an Extraction.
func (g *GeminiExtractor) Extract(ctx context.Context, kind Kind, mimeType string, data []byte) (*Extraction, error) {
	if !AllowedMIMEType(kind, mimeType) {
		return nil, fmt.Errorf("%w: %s for %s", ErrUnsupportedType, mimeType, kind)
	}

	var prompt string
	switch kind {
	case KindReceipt:
		prompt = receiptPrompt()
	case KindStatement:
		prompt = statementPrompt()
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrUnsupportedType, kind)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("Extract: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Extract: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("Extract: empty response from model")
	}

	// Clean up Markdown fences / extra text if the model ignored instructions.
	clean := cleanModelJSON(rawText)

	ext, err := decodeExtraction(kind, clean)
	if err != nil {
		return nil, fmt.Errorf("Extract: %w\nraw response: %s", err, rawText)
	}
	ext.ModelName = g.model

	return ext, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk, keeping only
// the outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			// Single-line weirdness; just return as-is.
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON object,
	// try to keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}

// Ensure GeminiExtractor implements the Extractor interface.
var _ Extractor = (*GeminiExtractor)(nil)
