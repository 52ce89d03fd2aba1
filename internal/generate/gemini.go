// Package generate turns aggregated rental data into a contract document via
// a generative text model. The provider response is treated as untrusted,
// unstructured text; the only validation is non-emptiness.
package generate

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"rentalsign/internal/platform/config"
	dErrors "rentalsign/pkg/domain-errors"
)

// Generator produces a contract document for a prompt. Implementations make
// exactly one provider call: no local retry, no partial output.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls a Vertex AI Gemini model.
type GeminiGenerator struct {
	model      *genai.GenerativeModel
	baseClient *genai.Client
}

// NewGemini builds a generator bound to one pre-configured model.
func NewGemini(ctx context.Context, cfg config.Gemini) (*GeminiGenerator, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("gemini project id and region are required")
	}
	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	model := baseClient.GenerativeModel(cfg.Model)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	return &GeminiGenerator{model: model, baseClient: baseClient}, nil
}

// Generate performs the single provider call. Any provider failure or an
// empty response surfaces as generation_failed.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeGenerationFailed, "contract text generation failed", err)
	}
	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", dErrors.New(dErrors.CodeGenerationFailed, "generation returned empty document")
	}
	return text, nil
}

func (g *GeminiGenerator) Close() error {
	if g.baseClient != nil {
		return g.baseClient.Close()
	}
	return nil
}

// extractText concatenates the text parts of the first candidate. Non-text
// parts are ignored.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
