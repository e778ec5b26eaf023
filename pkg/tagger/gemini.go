package tagger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"github.com/aretw0/catset/pkg/core"
)

// ErrEmptyResponse is returned when the model produced no candidate.
var ErrEmptyResponse = errors.New("model returned no content")

const geminiPrompt = `You label Java tokens for a code-comment dataset.
The input is a JSON array of normalized Java tokens. STR_, NUM_ and BOOL_ stand
for string, numeric and boolean literals.
Return only a JSON array of strings with exactly one upper-case type tag per
input token, in the same order.`

// Gemini asks a Gemini model for the CAT.
type Gemini struct {
	model    string
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewGemini creates a Gemini tagger. An empty apiKey lets the client read
// GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	g := &Gemini{model: model}
	g.generate = func(ctx context.Context, prompt string) (string, error) {
		resp, err := cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
		)
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", ErrEmptyResponse
		}
		return resp.Candidates[0].Content.Parts[0].Text, nil
	}
	return g, nil
}

var _ core.Tagger = (*Gemini)(nil)

func (g *Gemini) GenerateTags(ctx context.Context, normalized string) ([]string, error) {
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return []string{}, nil
	}
	in, _ := json.Marshal(tokens)

	txt, err := g.generate(ctx, geminiPrompt+"\n\n[INPUT JSON]\n"+string(in))
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", g.model, err)
	}
	return parseTagArray(txt)
}

// parseTagArray accepts a bare JSON array or an object with a "cat" field,
// optionally wrapped in a markdown code fence.
func parseTagArray(txt string) ([]string, error) {
	txt = strings.TrimSpace(txt)
	txt = strings.TrimPrefix(txt, "```json")
	txt = strings.TrimPrefix(txt, "```")
	txt = strings.TrimSuffix(txt, "```")
	txt = strings.TrimSpace(txt)

	var tags []string
	if err := json.Unmarshal([]byte(txt), &tags); err == nil {
		return tags, nil
	}
	var wrapped tagResponse
	if err := json.Unmarshal([]byte(txt), &wrapped); err != nil || wrapped.CAT == nil {
		return nil, fmt.Errorf("model output is not a tag array: %.80q", txt)
	}
	return wrapped.CAT, nil
}

func (g *Gemini) ComponentType() string { return "gemini" }
