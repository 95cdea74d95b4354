// Package ai wraps the external generative-text provider behind a small
// Generator interface so the pipeline can be tested without network calls.
package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"github.com/kindredapp/companion/backend/internal/config"
)

// Reply is the provider outcome: either text, or a safety block.
type Reply struct {
	Text    string
	Blocked bool
}

// Generator produces a companion reply from ordered prompt parts.
type Generator interface {
	Generate(ctx context.Context, parts []string) (Reply, error)
}

// Gemini is the Generator backed by Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	cfg    *genai.GenerateContentConfig
}

// NewGemini builds a Gemini generator with the product's generation
// constraints and safety thresholds applied. systemInstruction is the fixed
// companion policy; it rides on every call.
func NewGemini(ctx context.Context, aiCfg config.AIConfig, systemInstruction string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  aiCfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	// Conservative temperature for emotional safety; responses stay short.
	temperature := float32(0.6)
	topP := float32(0.85)
	topK := float32(40)
	maxOutputTokens := int32(300)
	if aiCfg.Temperature != nil {
		temperature = float32(*aiCfg.Temperature)
	}
	if aiCfg.TopP != nil {
		topP = float32(*aiCfg.TopP)
	}
	if aiCfg.TopK != nil {
		topK = float32(*aiCfg.TopK)
	}
	if aiCfg.MaxOutputTokens != nil {
		maxOutputTokens = int32(*aiCfg.MaxOutputTokens)
	}

	// Block anything borderline or above across all categories; this covers
	// romantic escalation, harmful advice, etc.
	safety := make([]*genai.SafetySetting, 0, 4)
	for _, category := range []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	} {
		safety = append(safety, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockLowAndAbove,
		})
	}

	return &Gemini{
		client: client,
		model:  aiCfg.Model,
		cfg: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       genai.Ptr(temperature),
			TopP:              genai.Ptr(topP),
			TopK:              genai.Ptr(topK),
			MaxOutputTokens:   maxOutputTokens,
			SafetySettings:    safety,
		},
	}, nil
}

// Generate implements Generator. A safety-filtered response is reported via
// Reply.Blocked rather than an error so the caller can distinguish it from
// provider failures.
func (g *Gemini) Generate(ctx context.Context, parts []string) (Reply, error) {
	content := &genai.Content{Role: genai.RoleUser, Parts: make([]*genai.Part, 0, len(parts))}
	for _, part := range parts {
		content.Parts = append(content.Parts, genai.NewPartFromText(part))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, g.cfg)
	if err != nil {
		return Reply{}, fmt.Errorf("generate content: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		log.Printf("[ai] prompt blocked: %s", resp.PromptFeedback.BlockReason)
		return Reply{Blocked: true}, nil
	}
	if len(resp.Candidates) == 0 {
		return Reply{Blocked: true}, nil
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return Reply{Blocked: true}, nil
	}

	var sb strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return Reply{Text: sb.String()}, nil
}
