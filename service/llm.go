package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/n3utron0/telecom-call-data-analyzer/config"
	"github.com/n3utron0/telecom-call-data-analyzer/pkg/logger"
	"google.golang.org/genai"
)

// LLM is the narrow surface the pipelines need from the language model.
// GenerateStructured analyzes one staged audio recording and returns the
// model's raw text output; GenerateText answers a plain prompt. All
// provider-specific request and response shapes stay behind this interface.
type LLM interface {
	GenerateStructured(ctx context.Context, audioURI, mimeType string) (string, error)
	GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error)
}

// GeminiLLM implements LLM on the Gemini API.
type GeminiLLM struct {
	client *genai.Client
	config *config.GeminiConfig
}

func NewGeminiLLM(ctx context.Context, cfg *config.GeminiConfig) (*GeminiLLM, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiLLM{
		client: client,
		config: cfg,
	}, nil
}

// GenerateStructured sends the staged audio plus the extraction prompt and
// returns the raw model text. Parsing and validation happen in the caller.
func (g *GeminiLLM) GenerateStructured(ctx context.Context, audioURI, mimeType string) (string, error) {
	parts := []*genai.Part{
		{FileData: &genai.FileData{FileURI: audioURI, MIMEType: mimeType}},
		{Text: extractionPrompt},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	return g.generate(ctx, contents, nil)
}

// GenerateText answers a plain text prompt, optionally under a system
// instruction.
func (g *GeminiLLM) GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error) {
	var genCfg *genai.GenerateContentConfig
	if systemInstruction != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: systemInstruction}},
			},
		}
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}

	return g.generate(ctx, contents, genCfg)
}

// generate calls the model with exponential backoff on rate limits only.
// Any other failure is returned to the caller on the first attempt.
func (g *GeminiLLM) generate(ctx context.Context, contents []*genai.Content, genCfg *genai.GenerateContentConfig) (string, error) {
	delay := time.Duration(g.config.BackoffBaseSec) * time.Second

	var lastErr error
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, contents, genCfg)
		if err != nil {
			lastErr = err
			if isRateLimited(err) && attempt < g.config.MaxRetries {
				logger.Warn(ctx, "gemini rate-limited, backing off",
					"attempt", attempt+1,
					"max_retries", g.config.MaxRetries,
					"delay", delay.String(),
				)
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return "", ctx.Err()
				}
				delay *= 2
				continue
			}
			return "", fmt.Errorf("gemini request failed: %w", err)
		}

		if resp == nil || len(resp.Candidates) == 0 {
			return "", fmt.Errorf("empty response from gemini")
		}
		return resp.Text(), nil
	}

	return "", fmt.Errorf("gemini request failed after %d retries: %w", g.config.MaxRetries, lastErr)
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429")
}
