package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/n3utron0/telecom-call-data-analyzer/model"
)

// Extractor turns one staged audio recording into a raw extraction. Its
// output is untrusted; everything it returns must pass the validator before
// going anywhere near storage.
type Extractor interface {
	Extract(ctx context.Context, ref AudioRef) (*model.RawExtraction, error)
}

// LLMExtractor drives one language-model call per recording with a per-call
// timeout. It performs no retries of its own; retry policy belongs to the
// caller.
type LLMExtractor struct {
	llm     LLM
	timeout time.Duration
}

func NewLLMExtractor(llm LLM, timeout time.Duration) *LLMExtractor {
	return &LLMExtractor{
		llm:     llm,
		timeout: timeout,
	}
}

// Extract submits the audio reference and parses the model's text output
// into a RawExtraction. Failures map onto the extraction error taxonomy:
// timeout, upstream unavailable, or malformed response.
func (e *LLMExtractor) Extract(ctx context.Context, ref AudioRef) (*model.RawExtraction, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.llm.GenerateStructured(callCtx, ref.URI, ref.MIMEType)
	if err != nil {
		kind := model.ExtractionUpstreamUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			kind = model.ExtractionTimeout
		}
		return nil, &model.ExtractionError{Kind: kind, Ref: ref.Object, Err: err}
	}

	payload, err := extractJSON(text)
	if err != nil {
		return nil, &model.ExtractionError{Kind: model.ExtractionMalformedResponse, Ref: ref.Object, Err: err}
	}

	var raw model.RawExtraction
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, &model.ExtractionError{Kind: model.ExtractionMalformedResponse, Ref: ref.Object, Err: err}
	}

	return &raw, nil
}

// extractJSON pulls a JSON object out of model output that may be wrapped in
// markdown fences or surrounded by prose.
func extractJSON(text string) (string, error) {
	text = stripMarkdownFences(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object in response")
	}

	return text[start : end+1], nil
}

// stripMarkdownFences removes ```json ... ``` wrapping if present.
func stripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	endIdx := len(lines) - 1
	for i := len(lines) - 1; i >= 1; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}

	return strings.Join(lines[1:endIdx], "\n")
}
