package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/n3utron0/telecom-call-data-analyzer/model"
)

// fakeLLM returns scripted responses per audio URI / prompt.
type fakeLLM struct {
	structured    map[string]string // audioURI -> response text
	structuredErr map[string]error  // audioURI -> error
	textResponses []string          // consumed in order by GenerateText
	textErr       error
	mu            sync.Mutex
	textPrompts   []string
}

func (f *fakeLLM) GenerateStructured(ctx context.Context, audioURI, mimeType string) (string, error) {
	if err, ok := f.structuredErr[audioURI]; ok {
		return "", err
	}
	if resp, ok := f.structured[audioURI]; ok {
		return resp, nil
	}
	return "", fmt.Errorf("no scripted response for %s", audioURI)
}

func (f *fakeLLM) GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textPrompts = append(f.textPrompts, prompt)
	if f.textErr != nil {
		return "", f.textErr
	}
	if len(f.textResponses) == 0 {
		return "", fmt.Errorf("no scripted text response")
	}
	resp := f.textResponses[0]
	f.textResponses = f.textResponses[1:]
	return resp, nil
}

// fakeExtractor returns scripted extractions per object name.
type fakeExtractor struct {
	results map[string]*model.RawExtraction
	errs    map[string]error
}

func (f *fakeExtractor) Extract(ctx context.Context, ref AudioRef) (*model.RawExtraction, error) {
	if err, ok := f.errs[ref.Object]; ok {
		return nil, err
	}
	if raw, ok := f.results[ref.Object]; ok {
		return raw, nil
	}
	return nil, &model.ExtractionError{Kind: model.ExtractionUpstreamUnavailable, Ref: ref.Object}
}

// fakeSink records every write attempt so tests can assert the confirmed-only
// invariant.
type fakeSink struct {
	mu          sync.Mutex
	written     []*model.CallRecord
	bulkWritten [][]*model.CallRecord
	writeErr    error
	bulkErrs    map[string]error // customer or source ref -> error
	bulkCallErr error            // fails the whole bulk call
}

func (f *fakeSink) Write(ctx context.Context, rec *model.CallRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.ValidationState != model.StateConfirmed {
		return fmt.Errorf("unconfirmed record reached sink: %s", rec.ValidationState)
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, rec)
	return nil
}

func (f *fakeSink) BulkWrite(ctx context.Context, recs []*model.CallRecord) []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkWritten = append(f.bulkWritten, recs)

	errs := make([]error, len(recs))
	for i, rec := range recs {
		if rec.ValidationState != model.StateConfirmed {
			errs[i] = fmt.Errorf("unconfirmed record reached sink: %s", rec.ValidationState)
			continue
		}
		if f.bulkCallErr != nil {
			errs[i] = f.bulkCallErr
			continue
		}
		if err, ok := f.bulkErrs[rec.SourceReference]; ok {
			errs[i] = err
		}
	}
	return errs
}

func (f *fakeSink) lastBulk() []*model.CallRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bulkWritten) == 0 {
		return nil
	}
	return f.bulkWritten[len(f.bulkWritten)-1]
}

// fakeAudioStore tracks staged and removed objects.
type fakeAudioStore struct {
	mu      sync.Mutex
	removed []string
}

func (f *fakeAudioStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (AudioRef, error) {
	return AudioRef{Object: objectName, URI: "http://audio.test/" + objectName, MIMEType: contentType}, nil
}

func (f *fakeAudioStore) Remove(ctx context.Context, ref AudioRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ref.Object)
	return nil
}

// fakeRunner returns scripted query results.
type fakeRunner struct {
	rows []map[string]any
	err  error
	sql  string
}

func (f *fakeRunner) RunQuery(ctx context.Context, sqlText string) ([]map[string]any, error) {
	f.sql = sqlText
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func strPtr(s string) *string { return &s }

func validRaw() *model.RawExtraction {
	return &model.RawExtraction{
		Transcript:       strPtr("Customer reported a network outage."),
		PhoneNumber:      "9876543210",
		ComplaintType:    "Network Issue",
		Sentiment:        "negative",
		ResolutionStatus: "unresolved",
	}
}
