package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n3utron0/telecom-call-data-analyzer/model"
	"github.com/n3utron0/telecom-call-data-analyzer/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAudioStore accepts every upload; the object name carries the original
// filename as a suffix so the stub extractor can match on it.
type stubAudioStore struct {
	mu      sync.Mutex
	removed []string
}

func (s *stubAudioStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (service.AudioRef, error) {
	return service.AudioRef{Object: objectName, URI: "http://audio.test/" + objectName, MIMEType: contentType}, nil
}

func (s *stubAudioStore) Remove(ctx context.Context, ref service.AudioRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, ref.Object)
	return nil
}

// stubExtractor matches scripted results by filename suffix because uploads
// are staged under generated object names.
type stubExtractor struct {
	results map[string]*model.RawExtraction // filename -> raw
	errs    map[string]error                // filename -> error
}

func (s *stubExtractor) Extract(ctx context.Context, ref service.AudioRef) (*model.RawExtraction, error) {
	for name, err := range s.errs {
		if strings.HasSuffix(ref.Object, name) {
			return nil, err
		}
	}
	for name, raw := range s.results {
		if strings.HasSuffix(ref.Object, name) {
			return raw, nil
		}
	}
	return nil, &model.ExtractionError{Kind: model.ExtractionUpstreamUnavailable, Ref: ref.Object}
}

type stubSink struct {
	mu       sync.Mutex
	written  []*model.CallRecord
	writeErr error
}

func (s *stubSink) Write(ctx context.Context, rec *model.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ValidationState != model.StateConfirmed {
		return fmt.Errorf("unconfirmed record reached sink: %s", rec.ValidationState)
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written = append(s.written, rec)
	return nil
}

func (s *stubSink) BulkWrite(ctx context.Context, recs []*model.CallRecord) []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := make([]error, len(recs))
	for i, rec := range recs {
		if rec.ValidationState != model.StateConfirmed {
			errs[i] = fmt.Errorf("unconfirmed record reached sink: %s", rec.ValidationState)
			continue
		}
		s.written = append(s.written, rec)
	}
	return errs
}

// stubLLM serves the chat handler tests with scripted text responses.
type stubLLM struct {
	mu            sync.Mutex
	textResponses []string
	textErr       error
	calls         int
}

func (s *stubLLM) GenerateStructured(ctx context.Context, audioURI, mimeType string) (string, error) {
	return "", fmt.Errorf("not scripted")
}

func (s *stubLLM) GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.textErr != nil {
		return "", s.textErr
	}
	if len(s.textResponses) == 0 {
		return "", fmt.Errorf("no scripted text response")
	}
	resp := s.textResponses[0]
	s.textResponses = s.textResponses[1:]
	return resp, nil
}

type stubRunner struct {
	rows []map[string]any
	err  error
	sql  string
}

func (s *stubRunner) RunQuery(ctx context.Context, sqlText string) ([]map[string]any, error) {
	s.sql = sqlText
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
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

type callFixture struct {
	handler   *CallHandler
	sink      *stubSink
	extractor *stubExtractor
	reviews   *service.ReviewStore
	router    *gin.Engine
}

func newCallFixture(extractor *stubExtractor, sink *stubSink) *callFixture {
	audio := &stubAudioStore{}
	reviews := service.NewReviewStore(time.Hour)
	metrics := service.NewMetrics()
	single := service.NewSinglePipeline(extractor, audio, sink, reviews, metrics)
	batch := service.NewBatchPipeline(extractor, audio, sink, metrics, 4)
	h := NewCallHandler(audio, single, batch, 25)

	router := gin.New()
	router.POST("/api/calls/upload", h.Upload)
	router.POST("/api/calls/batch", h.BatchUpload)
	router.POST("/api/calls/:token/confirm", h.Confirm)
	router.POST("/api/calls/:token/reject", h.Reject)

	return &callFixture{handler: h, sink: sink, extractor: extractor, reviews: reviews, router: router}
}

// multipartBody builds a multipart form carrying the named files under the
// given field, each with a small fake payload.
func multipartBody(field string, filenames ...string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range filenames {
		part, _ := writer.CreateFormFile(field, name)
		part.Write([]byte("fake audio bytes"))
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func (f *callFixture) postMultipart(path, field string, filenames ...string) *httptest.ResponseRecorder {
	body, contentType := multipartBody(field, filenames...)
	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *callFixture) postJSON(path, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}
