package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/n3utron0/telecom-call-data-analyzer/model"
)

func newSingleFixture(extractor Extractor, sink *fakeSink) (*SinglePipeline, *fakeAudioStore, *ReviewStore) {
	audio := &fakeAudioStore{}
	reviews := NewReviewStore(time.Hour)
	metrics := NewMetrics()
	return NewSinglePipeline(extractor, audio, sink, reviews, metrics), audio, reviews
}

func TestSingleProcessStagesRecord(t *testing.T) {
	extractor := &fakeExtractor{results: map[string]*model.RawExtraction{"calls/a.wav": validRaw()}}
	sink := &fakeSink{}
	pipeline, audio, reviews := newSingleFixture(extractor, sink)

	review, err := pipeline.Process(context.Background(), AudioRef{Object: "calls/a.wav"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if review.Record.ValidationState != model.StatePending {
		t.Errorf("Expected pending state, got %q", review.Record.ValidationState)
	}
	if reviews.Count() != 1 {
		t.Errorf("Expected 1 staged record, got %d", reviews.Count())
	}
	if len(sink.written) != 0 {
		t.Error("Nothing may be written before confirmation")
	}
	if len(audio.removed) != 1 || audio.removed[0] != "calls/a.wav" {
		t.Errorf("Expected staged audio to be removed, got %v", audio.removed)
	}
}

func TestSingleProcessInvalidStatusFailsWithoutWrite(t *testing.T) {
	raw := validRaw()
	raw.ResolutionStatus = "unknown_value"
	extractor := &fakeExtractor{results: map[string]*model.RawExtraction{"calls/a.wav": raw}}
	sink := &fakeSink{}
	pipeline, _, reviews := newSingleFixture(extractor, sink)

	_, err := pipeline.Process(context.Background(), AudioRef{Object: "calls/a.wav"})

	var valErr *model.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %T: %v", err, err)
	}
	if valErr.Field != "resolution_status" || valErr.Code != model.InvalidStatus {
		t.Errorf("Expected invalid_status on resolution_status, got %s on %s", valErr.Code, valErr.Field)
	}
	if len(sink.written) != 0 {
		t.Error("No storage write may occur on validation failure")
	}
	if reviews.Count() != 0 {
		t.Error("Nothing may be staged on validation failure")
	}
}

func TestSingleProcessExtractionFailure(t *testing.T) {
	extractor := &fakeExtractor{errs: map[string]error{
		"calls/a.wav": &model.ExtractionError{Kind: model.ExtractionTimeout, Ref: "calls/a.wav"},
	}}
	sink := &fakeSink{}
	pipeline, audio, _ := newSingleFixture(extractor, sink)

	_, err := pipeline.Process(context.Background(), AudioRef{Object: "calls/a.wav"})

	var extErr *model.ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("Expected ExtractionError, got %T: %v", err, err)
	}
	if extErr.Kind != model.ExtractionTimeout {
		t.Errorf("Expected timeout kind, got %q", extErr.Kind)
	}
	if len(sink.written) != 0 {
		t.Error("No storage write may occur on extraction failure")
	}
	if len(audio.removed) != 1 {
		t.Error("Staged audio must be removed even when extraction fails")
	}
}

func TestSingleConfirmCommitsEditedRecord(t *testing.T) {
	extractor := &fakeExtractor{results: map[string]*model.RawExtraction{"calls/a.wav": validRaw()}}
	sink := &fakeSink{}
	pipeline, _, _ := newSingleFixture(extractor, sink)

	review, err := pipeline.Process(context.Background(), AudioRef{Object: "calls/a.wav"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	edits := &model.CallRecord{ResolutionStatus: "escalated", PhoneNumber: "1112223333"}
	rec, err := pipeline.Confirm(context.Background(), review.Token, edits)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if rec.ValidationState != model.StateConfirmed {
		t.Errorf("Expected confirmed state, got %q", rec.ValidationState)
	}
	if rec.ResolutionStatus != model.StatusEscalated {
		t.Errorf("Expected edited status escalated, got %q", rec.ResolutionStatus)
	}
	if rec.PhoneNumber != "1112223333" {
		t.Errorf("Expected edited phone number, got %q", rec.PhoneNumber)
	}
	if len(sink.written) != 1 {
		t.Fatalf("Expected exactly one write, got %d", len(sink.written))
	}
	if sink.written[0].ValidationState != model.StateConfirmed {
		t.Error("Sink must only see confirmed records")
	}
}

func TestSingleConfirmRejectsInvalidEdits(t *testing.T) {
	extractor := &fakeExtractor{results: map[string]*model.RawExtraction{"calls/a.wav": validRaw()}}
	sink := &fakeSink{}
	pipeline, _, reviews := newSingleFixture(extractor, sink)

	review, err := pipeline.Process(context.Background(), AudioRef{Object: "calls/a.wav"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	edits := &model.CallRecord{Sentiment: "ecstatic"}
	_, err = pipeline.Confirm(context.Background(), review.Token, edits)

	var valErr *model.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %T: %v", err, err)
	}
	if len(sink.written) != 0 {
		t.Error("No write may occur when edits fail validation")
	}
	// The record stays staged so the reviewer can correct and retry.
	if reviews.Count() != 1 {
		t.Errorf("Expected record to remain staged, got %d", reviews.Count())
	}

	if _, err := pipeline.Confirm(context.Background(), review.Token, nil); err != nil {
		t.Fatalf("Retry with valid edits must succeed: %v", err)
	}
}

func TestSingleConfirmCommitFailureNotRetried(t *testing.T) {
	extractor := &fakeExtractor{results: map[string]*model.RawExtraction{"calls/a.wav": validRaw()}}
	sink := &fakeSink{writeErr: errors.New("stream insert failed")}
	pipeline, _, _ := newSingleFixture(extractor, sink)

	review, err := pipeline.Process(context.Background(), AudioRef{Object: "calls/a.wav"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := pipeline.Confirm(context.Background(), review.Token, nil); err == nil {
		t.Fatal("Expected commit failure to surface")
	}
	if len(sink.written) != 0 {
		t.Error("Failed write must not be recorded as persisted")
	}
}

func TestSingleReject(t *testing.T) {
	extractor := &fakeExtractor{results: map[string]*model.RawExtraction{"calls/a.wav": validRaw()}}
	sink := &fakeSink{}
	pipeline, _, reviews := newSingleFixture(extractor, sink)

	review, err := pipeline.Process(context.Background(), AudioRef{Object: "calls/a.wav"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := pipeline.Reject(context.Background(), review.Token); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(sink.written) != 0 {
		t.Error("Reject must not write anything")
	}
	if reviews.Count() != 0 {
		t.Error("Rejected record must be discarded")
	}

	if err := pipeline.Reject(context.Background(), review.Token); err == nil {
		t.Error("Expected error rejecting an already-resolved token")
	}
}
