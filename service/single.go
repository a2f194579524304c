package service

import (
	"context"
	"time"

	"github.com/n3utron0/telecom-call-data-analyzer/model"
	"github.com/n3utron0/telecom-call-data-analyzer/pkg/logger"
)

// SinglePipeline drives one recording through extraction and validation,
// then stages it for an explicit human decision. Nothing is written to the
// warehouse until a reviewer confirms.
type SinglePipeline struct {
	extractor Extractor
	audio     AudioStore
	sink      StorageSink
	reviews   *ReviewStore
	metrics   *Metrics
}

func NewSinglePipeline(extractor Extractor, audio AudioStore, sink StorageSink, reviews *ReviewStore, metrics *Metrics) *SinglePipeline {
	return &SinglePipeline{
		extractor: extractor,
		audio:     audio,
		sink:      sink,
		reviews:   reviews,
		metrics:   metrics,
	}
}

// Process runs extract → validate → stage for one staged recording. The
// staged audio object is removed once extraction resolves either way.
// Extraction and validation failures are returned typed, with nothing
// written and nothing staged.
func (p *SinglePipeline) Process(ctx context.Context, ref AudioRef) (*StagedReview, error) {
	start := time.Now()

	raw, err := p.extractor.Extract(ctx, ref)
	p.removeAudio(ctx, ref)
	if err != nil {
		p.metrics.RecordSingle(time.Since(start), false)
		return nil, err
	}

	rec, err := ValidateExtraction(raw, ref.Object, model.OriginSingle)
	if err != nil {
		p.metrics.RecordSingle(time.Since(start), false)
		return nil, err
	}

	elapsed := time.Since(start)
	rec.ProcessingSec = elapsed.Seconds()
	p.metrics.RecordSingle(elapsed, true)

	review := p.reviews.Stage(rec)
	logger.Info(ctx, "record staged for review",
		"review_token", review.Token,
		"source_ref", rec.SourceReference,
		"processing_sec", rec.ProcessingSec,
	)
	return review, nil
}

// Confirm applies the reviewer's edits, re-validates them (edits are not
// trusted either), flips the record to confirmed and writes it once. On a
// validation failure the record stays staged so the reviewer can correct
// and retry; on a commit failure the error carries the record and the
// pipeline does not retry the write.
func (p *SinglePipeline) Confirm(ctx context.Context, token string, edits *model.CallRecord) (*model.CallRecord, error) {
	staged, err := p.reviews.Get(token)
	if err != nil {
		return nil, err
	}

	rec, err := ValidateRecord(mergeEdits(staged, edits))
	if err != nil {
		return nil, err
	}

	// Edits are valid; the token is consumed from here on.
	if _, err := p.reviews.Take(token); err != nil {
		return nil, err
	}

	rec.ValidationState = model.StateConfirmed
	if err := p.sink.Write(ctx, rec); err != nil {
		return nil, err
	}

	logger.Info(ctx, "record confirmed and committed",
		"customer_id", rec.CustomerID,
		"source_ref", rec.SourceReference,
	)
	return rec, nil
}

// Reject discards a staged record without writing anything.
func (p *SinglePipeline) Reject(ctx context.Context, token string) error {
	rec, err := p.reviews.Take(token)
	if err != nil {
		return err
	}

	rec.ValidationState = model.StateRejected
	logger.Info(ctx, "staged record rejected and discarded",
		"review_token", token,
		"source_ref", rec.SourceReference,
	)
	return nil
}

func (p *SinglePipeline) removeAudio(ctx context.Context, ref AudioRef) {
	if err := p.audio.Remove(ctx, ref); err != nil {
		logger.Warn(ctx, "failed to remove staged audio", "object", ref.Object, "error", err)
	}
}

// mergeEdits overlays the reviewer-editable fields onto the staged record.
// Identity fields (customer id, source reference, origin, timestamps) are
// never editable.
func mergeEdits(staged, edits *model.CallRecord) *model.CallRecord {
	rec := *staged
	if edits == nil {
		return &rec
	}

	if edits.PhoneNumber != "" {
		rec.PhoneNumber = edits.PhoneNumber
	}
	if edits.Transcript != "" {
		rec.Transcript = edits.Transcript
	}
	if edits.ComplaintType != "" {
		rec.ComplaintType = edits.ComplaintType
	}
	if edits.Sentiment != "" {
		rec.Sentiment = edits.Sentiment
	}
	if edits.ResolutionStatus != "" {
		rec.ResolutionStatus = edits.ResolutionStatus
	}
	if edits.Metadata != nil {
		rec.Metadata = edits.Metadata
	}
	return &rec
}
