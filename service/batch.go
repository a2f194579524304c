package service

import (
	"context"
	"sync"
	"time"

	"github.com/n3utron0/telecom-call-data-analyzer/model"
	"github.com/n3utron0/telecom-call-data-analyzer/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// BatchPipeline processes many recordings concurrently under a fixed
// in-flight limit. Each item owns its outcome slot exclusively; one item's
// failure never aborts or blocks the others. Validated records are confirmed
// without a human gate and submitted in one bulk write at the end.
type BatchPipeline struct {
	extractor     Extractor
	audio         AudioStore
	sink          StorageSink
	metrics       *Metrics
	maxConcurrent int
}

func NewBatchPipeline(extractor Extractor, audio AudioStore, sink StorageSink, metrics *Metrics, maxConcurrent int) *BatchPipeline {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &BatchPipeline{
		extractor:     extractor,
		audio:         audio,
		sink:          sink,
		metrics:       metrics,
		maxConcurrent: maxConcurrent,
	}
}

// Run processes all refs and always returns a complete summary, even when
// every item fails. Cancelling ctx stops new extraction calls from being
// issued; in-flight calls finish on a detached context and are recorded, so
// no item ends up unaccounted for.
func (p *BatchPipeline) Run(ctx context.Context, refs []AudioRef) *model.BatchJob {
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Object
	}
	job := model.NewBatchJob(names)
	start := time.Now()

	logger.Info(ctx, "batch started", "items", len(refs), "max_concurrent", p.maxConcurrent)

	var mu sync.Mutex
	record := func(outcome *model.BatchOutcome) {
		mu.Lock()
		defer mu.Unlock()
		job.Outcomes[outcome.Ref] = outcome
	}

	sem := make(chan struct{}, p.maxConcurrent)
	g := new(errgroup.Group)
	for _, ref := range refs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				record(&model.BatchOutcome{Ref: ref.Object, Reason: "canceled before extraction started"})
				return nil
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				record(&model.BatchOutcome{Ref: ref.Object, Reason: "canceled before extraction started"})
				return nil
			}

			// Once started, the call runs to completion even if the
			// batch is canceled; the extractor's own timeout still
			// bounds it.
			record(p.processItem(context.WithoutCancel(ctx), ref))
			return nil
		})
	}
	g.Wait()

	// Collect validated records in input order for the bulk write.
	var confirmed []*model.CallRecord
	for _, name := range names {
		if outcome := job.Outcomes[name]; outcome.Succeeded {
			confirmed = append(confirmed, outcome.Record)
		}
	}

	if len(confirmed) > 0 {
		writeErrs := p.sink.BulkWrite(context.WithoutCancel(ctx), confirmed)
		for i, err := range writeErrs {
			if err != nil {
				job.Unpersisted = append(job.Unpersisted, confirmed[i])
				logger.Error(ctx, "bulk write failed for record",
					"customer_id", confirmed[i].CustomerID,
					"source_ref", confirmed[i].SourceReference,
					"error", err,
				)
			}
		}
	}

	for _, outcome := range job.Outcomes {
		if outcome.Succeeded {
			job.Succeeded++
		} else {
			job.Failed++
		}
	}
	job.Elapsed = time.Since(start)
	job.ElapsedMS = job.Elapsed.Milliseconds()

	p.metrics.RecordBatch(job.Submitted, job.Succeeded, job.Failed, job.Elapsed)

	logger.Info(ctx, "batch complete",
		"submitted", job.Submitted,
		"succeeded", job.Succeeded,
		"failed", job.Failed,
		"unpersisted", len(job.Unpersisted),
		"elapsed_ms", job.ElapsedMS,
	)
	return job
}

// processItem runs extract → validate for one item. Failures are returned
// as the item's outcome, never as an error that could touch other items.
func (p *BatchPipeline) processItem(ctx context.Context, ref AudioRef) *model.BatchOutcome {
	start := time.Now()

	raw, err := p.extractor.Extract(ctx, ref)
	p.removeAudio(ctx, ref)
	if err != nil {
		return &model.BatchOutcome{Ref: ref.Object, Reason: err.Error()}
	}

	rec, err := ValidateExtraction(raw, ref.Object, model.OriginBatch)
	if err != nil {
		return &model.BatchOutcome{Ref: ref.Object, Reason: err.Error()}
	}

	// Batch origin has no human gate: a validator pass is the commit
	// decision.
	rec.ValidationState = model.StateConfirmed
	rec.ProcessingSec = time.Since(start).Seconds()

	return &model.BatchOutcome{Ref: ref.Object, Succeeded: true, Record: rec}
}

func (p *BatchPipeline) removeAudio(ctx context.Context, ref AudioRef) {
	if err := p.audio.Remove(ctx, ref); err != nil {
		logger.Warn(ctx, "failed to remove staged audio", "object", ref.Object, "error", err)
	}
}
