package model

import "time"

// BatchOutcome is the terminal result of one item in a batch run.
type BatchOutcome struct {
	Ref       string      `json:"ref"`
	Succeeded bool        `json:"succeeded"`
	Record    *CallRecord `json:"record,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// BatchJob owns the per-item outcomes of one batch run. It exists only for
// the duration of the run; the summary is what leaves the pipeline.
type BatchJob struct {
	Refs      []string                 `json:"refs"`
	Outcomes  map[string]*BatchOutcome `json:"outcomes"`
	Submitted int                      `json:"submitted"`
	Succeeded int                      `json:"succeeded"`
	Failed    int                      `json:"failed"`
	Elapsed   time.Duration            `json:"-"`
	ElapsedMS int64                    `json:"elapsed_ms"`

	// Unpersisted lists records that validated but failed the bulk write,
	// so the caller can retry exactly those.
	Unpersisted []*CallRecord `json:"unpersisted,omitempty"`
}

// NewBatchJob creates a job for the given input references.
func NewBatchJob(refs []string) *BatchJob {
	return &BatchJob{
		Refs:      refs,
		Outcomes:  make(map[string]*BatchOutcome, len(refs)),
		Submitted: len(refs),
	}
}
