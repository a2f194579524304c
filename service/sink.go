package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/n3utron0/telecom-call-data-analyzer/config"
	"github.com/n3utron0/telecom-call-data-analyzer/model"
	"google.golang.org/api/iterator"
)

// StorageSink is the append-only write boundary of the warehouse. A record
// reaching either method must already be confirmed; the sink refuses
// anything else before any network call is made.
type StorageSink interface {
	Write(ctx context.Context, rec *model.CallRecord) error
	// BulkWrite reports one error slot per input record, aligned by
	// position. A nil slot means that record persisted.
	BulkWrite(ctx context.Context, recs []*model.CallRecord) []error
}

// QueryRunner executes read-only analytical SQL against the warehouse.
type QueryRunner interface {
	RunQuery(ctx context.Context, sqlText string) ([]map[string]any, error)
}

// BigQuerySink writes call records into a BigQuery table via streaming
// inserts and runs the analytics queries.
type BigQuerySink struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
}

func NewBigQuerySink(ctx context.Context, cfg *config.BigQueryConfig) (*BigQuerySink, error) {
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}

	return &BigQuerySink{
		client:  client,
		project: cfg.ProjectID,
		dataset: cfg.Dataset,
		table:   cfg.Table,
	}, nil
}

// TableID returns the fully qualified table name for query prompts.
func (s *BigQuerySink) TableID() string {
	return fmt.Sprintf("%s.%s.%s", s.project, s.dataset, s.table)
}

func (s *BigQuerySink) inserter() *bigquery.Inserter {
	return s.client.Dataset(s.dataset).Table(s.table).Inserter()
}

// Write appends one confirmed record. A failure is surfaced as a CommitError
// and never retried here: without idempotency keys a retry risks duplicate
// rows.
func (s *BigQuerySink) Write(ctx context.Context, rec *model.CallRecord) error {
	if err := requireConfirmed(rec); err != nil {
		return err
	}

	if err := s.inserter().Put(ctx, &recordRow{rec}); err != nil {
		return &model.CommitError{Records: []*model.CallRecord{rec}, Err: err}
	}
	return nil
}

// BulkWrite appends all confirmed records in one call and maps per-row
// insert failures back onto the input positions.
func (s *BigQuerySink) BulkWrite(ctx context.Context, recs []*model.CallRecord) []error {
	errs := make([]error, len(recs))

	rows := make([]*recordRow, 0, len(recs))
	positions := make([]int, 0, len(recs))
	for i, rec := range recs {
		if err := requireConfirmed(rec); err != nil {
			errs[i] = err
			continue
		}
		rows = append(rows, &recordRow{rec})
		positions = append(positions, i)
	}
	if len(rows) == 0 {
		return errs
	}

	err := s.inserter().Put(ctx, rows)
	if err == nil {
		return errs
	}

	var multi bigquery.PutMultiError
	if errors.As(err, &multi) {
		for _, rowErr := range multi {
			if rowErr.RowIndex < len(positions) {
				i := positions[rowErr.RowIndex]
				errs[i] = &model.CommitError{Records: []*model.CallRecord{recs[i]}, Err: rowErr.Errors}
			}
		}
		return errs
	}

	// Whole call failed; every submitted record is unpersisted.
	for _, i := range positions {
		errs[i] = &model.CommitError{Records: []*model.CallRecord{recs[i]}, Err: err}
	}
	return errs
}

// RunQuery executes one read-only query. The caller (safety gate) has
// already vetted the SQL; execution errors are returned verbatim.
func (s *BigQuerySink) RunQuery(ctx context.Context, sqlText string) ([]map[string]any, error) {
	it, err := s.client.Query(sqlText).Read(ctx)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		converted := make(map[string]any, len(row))
		for k, v := range row {
			converted[k] = v
		}
		rows = append(rows, converted)
	}
	return rows, nil
}

func requireConfirmed(rec *model.CallRecord) error {
	if rec.ValidationState != model.StateConfirmed {
		return fmt.Errorf("refusing to write record %s: validation_state is %q, want %q",
			rec.CustomerID, rec.ValidationState, model.StateConfirmed)
	}
	return nil
}

// recordRow adapts a CallRecord to the BigQuery row shape. No insert ID is
// set: the pipelines never auto-retry writes, so dedupe buys nothing.
type recordRow struct {
	rec *model.CallRecord
}

func (r *recordRow) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"customer_id":        r.rec.CustomerID,
		"source_reference":   r.rec.SourceReference,
		"transcript":         r.rec.Transcript,
		"complaint_type":     r.rec.ComplaintType,
		"customer_sentiment": r.rec.Sentiment,
		"resolution_status":  r.rec.ResolutionStatus,
		"origin":             string(r.rec.Origin),
		"created_at":         r.rec.CreatedAt,
	}
	if r.rec.PhoneNumber != "" {
		row["phone_number"] = r.rec.PhoneNumber
	}
	if len(r.rec.Metadata) > 0 {
		meta, err := json.Marshal(r.rec.Metadata)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal call_metadata: %w", err)
		}
		row["call_metadata"] = string(meta)
	}
	return row, bigquery.NoDedupeID, nil
}
