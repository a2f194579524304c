package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/n3utron0/telecom-call-data-analyzer/model"
	"github.com/n3utron0/telecom-call-data-analyzer/pkg/logger"
)

// summaryRowLimit caps how many result rows are sent back to the model for
// summarization.
const summaryRowLimit = 50

// AnalyticsResult is one chatbot turn's outcome. Query is always populated
// so the caller can show the verdict and reason verbatim.
type AnalyticsResult struct {
	Answer   string                `json:"answer,omitempty"`
	Query    *model.AnalyticsQuery `json:"query"`
	RowCount int                   `json:"row_count"`
}

// AnalyticsPipeline turns a natural-language question into gated SQL,
// executes it once and summarizes the rows. A gate rejection or execution
// error is returned as-is; the pipeline never substitutes different SQL.
type AnalyticsPipeline struct {
	llm    LLM
	gate   *SafetyGate
	runner QueryRunner
	table  string
}

func NewAnalyticsPipeline(llm LLM, gate *SafetyGate, runner QueryRunner, table string) *AnalyticsPipeline {
	return &AnalyticsPipeline{
		llm:    llm,
		gate:   gate,
		runner: runner,
		table:  table,
	}
}

// Answer runs one chatbot turn. The returned AnalyticsResult is non-nil
// whenever SQL was generated, even on rejection, so the caller always has
// the verdict to present.
func (p *AnalyticsPipeline) Answer(ctx context.Context, question string) (*AnalyticsResult, error) {
	sqlText, err := p.llm.GenerateText(ctx, sqlSystemInstruction, buildSQLPrompt(p.table, question))
	if err != nil {
		return nil, fmt.Errorf("sql generation failed: %w", err)
	}
	sqlText = strings.TrimSpace(stripMarkdownFences(sqlText))

	query := &model.AnalyticsQuery{
		Question:     question,
		GeneratedSQL: sqlText,
	}
	result := &AnalyticsResult{Query: query}

	if err := p.gate.Check(sqlText); err != nil {
		query.SafetyVerdict = model.VerdictRejected
		query.RejectionReason = err.Error()
		logger.Warn(ctx, "generated sql rejected by safety gate",
			"question", question,
			"reason", query.RejectionReason,
		)
		return result, err
	}
	query.SafetyVerdict = model.VerdictAllowed

	rows, err := p.runner.RunQuery(ctx, sqlText)
	if err != nil {
		// Execution errors go back verbatim; retrying with freshly
		// hallucinated SQL is exactly what must not happen.
		return result, fmt.Errorf("query execution failed: %w", err)
	}
	result.RowCount = len(rows)

	sample := rows
	if len(sample) > summaryRowLimit {
		sample = sample[:summaryRowLimit]
	}
	rowsJSON, err := json.Marshal(sample)
	if err != nil {
		return result, fmt.Errorf("failed to encode query results: %w", err)
	}

	answer, err := p.llm.GenerateText(ctx, "", buildSummaryPrompt(question, string(rowsJSON)))
	if err != nil {
		return result, fmt.Errorf("summarization failed: %w", err)
	}
	result.Answer = strings.TrimSpace(answer)

	logger.Info(ctx, "analytics question answered",
		"question", question,
		"rows", result.RowCount,
	)
	return result, nil
}
