package core

// coordinator.go runs the row loop of an import:
//
//	for each data row: apply mapping -> validate -> insert -> record outcome
//
// Neither a validation nor a persistence failure aborts the batch. Rows are
// persisted strictly in file order so "Row N" messages line up with the
// file. Cancellation stops the loop between rows; rows already persisted
// stay persisted.

import (
	"context"
	"time"

	"github.com/JonMunkholm/dataport/internal/logging"
	"github.com/google/uuid"
)

// auditWriteTimeout bounds the audit insert, which runs detached from the
// caller's cancellation.
const auditWriteTimeout = 10 * time.Second

type importJob struct {
	owner    uuid.UUID
	schema   Schema
	mapping  ColumnMapping
	fileName string
	store    Store
	limits   Limits
}

func (j importJob) run(ctx context.Context, doc *RawCsvDocument) (ImportSummary, []RowOutcome) {
	summary := ImportSummary{
		ImportID:  uuid.NewString(),
		FileName:  j.fileName,
		Schema:    j.schema.Key,
		TotalRows: doc.TotalRows,
		Truncated: doc.Truncated(),
		StartedAt: time.Now(),
	}

	logger := logging.WithFields(ctx,
		"import_id", summary.ImportID,
		"schema", j.schema.Key,
		"file", j.fileName,
	)
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		logger = logger.With("ip", ip, "user_agent", GetUserAgentFromContext(ctx))
	}
	logger.Info("import started", "rows", len(doc.Rows), "total_rows", doc.TotalRows)
	if summary.Truncated {
		logger.Warn("import truncated", "total_rows", doc.TotalRows, "max_rows", j.limits.MaxRows)
	}

	var errorLines []string
	outcomes := make([]RowOutcome, 0, len(doc.Rows))

	for i, row := range doc.Rows {
		if ctx.Err() != nil {
			summary.Cancelled = true
			logger.Warn("import cancelled", "processed", i)
			break
		}

		outcome := j.processRow(ctx, i+1, row)
		outcomes = append(outcomes, outcome)
		summary.ProcessedRows++

		if outcome.Imported() {
			summary.ImportedCount++
			continue
		}

		summary.FailedCount++
		if len(errorLines) < j.limits.AuditErrorLimit {
			errorLines = append(errorLines, FormatRowErrors(outcome.Row, outcome.Errors))
		}
		logger.Debug("row rejected", "row", outcome.Row, "errors", outcome.Errors)
	}

	summary.SampleErrors = errorLines
	if summary.SampleErrors == nil {
		summary.SampleErrors = []string{}
	}
	summary.Status = statusFor(summary)
	summary.Duration = time.Since(summary.StartedAt)

	if err := j.writeAudit(ctx, summary); err != nil {
		summary.AuditError = err.Error()
		logger.Error("audit write failed", "error", err)
	}

	logger.Info("import completed",
		"status", summary.Status,
		"imported", summary.ImportedCount,
		"failed", summary.FailedCount,
		"duration_ms", summary.Duration.Milliseconds(),
	)

	return summary, outcomes
}

// processRow maps, validates and persists a single row.
func (j importJob) processRow(ctx context.Context, rowNum int, row []string) RowOutcome {
	rec, fieldErrs := ValidateRow(j.schema, j.mapping.Apply(row))
	if len(fieldErrs) > 0 {
		msgs := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			msgs[i] = fe.Error()
		}
		return RowOutcome{Row: rowNum, Errors: msgs}
	}

	if err := j.store.Insert(ctx, j.schema, rec, j.owner); err != nil {
		return RowOutcome{Row: rowNum, Errors: []string{err.Error()}}
	}
	return RowOutcome{Row: rowNum, Record: &rec}
}

func (j importJob) writeAudit(ctx context.Context, summary ImportSummary) error {
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	return j.store.InsertAudit(auditCtx, NewAuditRecord(j.owner, j.mapping, summary, j.limits.AuditErrorLimit))
}

func statusFor(s ImportSummary) ImportStatus {
	switch {
	case s.Cancelled:
		return StatusCancelled
	case s.FailedCount > 0:
		return StatusCompletedWithErrors
	default:
		return StatusCompleted
	}
}
