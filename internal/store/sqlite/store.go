// Package sqlite is the file-backed store used by the dataport CLI.
package sqlite

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

// Store implements core.Store on SQLite.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var (
	_ core.Store  = (*Store)(nil)
	_ core.Purger = (*Store)(nil)
)

// Open opens (creating if needed) the database at dsn and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	return New(db), nil
}

// New wraps an already prepared database.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert writes one record into the schema's table.
func (s *Store) Insert(ctx context.Context, schema core.Schema, rec core.Record, owner uuid.UUID) error {
	columns := []string{"id", "user_id", "created_at"}
	args := []any{uuid.NewString(), owner.String(), s.now().UTC().Format(timeLayout)}

	for _, fv := range rec.Fields {
		if fv.Value == nil {
			continue
		}
		columns = append(columns, fv.Name)
		args = append(args, toSQLValue(fv.Value))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(schema.Table),
		joinIdents(columns),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "insert %s", schema.Key)
	}
	return nil
}

// ListAll returns the owner's rows for schema in insertion order.
func (s *Store) ListAll(ctx context.Context, schema core.Schema, owner uuid.UUID) ([]core.StoredRow, error) {
	columns := append([]string{"id", "user_id"}, schema.FieldNames()...)
	columns = append(columns, "created_at")

	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ? ORDER BY created_at, rowid",
		joinIdents(columns), quoteIdent(schema.Table))

	rows, err := s.db.QueryxContext(ctx, query, owner.String())
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", schema.Key)
	}
	defer rows.Close()

	var result []core.StoredRow
	for rows.Next() {
		m := make(map[string]any, len(columns))
		if err := rows.MapScan(m); err != nil {
			return nil, errors.Wrapf(err, "scan %s", schema.Key)
		}
		row := make(core.StoredRow, len(columns))
		for i, col := range columns {
			row[i] = core.FieldValue{Name: col, Value: fromSQLValue(col, m[col])}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "list %s", schema.Key)
	}
	return result, nil
}

// DeleteAll removes the owner's rows for schema and returns how many were deleted.
func (s *Store) DeleteAll(ctx context.Context, schema core.Schema, owner uuid.UUID) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = ?", quoteIdent(schema.Table))
	res, err := s.db.ExecContext(ctx, query, owner.String())
	if err != nil {
		return 0, errors.Wrapf(err, "delete %s", schema.Key)
	}
	return res.RowsAffected()
}

// DeleteAudits removes the owner's import history.
func (s *Store) DeleteAudits(ctx context.Context, owner uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM data_imports WHERE user_id = ?", owner.String())
	if err != nil {
		return 0, errors.Wrap(err, "delete import audits")
	}
	return res.RowsAffected()
}

// auditRow mirrors a data_imports row.
type auditRow struct {
	ID           string `db:"id"`
	UserID       string `db:"user_id"`
	FileName     string `db:"file_name"`
	SchemaKey    string `db:"schema_key"`
	Mapping      string `db:"column_mapping"`
	TotalRows    int    `db:"total_rows"`
	ImportedRows int    `db:"imported_rows"`
	FailedRows   int    `db:"failed_rows"`
	Status       string `db:"status"`
	Errors       string `db:"errors"`
	CreatedAt    string `db:"created_at"`
}

// InsertAudit records a finished import run.
func (s *Store) InsertAudit(ctx context.Context, rec core.AuditRecord) error {
	mapping, err := rec.MappingJSON()
	if err != nil {
		return errors.Wrap(err, "encode column mapping")
	}
	errs, err := rec.ErrorsJSON()
	if err != nil {
		return errors.Wrap(err, "encode import errors")
	}

	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	row := auditRow{
		ID:           rec.ID.String(),
		UserID:       rec.OwnerID.String(),
		FileName:     rec.FileName,
		SchemaKey:    string(rec.Schema),
		Mapping:      string(mapping),
		TotalRows:    rec.TotalRows,
		ImportedRows: rec.ImportedRows,
		FailedRows:   rec.FailedRows,
		Status:       string(rec.Status),
		Errors:       string(errs),
		CreatedAt:    created.UTC().Format(timeLayout),
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO data_imports (
			id, user_id, file_name, schema_key, column_mapping,
			total_rows, imported_rows, failed_rows, status, errors, created_at
		) VALUES (
			:id, :user_id, :file_name, :schema_key, :column_mapping,
			:total_rows, :imported_rows, :failed_rows, :status, :errors, :created_at
		)`, row)
	if err != nil {
		return errors.Wrap(err, "insert import audit")
	}
	return nil
}

// ListAudits returns the owner's most recent import audits, newest first.
func (s *Store) ListAudits(ctx context.Context, owner uuid.UUID, limit int) ([]core.AuditRecord, error) {
	var rows []auditRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, file_name, schema_key, column_mapping,
			total_rows, imported_rows, failed_rows, status, errors, created_at
		FROM data_imports
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, owner.String(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "list import audits")
	}

	result := make([]core.AuditRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.toRecord()
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

func (r auditRow) toRecord() (core.AuditRecord, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return core.AuditRecord{}, errors.Wrapf(err, "audit id %q", r.ID)
	}
	owner, err := uuid.Parse(r.UserID)
	if err != nil {
		return core.AuditRecord{}, errors.Wrapf(err, "audit owner %q", r.UserID)
	}
	mapping, err := core.MappingFromJSON([]byte(r.Mapping))
	if err != nil {
		return core.AuditRecord{}, errors.Wrap(err, "decode column mapping")
	}
	errs, err := decodeErrors(r.Errors)
	if err != nil {
		return core.AuditRecord{}, errors.Wrap(err, "decode import errors")
	}
	created, _ := time.Parse(timeLayout, r.CreatedAt)

	return core.AuditRecord{
		ID:           id,
		OwnerID:      owner,
		FileName:     r.FileName,
		Schema:       core.SchemaKey(r.SchemaKey),
		Mapping:      mapping,
		TotalRows:    r.TotalRows,
		ImportedRows: r.ImportedRows,
		FailedRows:   r.FailedRows,
		Status:       core.ImportStatus(r.Status),
		Errors:       errs,
		CreatedAt:    created,
	}, nil
}
