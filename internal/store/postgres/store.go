// Package postgres persists imported records and import audits in
// PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements core.Store on PostgreSQL.
type Store struct {
	db DBTX
}

var (
	_ core.Store  = (*Store)(nil)
	_ core.Purger = (*Store)(nil)
)

// New returns a Store using db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Insert writes one record into the schema's table.
func (s *Store) Insert(ctx context.Context, schema core.Schema, rec core.Record, owner uuid.UUID) error {
	query, args := buildInsert(schema, rec, owner)
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "insert %s", schema.Key)
	}
	return nil
}

// ListAll returns the owner's rows for schema in insertion order.
func (s *Store) ListAll(ctx context.Context, schema core.Schema, owner uuid.UUID) ([]core.StoredRow, error) {
	columns := append([]string{"id", "user_id"}, schema.FieldNames()...)
	columns = append(columns, "created_at")

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at, id",
		joinIdentifiers(columns), pgx.Identifier{schema.Table}.Sanitize(),
	)

	rows, err := s.db.Query(ctx, query, ToPgUUID(owner))
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", schema.Key)
	}
	defer rows.Close()

	var result []core.StoredRow
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", schema.Key)
		}
		row := make(core.StoredRow, len(columns))
		for i, col := range columns {
			row[i] = core.FieldValue{Name: col, Value: fromPgValue(values[i])}
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
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", pgx.Identifier{schema.Table}.Sanitize())
	tag, err := s.db.Exec(ctx, query, ToPgUUID(owner))
	if err != nil {
		return 0, errors.Wrapf(err, "delete %s", schema.Key)
	}
	return tag.RowsAffected(), nil
}

// DeleteAudits removes the owner's import history.
func (s *Store) DeleteAudits(ctx context.Context, owner uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM data_imports WHERE user_id = $1", ToPgUUID(owner))
	if err != nil {
		return 0, errors.Wrap(err, "delete import audits")
	}
	return tag.RowsAffected(), nil
}

const insertAuditQuery = `
	INSERT INTO data_imports (
		id, user_id, file_name, schema_key, column_mapping,
		total_rows, imported_rows, failed_rows, status, errors, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

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

	_, err = s.db.Exec(ctx, insertAuditQuery,
		ToPgUUID(rec.ID),
		ToPgUUID(rec.OwnerID),
		rec.FileName,
		string(rec.Schema),
		mapping,
		int32(rec.TotalRows),
		int32(rec.ImportedRows),
		int32(rec.FailedRows),
		string(rec.Status),
		errs,
		ToPgTimestamptz(rec.CreatedAt),
	)
	if err != nil {
		return errors.Wrap(err, "insert import audit")
	}
	return nil
}

const listAuditsQuery = `
	SELECT id, user_id, file_name, schema_key, column_mapping,
		total_rows, imported_rows, failed_rows, status, errors, created_at
	FROM data_imports
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2`

// ListAudits returns the owner's most recent import audits, newest first.
func (s *Store) ListAudits(ctx context.Context, owner uuid.UUID, limit int) ([]core.AuditRecord, error) {
	rows, err := s.db.Query(ctx, listAuditsQuery, ToPgUUID(owner), limit)
	if err != nil {
		return nil, errors.Wrap(err, "list import audits")
	}
	defer rows.Close()

	var result []core.AuditRecord
	for rows.Next() {
		var (
			rec             core.AuditRecord
			id, ownerID     pgtype.UUID
			schema, status  string
			mapping, errsJS []byte
			total, imported int32
			failed          int32
		)
		if err := rows.Scan(
			&id, &ownerID, &rec.FileName, &schema, &mapping,
			&total, &imported, &failed, &status, &errsJS, &rec.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan import audit")
		}

		rec.ID = uuid.UUID(id.Bytes)
		rec.OwnerID = uuid.UUID(ownerID.Bytes)
		rec.Schema = core.SchemaKey(schema)
		rec.Status = core.ImportStatus(status)
		rec.TotalRows = int(total)
		rec.ImportedRows = int(imported)
		rec.FailedRows = int(failed)

		if rec.Mapping, err = core.MappingFromJSON(mapping); err != nil {
			return nil, errors.Wrap(err, "decode column mapping")
		}
		if rec.Errors, err = decodeErrors(errsJS); err != nil {
			return nil, errors.Wrap(err, "decode import errors")
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list import audits")
	}
	return result, nil
}

// buildInsert renders the INSERT statement for rec. Column names come from
// the registered schema, never from the uploaded file.
func buildInsert(schema core.Schema, rec core.Record, owner uuid.UUID) (string, []any) {
	columns := make([]string, 0, len(rec.Fields)+1)
	placeholders := make([]string, 0, len(rec.Fields)+1)
	args := make([]any, 0, len(rec.Fields)+1)

	columns = append(columns, "user_id")
	placeholders = append(placeholders, "$1")
	args = append(args, ToPgUUID(owner))

	for _, fv := range rec.Fields {
		if fv.Value == nil {
			continue
		}
		columns = append(columns, fv.Name)
		args = append(args, toPgValue(fv.Value))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{schema.Table}.Sanitize(),
		joinIdentifiers(columns),
		strings.Join(placeholders, ", "),
	)
	return query, args
}

func joinIdentifiers(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = pgx.Identifier{n}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
