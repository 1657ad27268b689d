package postgres

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate converts a calendar date to pgtype.Date.
func ToPgDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

// ToPgTimestamptz converts t to pgtype.Timestamptz.
func ToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// ToPgUUID converts a uuid.UUID to pgtype.UUID.
// Returns invalid for the nil UUID.
func ToPgUUID(u uuid.UUID) pgtype.UUID {
	if u == uuid.Nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: u, Valid: true}
}

// toPgValue converts a validated record value to a query argument.
func toPgValue(v any) any {
	switch val := v.(type) {
	case string:
		return ToPgText(val)
	case time.Time:
		return ToPgDate(val)
	default:
		return v
	}
}

// fromPgValue converts a value decoded by rows.Values() to what the export
// writer expects.
func fromPgValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val)
	case pgtype.UUID:
		if !val.Valid {
			return nil
		}
		return uuid.UUID(val.Bytes)
	default:
		return v
	}
}

func decodeErrors(data []byte) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	var errs []string
	if err := json.Unmarshal(data, &errs); err != nil {
		return nil, err
	}
	if errs == nil {
		errs = []string{}
	}
	return errs, nil
}
