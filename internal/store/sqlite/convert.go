package sqlite

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/JonMunkholm/dataport/internal/core"
)

func toSQLValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(core.ISODate)
	default:
		return v
	}
}

func fromSQLValue(column string, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if column == "created_at" {
		if s, ok := v.(string); ok {
			if t, err := time.Parse(timeLayout, s); err == nil {
				return t
			}
		}
	}
	return v
}

func decodeErrors(s string) ([]string, error) {
	errs := []string{}
	if s == "" {
		return errs, nil
	}
	if err := json.Unmarshal([]byte(s), &errs); err != nil {
		return nil, err
	}
	return errs, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func joinIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
