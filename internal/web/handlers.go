package web

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// fieldView is the wire form of a schema field.
type fieldView struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Kind      string   `json:"kind"`
	Required  bool     `json:"required"`
	MinLength int      `json:"minLength,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
	Values    []string `json:"values,omitempty"`
	Default   string   `json:"default,omitempty"`
}

// schemaView is the wire form of a registered schema.
type schemaView struct {
	Key    core.SchemaKey `json:"key"`
	Label  string         `json:"label"`
	Fields []fieldView    `json:"fields"`
}

var kindNames = map[core.FieldKind]string{
	core.KindText:  "text",
	core.KindEnum:  "enum",
	core.KindDate:  "date",
	core.KindEmail: "email",
}

func newSchemaView(s core.Schema) schemaView {
	v := schemaView{Key: s.Key, Label: s.Label, Fields: make([]fieldView, len(s.Fields))}
	for i, f := range s.Fields {
		label := f.Label
		if label == "" {
			label = f.Name
		}
		v.Fields[i] = fieldView{
			Name:      f.Name,
			Label:     label,
			Kind:      kindNames[f.Kind],
			Required:  f.Required,
			MinLength: f.MinLength,
			MaxLength: f.MaxLength,
			Values:    f.EnumValues,
			Default:   f.Default,
		}
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.service.LimiterStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"activeImports": status.Active,
		"openSessions":  s.service.SessionCount(),
		"schemas":       core.SchemaCount(),
	})
}

// handleListSchemas returns every registered schema with its fields.
func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	all := core.All()
	views := make([]schemaView, len(all))
	for i, sc := range all {
		views[i] = newSchemaView(sc)
	}
	writeJSON(w, http.StatusOK, views)
}

// handleDownloadTemplate serves a header-only CSV for the schema.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	schema, err := s.schemaParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+string(schema.Key)+`_template.csv"`)
	w.Write([]byte(schema.TemplateCSV()))
}

// handleExport serves the owner's rows for the schema as CSV.
// ?safe=1 prefixes cells that a spreadsheet would evaluate as formulas.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	schema, err := s.schemaParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rows, err := s.service.ExportRows(r.Context(), ownerFrom(r), schema.Key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	opts := core.ExportOptions{SpreadsheetSafe: r.URL.Query().Get("safe") == "1"}

	// Buffer so a write error can still become an error response.
	var buf bytes.Buffer
	if err := core.WriteCSV(&buf, rows, core.DefaultExcludedColumns, opts); err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := core.ExportFileName(schema.Key, time.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	buf.WriteTo(w)
}

// handleHistory lists the owner's recent import audits, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}

	records, err := s.service.History(r.Context(), ownerFrom(r), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// schemaParam resolves the {schema} URL parameter.
func (s *Server) schemaParam(r *http.Request) (core.Schema, error) {
	key, err := core.ParseSchemaKey(chi.URLParam(r, "schema"))
	if err != nil {
		return core.Schema{}, err
	}
	return core.SchemaFor(key)
}

// ownerFrom returns the owner resolved by the Identity middleware.
func ownerFrom(r *http.Request) uuid.UUID {
	owner, _ := core.OwnerFromContext(r.Context())
	return owner
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
