package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/JonMunkholm/dataport/internal/logging"
	"github.com/JonMunkholm/dataport/internal/web/templates"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is room for form boundaries and headers on top of the
// file itself.
const multipartOverhead = 64 * 1024

// mappingRequest replaces a session mapping. Entries addresses columns by
// index; Columns addresses them by header name. An empty body confirms the
// proposed mapping unchanged.
type mappingRequest struct {
	Entries []core.MappingEntry `json:"entries"`
	Columns map[string]string   `json:"columns"`
}

// runResponse is the result of an import run.
type runResponse struct {
	Summary  *core.ImportSummary `json:"summary"`
	Rejected []core.RowOutcome   `json:"rejected"`
}

// handleCreateImport opens a session for the schema and selects the
// uploaded file. The response carries the preview and proposed mapping.
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	key, err := core.ParseSchemaKey(chi.URLParam(r, "schema"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	maxSize := s.service.Limits().MaxFileBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, errors.Wrapf(core.ErrFileTooLarge, "limit is %d bytes", maxSize))
			return
		}
		s.respondError(w, r, badRequest("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, badRequest("no file provided"))
		return
	}
	defer file.Close()

	owner := ownerFrom(r)
	sess, err := s.service.NewSession(owner, key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	_, err = sess.SelectFile(ctx, core.FileSource{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	})
	if err != nil {
		if derr := s.service.DiscardSession(sess.ID, owner); derr != nil {
			logging.FromContext(ctx).Warn("discard session failed", "session_id", sess.ID, "error", derr)
		}
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(ctx).Info("import session opened",
		"session_id", sess.ID,
		"schema", key,
		"file", header.Filename,
	)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// handleGetSession returns the current view of a session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleSetMapping applies a mapping change and moves the session to Mapped.
func (s *Server) handleSetMapping(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req mappingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, r, badRequest("invalid mapping JSON"))
		return
	}

	switch {
	case req.Entries != nil:
		err = sess.SetMapping(core.ColumnMapping{Entries: req.Entries})
	case req.Columns != nil:
		m := sess.Mapping()
		for column, target := range req.Columns {
			m = core.Remap(m, column, target)
		}
		err = sess.SetMapping(m)
	default:
		err = sess.ConfirmMapping()
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleAnalyze validates the file against the mapping without importing.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := sess.Analyze(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRun imports the session's rows. The run stops early if the client
// goes away.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	owner := ownerFrom(r)

	ctx := WithRequestMetadata(r.Context(), r)
	summary, err := s.service.RunImport(ctx, id, owner)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sess, err := s.service.Session(id, owner)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rejected := rejectedOutcomes(sess.Outcomes())

	if isHTMX(r) {
		s.renderReport(w, r, summary, rejected)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Summary: summary, Rejected: rejected})
}

// handleReport renders the last run of a session as HTML.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	summary := sess.Summary()
	if summary == nil {
		s.respondError(w, r, errors.Wrap(core.ErrInvalidState, "no import has run in this session"))
		return
	}
	s.renderReport(w, r, summary, rejectedOutcomes(sess.Outcomes()))
}

// handleDiscard drops a session and its file.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DiscardSession(chi.URLParam(r, "id"), ownerFrom(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) renderReport(w http.ResponseWriter, r *http.Request, summary *core.ImportSummary, rejected []core.RowOutcome) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ImportReport(summary, rejected).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render import report", "error", err)
	}
}

// sessionParam resolves the {id} URL parameter for the request owner.
func (s *Server) sessionParam(r *http.Request) (*core.ImportSession, error) {
	return s.service.Session(chi.URLParam(r, "id"), ownerFrom(r))
}

// rejectedOutcomes keeps the rows that were not imported.
func rejectedOutcomes(outcomes []core.RowOutcome) []core.RowOutcome {
	rejected := []core.RowOutcome{}
	for _, o := range outcomes {
		if !o.Imported() {
			rejected = append(rejected, o)
		}
	}
	return rejected
}
