package core

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/dataport/internal/logging"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ServiceConfig holds the tunables of a Service.
type ServiceConfig struct {
	Limits        Limits
	MaxConcurrent int           // Parallel import runs (default: 5)
	MaxWaitTime   time.Duration // Wait for a free slot (default: 30s)
	SessionTTL    time.Duration // Idle sessions are discarded after this (default: 30m)
	ImportTimeout time.Duration // Upper bound for a single run (default: 10m)
}

// Service is the entry point for import and export operations.
type Service struct {
	store   Store
	cfg     ServiceConfig
	limiter *ImportLimiter

	mu       sync.RWMutex
	sessions map[string]*ImportSession
}

// NewService creates a Service backed by store.
func NewService(store Store, cfg ServiceConfig) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	cfg.Limits = cfg.Limits.withDefaults()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = 10 * time.Minute
	}

	return &Service{
		store:    store,
		cfg:      cfg,
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		sessions: make(map[string]*ImportSession),
	}, nil
}

// Limits returns the effective per-file limits.
func (s *Service) Limits() Limits {
	return s.cfg.Limits
}

// NewSession opens an Idle import session for owner.
func (s *Service) NewSession(owner uuid.UUID, key SchemaKey) (*ImportSession, error) {
	if owner == uuid.Nil {
		return nil, errors.New("owner is required")
	}
	schema, err := SchemaFor(key)
	if err != nil {
		return nil, err
	}

	sess := NewImportSession(owner, schema, s.store, s.cfg.Limits)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess, nil
}

// Session returns the session with id if it belongs to owner.
func (s *Service) Session(id string, owner uuid.UUID) (*ImportSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || sess.Owner != owner {
		return nil, errors.Wrapf(ErrSessionNotFound, "%s", id)
	}
	return sess, nil
}

// DiscardSession resets and forgets a session.
func (s *Service) DiscardSession(id string, owner uuid.UUID) error {
	sess, err := s.Session(id, owner)
	if err != nil {
		return err
	}
	if err := sess.Reset(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunImport runs the session's import once a limiter slot is free.
func (s *Service) RunImport(ctx context.Context, id string, owner uuid.UUID) (*ImportSummary, error) {
	sess, err := s.Session(id, owner)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.ImportTimeout)
	defer cancel()

	return sess.Run(runCtx)
}

// ImportRequest describes a one-shot import used by the CLI.
type ImportRequest struct {
	Owner     uuid.UUID
	Schema    SchemaKey
	File      FileSource
	Overrides map[string]string // csv column -> target field ("" unmaps)
	DryRun    bool
}

// ImportResult is the outcome of Import.
type ImportResult struct {
	Session  SessionView
	Analysis *AnalysisResult
	Summary  *ImportSummary
	Outcomes []RowOutcome
}

// Import runs the whole session lifecycle for a single file and discards
// the session afterwards.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	sess, err := s.NewSession(req.Owner, req.Schema)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.DiscardSession(sess.ID, req.Owner); err != nil {
			logging.FromContext(ctx).Warn("discard session failed", "session_id", sess.ID, "error", err)
		}
	}()

	if _, err := sess.SelectFile(ctx, req.File); err != nil {
		return nil, err
	}

	mapping := sess.Mapping()
	for column, target := range req.Overrides {
		mapping = Remap(mapping, column, target)
	}
	if err := sess.SetMapping(mapping); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	if req.DryRun {
		analysis, err := sess.Analyze(ctx)
		if err != nil {
			return nil, err
		}
		result.Analysis = analysis
		result.Session = sess.Snapshot()
		return result, nil
	}

	summary, err := s.RunImport(ctx, sess.ID, req.Owner)
	if err != nil {
		return nil, err
	}
	result.Summary = summary
	result.Outcomes = sess.Outcomes()
	result.Session = sess.Snapshot()
	return result, nil
}

// ExportRows lists the owner's stored rows for key.
// Returns ErrNoData when there is nothing to export.
func (s *Service) ExportRows(ctx context.Context, owner uuid.UUID, key SchemaKey) ([]StoredRow, error) {
	schema, err := SchemaFor(key)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListAll(ctx, schema, owner)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", key)
	}
	if len(rows) == 0 {
		return nil, withHint(ErrNoData, "Import some records before exporting.")
	}
	return rows, nil
}

// History returns the owner's most recent audit records.
func (s *Service) History(ctx context.Context, owner uuid.UUID, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := s.store.ListAudits(ctx, owner, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list audit records")
	}
	return records, nil
}

// LimiterStatus returns the current import limiter state.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
