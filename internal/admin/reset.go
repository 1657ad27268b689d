// Package admin provides administrative operations on stored data.
package admin

import (
	"context"
	"time"

	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/JonMunkholm/dataport/internal/logging"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ResetTimeout is the maximum duration for a reset.
const ResetTimeout = 30 * time.Second

// Resetter deletes an owner's imported data.
type Resetter struct {
	Store core.Purger
}

// ResetResult counts what a reset removed.
type ResetResult struct {
	Rows   map[core.SchemaKey]int64
	Audits int64
}

// Total returns the number of data rows removed.
func (r *ResetResult) Total() int64 {
	var n int64
	for _, c := range r.Rows {
		n += c
	}
	return n
}

type resetFn func(ctx context.Context) error

// ResetAll deletes the owner's rows in every registered schema and clears
// their import history. This is a destructive operation.
func (r *Resetter) ResetAll(ctx context.Context, owner uuid.UUID) (*ResetResult, error) {
	return r.reset(ctx, owner, core.All(), true)
}

// ResetSchema deletes the owner's rows in one schema. Import history is kept.
func (r *Resetter) ResetSchema(ctx context.Context, owner uuid.UUID, key core.SchemaKey) (*ResetResult, error) {
	schema, err := core.SchemaFor(key)
	if err != nil {
		return nil, err
	}
	return r.reset(ctx, owner, []core.Schema{schema}, false)
}

func (r *Resetter) reset(ctx context.Context, owner uuid.UUID, schemas []core.Schema, audits bool) (*ResetResult, error) {
	if owner == uuid.Nil {
		return nil, errors.New("owner is required")
	}

	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	result := &ResetResult{Rows: make(map[core.SchemaKey]int64, len(schemas))}

	resets := make([]resetFn, 0, len(schemas)+1)
	for _, schema := range schemas {
		resets = append(resets, func(ctx context.Context) error {
			n, err := r.Store.DeleteAll(ctx, schema, owner)
			result.Rows[schema.Key] = n
			return err
		})
	}
	if audits {
		resets = append(resets, func(ctx context.Context) error {
			n, err := r.Store.DeleteAudits(ctx, owner)
			result.Audits = n
			return err
		})
	}

	if err := runResets(ctx, resets); err != nil {
		return result, err
	}

	logging.FromContext(ctx).Info("owner data reset",
		"owner", owner,
		"rows", result.Total(),
		"audits", result.Audits,
	)
	return result, nil
}

func runResets(ctx context.Context, resets []resetFn) error {
	for _, reset := range resets {
		if err := reset(ctx); err != nil {
			return err
		}
	}
	return nil
}
