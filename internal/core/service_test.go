package core

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	registerTestSchemas(t)
	store := newMemStore()
	svc, err := NewService(store, ServiceConfig{MaxConcurrent: 2, MaxWaitTime: 50 * time.Millisecond})
	require.NoError(t, err)
	return svc, store
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(nil, ServiceConfig{})
	assert.Error(t, err)
}

func TestService_SessionOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	other := uuid.New()

	sess, err := svc.NewSession(testOwner, SchemaTasks)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.SessionCount())

	got, err := svc.Session(sess.ID, testOwner)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = svc.Session(sess.ID, other)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, errors.Is(svc.DiscardSession(sess.ID, other), ErrSessionNotFound))

	require.NoError(t, svc.DiscardSession(sess.ID, testOwner))
	assert.Zero(t, svc.SessionCount())
	_, err = svc.Session(sess.ID, testOwner)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestService_NewSessionErrors(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.NewSession(uuid.Nil, SchemaTasks)
	assert.Error(t, err)

	_, err = svc.NewSession(testOwner, "invoices")
	assert.True(t, errors.Is(err, ErrSchemaNotFound))
}

func TestService_RunImport(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	sess, err := svc.NewSession(testOwner, SchemaTasks)
	require.NoError(t, err)
	_, err = sess.SelectFile(ctx, csvFile("t.csv", "title\nA\nB\n"))
	require.NoError(t, err)
	require.NoError(t, sess.ConfirmMapping())

	summary, err := svc.RunImport(ctx, sess.ID, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ImportedCount)
	assert.Equal(t, 2, store.count(SchemaTasks))
	assert.Equal(t, 0, svc.LimiterStatus().Active)
}

func TestService_RunImportBusy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.NewSession(testOwner, SchemaTasks)
	require.NoError(t, err)
	_, err = sess.SelectFile(ctx, csvFile("t.csv", "title\nA\n"))
	require.NoError(t, err)
	require.NoError(t, sess.ConfirmMapping())

	require.True(t, svc.limiter.TryAcquire())
	require.True(t, svc.limiter.TryAcquire())
	defer svc.limiter.Release()
	defer svc.limiter.Release()

	_, err = svc.RunImport(ctx, sess.ID, testOwner)
	assert.True(t, errors.Is(err, ErrTooManyImports), "got %v", err)
	assert.Equal(t, StateMapped, sess.State())
}

func TestService_Import(t *testing.T) {
	svc, store := newTestService(t)

	res, err := svc.Import(context.Background(), ImportRequest{
		Owner:  testOwner,
		Schema: SchemaTeamMembers,
		File:   csvFile("people.csv", "Full Name,Mail,Job\nAda Lovelace,ada@example.com,Engineer\nX,bad,\n"),
		Overrides: map[string]string{
			"Full Name": "name",
			"Mail":      "email",
			"Job":       "role",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.ImportedCount)
	assert.Equal(t, 1, res.Summary.FailedCount)
	assert.Len(t, res.Outcomes, 2)
	assert.Equal(t, StateCompleted, res.Session.State)
	assert.Equal(t, 1, store.count(SchemaTeamMembers))
	assert.Zero(t, svc.SessionCount(), "one-shot sessions are discarded")
}

func TestService_ImportDryRun(t *testing.T) {
	svc, store := newTestService(t)

	res, err := svc.Import(context.Background(), ImportRequest{
		Owner:  testOwner,
		Schema: SchemaTasks,
		File:   csvFile("t.csv", "title\nA\n\nB\n"),
		DryRun: true,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Analysis)
	assert.Nil(t, res.Summary)
	assert.Equal(t, 2, res.Analysis.ValidRows)
	assert.True(t, res.Analysis.CanImport())
	assert.Zero(t, store.count(SchemaTasks))
	assert.Empty(t, store.audits)
	assert.Zero(t, svc.SessionCount())
}

func TestService_ImportErrors(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name   string
		req    ImportRequest
		target error
	}{
		{"unknown schema", ImportRequest{Owner: testOwner, Schema: "x", File: csvFile("t.csv", "title\nA\n")}, ErrSchemaNotFound},
		{"empty file", ImportRequest{Owner: testOwner, Schema: SchemaTasks, File: csvFile("t.csv", "")}, ErrEmptyFile},
		{"unknown field", ImportRequest{Owner: testOwner, Schema: SchemaTasks, File: csvFile("t.csv", "title\nA\n"), Overrides: map[string]string{"title": "owner"}}, ErrUnknownField},
		{"nothing mapped", ImportRequest{Owner: testOwner, Schema: SchemaTasks, File: csvFile("t.csv", "a\n1\n")}, ErrNothingMapped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
			assert.Zero(t, svc.SessionCount())
		})
	}
}

func TestService_ExportRows(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ExportRows(ctx, testOwner, SchemaTasks)
	assert.True(t, errors.Is(err, ErrNoData))

	_, err = svc.Import(ctx, ImportRequest{Owner: testOwner, Schema: SchemaTasks, File: csvFile("t.csv", "title,due_date\nA,2024-05-01\n")})
	require.NoError(t, err)

	rows, err := svc.ExportRows(ctx, testOwner, SchemaTasks)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	csv, err := ExportCSV(rows, DefaultExcludedColumns)
	require.NoError(t, err)
	assert.Equal(t,
		"\"title\",\"description\",\"status\",\"priority\",\"due_date\"\n\"A\",\"\",\"todo\",\"medium\",\"2024-05-01\"",
		csv)

	_, err = svc.ExportRows(ctx, uuid.New(), SchemaTasks)
	assert.True(t, errors.Is(err, ErrNoData), "other owners see nothing")

	_, err = svc.ExportRows(ctx, testOwner, "invoices")
	assert.True(t, errors.Is(err, ErrSchemaNotFound))
}

func TestService_History(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		_, err := svc.Import(ctx, ImportRequest{Owner: testOwner, Schema: SchemaTasks, File: csvFile(name, "title\nA\n")})
		require.NoError(t, err)
	}

	records, err := svc.History(ctx, testOwner, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c.csv", records[0].FileName)
	assert.Equal(t, "b.csv", records[1].FileName)

	records, err = svc.History(ctx, testOwner, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = svc.History(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestService_SweepSessions(t *testing.T) {
	svc, _ := newTestService(t)

	old, err := svc.NewSession(testOwner, SchemaTasks)
	require.NoError(t, err)
	fresh, err := svc.NewSession(testOwner, SchemaTasks)
	require.NoError(t, err)

	old.mu.Lock()
	old.updatedAt = time.Now().Add(-time.Hour)
	old.mu.Unlock()

	busy, err := svc.NewSession(testOwner, SchemaTasks)
	require.NoError(t, err)
	busy.mu.Lock()
	busy.updatedAt = time.Now().Add(-time.Hour)
	busy.state = StateImporting
	busy.mu.Unlock()

	assert.Equal(t, 1, svc.SweepSessions(time.Now()))
	assert.Equal(t, 2, svc.SessionCount())

	_, err = svc.Session(old.ID, testOwner)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = svc.Session(fresh.ID, testOwner)
	assert.NoError(t, err)
	_, err = svc.Session(busy.ID, testOwner)
	assert.NoError(t, err, "running imports are never swept")
}

func TestService_StartSessionSweeperStops(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartSessionSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
