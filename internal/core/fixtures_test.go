package core

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// registerTestSchemas installs task and team member schemas shaped like the
// production ones. The real registrations live in core/tables, which this
// package cannot import.
func registerTestSchemas(t testing.TB) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)

	lower := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

	Register(Schema{
		Key:   SchemaTasks,
		Label: "Tasks",
		Table: "tasks",
		Fields: []FieldSpec{
			{Name: "title", Label: "Title", Kind: KindText, Required: true, MaxLength: 200},
			{Name: "description", Label: "Description", Kind: KindText, MaxLength: 2000},
			{Name: "status", Label: "Status", Kind: KindEnum, EnumValues: []string{"todo", "in-progress", "completed"}, Default: "todo", Normalizer: lower},
			{Name: "priority", Label: "Priority", Kind: KindEnum, EnumValues: []string{"low", "medium", "high", "urgent"}, Default: "medium", Normalizer: lower},
			{Name: "due_date", Label: "Due date", Kind: KindDate},
		},
	})
	Register(Schema{
		Key:   SchemaTeamMembers,
		Label: "Team members",
		Table: "team_members",
		Fields: []FieldSpec{
			{Name: "name", Label: "Name", Kind: KindText, Required: true, MinLength: 2, MaxLength: 100},
			{Name: "email", Label: "Email", Kind: KindEmail, Required: true, MaxLength: 255, Normalizer: lower},
			{Name: "role", Label: "Role", Kind: KindText, Required: true, MaxLength: 50},
			{Name: "department", Label: "Department", Kind: KindText, MaxLength: 100},
		},
	})
}

func mustSchema(t testing.TB, key SchemaKey) Schema {
	t.Helper()
	s, err := SchemaFor(key)
	if err != nil {
		t.Fatalf("SchemaFor(%s): %v", key, err)
	}
	return s
}

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	rows     map[SchemaKey][]storedRecord
	audits   []AuditRecord
	failOn   func(Record) error // optional per-row insert failure
	auditErr error
	onInsert func(n int) // called after each successful insert with the running count
}

type storedRecord struct {
	owner uuid.UUID
	rec   Record
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[SchemaKey][]storedRecord)}
}

func (m *memStore) Insert(ctx context.Context, schema Schema, rec Record, owner uuid.UUID) error {
	if m.failOn != nil {
		if err := m.failOn(rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.rows[schema.Key] = append(m.rows[schema.Key], storedRecord{owner: owner, rec: rec})
	n := len(m.rows[schema.Key])
	m.mu.Unlock()

	if m.onInsert != nil {
		m.onInsert(n)
	}
	return nil
}

func (m *memStore) ListAll(ctx context.Context, schema Schema, owner uuid.UUID) ([]StoredRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []StoredRow
	for _, sr := range m.rows[schema.Key] {
		if sr.owner != owner {
			continue
		}
		row := StoredRow{{Name: "id", Value: uuid.NewString()}, {Name: "user_id", Value: owner.String()}}
		row = append(row, sr.rec.Fields...)
		out = append(out, row)
	}
	return out, nil
}

func (m *memStore) InsertAudit(ctx context.Context, rec AuditRecord) error {
	if m.auditErr != nil {
		return m.auditErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, rec)
	return nil
}

func (m *memStore) ListAudits(ctx context.Context, owner uuid.UUID, limit int) ([]AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []AuditRecord
	for i := len(m.audits) - 1; i >= 0 && len(out) < limit; i-- {
		if m.audits[i].OwnerID == owner {
			out = append(out, m.audits[i])
		}
	}
	return out, nil
}

func (m *memStore) count(key SchemaKey) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[key])
}

// csvFile wraps text as an uploaded file.
func csvFile(name, text string) FileSource {
	return FileSource{Name: name, ContentType: "text/csv", Size: int64(len(text)), Reader: strings.NewReader(text)}
}

var errStoreDown = errors.New("connection refused")
