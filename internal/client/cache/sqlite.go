package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/obralink/obralink/internal/client/cache/migrations"
	"github.com/obralink/obralink/internal/common"
	"github.com/obralink/obralink/internal/entity"
)

// Persisted layout: one row per logical table in a single kv table, each
// payload a JSON blob — the six kind sets plus the export counter map and
// the session descriptor. There is no schema versioning inside the blobs.
const (
	blobPDFCounter = "pdf-download-counter"
	blobSession    = "session"
)

// SQLiteStore implements Store over a local SQLite database. A single mutex
// serializes every read-modify-write so merges at the same id never
// interleave, which is what makes blind replace-by-id safe on-device.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if needed) the cache database at dsn and runs the
// embedded migrations.
func Open(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("cache migration error: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) loadBlob(ctx context.Context, name string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM blobs WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blob %q: %w", name, err)
	}
	return payload, nil
}

func (s *SQLiteStore) saveBlob(ctx context.Context, name string, payload []byte) error {
	query := `INSERT INTO blobs (name, payload) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload`
	if _, err := s.db.ExecContext(ctx, query, name, payload); err != nil {
		return fmt.Errorf("failed to save blob %q: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) readSet(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	payload, err := s.loadBlob(ctx, string(kind))
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	var set []entity.Entity
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, fmt.Errorf("corrupt blob %q: %w", kind, err)
	}
	return set, nil
}

func (s *SQLiteStore) writeSet(ctx context.Context, kind entity.Kind, set []entity.Entity) error {
	if set == nil {
		set = []entity.Entity{}
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", kind, err)
	}
	return s.saveBlob(ctx, string(kind), payload)
}

func (s *SQLiteStore) Read(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSet(ctx, kind)
}

func (s *SQLiteStore) ReadOne(ctx context.Context, kind entity.Kind, id string) (*entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.readSet(ctx, kind)
	if err != nil {
		return nil, err
	}
	for _, e := range set {
		if e.ID == id {
			found := e.Clone()
			return &found, nil
		}
	}
	return nil, common.ErrNotFound
}

func (s *SQLiteStore) Write(ctx context.Context, kind entity.Kind, e entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.readSet(ctx, kind)
	if err != nil {
		return err
	}
	return s.writeSet(ctx, kind, entity.Upsert(set, e))
}

func (s *SQLiteStore) WriteAll(ctx context.Context, kind entity.Kind, set []entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeSet(ctx, kind, set)
}

func (s *SQLiteStore) Delete(ctx context.Context, kind entity.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.readSet(ctx, kind)
	if err != nil {
		return err
	}
	kept := set[:0]
	for _, e := range set {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return s.writeSet(ctx, kind, kept)
}

func (s *SQLiteStore) Session(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := s.loadBlob(ctx, blobSession)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, common.ErrNotFound
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("corrupt session blob: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.saveBlob(ctx, blobSession, payload)
}

func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE name = ?`, blobSession); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) readCounters(ctx context.Context) (map[string]int, error) {
	payload, err := s.loadBlob(ctx, blobPDFCounter)
	if err != nil {
		return nil, err
	}
	counters := map[string]int{}
	if payload != nil {
		if err := json.Unmarshal(payload, &counters); err != nil {
			return nil, fmt.Errorf("corrupt counter blob: %w", err)
		}
	}
	return counters, nil
}

func (s *SQLiteStore) PDFDownloads(ctx context.Context, companyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters, err := s.readCounters(ctx)
	if err != nil {
		return 0, err
	}
	return counters[companyID], nil
}

func (s *SQLiteStore) IncrementPDFDownloads(ctx context.Context, companyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters, err := s.readCounters(ctx)
	if err != nil {
		return 0, err
	}
	counters[companyID]++
	payload, err := json.Marshal(counters)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal counters: %w", err)
	}
	if err := s.saveBlob(ctx, blobPDFCounter, payload); err != nil {
		return 0, err
	}
	return counters[companyID], nil
}
