package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// store persists index entries and embedder state in SQLite.
type store struct {
	db   *sql.DB
	path string
}

func openStore(path string) (*store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *store) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("pragma failed: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			embedding BLOB NOT NULL,
			text TEXT NOT NULL,
			metadata TEXT
		);
		CREATE TABLE IF NOT EXISTS embedder_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data BLOB NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	return nil
}

// saveEntries replaces the persisted entry set wholesale. The seq column
// preserves insertion order so a reload reproduces the same store order.
func (s *store) saveEntries(ctx context.Context, entries []indexed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO entries (id, seq, embedding, text, metadata) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		var metaJSON []byte
		if e.Metadata != nil {
			metaJSON, _ = json.Marshal(e.Metadata)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, i, encodeFloat32Slice(e.Vector), e.Text, metaJSON); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *store) loadEntries(ctx context.Context) ([]indexed, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, embedding, text, metadata FROM entries ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []indexed
	for rows.Next() {
		var e indexed
		var embBytes []byte
		var metaJSON sql.NullString

		if err := rows.Scan(&e.ID, &embBytes, &e.Text, &metaJSON); err != nil {
			return nil, err
		}
		e.Vector = decodeFloat32Slice(embBytes)
		if metaJSON.Valid && metaJSON.String != "" {
			json.Unmarshal([]byte(metaJSON.String), &e.Metadata)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *store) clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM entries")
	return err
}

func (s *store) saveEmbedderState(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO embedder_state (id, data) VALUES (1, ?)", data)
	return err
}

func (s *store) loadEmbedderState(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM embedder_state WHERE id = 1").Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return data, err
}

func (s *store) close() error {
	return s.db.Close()
}

// encodeFloat32Slice converts []float32 to little-endian bytes.
func encodeFloat32Slice(f []float32) []byte {
	buf := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeFloat32Slice converts bytes back to []float32.
func decodeFloat32Slice(b []byte) []float32 {
	f := make([]float32, len(b)/4)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f
}
