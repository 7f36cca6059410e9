package market

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gridmate/gridmate/internal/database"
)

// snapshotDocument is the key under which the market snapshot is stored.
const snapshotDocument = "market_snapshot"

// archiveKeep bounds the msgpack snapshot archive.
const archiveKeep = 50

const storeSchema = `
CREATE TABLE IF NOT EXISTS documents (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	version    INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_archive (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	version    INTEGER NOT NULL,
	body       BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Store persists the MarketSnapshot as one JSON document in sqlite.
// There are no partial-field updates: Load returns the whole aggregate and
// Save overwrites it whole. Every Save bumps a version counter and appends
// a compact msgpack copy to a bounded archive for diagnostics.
//
// The store itself does no locking; the Service serializes the
// load-mutate-save cycle. Two processes sharing one store file still race
// last-write-wins, which is a documented limitation of the simulation.
type Store struct {
	db    *database.DB
	clock Clock
	log   zerolog.Logger
}

// NewStore creates a snapshot store and applies its schema.
func NewStore(db *database.DB, clock Clock, log zerolog.Logger) (*Store, error) {
	if _, err := db.Exec(storeSchema); err != nil {
		return nil, fmt.Errorf("failed to apply store schema: %w", err)
	}
	return &Store{
		db:    db,
		clock: clock,
		log:   log.With().Str("component", "store").Logger(),
	}, nil
}

// Load reads the snapshot, installing and persisting the baseline if none
// exists yet.
func (s *Store) Load() (*MarketSnapshot, error) {
	var body string
	err := s.db.QueryRow(
		"SELECT body FROM documents WHERE name = ?", snapshotDocument,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return s.installBaseline()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snapshot MarketSnapshot
	if err := json.Unmarshal([]byte(body), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot document: %w", err)
	}
	if snapshot.Leaderboards == nil {
		snapshot.Leaderboards = make(map[Category][]Rating)
	}

	return &snapshot, nil
}

// Save overwrites the persisted snapshot whole and bumps the version
// counter. Idempotent with respect to content; every call produces a new
// version and archive entry.
func (s *Store) Save(snapshot *MarketSnapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	packed, err := msgpack.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot archive entry: %w", err)
	}

	now := s.clock.Now().Unix()

	return database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO documents (name, body, version, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(name) DO UPDATE SET
				body = excluded.body,
				version = documents.version + 1,
				updated_at = excluded.updated_at
		`, snapshotDocument, string(body), now)
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}

		var version int64
		if err := tx.QueryRow(
			"SELECT version FROM documents WHERE name = ?", snapshotDocument,
		).Scan(&version); err != nil {
			return fmt.Errorf("failed to read snapshot version: %w", err)
		}

		if _, err := tx.Exec(
			"INSERT INTO snapshot_archive (version, body, created_at) VALUES (?, ?, ?)",
			version, packed, now,
		); err != nil {
			return fmt.Errorf("failed to archive snapshot: %w", err)
		}

		// Keep the archive bounded; oldest entries go first.
		if _, err := tx.Exec(`
			DELETE FROM snapshot_archive
			WHERE id NOT IN (
				SELECT id FROM snapshot_archive ORDER BY id DESC LIMIT ?
			)
		`, archiveKeep); err != nil {
			return fmt.Errorf("failed to trim snapshot archive: %w", err)
		}

		return nil
	})
}

// Reset replaces the persisted state with a fresh baseline, discarding
// trade history and telemetry drift.
func (s *Store) Reset() (*MarketSnapshot, error) {
	if _, err := s.db.Exec(
		"DELETE FROM documents WHERE name = ?", snapshotDocument,
	); err != nil {
		return nil, fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return s.installBaseline()
}

// Version returns the persisted snapshot version, 0 when no snapshot has
// been saved yet.
func (s *Store) Version() (int64, error) {
	var version int64
	err := s.db.QueryRow(
		"SELECT version FROM documents WHERE name = ?", snapshotDocument,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot version: %w", err)
	}
	return version, nil
}

// ExportJSON returns the persisted snapshot document and its version, for
// the backup service. Loads (and persists) the baseline when empty.
func (s *Store) ExportJSON() ([]byte, int64, error) {
	var body string
	var version int64
	err := s.db.QueryRow(
		"SELECT body, version FROM documents WHERE name = ?", snapshotDocument,
	).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.installBaseline(); err != nil {
			return nil, 0, err
		}
		return s.ExportJSON()
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to export snapshot: %w", err)
	}
	return []byte(body), version, nil
}

// ArchiveCount returns the number of retained archive entries.
func (s *Store) ArchiveCount() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM snapshot_archive").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count archive entries: %w", err)
	}
	return count, nil
}

// ArchivedSnapshot decodes the archived snapshot with the given version.
func (s *Store) ArchivedSnapshot(version int64) (*MarketSnapshot, error) {
	var packed []byte
	err := s.db.QueryRow(
		"SELECT body FROM snapshot_archive WHERE version = ? ORDER BY id DESC LIMIT 1",
		version,
	).Scan(&packed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no archived snapshot with version %d", version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archived snapshot: %w", err)
	}

	var snapshot MarketSnapshot
	if err := msgpack.Unmarshal(packed, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode archived snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *Store) installBaseline() (*MarketSnapshot, error) {
	snapshot := Baseline(s.clock.Now())
	if err := s.Save(snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist baseline snapshot: %w", err)
	}
	s.log.Info().Msg("Baseline snapshot installed")
	return snapshot, nil
}
