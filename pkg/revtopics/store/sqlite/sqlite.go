package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
	"github.com/cognicore/revtopics/pkg/revtopics/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	input_path TEXT NOT NULL,
	source_kind TEXT NOT NULL,
	n_topics INTEGER NOT NULL,
	n_words INTEGER NOT NULL,
	docs INTEGER NOT NULL,
	vocab_size INTEGER NOT NULL,
	seed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_topics (
	run_id TEXT NOT NULL,
	topic_id INTEGER NOT NULL,
	top_terms TEXT NOT NULL,
	doc_count INTEGER NOT NULL,
	mean_weight REAL NOT NULL,
	PRIMARY KEY(run_id, topic_id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS run_pruned_terms (
	run_id TEXT NOT NULL,
	token TEXT NOT NULL,
	df INTEGER NOT NULL,
	PRIMARY KEY(run_id, token),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun inserts a run and its child rows in one transaction
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?;`, r.ID).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: run %s already archived", internalerr.ErrInvalidInput, r.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check run %s: %w", r.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, created_at, input_path, source_kind, n_topics, n_words, docs, vocab_size, seed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		r.ID,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
		r.InputPath,
		r.SourceKind,
		r.Topics,
		r.TermsPerTopic,
		r.Docs,
		r.VocabSize,
		int64(r.Seed),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}

	if err := insertTopics(ctx, tx, r.ID, r.TopicRows); err != nil {
		return err
	}
	if err := insertPruned(ctx, tx, r.ID, r.Pruned); err != nil {
		return err
	}

	return tx.Commit()
}

func insertTopics(ctx context.Context, tx *sql.Tx, runID string, topics []store.Topic) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO run_topics (run_id, topic_id, top_terms, doc_count, mean_weight)
VALUES (?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range topics {
		termsJSON, err := json.Marshal(t.TopTerms)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, runID, t.TopicID, string(termsJSON), t.DocCount, t.MeanWeight); err != nil {
			return fmt.Errorf("insert topic %d: %w", t.TopicID, err)
		}
	}
	return nil
}

func insertPruned(ctx context.Context, tx *sql.Tx, runID string, pruned []store.PrunedTerm) error {
	if len(pruned) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO run_pruned_terms (run_id, token, df) VALUES (?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range pruned {
		if _, err := stmt.ExecContext(ctx, runID, p.Token, p.DF); err != nil {
			return err
		}
	}
	return nil
}

// GetRun loads a run with its topics and pruned terms
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, created_at, input_path, source_kind, n_topics, n_words, docs, vocab_size, seed
FROM runs
WHERE id = ?;
`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}

	if r.TopicRows, err = s.loadTopics(ctx, id); err != nil {
		return store.Run{}, false, err
	}
	if r.Pruned, err = s.loadPruned(ctx, id); err != nil {
		return store.Run{}, false, err
	}
	return r, true, nil
}

// ListRuns returns run headers, newest first
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_at, input_path, source_kind, n_topics, n_words, docs, vocab_size, seed
FROM runs
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var r store.Run
	var created string
	var seed int64
	if err := sc.Scan(&r.ID, &created, &r.InputPath, &r.SourceKind, &r.Topics, &r.TermsPerTopic, &r.Docs, &r.VocabSize, &seed); err != nil {
		return store.Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return store.Run{}, fmt.Errorf("run %s: parse created_at: %w", r.ID, err)
	}
	r.CreatedAt = t
	r.Seed = uint64(seed)
	return r, nil
}

func (s *sqliteStore) loadTopics(ctx context.Context, runID string) ([]store.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT topic_id, top_terms, doc_count, mean_weight
FROM run_topics
WHERE run_id = ?
ORDER BY topic_id;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []store.Topic
	for rows.Next() {
		var t store.Topic
		var termsJSON string
		if err := rows.Scan(&t.TopicID, &termsJSON, &t.DocCount, &t.MeanWeight); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(termsJSON), &t.TopTerms); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (s *sqliteStore) loadPruned(ctx context.Context, runID string) ([]store.PrunedTerm, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT token, df
FROM run_pruned_terms
WHERE run_id = ?
ORDER BY df DESC, token ASC;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pruned []store.PrunedTerm
	for rows.Next() {
		var p store.PrunedTerm
		if err := rows.Scan(&p.Token, &p.DF); err != nil {
			return nil, err
		}
		pruned = append(pruned, p)
	}
	return pruned, rows.Err()
}
