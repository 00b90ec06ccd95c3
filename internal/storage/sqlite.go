package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"modport/internal/generator"
	"modport/internal/mappings"
	"modport/internal/pipeline"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one persisted file translation.
type Run struct {
	ID             string                         `json:"id"`
	SourceFile     string                         `json:"source_file"`
	State          string                         `json:"state"`
	Accepted       bool                           `json:"accepted"`
	Validated      bool                           `json:"validated"`
	Confidence     float64                        `json:"confidence"`
	AlignmentScore float64                        `json:"alignment_score"`
	Divergences    int                            `json:"divergences"`
	CreatedAt      time.Time                      `json:"created_at"`
	Notes          []generator.Note               `json:"notes,omitempty"`
	Iterations     []pipeline.RefinementIteration `json:"iterations,omitempty"`
	Files          []generator.GeneratedFile      `json:"files,omitempty"`
}

// RunFromResult builds a persistable run from a pipeline outcome. An empty
// id gets a fresh UUID.
func RunFromResult(id string, res *pipeline.FileResult) *Run {
	if id == "" {
		id = uuid.NewString()
	}
	run := &Run{
		ID:         id,
		SourceFile: res.SourceFile,
		State:      string(res.State),
		Accepted:   res.Accepted,
		Confidence: res.Confidence,
		CreatedAt:  time.Now().UTC(),
		Notes:      res.Notes,
		Iterations: res.Iterations,
		Files:      res.Files,
	}
	if res.Validation != nil {
		run.Validated = true
		run.AlignmentScore = res.Validation.Score
		run.Divergences = len(res.Validation.Divergences)
	}
	return run
}

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source_file TEXT,
			state TEXT,
			accepted INTEGER,
			validated INTEGER,
			confidence REAL,
			alignment_score REAL,
			divergences INTEGER,
			created_at INTEGER,
			notes JSON,
			iterations JSON
		);`,
		`CREATE TABLE IF NOT EXISTS run_files (
			run_id TEXT,
			path TEXT,
			content TEXT,
			PRIMARY KEY (run_id, path)
		);`,
		`CREATE TABLE IF NOT EXISTS mappings (
			source_signature TEXT PRIMARY KEY,
			target_equivalent TEXT,
			conversion_kind TEXT,
			notes TEXT,
			example JSON
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_file ON runs(source_file);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- RunStore Implementation ---

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	notes, _ := json.Marshal(run.Notes)
	iterations, _ := json.Marshal(run.Iterations)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source_file, state, accepted, validated, confidence, alignment_score, divergences, created_at, notes, iterations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_file=excluded.source_file,
			state=excluded.state,
			accepted=excluded.accepted,
			validated=excluded.validated,
			confidence=excluded.confidence,
			alignment_score=excluded.alignment_score,
			divergences=excluded.divergences,
			created_at=excluded.created_at,
			notes=excluded.notes,
			iterations=excluded.iterations
	`, run.ID, run.SourceFile, run.State, run.Accepted, run.Validated, run.Confidence,
		run.AlignmentScore, run.Divergences, run.CreatedAt.UnixNano(), notes, iterations)
	if err != nil {
		return err
	}

	// Re-saving a run replaces its file set.
	if _, err := tx.ExecContext(ctx, "DELETE FROM run_files WHERE run_id = ?", run.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO run_files (run_id, path, content) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range run.Files {
		if _, err := stmt.Exec(run.ID, f.Path, f.Content); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const runColumns = "id, source_file, state, accepted, validated, confidence, alignment_score, divergences, created_at, notes, iterations"

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)

	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT path, content FROM run_files WHERE run_id = ? ORDER BY rowid", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f generator.GeneratedFile
		if err := rows.Scan(&f.Path, &f.Content); err != nil {
			return nil, fmt.Errorf("failed to scan run file: %w", err)
		}
		run.Files = append(run.Files, f)
	}

	return run, rows.Err()
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

func (s *SQLiteStore) FindRunsByFile(ctx context.Context, sourceFile string) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs WHERE source_file = ? ORDER BY created_at DESC", sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt int64
	var notes, iterations []byte
	if err := row.Scan(&run.ID, &run.SourceFile, &run.State, &run.Accepted, &run.Validated,
		&run.Confidence, &run.AlignmentScore, &run.Divergences, &createdAt, &notes, &iterations); err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	if len(notes) > 0 {
		_ = json.Unmarshal(notes, &run.Notes)
	}
	if len(iterations) > 0 {
		_ = json.Unmarshal(iterations, &run.Iterations)
	}
	return &run, nil
}

func collectRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- MappingStore Implementation ---

func (s *SQLiteStore) SaveMappings(ctx context.Context, entries []mappings.Mapping) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mappings (source_signature, target_equivalent, conversion_kind, notes, example)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_signature) DO UPDATE SET
			target_equivalent=excluded.target_equivalent,
			conversion_kind=excluded.conversion_kind,
			notes=excluded.notes,
			example=excluded.example
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.SourceSignature == "" {
			continue
		}
		var example []byte
		if e.Example != nil {
			example, err = json.Marshal(e.Example)
			if err != nil {
				continue
			}
		}
		if _, err := stmt.Exec(e.SourceSignature, e.TargetEquivalent, string(e.Kind), e.Notes, example); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadMappings(ctx context.Context) ([]mappings.Mapping, error) {
	// rowid order keeps first-insertion order across upserts, matching the
	// in-memory table's stable ordering.
	rows, err := s.db.QueryContext(ctx, "SELECT source_signature, target_equivalent, conversion_kind, notes, example FROM mappings ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	var entries []mappings.Mapping
	for rows.Next() {
		var e mappings.Mapping
		var kind string
		var example []byte
		if err := rows.Scan(&e.SourceSignature, &e.TargetEquivalent, &kind, &e.Notes, &example); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		e.Kind = mappings.ConversionKind(kind)
		if len(example) > 0 {
			var ex mappings.Example
			if err := json.Unmarshal(example, &ex); err == nil {
				e.Example = &ex
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) DeleteMappings(ctx context.Context, signatures []string) error {
	if len(signatures) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM mappings WHERE source_signature = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sig := range signatures {
		if _, err := stmt.Exec(sig); err != nil {
			return err
		}
	}

	return tx.Commit()
}
