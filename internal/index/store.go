// Package index persists the corpus index: page summaries, their examples,
// and check-run history, in a SQLite database under .notectl/.
package index

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/luizgsa21/notectl/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// PageSummary is the indexed view of a page.
type PageSummary struct {
	Slug            string
	Path            string
	Title           string
	Book            string
	Chapter         string
	Topics          []string
	ExampleCount    int
	TranscriptCount int
	IndexedAt       time.Time
}

// SearchResult is one search hit with the field it matched on.
type SearchResult struct {
	Slug    string
	Title   string
	Matched string // "title", "body", or "example"
}

// CheckRun summarizes one recorded check invocation.
type CheckRun struct {
	ID           string
	StartedAt    time.Time
	Duration     time.Duration
	PagesChecked int
	Errors       int
	Warnings     int
}

// Stats aggregates corpus-wide counts.
type Stats struct {
	Pages       int
	Examples    int
	Transcripts int
	CheckRuns   int
	LastRun     *CheckRun
}

// Store manages the SQLite index database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the index database at dbPath and
// initializes the schema.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}

	// busy_timeout first so the remaining pragmas wait on locks instead of
	// failing when another notectl process holds the database
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a statement with exponential backoff on
// "database is locked" errors from concurrent initialization.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// ReindexPage upserts a page and replaces its example rows in one
// transaction.
func (s *Store) ReindexPage(ctx context.Context, page *models.Page) error {
	topics, err := json.Marshal(page.Frontmatter.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reindex transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (slug, path, title, book, chapter, topics, body, example_count, transcript_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			path = excluded.path,
			title = excluded.title,
			book = excluded.book,
			chapter = excluded.chapter,
			topics = excluded.topics,
			body = excluded.body,
			example_count = excluded.example_count,
			transcript_count = excluded.transcript_count,
			indexed_at = excluded.indexed_at`,
		page.Slug, page.Path, page.Title, page.Frontmatter.Book, page.Frontmatter.Chapter,
		string(topics), page.Body, len(page.Examples), page.TranscriptCount(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert page %s: %w", page.Slug, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM examples WHERE page_slug = ?`, page.Slug); err != nil {
		return fmt.Errorf("clear examples for %s: %w", page.Slug, err)
	}
	for _, ex := range page.Examples {
		hasTranscript := 0
		if ex.HasTranscript() {
			hasTranscript = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO examples (page_slug, name, language, source, has_transcript, line)
			VALUES (?, ?, ?, ?, ?, ?)`,
			page.Slug, ex.Name, ex.Language, ex.Source, hasTranscript, ex.Line)
		if err != nil {
			return fmt.Errorf("insert example %s/%s: %w", page.Slug, ex.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reindex of %s: %w", page.Slug, err)
	}
	return nil
}

// DeletePage removes a page and (by cascade) its examples.
func (s *Store) DeletePage(ctx context.Context, slug string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("delete page %s: %w", slug, err)
	}
	return nil
}

// ListPages returns all indexed pages ordered by slug.
func (s *Store) ListPages(ctx context.Context) ([]PageSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, path, title, book, chapter, topics, example_count, transcript_count, indexed_at
		FROM pages ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []PageSummary
	for rows.Next() {
		var p PageSummary
		var topics string
		if err := rows.Scan(&p.Slug, &p.Path, &p.Title, &p.Book, &p.Chapter, &topics,
			&p.ExampleCount, &p.TranscriptCount, &p.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		if err := json.Unmarshal([]byte(topics), &p.Topics); err != nil {
			return nil, fmt.Errorf("decode topics for %s: %w", p.Slug, err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetPage returns the indexed summary for slug, or sql.ErrNoRows.
func (s *Store) GetPage(ctx context.Context, slug string) (*PageSummary, error) {
	var p PageSummary
	var topics string
	err := s.db.QueryRowContext(ctx, `
		SELECT slug, path, title, book, chapter, topics, example_count, transcript_count, indexed_at
		FROM pages WHERE slug = ?`, slug).
		Scan(&p.Slug, &p.Path, &p.Title, &p.Book, &p.Chapter, &topics,
			&p.ExampleCount, &p.TranscriptCount, &p.IndexedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(topics), &p.Topics); err != nil {
		return nil, fmt.Errorf("decode topics for %s: %w", slug, err)
	}
	return &p, nil
}

// Search finds pages whose title, body, or example source contains query
// (case-insensitive). Title matches rank before body matches, body before
// example matches; ties order by slug.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + escapeLike(query) + "%"
	// SQLite's min() quirk: with GROUP BY, bare columns come from the row
	// holding the minimum, so matched reports the best-ranked hit per page.
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, title, matched, MIN(rank) AS best FROM (
			SELECT slug, title, 'title' AS matched, 0 AS rank FROM pages
			WHERE title LIKE ? ESCAPE '\'
			UNION
			SELECT slug, title, 'body' AS matched, 1 AS rank FROM pages
			WHERE body LIKE ? ESCAPE '\'
			UNION
			SELECT p.slug, p.title, 'example' AS matched, 2 AS rank
			FROM pages p JOIN examples e ON e.page_slug = p.slug
			WHERE e.source LIKE ? ESCAPE '\'
		)
		GROUP BY slug
		ORDER BY best, slug
		LIMIT ?`,
		pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var rank int
		if err := rows.Scan(&r.Slug, &r.Title, &r.Matched, &rank); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// escapeLike escapes LIKE metacharacters in a user query.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// RecordCheckRun stores a check run and its findings, returning the run ID.
func (s *Store) RecordCheckRun(ctx context.Context, started time.Time, duration time.Duration, reports []*models.CheckReport) (string, error) {
	runID := uuid.NewString()

	errorCount, warnCount := 0, 0
	for _, r := range reports {
		errorCount += r.ErrorCount()
		warnCount += r.WarnCount()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin check-run transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO check_runs (id, started_at, duration_ms, pages_checked, errors, warnings)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, started.UTC(), duration.Milliseconds(), len(reports), errorCount, warnCount)
	if err != nil {
		return "", fmt.Errorf("insert check run: %w", err)
	}

	for _, r := range reports {
		for _, f := range r.Findings {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO findings (run_id, rule, severity, page_slug, example, line, message)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, f.Rule, string(f.Severity), f.Page, f.Example, f.Line, f.Message)
			if err != nil {
				return "", fmt.Errorf("insert finding: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit check run: %w", err)
	}
	return runID, nil
}

// RecentRuns returns the newest check runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]CheckRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, pages_checked, errors, warnings
		FROM check_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list check runs: %w", err)
	}
	defer rows.Close()

	var runs []CheckRun
	for rows.Next() {
		var r CheckRun
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.StartedAt, &durationMS, &r.PagesChecked, &r.Errors, &r.Warnings); err != nil {
			return nil, fmt.Errorf("scan check run: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PruneRuns deletes check runs older than keepDays. keepDays <= 0 disables
// pruning.
func (s *Store) PruneRuns(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM check_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune check runs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns corpus-wide aggregate counts.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(example_count), 0),
		       COALESCE(SUM(transcript_count), 0)
		FROM pages`).Scan(&stats.Pages, &stats.Examples, &stats.Transcripts)
	if err != nil {
		return nil, fmt.Errorf("page stats: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM check_runs`).Scan(&stats.CheckRuns); err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}

	runs, err := s.RecentRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		stats.LastRun = &runs[0]
	}
	return stats, nil
}
