package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/metadata/sqlite/migrations"
	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/query"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

// DatabaseFile is the file name of the graph database inside its directory.
const DatabaseFile = "graph.db"

const backendName = "sqlite"

// Store is the embedded metadata store. Statements live in a single
// triples table and are queried with SQL.
type Store struct {
	db   *sql.DB
	path string
}

// Verify interface compliance.
var (
	_ driven.MetadataStore  = (*Store)(nil)
	_ driven.DocumentLister = (*Store)(nil)
)

// NewStore opens (or creates) the graph database in dataDir.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: sqlite store needs a data directory", domain.ErrInvalidInput)
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Open is the factory builder for the embedded backend. The database lives
// in the store directory of the profile's workspace.
func Open(_ context.Context, profile domain.SessionProfile) (driven.MetadataStore, error) {
	if profile.WorkingDirectory == "" {
		return nil, fmt.Errorf("%w: profile %q has no working directory", domain.ErrInvalidInput, profile.Name)
	}
	return NewStore(domain.NewWorkspace(profile.WorkingDirectory).StoreDir())
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Backend implements driven.MetadataStore.
func (s *Store) Backend() domain.BackendKind {
	return domain.BackendSQLite
}

// Language implements driven.MetadataStore.
func (s *Store) Language() domain.QueryLanguage {
	return domain.LanguageSQL
}

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// migrate applies every NNN_name.up.sql newer than the recorded schema
// version, each in its own transaction together with its version row.
func (s *Store) migrate(fsys embed.FS) error {
	if _, err := s.db.Exec(migrationsTable); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}
	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		script, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(script)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		logger.Debug("sqlite: applied migration %s", name)
	}
	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Loading ====================

// Clear implements driven.MetadataStore.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM triples"); err != nil {
		return fmt.Errorf("clearing triples: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	return tx.Commit()
}

// Load implements driven.MetadataStore. Each document is inserted in its
// own transaction, so a malformed document leaves no statements behind.
func (s *Store) Load(ctx context.Context, docs []domain.Document) (int, error) {
	total := 0
	var failures []domain.ItemError

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := s.loadDocument(ctx, doc)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return total, ctxErr
			}
			var parseErr *domain.ParseError
			if !errors.As(err, &parseErr) {
				return total, err
			}
			logger.Debug("sqlite: %v", err)
			failures = append(failures, domain.ItemError{ID: doc.Path, Err: parseErr})
			continue
		}
		logger.Debug("sqlite: loaded %d statements from %s", n, doc.Path)
		total += n
	}

	return total, domain.NewBatchError("load", len(docs), failures)
}

// loadDocument decodes one document inside a transaction. Decoding and
// open failures are returned as *domain.ParseError.
func (s *Store) loadDocument(ctx context.Context, doc domain.Document) (int, error) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return 0, &domain.ParseError{Document: doc.Path, Err: err}
	}
	defer f.Close()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO documents (id, path, format, loaded_at) VALUES (?, ?, ?, ?)",
		id, doc.Path, doc.Format.String(), time.Now().UTC(),
	); err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO triples (s, s_kind, p, o, o_kind, o_datatype, o_lang, document_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	scope := blankScope(id)
	_, err = rdfio.Decode(ctx, f, doc.Format, doc.Path, func(t domain.Triple) error {
		subj := scope(t.Subject)
		obj := scope(t.Object)
		res, err := stmt.ExecContext(ctx,
			subj.Value, string(subj.Kind), t.Predicate.Value,
			obj.Value, string(obj.Kind), obj.Datatype, obj.Lang, id)
		if err != nil {
			return fmt.Errorf("inserting statement: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, "UPDATE documents SET triple_count = ? WHERE id = ?", inserted, id); err != nil {
		return 0, fmt.Errorf("updating document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load: %w", err)
	}
	return inserted, nil
}

// blankScope renames blank nodes so that labels from different documents
// never denote the same node.
func blankScope(documentID string) func(domain.Term) domain.Term {
	prefix := "d" + strings.ReplaceAll(documentID, "-", "") + "_"
	return func(t domain.Term) domain.Term {
		if t.Kind == domain.TermBlank {
			t.Value = prefix + t.Value
		}
		return t
	}
}

// ==================== Querying ====================

// Query implements driven.MetadataStore. Only read statements are accepted.
func (s *Store) Query(ctx context.Context, text string, lang domain.QueryLanguage) ([]domain.Row, error) {
	if lang != domain.LanguageSQL {
		return nil, &domain.QueryError{
			Kind:    domain.QuerySyntax,
			Backend: backendName,
			Err:     fmt.Errorf("%w: query language %q, expected %q", domain.ErrUnsupportedType, lang, domain.LanguageSQL),
		}
	}
	if !isReadStatement(text) {
		return nil, &domain.QueryError{
			Kind:    domain.QuerySyntax,
			Backend: backendName,
			Err:     errors.New("only SELECT statements are accepted"),
		}
	}

	rows, err := s.db.QueryContext(ctx, text)
	if err != nil {
		return nil, s.queryError(ctx, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, s.queryError(ctx, err)
	}

	var out []domain.Row
	raw := make([]sql.NullString, len(names))
	dest := make([]any, len(names))
	for i := range raw {
		dest[i] = &raw[i]
	}
	values := make([]*string, len(names))
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, s.queryError(ctx, err)
		}
		for i := range raw {
			values[i] = nil
			if raw[i].Valid {
				v := raw[i].String
				values[i] = &v
			}
		}
		out = append(out, query.FoldColumns(names, values))
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(ctx, err)
	}
	return out, nil
}

func (s *Store) queryError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	kind := domain.QuerySyntax
	if unavailable(err) {
		kind = domain.QueryBackendUnavailable
	}
	return &domain.QueryError{Kind: kind, Backend: backendName, Err: err}
}

// unavailable reports errors that say nothing about the query itself: a
// closed database or one held by another writer.
func unavailable(err error) bool {
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "database is closed") || strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// isReadStatement accepts SELECT and WITH ... SELECT queries.
func isReadStatement(text string) bool {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
		return true
	default:
		return false
	}
}

// Count implements driven.MetadataStore. Statements loaded from several
// documents are counted once.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT DISTINCT s, s_kind, p, o, o_kind, o_datatype, o_lang FROM triples
		)
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting statements: %w", err)
	}
	return n, nil
}

// Documents implements driven.DocumentLister.
func (s *Store) Documents(ctx context.Context) ([]domain.LoadedDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, path, format, triple_count FROM documents ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.LoadedDocument
	for rows.Next() {
		var d domain.LoadedDocument
		var format string
		if err := rows.Scan(&d.ID, &d.Path, &format, &d.Triples); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.Format = domain.Format(format)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
