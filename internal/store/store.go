// Package store persists quiz runs in SQLite so the API can serve them
// after the job that produced them has expired.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dgallion1/docquiz/internal/extract"
	"github.com/dgallion1/docquiz/internal/quiz"
)

// ErrNotFound is returned when a document ID is unknown.
var ErrNotFound = errors.New("document not found")

// Document is the stored summary of one processed upload.
type Document struct {
	ID          string    `json:"doc_id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	Seed        uint64    `json:"seed"`
	Units       int       `json:"units"`
	Mentions    int       `json:"mentions"`
	Questions   int       `json:"questions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Run is everything one pipeline run produced for a document.
type Run struct {
	Document      Document
	Reconstructed string
	Pool          extract.Pool
	Set           quiz.Set
}

// Store manages the SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at path and its schema.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT,
			filename TEXT,
			content_hash TEXT NOT NULL,
			seed INTEGER,
			units INTEGER,
			mentions INTEGER,
			questions INTEGER,
			reconstructed TEXT,
			created_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash)`,
		`CREATE TABLE IF NOT EXISTS entities (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			category TEXT NOT NULL,
			sentence TEXT NOT NULL,
			unit_index INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_doc ON entities(doc_id, position)`,
		`CREATE TABLE IF NOT EXISTS questions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			prompt TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			category TEXT NOT NULL,
			options TEXT NOT NULL,
			answer_index INTEGER NOT NULL,
			sentence TEXT,
			unit_index INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_doc ON questions(doc_id, position)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores a run, replacing any earlier run with the same document ID.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	doc := run.Document
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, title, filename, content_hash, seed, units, mentions, questions, reconstructed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, filename=excluded.filename, content_hash=excluded.content_hash,
			seed=excluded.seed, units=excluded.units, mentions=excluded.mentions,
			questions=excluded.questions, reconstructed=excluded.reconstructed,
			created_at=excluded.created_at`,
		doc.ID, doc.Title, doc.Filename, doc.ContentHash, int64(doc.Seed),
		doc.Units, len(run.Pool), len(run.Set.Questions), run.Reconstructed,
		doc.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	for _, table := range []string{"entities", "questions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE doc_id = ?`, doc.ID); err != nil {
			return fmt.Errorf("deleting old %s: %w", table, err)
		}
	}

	entStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entities (doc_id, position, text, category, sentence, unit_index) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entity insert: %w", err)
	}
	defer entStmt.Close()
	for i, m := range run.Pool {
		if _, err := entStmt.ExecContext(ctx, doc.ID, i, m.Text, string(m.Category), m.Sentence, m.SourceUnitIndex); err != nil {
			return fmt.Errorf("inserting entity %d: %w", i, err)
		}
	}

	qStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO questions (doc_id, position, id, prompt, correct_answer, category, options, answer_index, sentence, unit_index)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing question insert: %w", err)
	}
	defer qStmt.Close()
	for i, q := range run.Set.Questions {
		optsJSON, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encoding options of question %d: %w", i, err)
		}
		_, err = qStmt.ExecContext(ctx, doc.ID, i, q.ID, q.Prompt, q.CorrectAnswer,
			string(q.Category), string(optsJSON), q.AnswerIndex, q.Sentence, q.SourceUnitIndex)
		if err != nil {
			return fmt.Errorf("inserting question %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

const documentColumns = `id, title, filename, content_hash, seed, units, mentions, questions, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	var seed int64
	var created string
	if err := row.Scan(&d.ID, &d.Title, &d.Filename, &d.ContentHash, &seed,
		&d.Units, &d.Mentions, &d.Questions, &created); err != nil {
		return Document{}, err
	}
	d.Seed = uint64(seed)
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		d.CreatedAt = t
	}
	return d, nil
}

// GetDocument returns the stored summary for id.
func (s *Store) GetDocument(ctx context.Context, id string) (Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("querying document: %w", err)
	}
	return d, nil
}

// FindByHash returns the most recent document with the given content hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (Document, bool, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE content_hash = ? ORDER BY created_at DESC LIMIT 1`, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("querying by hash: %w", err)
	}
	return d, true, nil
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Reconstructed returns the normalized text stored for a document.
func (s *Store) Reconstructed(ctx context.Context, docID string) (string, error) {
	var text sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT reconstructed FROM documents WHERE id = ?`, docID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying reconstructed text: %w", err)
	}
	return text.String, nil
}

// Entities returns a document's entity pool in discovery order.
func (s *Store) Entities(ctx context.Context, docID string) (extract.Pool, error) {
	if _, err := s.GetDocument(ctx, docID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT text, category, sentence, unit_index FROM entities WHERE doc_id = ? ORDER BY position`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	pool := extract.Pool{}
	for rows.Next() {
		var m extract.EntityMention
		var cat string
		if err := rows.Scan(&m.Text, &cat, &m.Sentence, &m.SourceUnitIndex); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		m.Category = extract.Category(cat)
		pool = append(pool, m)
	}
	return pool, rows.Err()
}

// Questions returns a document's question set in emission order.
func (s *Store) Questions(ctx context.Context, docID string) (quiz.Set, error) {
	if _, err := s.GetDocument(ctx, docID); err != nil {
		return quiz.Set{}, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, correct_answer, category, options, answer_index, sentence, unit_index
		 FROM questions WHERE doc_id = ? ORDER BY position`, docID)
	if err != nil {
		return quiz.Set{}, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	set := quiz.Set{Questions: []quiz.Question{}}
	for rows.Next() {
		var q quiz.Question
		var cat, opts string
		if err := rows.Scan(&q.ID, &q.Prompt, &q.CorrectAnswer, &cat, &opts,
			&q.AnswerIndex, &q.Sentence, &q.SourceUnitIndex); err != nil {
			return quiz.Set{}, fmt.Errorf("scanning question: %w", err)
		}
		q.Category = extract.Category(cat)
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return quiz.Set{}, fmt.Errorf("decoding options of question %s: %w", q.ID, err)
		}
		set.Questions = append(set.Questions, q)
	}
	return set, rows.Err()
}

// DeleteDocument removes a document and everything stored for it.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
