// Package sqlitejournal stores a document's edited pages in a SQLite
// database, so unsaved edits survive a restart of the editor.
package sqlitejournal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/phroun/folio"
)

// Journal is a folio.Journal backed by one table shared by many documents.
// Rows are keyed by document name and page number.
type Journal struct {
	db       *sql.DB
	document string
}

var _ folio.Journal = (*Journal)(nil)

// Open opens or creates the database at path and returns the journal for
// document.
func Open(path, document string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Journal{db: db, document: document}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS pages (
            document TEXT NOT NULL,
            page INTEGER NOT NULL,
            text TEXT NOT NULL,
            PRIMARY KEY (document, page)
        );
    `)
	return err
}

// Put stores the edited text of page.
func (j *Journal) Put(page int64, text string) error {
	_, err := j.db.Exec(`
        INSERT INTO pages (document, page, text)
        VALUES (?, ?, ?)
        ON CONFLICT(document, page) DO UPDATE SET
            text = excluded.text
    `, j.document, page, text)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert page %d: %v", folio.ErrJournalFailure, page, err)
	}
	return nil
}

// Get returns the edited text of page.
func (j *Journal) Get(page int64) (string, bool, error) {
	var text string
	err := j.db.QueryRow(
		"SELECT text FROM pages WHERE document = ? AND page = ?",
		j.document, page,
	).Scan(&text)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: failed to query page %d: %v", folio.ErrJournalFailure, page, err)
	}
	return text, true, nil
}

// Delete forgets the edit to page.
func (j *Journal) Delete(page int64) error {
	_, err := j.db.Exec("DELETE FROM pages WHERE document = ? AND page = ?", j.document, page)
	if err != nil {
		return fmt.Errorf("%w: failed to delete page %d: %v", folio.ErrJournalFailure, page, err)
	}
	return nil
}

// Pages lists the edited pages in ascending order.
func (j *Journal) Pages() ([]int64, error) {
	rows, err := j.db.Query("SELECT page FROM pages WHERE document = ? ORDER BY page", j.document)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query pages: %v", folio.ErrJournalFailure, err)
	}
	defer rows.Close()

	var pages []int64
	for rows.Next() {
		var page int64
		if err := rows.Scan(&page); err != nil {
			return nil, fmt.Errorf("%w: failed to scan page: %v", folio.ErrJournalFailure, err)
		}
		pages = append(pages, page)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating pages: %v", folio.ErrJournalFailure, err)
	}
	return pages, nil
}

// Clear forgets every edit to the document.
func (j *Journal) Clear() error {
	if _, err := j.db.Exec("DELETE FROM pages WHERE document = ?", j.document); err != nil {
		return fmt.Errorf("%w: failed to clear document: %v", folio.ErrJournalFailure, err)
	}
	return nil
}

// Close closes the database. Edits remain stored until Clear.
func (j *Journal) Close() error {
	return j.db.Close()
}
