package authority

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/markwbennett/brief-analyzer/internal/model"

	_ "modernc.org/sqlite"
)

// Index is the persistent citation catalog backing a project. It records
// every citation discovered during authority extraction along with where
// each one appears, so reports and later runs can query the catalog
// without re-reading the briefs.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the citation catalog at path
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open citations index: %w", err)
	}
	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (ix *Index) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS citations (
		id INTEGER PRIMARY KEY,
		volume TEXT,
		reporter TEXT,
		page TEXT,
		case_name TEXT,
		full_cite TEXT NOT NULL,
		downloaded INTEGER NOT NULL DEFAULT 0,
		UNIQUE(volume, reporter, page)
	);
	CREATE TABLE IF NOT EXISTS appearances (
		citation_id INTEGER NOT NULL,
		document TEXT NOT NULL,
		locator TEXT,
		FOREIGN KEY(citation_id) REFERENCES citations(id)
	);`
	_, err := ix.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("migrate citations index: %w", err)
	}
	return nil
}

// Record upserts a citation and notes its appearance in a document.
// Re-recording the same key updates the case name if a better one arrives.
func (ix *Index) Record(ctx context.Context, c model.Citation, document, locator string) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO citations (volume, reporter, page, case_name, full_cite)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(volume, reporter, page) DO UPDATE SET
			case_name = CASE WHEN excluded.case_name != '' THEN excluded.case_name ELSE case_name END`,
		c.Key.Volume, c.Key.Reporter, c.Key.Page, c.CaseName, c.Key.String())
	if err != nil {
		return fmt.Errorf("record citation %s: %w", c.Key, err)
	}

	// LastInsertId is unreliable across upserts; look the row up instead.
	var id int64
	row := ix.db.QueryRowContext(ctx,
		`SELECT id FROM citations WHERE volume = ? AND reporter = ? AND page = ?`,
		c.Key.Volume, c.Key.Reporter, c.Key.Page)
	if err := row.Scan(&id); err != nil {
		return fmt.Errorf("find citation %s: %w", c.Key, err)
	}

	if document == "" {
		return nil
	}
	_, err = ix.db.ExecContext(ctx,
		`INSERT INTO appearances (citation_id, document, locator) VALUES (?, ?, ?)`,
		id, document, locator)
	if err != nil {
		return fmt.Errorf("record appearance of %s: %w", c.Key, err)
	}
	return nil
}

// MarkDownloaded flags a citation whose opinion text has been fetched
func (ix *Index) MarkDownloaded(ctx context.Context, key model.CitationKey) error {
	_, err := ix.db.ExecContext(ctx,
		`UPDATE citations SET downloaded = 1 WHERE volume = ? AND reporter = ? AND page = ?`,
		key.Volume, key.Reporter, key.Page)
	if err != nil {
		return fmt.Errorf("mark downloaded %s: %w", key, err)
	}
	return nil
}

// IndexedCitation is one catalog row with its appearance count
type IndexedCitation struct {
	Citation    model.Citation
	Downloaded  bool
	Appearances int
}

// All returns the catalog ordered by reporter, volume, page
func (ix *Index) All(ctx context.Context) ([]IndexedCitation, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT c.volume, c.reporter, c.page, c.case_name, c.downloaded,
			(SELECT COUNT(*) FROM appearances a WHERE a.citation_id = c.id)
		FROM citations c
		ORDER BY c.reporter, CAST(c.volume AS INTEGER), CAST(c.page AS INTEGER)`)
	if err != nil {
		return nil, fmt.Errorf("list citations: %w", err)
	}
	defer rows.Close()

	var out []IndexedCitation
	for rows.Next() {
		var ic IndexedCitation
		var downloaded int
		err := rows.Scan(&ic.Citation.Key.Volume, &ic.Citation.Key.Reporter,
			&ic.Citation.Key.Page, &ic.Citation.CaseName, &downloaded, &ic.Appearances)
		if err != nil {
			return nil, fmt.Errorf("scan citation: %w", err)
		}
		ic.Downloaded = downloaded != 0
		out = append(out, ic)
	}
	return out, rows.Err()
}

// Pending returns citations whose opinions have not been downloaded
func (ix *Index) Pending(ctx context.Context) ([]model.Citation, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT volume, reporter, page, case_name FROM citations
		WHERE downloaded = 0
		ORDER BY reporter, CAST(volume AS INTEGER), CAST(page AS INTEGER)`)
	if err != nil {
		return nil, fmt.Errorf("list pending citations: %w", err)
	}
	defer rows.Close()

	var out []model.Citation
	for rows.Next() {
		var c model.Citation
		if err := rows.Scan(&c.Key.Volume, &c.Key.Reporter, &c.Key.Page, &c.CaseName); err != nil {
			return nil, fmt.Errorf("scan citation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle
func (ix *Index) Close() error {
	return ix.db.Close()
}
