// Package postgres implements the evidence store over a direct database
// connection, for deployments where the PostgREST gateway is not reachable.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/book-expert/specter-content/internal/core"
	_ "github.com/lib/pq" // registers the "postgres" driver
)

const driverName = "postgres"

// Default values.
const (
	DefaultTable    = "evidence"
	DefaultPageSize = 1000
)

// Static errors.
var (
	ErrInvalidTable = errors.New("invalid table name")
	ErrRowNotFound  = errors.New("evidence row not found")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store reads and updates evidence rows with plain SQL.
type Store struct {
	db          *sql.DB
	pageSize    int
	selectQuery string
	updateQuery string
}

var _ core.EvidenceStore = (*Store)(nil)

// Open connects to the database at dsn.
func Open(ctx context.Context, dsn, table string, pageSize int) (*Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	store, err := NewStore(db, table, pageSize)
	if err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

// NewStore wraps an existing connection pool. The table name is
// interpolated into the queries, so it must be a plain identifier.
func NewStore(db *sql.DB, table string, pageSize int) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}

	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Store{
		db:          db,
		pageSize:    pageSize,
		selectQuery: fmt.Sprintf("SELECT id, title, image_url FROM %s ORDER BY id LIMIT $1 OFFSET $2", table),
		updateQuery: fmt.Sprintf("UPDATE %s SET image_url = $1 WHERE id = $2", table),
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListEvidence reads every row, one page at a time.
func (s *Store) ListEvidence(ctx context.Context) ([]core.EvidenceRecord, error) {
	var records []core.EvidenceRecord

	for offset := 0; ; offset += s.pageSize {
		page, err := s.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}

		records = append(records, page...)

		if len(page) < s.pageSize {
			return records, nil
		}
	}
}

// UpdateImageURL sets image_url on the row with the given id.
func (s *Store) UpdateImageURL(ctx context.Context, id, imageURL string) error {
	result, err := s.db.ExecContext(ctx, s.updateQuery, imageURL, id)
	if err != nil {
		return fmt.Errorf("failed to update evidence %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for %s: %w", id, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}

	return nil
}

func (s *Store) fetchPage(ctx context.Context, offset int) ([]core.EvidenceRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.selectQuery, s.pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence: %w", err)
	}
	defer rows.Close()

	var page []core.EvidenceRecord

	for rows.Next() {
		var (
			record   core.EvidenceRecord
			imageURL sql.NullString
		)

		err = rows.Scan(&record.ID, &record.Title, &imageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evidence row: %w", err)
		}

		if imageURL.Valid {
			value := imageURL.String
			record.ImageURL = &value
		}

		page = append(page, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate evidence rows: %w", err)
	}

	return page, nil
}
