// Package supabase implements the evidence store over the PostgREST
// interface Supabase exposes for its tables.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/book-expert/specter-content/internal/core"
)

const (
	restPath = "/rest/v1/"

	headerAPIKey        = "apikey"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerPrefer        = "Prefer"
	contentTypeJSON     = "application/json"
	preferMinimal       = "return=minimal"

	selectColumns     = "id,title,image_url"
	maxErrorBodyBytes = 4096
)

// Default values.
const (
	DefaultTable    = "evidence"
	DefaultPageSize = 1000
)

// Static errors.
var (
	ErrURLEmpty      = errors.New("supabase url cannot be empty")
	ErrKeyEmpty      = errors.New("supabase service key cannot be empty")
	ErrServiceStatus = errors.New("postgrest returned non-success status")
)

const (
	errFmtServiceStatus = "%w: %s %s: %s"
	errFmtSendRequest   = "failed to send request to %s: %w"
	errFmtDecodeRows    = "failed to decode evidence rows: %w"
)

// Options configures a Store.
type Options struct {
	URL      string
	Key      string
	Table    string
	PageSize int
	Timeout  time.Duration
}

// Store reads and updates evidence rows through PostgREST.
type Store struct {
	httpClient *http.Client
	baseURL    string
	key        string
	table      string
	pageSize   int
}

var _ core.EvidenceStore = (*Store)(nil)

// rowID accepts both numeric and string primary keys.
type rowID string

func (id *rowID) UnmarshalJSON(data []byte) error {
	var text string

	err := json.Unmarshal(data, &text)
	if err == nil {
		*id = rowID(text)

		return nil
	}

	var number json.Number

	err = json.Unmarshal(data, &number)
	if err != nil {
		return fmt.Errorf("unsupported id %s: %w", data, err)
	}

	*id = rowID(number.String())

	return nil
}

type evidenceRow struct {
	ID       rowID   `json:"id"`
	Title    string  `json:"title"`
	ImageURL *string `json:"image_url"`
}

type updateBody struct {
	ImageURL string `json:"image_url"`
}

// NewStore creates a PostgREST-backed store.
func NewStore(opts Options) (*Store, error) {
	if opts.URL == "" {
		return nil, ErrURLEmpty
	}

	if opts.Key == "" {
		return nil, ErrKeyEmpty
	}

	store := &Store{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.URL, "/"),
		key:        opts.Key,
		table:      opts.Table,
		pageSize:   opts.PageSize,
	}

	if store.table == "" {
		store.table = DefaultTable
	}

	if store.pageSize <= 0 {
		store.pageSize = DefaultPageSize
	}

	return store, nil
}

// ListEvidence reads every row, one page at a time, ordered by id. The
// server may return fewer rows than requested (db-max-rows), so paging
// advances by the rows received and stops only at an empty page.
func (s *Store) ListEvidence(ctx context.Context) ([]core.EvidenceRecord, error) {
	var records []core.EvidenceRecord

	offset := 0

	for {
		page, err := s.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}

		if len(page) == 0 {
			return records, nil
		}

		for _, row := range page {
			records = append(records, core.EvidenceRecord{
				ID:       string(row.ID),
				Title:    row.Title,
				ImageURL: row.ImageURL,
			})
		}

		offset += len(page)
	}
}

// UpdateImageURL sets image_url on the row with the given id.
func (s *Store) UpdateImageURL(ctx context.Context, id, imageURL string) error {
	body, err := json.Marshal(updateBody{ImageURL: imageURL})
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	query := url.Values{"id": {"eq." + id}}
	endpoint := s.tableURL() + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create update request: %w", err)
	}

	s.setHeaders(req)
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerPrefer, preferMinimal)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(errFmtSendRequest, s.baseURL, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return statusError(req, resp)
	}

	return nil
}

func (s *Store) fetchPage(ctx context.Context, offset int) ([]evidenceRow, error) {
	query := url.Values{
		"select": {selectColumns},
		"order":  {"id.asc"},
		"limit":  {strconv.Itoa(s.pageSize)},
		"offset": {strconv.Itoa(offset)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tableURL()+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create select request: %w", err)
	}

	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtSendRequest, s.baseURL, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(req, resp)
	}

	var rows []evidenceRow

	err = json.NewDecoder(resp.Body).Decode(&rows)
	if err != nil {
		return nil, fmt.Errorf(errFmtDecodeRows, err)
	}

	return rows, nil
}

func (s *Store) tableURL() string {
	return s.baseURL + restPath + url.PathEscape(s.table)
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set(headerAPIKey, s.key)
	req.Header.Set(headerAuthorization, "Bearer "+s.key)
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func statusError(req *http.Request, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	return fmt.Errorf(errFmtServiceStatus, ErrServiceStatus, req.Method, resp.Status,
		strings.TrimSpace(string(raw)))
}
