package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"transport-register/internal/docstore"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	database_id   TEXT        NOT NULL,
	collection_id TEXT        NOT NULL,
	id            TEXT        NOT NULL,
	data          JSONB       NOT NULL DEFAULT '{}'::jsonb,
	permissions   TEXT[]      NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (database_id, collection_id, id)
);
CREATE INDEX IF NOT EXISTS documents_created_idx
	ON documents (database_id, collection_id, created_at, id);
`

const selectColumns = `id, database_id, collection_id, data, permissions, created_at, updated_at`

// Store keeps documents in a postgres table with a JSONB payload
type Store struct {
	db *pgxpool.Pool
}

// New creates a new postgres document store
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the documents table if it does not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create documents schema: %w", err)
	}
	return nil
}

func scanDocument(row pgx.Row) (*docstore.Document, error) {
	var doc docstore.Document
	var data []byte
	err := row.Scan(
		&doc.ID, &doc.DatabaseID, &doc.CollectionID, &data,
		&doc.Permissions, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Data = json.RawMessage(data)
	return &doc, nil
}

// ListDocuments returns one page of documents
func (s *Store) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...docstore.Query) (*docstore.DocumentList, error) {
	opts := docstore.Parse(queries, docstore.DefaultLimit)
	if opts.Limit > docstore.MaxLimit {
		opts.Limit = docstore.MaxLimit
	}
	if opts.Limit < 0 {
		opts.Limit = 0
	}

	orderCol, err := orderColumn(opts.OrderAttr)
	if err != nil {
		return nil, err
	}
	dir, cmp := "ASC", ">"
	if opts.OrderDesc {
		dir, cmp = "DESC", "<"
	}

	where := []string{"database_id = $1", "collection_id = $2"}
	args := []any{databaseID, collectionID}
	for _, q := range opts.Equals {
		values := make([]string, 0, len(q.Values))
		for _, v := range q.Values {
			values = append(values, fmt.Sprint(v))
		}
		args = append(args, q.Attribute, values)
		where = append(where, fmt.Sprintf("data->>$%d::text = ANY($%d::text[])", len(args)-1, len(args)))
	}

	// Count before applying the cursor, matching the REST API's total
	countQuery := `SELECT COUNT(*) FROM documents WHERE ` + strings.Join(where, " AND ")
	var total int
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	if opts.Cursor != "" {
		var cursorAt time.Time
		cursorQuery := fmt.Sprintf(`SELECT %s FROM documents WHERE database_id = $1 AND collection_id = $2 AND id = $3`, orderCol)
		err := s.db.QueryRow(ctx, cursorQuery, databaseID, collectionID, opts.Cursor).Scan(&cursorAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &docstore.Error{Code: 400, Type: "general_cursor_not_found", Message: fmt.Sprintf("cursor document %q not found", opts.Cursor)}
			}
			return nil, fmt.Errorf("failed to resolve cursor: %w", err)
		}
		args = append(args, cursorAt, opts.Cursor)
		where = append(where, fmt.Sprintf("(%s, id) %s ($%d, $%d)", orderCol, cmp, len(args)-1, len(args)))
	}

	args = append(args, opts.Limit)
	query := fmt.Sprintf(`
		SELECT %s
		FROM documents
		WHERE %s
		ORDER BY %s %s, id %s
		LIMIT $%d
	`, selectColumns, strings.Join(where, " AND "), orderCol, dir, dir, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return &docstore.DocumentList{Total: total, Documents: docs}, nil
}

// CreateDocument inserts a new document
func (s *Store) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, permissions []string) (*docstore.Document, error) {
	raw, err := docstore.EncodeData(data)
	if err != nil {
		return nil, err
	}
	if documentID == "" || documentID == docstore.UniqueID {
		documentID = uuid.New().String()
	}
	if permissions == nil {
		permissions = []string{}
	}

	query := `
		INSERT INTO documents (database_id, collection_id, id, data, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT DO NOTHING
		RETURNING ` + selectColumns
	doc, err := scanDocument(s.db.QueryRow(ctx, query, databaseID, collectionID, documentID, []byte(raw), permissions))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &docstore.Error{Code: 409, Type: "document_already_exists", Message: "document with the requested ID already exists"}
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

// UpdateDocument merges data into an existing document
func (s *Store) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (*docstore.Document, error) {
	raw, err := docstore.EncodeData(data)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE documents
		SET data = data || $4::jsonb, updated_at = GREATEST(now(), created_at)
		WHERE database_id = $1 AND collection_id = $2 AND id = $3
		RETURNING ` + selectColumns
	doc, err := scanDocument(s.db.QueryRow(ctx, query, databaseID, collectionID, documentID, []byte(raw)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes a document
func (s *Store) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	query := `DELETE FROM documents WHERE database_id = $1 AND collection_id = $2 AND id = $3`
	result, err := s.db.Exec(ctx, query, databaseID, collectionID, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func orderColumn(attr string) (string, error) {
	switch attr {
	case "", docstore.AttrCreatedAt:
		return "created_at", nil
	case docstore.AttrUpdatedAt:
		return "updated_at", nil
	}
	return "", &docstore.Error{Code: 400, Type: "general_query_invalid", Message: fmt.Sprintf("ordering by %q is not supported", attr)}
}
