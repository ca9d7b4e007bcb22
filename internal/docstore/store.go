package docstore

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultLimit is the page size used when a list call carries no limit query
	DefaultLimit = 25
	// MaxLimit is the largest page the store returns for a single list call
	MaxLimit = 100
)

// ErrNotFound is returned when a document or collection does not exist
var ErrNotFound = errors.New("document not found")

// Error is a failure reported by the remote store
type Error struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("docstore: %s (%d %s)", e.Message, e.Code, e.Type)
	}
	return fmt.Sprintf("docstore: %s (%d)", e.Message, e.Code)
}

// Is lets errors.Is match remote 404s against ErrNotFound
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Code == 404
}

// Store is the document-store API used by the services. Drivers: the
// Appwrite REST client, the postgres store and the in-memory store.
type Store interface {
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...Query) (*DocumentList, error)
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, permissions []string) (*Document, error)
	UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (*Document, error)
	DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error
}
