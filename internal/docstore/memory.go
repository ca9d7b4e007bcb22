package docstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. It follows the remote store's list
// semantics: default and maximum page sizes, cursor and ordering queries.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]Document // keyed by databaseID/collectionID, insertion order
	now  func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string][]Document),
		now:  time.Now,
	}
}

// SetClock overrides the clock used for timestamps
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func collectionKey(databaseID, collectionID string) string {
	return databaseID + "/" + collectionID
}

// ListDocuments returns one page of documents
func (m *Memory) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...Query) (*DocumentList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	opts := Parse(queries, DefaultLimit)
	docs := slices.Clone(m.docs[collectionKey(databaseID, collectionID)])

	filtered := docs[:0]
	for _, doc := range docs {
		if matchesAll(doc, opts.Equals) {
			filtered = append(filtered, doc)
		}
	}
	docs = filtered

	slices.SortStableFunc(docs, func(a, b Document) int {
		c := compareAttr(a, b, opts.OrderAttr)
		if opts.OrderDesc {
			return -c
		}
		return c
	})

	total := len(docs)
	if opts.Cursor != "" {
		idx := slices.IndexFunc(docs, func(d Document) bool { return d.ID == opts.Cursor })
		if idx < 0 {
			return nil, &Error{Code: 400, Type: "general_cursor_not_found", Message: fmt.Sprintf("cursor document %q not found", opts.Cursor)}
		}
		docs = docs[idx+1:]
	}

	limit := opts.Limit
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}

	return &DocumentList{Total: total, Documents: docs}, nil
}

// CreateDocument stores a new document
func (m *Memory) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, permissions []string) (*Document, error) {
	raw, err := EncodeData(data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if documentID == "" || documentID == UniqueID {
		documentID = uuid.New().String()
	}
	key := collectionKey(databaseID, collectionID)
	for _, d := range m.docs[key] {
		if d.ID == documentID {
			return nil, &Error{Code: 409, Type: "document_already_exists", Message: "document with the requested ID already exists"}
		}
	}

	now := m.now().UTC()
	doc := Document{
		ID:           documentID,
		CollectionID: collectionID,
		DatabaseID:   databaseID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Permissions:  slices.Clone(permissions),
		Data:         raw,
	}
	m.docs[key] = append(m.docs[key], doc)
	return &doc, nil
}

// UpdateDocument merges data into an existing document
func (m *Memory) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (*Document, error) {
	raw, err := EncodeData(data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.docs[collectionKey(databaseID, collectionID)]
	for i := range docs {
		if docs[i].ID != documentID {
			continue
		}
		merged, err := MergeData(docs[i].Data, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to merge document data: %w", err)
		}
		docs[i].Data = merged
		now := m.now().UTC()
		if now.Before(docs[i].CreatedAt) {
			now = docs[i].CreatedAt
		}
		docs[i].UpdatedAt = now
		doc := docs[i]
		return &doc, nil
	}
	return nil, ErrNotFound
}

// DeleteDocument removes a document
func (m *Memory) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := collectionKey(databaseID, collectionID)
	docs := m.docs[key]
	idx := slices.IndexFunc(docs, func(d Document) bool { return d.ID == documentID })
	if idx < 0 {
		return ErrNotFound
	}
	m.docs[key] = slices.Delete(docs, idx, idx+1)
	return nil
}

func matchesAll(doc Document, equals []Query) bool {
	for _, q := range equals {
		v := doc.Attr(q.Attribute)
		if !slices.ContainsFunc(q.Values, func(want any) bool {
			return fmt.Sprint(want) == fmt.Sprint(v)
		}) {
			return false
		}
	}
	return true
}

func compareAttr(a, b Document, attr string) int {
	switch attr {
	case AttrCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case AttrUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "$id":
		return cmp.Compare(a.ID, b.ID)
	}
	return cmp.Compare(fmt.Sprint(a.Attr(attr)), fmt.Sprint(b.Attr(attr)))
}
