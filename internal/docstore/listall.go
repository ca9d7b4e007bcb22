package docstore

import (
	"context"
	"fmt"
)

// ListAll pulls every document of a collection by walking cursor pages of
// pageSize until the store returns a short page. Calls are issued one at a
// time. Documents seen on an earlier page are skipped, and the walk stops if
// a page fails to move the cursor forward.
func ListAll(ctx context.Context, store Store, databaseID, collectionID string, pageSize int, queries ...Query) ([]Document, error) {
	if pageSize <= 0 || pageSize > MaxLimit {
		pageSize = MaxLimit
	}

	var (
		all    []Document
		seen   = make(map[string]struct{})
		cursor string
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageQueries := append([]Query{}, queries...)
		pageQueries = append(pageQueries, Limit(pageSize))
		if cursor != "" {
			pageQueries = append(pageQueries, CursorAfter(cursor))
		}

		page, err := store.ListDocuments(ctx, databaseID, collectionID, pageQueries...)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents after %q: %w", cursor, err)
		}

		for _, doc := range page.Documents {
			if _, dup := seen[doc.ID]; dup {
				continue
			}
			seen[doc.ID] = struct{}{}
			all = append(all, doc)
		}

		if len(page.Documents) < pageSize {
			return all, nil
		}

		next := page.Documents[len(page.Documents)-1].ID
		if next == cursor {
			return all, nil
		}
		cursor = next
	}
}
