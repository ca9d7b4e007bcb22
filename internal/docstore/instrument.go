package docstore

import (
	"context"
	"errors"
	"time"

	"transport-register/internal/metrics"
)

type instrumented struct {
	next    Store
	metrics *metrics.Metrics
}

// Instrument wraps a Store so every call is counted and timed
func Instrument(next Store, m *metrics.Metrics) Store {
	if m == nil {
		return next
	}
	return &instrumented{next: next, metrics: m}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	s.metrics.StoreCalls.WithLabelValues(op, outcome).Inc()
	s.metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *instrumented) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...Query) (list *DocumentList, err error) {
	defer func(start time.Time) { s.observe("list", start, err) }(time.Now())
	return s.next.ListDocuments(ctx, databaseID, collectionID, queries...)
}

func (s *instrumented) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, permissions []string) (doc *Document, err error) {
	defer func(start time.Time) { s.observe("create", start, err) }(time.Now())
	return s.next.CreateDocument(ctx, databaseID, collectionID, documentID, data, permissions)
}

func (s *instrumented) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (doc *Document, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())
	return s.next.UpdateDocument(ctx, databaseID, collectionID, documentID, data)
}

func (s *instrumented) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.DeleteDocument(ctx, databaseID, collectionID, documentID)
}
