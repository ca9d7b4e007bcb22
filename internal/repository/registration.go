package repository

import (
	"context"
	"errors"
	"fmt"

	"transport-register/internal/docstore"
	"transport-register/internal/models"
)

// ErrNotFound is returned when the requested record does not exist
var ErrNotFound = errors.New("not found")

// RegistrationRepository handles document store operations for registrations
type RegistrationRepository struct {
	store        docstore.Store
	databaseID   string
	collectionID string
	pageLimit    int
}

// NewRegistrationRepository creates a new registration repository
func NewRegistrationRepository(store docstore.Store, databaseID, collectionID string, pageLimit int) *RegistrationRepository {
	return &RegistrationRepository{
		store:        store,
		databaseID:   databaseID,
		collectionID: collectionID,
		pageLimit:    pageLimit,
	}
}

// toRegistration maps a document to a registration
func toRegistration(doc *docstore.Document) (models.Registration, error) {
	reg := models.Registration{
		ID:        doc.ID,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		SignedOut: doc.UpdatedAt.After(doc.CreatedAt),
	}
	if err := doc.Decode(&reg.RegistrationFields); err != nil {
		return models.Registration{}, err
	}
	return reg, nil
}

// ListAll retrieves every registration, walking cursor pages
func (r *RegistrationRepository) ListAll(ctx context.Context) ([]models.Registration, error) {
	docs, err := docstore.ListAll(ctx, r.store, r.databaseID, r.collectionID, r.pageLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	regs := make([]models.Registration, 0, len(docs))
	for i := range docs {
		reg, err := toRegistration(&docs[i])
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// Create creates a new registration with a store-assigned ID
func (r *RegistrationRepository) Create(ctx context.Context, fields models.RegistrationFields) (*models.Registration, error) {
	doc, err := r.store.CreateDocument(ctx, r.databaseID, r.collectionID, docstore.UniqueID, fields, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	reg, err := toRegistration(doc)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// SignOut records the sign-out head count on an existing registration
func (r *RegistrationRepository) SignOut(ctx context.Context, id string, fields models.SignOutFields) (*models.Registration, error) {
	doc, err := r.store.UpdateDocument(ctx, r.databaseID, r.collectionID, id, fields)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("registration %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to sign out registration: %w", err)
	}
	reg, err := toRegistration(doc)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Delete deletes a registration by ID
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteDocument(ctx, r.databaseID, r.collectionID, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("registration %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return nil
}
