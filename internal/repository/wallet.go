package repository

import (
	"context"
	"errors"
	"fmt"

	"transport-register/internal/docstore"
	"transport-register/internal/models"
)

// WalletRepository handles document store operations for wallet addresses
type WalletRepository struct {
	store        docstore.Store
	databaseID   string
	collectionID string
	pageLimit    int
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(store docstore.Store, databaseID, collectionID string, pageLimit int) *WalletRepository {
	return &WalletRepository{
		store:        store,
		databaseID:   databaseID,
		collectionID: collectionID,
		pageLimit:    pageLimit,
	}
}

func toWallet(doc *docstore.Document) (models.WalletAddress, error) {
	w := models.WalletAddress{ID: doc.ID, CreatedAt: doc.CreatedAt}
	if err := doc.Decode(&w.WalletFields); err != nil {
		return models.WalletAddress{}, err
	}
	return w, nil
}

// Create stores a wallet address
func (r *WalletRepository) Create(ctx context.Context, fields models.WalletFields) (*models.WalletAddress, error) {
	doc, err := r.store.CreateDocument(ctx, r.databaseID, r.collectionID, docstore.UniqueID, fields, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet address: %w", err)
	}
	w, err := toWallet(doc)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListAll retrieves every stored wallet address
func (r *WalletRepository) ListAll(ctx context.Context) ([]models.WalletAddress, error) {
	docs, err := docstore.ListAll(ctx, r.store, r.databaseID, r.collectionID, r.pageLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet addresses: %w", err)
	}

	wallets := make([]models.WalletAddress, 0, len(docs))
	for i := range docs {
		w, err := toWallet(&docs[i])
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

// Delete deletes a wallet address by ID
func (r *WalletRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteDocument(ctx, r.databaseID, r.collectionID, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("wallet address %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to delete wallet address: %w", err)
	}
	return nil
}
