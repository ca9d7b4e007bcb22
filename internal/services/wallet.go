package services

import (
	"context"
	"errors"
	"time"

	"transport-register/internal/listing"
	"transport-register/internal/metrics"
	"transport-register/internal/models"
	"transport-register/internal/validation"

	"github.com/rs/zerolog/log"
)

const deleteTimeout = 30 * time.Second

// WalletRepo is the storage used by WalletService
type WalletRepo interface {
	Create(ctx context.Context, fields models.WalletFields) (*models.WalletAddress, error)
	ListAll(ctx context.Context) ([]models.WalletAddress, error)
	Delete(ctx context.Context, id string) error
}

// WalletService stores wallet addresses and deletes each one after a fixed delay
type WalletService struct {
	repo        WalletRepo
	scheduler   *DeleteScheduler
	deleteAfter time.Duration
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewWalletService creates a new wallet service
func NewWalletService(repo WalletRepo, scheduler *DeleteScheduler, deleteAfter time.Duration, broadcaster Broadcaster, m *metrics.Metrics) *WalletService {
	if deleteAfter <= 0 {
		deleteAfter = 3 * time.Minute
	}
	return &WalletService{
		repo:        repo,
		scheduler:   scheduler,
		deleteAfter: deleteAfter,
		broadcaster: broadcaster,
		metrics:     m,
		now:         time.Now,
	}
}

// Submit validates and stores a wallet address, then arms its deletion
func (s *WalletService) Submit(ctx context.Context, fields models.WalletFields) (*models.WalletAddress, error) {
	if err := validation.WalletAddress(fields.WalletAddress); err != nil {
		if s.metrics != nil {
			s.metrics.FormsRejected.WithLabelValues("wallet").Inc()
		}
		return nil, err
	}

	w, err := s.repo.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	w.ExpiresAt = w.CreatedAt.Add(s.deleteAfter)

	s.scheduleDelete(w.ID, s.deleteAfter)
	s.broadcast(EventWalletCreated, w.ID, w)

	log.Info().
		Str("wallet_id", w.ID).
		Time("expires_at", w.ExpiresAt).
		Msg("Wallet address stored")

	return w, nil
}

// List returns every stored wallet address, newest first
func (s *WalletService) List(ctx context.Context) ([]models.WalletAddress, error) {
	wallets, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range wallets {
		wallets[i].ExpiresAt = wallets[i].CreatedAt.Add(s.deleteAfter)
	}
	listing.SortNewestFirst(wallets)
	return wallets, nil
}

// Delete removes a wallet address ahead of its timer
func (s *WalletService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		// The timer stays armed so the wallet is still removed later
		return err
	}
	s.scheduler.Cancel(id)
	if err != nil {
		return err
	}
	s.broadcast(EventWalletDeleted, id, nil)
	return nil
}

// SweepExpired deletes addresses whose lifetime already ended and re-arms
// timers for the rest. Timers do not survive a restart, so this runs at
// startup.
func (s *WalletService) SweepExpired(ctx context.Context) (int, error) {
	wallets, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	deleted := 0
	for _, w := range wallets {
		remaining := w.CreatedAt.Add(s.deleteAfter).Sub(now)
		if remaining > 0 {
			s.scheduleDelete(w.ID, remaining)
			continue
		}
		if err := s.expire(ctx, w.ID); err != nil {
			return deleted, err
		}
		deleted++
	}

	log.Info().
		Int("deleted", deleted).
		Int("rearmed", len(wallets)-deleted).
		Msg("Wallet sweep finished")

	return deleted, nil
}

func (s *WalletService) scheduleDelete(id string, delay time.Duration) {
	armed := s.scheduler.Schedule(id, delay, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
		defer cancel()

		if err := s.expire(ctx, id); err != nil {
			log.Error().Err(err).Str("wallet_id", id).Msg("Failed to delete expired wallet address")
		}
	})
	if !armed {
		log.Warn().Str("wallet_id", id).Msg("Scheduler closed, wallet address will be swept on next start")
	}
}

// expire deletes one address whose time is up. An address someone already
// removed counts as done.
func (s *WalletService) expire(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if s.metrics != nil {
		s.metrics.WalletsExpired.Inc()
	}
	s.broadcast(EventWalletDeleted, id, nil)
	log.Info().Str("wallet_id", id).Msg("Wallet address expired")
	return nil
}

func (s *WalletService) broadcast(eventType, id string, data any) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(WSMessage{Type: eventType, ID: id, Data: data})
}
