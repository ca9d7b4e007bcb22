package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"transport-register/internal/cache"
	"transport-register/internal/docstore"
	"transport-register/internal/export"
	"transport-register/internal/listing"
	"transport-register/internal/metrics"
	"transport-register/internal/models"
	"transport-register/internal/notify"
	"transport-register/internal/repository"
	"transport-register/internal/validation"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned when a record does not exist in the store
var ErrNotFound = repository.ErrNotFound

// ErrExportDisabled is returned when no export sink is configured
var ErrExportDisabled = errors.New("export sink is not configured")

const (
	notifyTimeout = 30 * time.Second
	fetchTimeout  = time.Minute
)

// MaxPageSize is the largest page the list view serves
const MaxPageSize = docstore.MaxLimit

// RegistrationRepo is the storage used by RegistrationService
type RegistrationRepo interface {
	ListAll(ctx context.Context) ([]models.Registration, error)
	Create(ctx context.Context, fields models.RegistrationFields) (*models.Registration, error)
	SignOut(ctx context.Context, id string, fields models.SignOutFields) (*models.Registration, error)
	Delete(ctx context.Context, id string) error
}

// RegistrationOptions configures RegistrationService
type RegistrationOptions struct {
	PageSize     int
	RecentWindow time.Duration
	Cache        cache.ListCache
	Notifier     notify.Notifier
	Exporter     export.Exporter
	Broadcaster  Broadcaster
	Metrics      *metrics.Metrics
}

// RegistrationService handles registration list and form logic
type RegistrationService struct {
	repo         RegistrationRepo
	pageSize     int
	recentWindow time.Duration
	cache        cache.ListCache
	notifier     notify.Notifier
	exporter     export.Exporter
	broadcaster  Broadcaster
	metrics      *metrics.Metrics
	fetches      singleflight.Group
	cacheMu      sync.Mutex
	generation   uint64 // bumped by every write, guarded by cacheMu
	notifies     chan struct{}
	now          func() time.Time
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(repo RegistrationRepo, opts RegistrationOptions) *RegistrationService {
	if opts.PageSize <= 0 {
		opts.PageSize = 5
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 24 * time.Hour
	}
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	return &RegistrationService{
		repo:         repo,
		pageSize:     opts.PageSize,
		recentWindow: opts.RecentWindow,
		cache:        opts.Cache,
		notifier:     opts.Notifier,
		exporter:     opts.Exporter,
		broadcaster:  opts.Broadcaster,
		metrics:      opts.Metrics,
		notifies:     make(chan struct{}, 16),
		now:          time.Now,
	}
}

// ListOptions selects the page shown by the list view
type ListOptions struct {
	Page       int
	PageSize   int
	RecentOnly bool
}

// List returns one page of registrations, newest first
func (s *RegistrationService) List(ctx context.Context, opts ListOptions) (models.Page[models.Registration], error) {
	regs, err := s.all(ctx)
	if err != nil {
		return models.Page[models.Registration]{}, err
	}

	if opts.RecentOnly {
		regs = listing.FilterSince(regs, s.now().Add(-s.recentWindow))
	}

	size := opts.PageSize
	if size <= 0 {
		size = s.pageSize
	}
	size = min(size, MaxPageSize)
	return listing.Paginate(regs, opts.Page, size), nil
}

// All returns every registration, newest first
func (s *RegistrationService) All(ctx context.Context) ([]models.Registration, error) {
	return s.all(ctx)
}

// all fetches the sorted list, from cache when possible. Concurrent
// callers share a single walk of the remote store. The walk is detached
// from any one caller, so a caller that goes away only stops waiting.
func (s *RegistrationService) all(ctx context.Context) ([]models.Registration, error) {
	regs, ok, err := s.cache.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Registration cache read failed")
	}
	if ok {
		s.countCache("hit")
		return regs, nil
	}
	s.countCache("miss")

	ch := s.fetches.DoChan("registrations", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		s.cacheMu.Lock()
		generation := s.generation
		s.cacheMu.Unlock()

		regs, err := s.repo.ListAll(fetchCtx)
		if err != nil {
			return nil, err
		}
		listing.SortNewestFirst(regs)

		s.storeSnapshot(fetchCtx, generation, regs)
		return regs, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	// Callers sharing a fetch must not see each other's filtering
	shared := res.Val.([]models.Registration)
	out := make([]models.Registration, len(shared))
	copy(out, shared)
	return out, nil
}

// storeSnapshot caches a fetched list unless a write happened since the
// fetch began.
func (s *RegistrationService) storeSnapshot(ctx context.Context, generation uint64, regs []models.Registration) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.generation != generation {
		log.Debug().Msg("Registrations changed during fetch, snapshot not cached")
		return
	}
	if err := s.cache.Set(ctx, regs); err != nil {
		log.Warn().Err(err).Msg("Registration cache write failed")
	}
}

// Submit validates and stores a registration form
func (s *RegistrationService) Submit(ctx context.Context, fields models.RegistrationFields) (*models.Registration, error) {
	fields = validation.Normalize(fields)
	if err := validation.Registration(fields); err != nil {
		s.countRejected("registration")
		return nil, err
	}

	reg, err := s.repo.Create(ctx, fields)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RegistrationsCreated.Inc()
	}
	s.invalidate(ctx)
	s.broadcast(EventRegistrationCreated, reg.ID, reg)
	s.notify(*reg)

	return reg, nil
}

// SignOut records the return-trip head count for a registration
func (s *RegistrationService) SignOut(ctx context.Context, id string, fields models.SignOutFields) (*models.Registration, error) {
	if err := validation.SignOut(fields); err != nil {
		s.countRejected("sign_out")
		return nil, err
	}

	reg, err := s.repo.SignOut(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.broadcast(EventRegistrationSignedOut, reg.ID, reg)
	return reg, nil
}

// Delete removes a registration
func (s *RegistrationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.broadcast(EventRegistrationDeleted, id, nil)
	return nil
}

// Export writes the full register to the configured sink
func (s *RegistrationService) Export(ctx context.Context) (*export.Result, error) {
	if s.exporter == nil {
		return nil, ErrExportDisabled
	}
	regs, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.exporter.Export(ctx, regs)
	if err != nil {
		return nil, fmt.Errorf("failed to export registrations: %w", err)
	}
	return res, nil
}

// WaitNotifications blocks until in-flight coordinator notices finish
func (s *RegistrationService) WaitNotifications() {
	for i := 0; i < cap(s.notifies); i++ {
		s.notifies <- struct{}{}
	}
	for i := 0; i < cap(s.notifies); i++ {
		<-s.notifies
	}
}

func (s *RegistrationService) notify(reg models.Registration) {
	if s.notifier == nil {
		return
	}
	select {
	case s.notifies <- struct{}{}:
	default:
		log.Warn().Str("registration_id", reg.ID).Msg("Too many pending notifications, dropping notice")
		return
	}

	go func() {
		defer func() { <-s.notifies }()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyRegistration(ctx, reg); err != nil {
			log.Error().
				Err(err).
				Str("registration_id", reg.ID).
				Str("notifier", s.notifier.Name()).
				Msg("Failed to notify coordinators")
		}
	}()
}

func (s *RegistrationService) invalidate(ctx context.Context) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.generation++
	// Later readers must not join a walk that started before this write
	s.fetches.Forget("registrations")
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Registration cache invalidation failed")
	}
}

func (s *RegistrationService) broadcast(eventType, id string, data any) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(WSMessage{Type: eventType, ID: id, Data: data})
}

func (s *RegistrationService) countCache(result string) {
	if s.metrics != nil {
		s.metrics.ListCacheLookups.WithLabelValues(result).Inc()
	}
}

func (s *RegistrationService) countRejected(form string) {
	if s.metrics != nil {
		s.metrics.FormsRejected.WithLabelValues(form).Inc()
	}
}
