package rentform

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/rent-estimator/internal/domain/property"
	apperrors "github.com/yanqian/rent-estimator/pkg/errors"
	"github.com/yanqian/rent-estimator/pkg/util"
)

// Service exposes the estimator views to transports.
type Service interface {
	Mount(ctx context.Context) (Snapshot, error)
	View(ctx context.Context, id string) (Snapshot, error)
	Estimate(ctx context.Context, id string, edit property.Edit) (Snapshot, error)
	Close(ctx context.Context, id string) error
	Sweep(ctx context.Context) int
	Shutdown()
}

// SnapshotStore persists view snapshots so a restarted process can rebuild the
// views it was serving. Live views are authoritative: the store is read only
// for ids the registry does not hold, so it must not be shared between
// processes serving traffic at the same time.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot, ttl time.Duration) error
	Load(ctx context.Context, id string) (Snapshot, bool, error)
	Delete(ctx context.Context, id string) error
}

const storeTimeout = 2 * time.Second

type service struct {
	cfg       Config
	predictor Predictor
	store     SnapshotStore
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	mu    sync.Mutex
	views map[string]*Form
}

// NewService wires up the view registry.
func NewService(cfg Config, predictor Predictor, store SnapshotStore, logger *slog.Logger) Service {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &service{
		cfg:       cfg,
		predictor: predictor,
		store:     store,
		logger:    logger.With("component", "rentform.service"),
		now:       util.NowUTC,
		newID:     uuid.NewString,
		views:     make(map[string]*Form),
	}
}

// Mount creates a view with default attributes.
func (s *service) Mount(ctx context.Context) (Snapshot, error) {
	form := s.build(s.newID())
	s.mu.Lock()
	s.views[form.ID()] = form
	s.mu.Unlock()

	snap := form.Snapshot()
	s.save(snap)
	s.logger.Debug("view mounted", "view_id", snap.ID)
	return snap, nil
}

// View returns the current snapshot and consumes its pending notice.
func (s *service) View(ctx context.Context, id string) (Snapshot, error) {
	form, err := s.lookup(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return form.Present(), nil
}

// Estimate applies the edit and submits the view. On invalid input the
// current snapshot is still returned alongside the error.
func (s *service) Estimate(ctx context.Context, id string, edit property.Edit) (Snapshot, error) {
	form, err := s.lookup(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	if !edit.IsZero() {
		if err := form.Apply(edit); err != nil {
			return form.Snapshot(), err
		}
	}
	snap, err := form.Submit(ctx)
	if err != nil {
		if apperrors.IsCode(err, CodeInFlight) {
			return form.Snapshot(), err
		}
		return Snapshot{}, err
	}
	form.DismissNotice(snap.Version)
	return snap, nil
}

// Close tears a view down. Unknown ids are ignored.
func (s *service) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	form, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if ok {
		form.Close()
	}
	s.delete(ctx, id)
	return nil
}

// Sweep closes views idle for longer than the configured TTL.
func (s *service) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.IdleTTL)
	var expired []*Form
	s.mu.Lock()
	for id, form := range s.views {
		if form.IdleSince().Before(cutoff) {
			expired = append(expired, form)
			delete(s.views, id)
		}
	}
	s.mu.Unlock()

	for _, form := range expired {
		form.Close()
		s.delete(ctx, form.ID())
	}
	if len(expired) > 0 {
		s.logger.Info("idle views swept", "count", len(expired))
	}
	return len(expired)
}

// Shutdown closes every live view. Stored snapshots are kept.
func (s *service) Shutdown() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*Form)
	s.mu.Unlock()
	for _, form := range views {
		form.Close()
	}
}

func (s *service) lookup(ctx context.Context, id string) (*Form, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.Wrap(CodeViewNotFound, "view not found", nil)
	}
	s.mu.Lock()
	form, ok := s.views[id]
	s.mu.Unlock()
	if ok {
		return form, nil
	}

	if s.store == nil {
		return nil, apperrors.Wrap(CodeViewNotFound, "view not found", nil)
	}
	loadCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	snap, found, err := s.store.Load(loadCtx, id)
	if err != nil {
		s.logger.Error("load view snapshot failed", "view_id", id, "error", err)
		return nil, apperrors.Wrap(CodeViewNotFound, "view not found", err)
	}
	if !found {
		return nil, apperrors.Wrap(CodeViewNotFound, "view not found", nil)
	}

	restored := s.build(id)
	restored.restore(snap)
	s.mu.Lock()
	if existing, ok := s.views[id]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.views[id] = restored
	s.mu.Unlock()
	s.logger.Info("view restored from snapshot", "view_id", id, "version", snap.Version)
	return restored, nil
}

func (s *service) build(id string) *Form {
	return newForm(id, s.cfg, s.predictor, s.logger, s.now, s.save)
}

func (s *service) save(snap Snapshot) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.store.Save(ctx, snap, s.cfg.IdleTTL); err != nil {
		s.logger.Warn("save view snapshot failed", "view_id", snap.ID, "error", err)
	}
}

func (s *service) delete(ctx context.Context, id string) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warn("delete view snapshot failed", "view_id", id, "error", err)
	}
}
