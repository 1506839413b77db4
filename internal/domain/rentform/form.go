package rentform

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yanqian/rent-estimator/internal/domain/market"
	"github.com/yanqian/rent-estimator/internal/domain/property"
	apperrors "github.com/yanqian/rent-estimator/pkg/errors"
)

// Predictor requests an estimate for a set of property attributes.
type Predictor interface {
	Predict(ctx context.Context, state property.FormState) (Prediction, error)
}

// Form is one mounted estimator view. It holds the draft attributes, the
// last result and the in-flight flag that gates submissions.
type Form struct {
	id        string
	cfg       Config
	predictor Predictor
	logger    *slog.Logger
	now       func() time.Time
	publish   func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc

	// pubMu is taken before mu is released so publishes keep commit order.
	pubMu sync.Mutex

	mu         sync.Mutex
	version    uint64
	state      property.FormState
	price      *float64
	currency   string
	market     []market.Bucket
	busy       bool
	notice     *Notice
	lastActive time.Time
	closed     bool
}

func newForm(id string, cfg Config, predictor Predictor, logger *slog.Logger, now func() time.Time, publish func(Snapshot)) *Form {
	ctx, cancel := context.WithCancel(context.Background())
	if publish == nil {
		publish = func(Snapshot) {}
	}
	return &Form{
		id:         id,
		cfg:        cfg,
		predictor:  predictor,
		logger:     logger.With("view_id", id),
		now:        now,
		publish:    publish,
		ctx:        ctx,
		cancel:     cancel,
		state:      property.DefaultFormState(),
		currency:   cfg.Currency,
		lastActive: now(),
	}
}

// restore seeds a freshly built form from a stored snapshot. The in-flight
// flag is not restored because the call it tracked belonged to another process.
func (f *Form) restore(snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version = snap.Version
	f.state = snap.State
	f.price = copyPrice(snap.PredictedPrice)
	if snap.Currency != "" {
		f.currency = snap.Currency
	}
	f.market = market.Clone(snap.MarketData)
	f.notice = snap.Notice
}

// ID returns the view identifier.
func (f *Form) ID() string {
	return f.id
}

// Snapshot returns a copy of the current state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Apply merges user edits into the draft attributes.
func (f *Form) Apply(edit property.Edit) error {
	f.mu.Lock()
	if err := f.usableLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	next, err := f.state.Apply(edit)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	f.state = next
	f.releaseAndPublish(f.commitLocked())
	return nil
}

// Submit sends the current attributes to the predictor. Only one submission
// may be outstanding; a concurrent call fails with submission_in_flight.
// Service rejections and transport failures do not return an error, they
// leave a Notice on the returned snapshot.
func (f *Form) Submit(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	if err := f.usableLocked(); err != nil {
		f.mu.Unlock()
		return Snapshot{}, err
	}
	prevPrice, prevMarket := f.price, f.market
	f.busy = true
	f.price = nil
	f.market = nil
	f.notice = nil
	input := f.state
	f.releaseAndPublish(f.commitLocked())

	callCtx, cancel := context.WithCancel(f.ctx)
	stop := context.AfterFunc(ctx, cancel)
	prediction, err := f.predictor.Predict(callCtx, input)
	stop()
	cancel()

	f.mu.Lock()
	if f.closed {
		f.busy = false
		f.mu.Unlock()
		f.logger.Info("view closed during submission, dropping result")
		return Snapshot{}, apperrors.Wrap(CodeViewNotFound, "view is closed", nil)
	}
	switch {
	case err == nil:
		f.price = copyPrice(prediction.PredictedPrice)
		if prediction.Currency != "" {
			f.currency = prediction.Currency
		}
		if prediction.MarketData != nil {
			f.market = market.Clone(prediction.MarketData)
		}
	case apperrors.IsCode(err, CodeServiceRejection):
		f.logger.Warn("prediction rejected", "error", err)
		f.notice = &Notice{Kind: NoticeRejection, Message: "Error: " + apperrors.MessageOf(err)}
	default:
		f.logger.Error("prediction failed", "error", err)
		f.notice = &Notice{Kind: NoticeFailure, Message: GenericFailureMessage}
	}
	if err != nil && f.cfg.PreserveOnFailure {
		f.price, f.market = prevPrice, prevMarket
	}
	f.busy = false
	snap := f.commitLocked()
	f.releaseAndPublish(snap)
	return snap, nil
}

// Present returns the current snapshot and consumes its pending notice in the
// same step, so a notice reaches exactly one rendering.
func (f *Form) Present() Snapshot {
	f.mu.Lock()
	snap := f.snapshotLocked()
	if f.notice == nil {
		f.mu.Unlock()
		return snap
	}
	f.notice = nil
	f.releaseAndPublish(f.commitLocked())
	return snap
}

// DismissNotice clears the pending notice if the form is still at version.
// A notice written by a later commit is kept for the next Present.
func (f *Form) DismissNotice(version uint64) bool {
	f.mu.Lock()
	if f.notice == nil || f.version != version {
		f.mu.Unlock()
		return false
	}
	f.notice = nil
	f.releaseAndPublish(f.commitLocked())
	return true
}

// Close tears the view down and aborts any in-flight request.
func (f *Form) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()
	f.cancel()
}

// Closed reports whether Close has been called.
func (f *Form) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// IdleSince returns the time of the last mutation or submission.
func (f *Form) IdleSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActive
}

func (f *Form) usableLocked() error {
	if f.closed {
		return apperrors.Wrap(CodeViewNotFound, "view is closed", nil)
	}
	if f.busy {
		return apperrors.Wrap(CodeInFlight, "a submission is already in progress", nil)
	}
	return nil
}

// releaseAndPublish must be called with mu held; it returns with mu released.
func (f *Form) releaseAndPublish(snap Snapshot) {
	f.pubMu.Lock()
	f.mu.Unlock()
	defer f.pubMu.Unlock()
	f.publish(snap)
}

func (f *Form) commitLocked() Snapshot {
	f.version++
	f.lastActive = f.now()
	return f.snapshotLocked()
}

func (f *Form) snapshotLocked() Snapshot {
	var notice *Notice
	if f.notice != nil {
		n := *f.notice
		notice = &n
	}
	return Snapshot{
		ID:             f.id,
		Version:        f.version,
		State:          f.state,
		PredictedPrice: copyPrice(f.price),
		Currency:       f.currency,
		MarketData:     market.Clone(f.market),
		Busy:           f.busy,
		Notice:         notice,
		UpdatedAt:      f.lastActive,
	}
}

func copyPrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
