package rentform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rent-estimator/internal/domain/market"
	"github.com/yanqian/rent-estimator/internal/domain/property"
	apperrors "github.com/yanqian/rent-estimator/pkg/errors"
)

func TestSubmitSuccessStoresResult(t *testing.T) {
	stub := &stubPredictor{prediction: successPrediction(85000)}
	form := newTestForm(Config{Currency: "AED"}, stub)

	snap, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.False(t, snap.Busy)
	require.NotNil(t, snap.PredictedPrice)
	require.Equal(t, 85000.0, *snap.PredictedPrice)
	require.Len(t, snap.MarketData, 1)
	require.True(t, snap.ShowChart())
	require.Nil(t, snap.Notice)
	require.Equal(t, property.DefaultFormState(), stub.lastState)
}

func TestSubmitRejectionNotifiesAndKeepsResultCleared(t *testing.T) {
	stub := &stubPredictor{prediction: successPrediction(85000)}
	form := newTestForm(Config{}, stub)
	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	stub.set(Prediction{}, apperrors.Wrap(CodeServiceRejection, "Invalid location", nil))
	snap, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.False(t, snap.Busy)
	require.NotNil(t, snap.Notice)
	require.Equal(t, NoticeRejection, snap.Notice.Kind)
	require.Contains(t, snap.Notice.Message, "Invalid location")
	require.Nil(t, snap.PredictedPrice)
	require.Empty(t, snap.MarketData)
}

func TestSubmitRejectionPreservesPreviousWhenConfigured(t *testing.T) {
	stub := &stubPredictor{prediction: successPrediction(85000)}
	form := newTestForm(Config{PreserveOnFailure: true}, stub)
	first, err := form.Submit(context.Background())
	require.NoError(t, err)

	stub.set(Prediction{}, apperrors.Wrap(CodeServiceRejection, "Invalid location", nil))
	snap, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.Contains(t, snap.Notice.Message, "Invalid location")
	require.Equal(t, first.PredictedPrice, snap.PredictedPrice)
	require.Equal(t, first.MarketData, snap.MarketData)
}

func TestSubmitTransportFailure(t *testing.T) {
	stub := &stubPredictor{err: apperrors.Wrap(CodeTransportFailure, "prediction request failed", errors.New("connection refused"))}
	form := newTestForm(Config{}, stub)

	snap, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.False(t, snap.Busy)
	require.Equal(t, &Notice{Kind: NoticeFailure, Message: GenericFailureMessage}, snap.Notice)
	require.False(t, snap.HasResult())

	again, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.False(t, again.Busy)
}

func TestSubmitBusyFlagGatesSecondSubmission(t *testing.T) {
	stub := newBlockingPredictor(successPrediction(85000))
	form := newTestForm(Config{}, stub)

	done := make(chan Snapshot, 1)
	go func() {
		snap, err := form.Submit(context.Background())
		require.NoError(t, err)
		done <- snap
	}()
	<-stub.started

	busy := form.Snapshot()
	require.True(t, busy.Busy)
	require.Nil(t, busy.PredictedPrice)

	_, err := form.Submit(context.Background())
	require.True(t, apperrors.IsCode(err, CodeInFlight))
	loc := "Business Bay"
	require.True(t, apperrors.IsCode(form.Apply(property.Edit{Location: &loc}), CodeInFlight))

	close(stub.release)
	snap := <-done
	require.False(t, snap.Busy)
	require.False(t, form.Snapshot().Busy)
	require.Equal(t, 1, stub.callCount())
}

func TestCloseAbortsInFlightRequest(t *testing.T) {
	stub := newBlockingPredictor(successPrediction(85000))
	form := newTestForm(Config{}, stub)

	errCh := make(chan error, 1)
	go func() {
		_, err := form.Submit(context.Background())
		errCh <- err
	}()
	<-stub.started

	form.Close()
	select {
	case err := <-errCh:
		require.True(t, apperrors.IsCode(err, CodeViewNotFound))
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not observe close")
	}
	require.True(t, errors.Is(stub.ctxErr(), context.Canceled))
	require.Nil(t, form.Snapshot().PredictedPrice)
}

func TestSubmitCancelledByCaller(t *testing.T) {
	stub := newBlockingPredictor(successPrediction(85000))
	form := newTestForm(Config{}, stub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Snapshot, 1)
	go func() {
		snap, _ := form.Submit(ctx)
		done <- snap
	}()
	<-stub.started
	cancel()

	snap := <-done
	require.False(t, snap.Busy)
	require.Equal(t, NoticeFailure, snap.Notice.Kind)
}

func TestPresentConsumesNoticeOnce(t *testing.T) {
	stub := &stubPredictor{err: errors.New("boom")}
	form := newTestForm(Config{}, stub)
	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	first := form.Present()
	require.NotNil(t, first.Notice)
	require.Equal(t, GenericFailureMessage, first.Notice.Message)
	require.Nil(t, form.Present().Notice)
	require.Nil(t, form.Snapshot().Notice)
}

func TestDismissNoticeKeepsNewerNotice(t *testing.T) {
	stub := &stubPredictor{err: errors.New("boom")}
	form := newTestForm(Config{}, stub)
	first, err := form.Submit(context.Background())
	require.NoError(t, err)

	stub.set(Prediction{}, apperrors.Wrap(CodeServiceRejection, "Invalid location", nil))
	_, err = form.Submit(context.Background())
	require.NoError(t, err)

	require.False(t, form.DismissNotice(first.Version))
	pending := form.Snapshot().Notice
	require.NotNil(t, pending)
	require.Equal(t, "Error: Invalid location", pending.Message)

	require.True(t, form.DismissNotice(form.Snapshot().Version))
	require.Nil(t, form.Snapshot().Notice)
}

func TestApplyUpdatesDraft(t *testing.T) {
	form := newTestForm(Config{}, &stubPredictor{})
	beds := 0
	require.NoError(t, form.Apply(property.Edit{Bedrooms: &beds}))
	snap := form.Snapshot()
	require.Equal(t, 0, snap.State.Bedrooms)
	require.Equal(t, "Studio", property.BedroomLabel(snap.State.Bedrooms))
}

func TestPublishSeesOrderedVersions(t *testing.T) {
	var (
		mu       sync.Mutex
		versions []uint64
	)
	publish := func(s Snapshot) {
		mu.Lock()
		versions = append(versions, s.Version)
		mu.Unlock()
	}
	form := newForm("view", Config{}, &stubPredictor{prediction: successPrediction(1)}, discardLogger(), time.Now, publish)
	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, versions)
}

func TestPublishKeepsCommitOrderUnderContention(t *testing.T) {
	var (
		mu       sync.Mutex
		versions []uint64
	)
	release := make(chan struct{})
	publish := func(s Snapshot) {
		if s.Version == 1 {
			<-release
		}
		mu.Lock()
		versions = append(versions, s.Version)
		mu.Unlock()
	}
	form := newForm("view", Config{}, &stubPredictor{}, discardLogger(), time.Now, publish)

	beds, baths := 2, 3.0
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		require.NoError(t, form.Apply(property.Edit{Bedrooms: &beds}))
	}()
	require.Eventually(t, func() bool { return form.Snapshot().Version == 1 }, time.Second, time.Millisecond)
	go func() {
		defer wg.Done()
		require.NoError(t, form.Apply(property.Edit{Bathrooms: &baths}))
	}()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	require.Empty(t, versions)
	mu.Unlock()

	close(release)
	wg.Wait()
	require.Equal(t, []uint64{1, 2}, versions)
}

func newTestForm(cfg Config, p Predictor) *Form {
	return newForm("view-1", cfg, p, discardLogger(), time.Now, nil)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func successPrediction(price float64) Prediction {
	return Prediction{
		PredictedPrice: &price,
		Currency:       "AED",
		MarketData: []market.Bucket{
			{RangeStart: 80000, RangeEnd: 90000, Count: 12, Label: "80-90K"},
		},
	}
}

type stubPredictor struct {
	mu         sync.Mutex
	prediction Prediction
	err        error
	lastState  property.FormState
}

func (s *stubPredictor) set(p Prediction, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prediction = p
	s.err = err
}

func (s *stubPredictor) Predict(_ context.Context, state property.FormState) (Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastState = state
	if s.err != nil {
		return Prediction{}, s.err
	}
	return s.prediction, nil
}

type blockingPredictor struct {
	prediction Prediction
	started    chan struct{}
	release    chan struct{}

	mu    sync.Mutex
	calls int
	err   error
}

func newBlockingPredictor(p Prediction) *blockingPredictor {
	return &blockingPredictor{
		prediction: p,
		started:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
}

func (b *blockingPredictor) Predict(ctx context.Context, _ property.FormState) (Prediction, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	select {
	case <-b.release:
		return b.prediction, nil
	case <-ctx.Done():
		b.mu.Lock()
		b.err = ctx.Err()
		b.mu.Unlock()
		return Prediction{}, apperrors.Wrap(CodeTransportFailure, "prediction request failed", ctx.Err())
	}
}

func (b *blockingPredictor) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *blockingPredictor) ctxErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
