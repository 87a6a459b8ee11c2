package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixora/analytics/internal/domain"
	"github.com/fixora/analytics/internal/infra/logger"
	"github.com/fixora/analytics/internal/infra/sequence"
	"github.com/fixora/analytics/internal/ports"
)

// gatedBuilder holds each build until its window is released or its
// context is cancelled
type gatedBuilder struct {
	inner   DashboardBuilder
	started chan string

	mu    sync.Mutex
	gates map[string]chan struct{}
	calls int
}

func newGatedBuilder() *gatedBuilder {
	return &gatedBuilder{
		inner:   NewDashboardUseCase(syntheticProvider(), 85, logger.NewNopLogger(), nil),
		started: make(chan string, 8),
		gates:   make(map[string]chan struct{}),
	}
}

func (b *gatedBuilder) gate(spec string) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.gates[spec]
	if !ok {
		g = make(chan struct{})
		b.gates[spec] = g
	}
	return g
}

func (b *gatedBuilder) release(spec string) {
	close(b.gate(spec))
}

func (b *gatedBuilder) Build(ctx context.Context, spec domain.WindowSpec) (*domain.Dashboard, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	b.started <- spec.String()
	select {
	case <-b.gate(spec.String()):
		return b.inner.Build(ctx, spec)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *gatedBuilder) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// scriptedSequencer hands out a fixed list of sequence numbers
type scriptedSequencer struct {
	mu     sync.Mutex
	values []uint64
	err    error
}

func (s *scriptedSequencer) Next(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v, nil
}

type refreshResult struct {
	dashboard *domain.Dashboard
	err       error
}

func waitStarted(t *testing.T, b *gatedBuilder, want string) {
	t.Helper()
	select {
	case got := <-b.started:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("build for %s never started", want)
	}
}

func newCoordinator(b DashboardBuilder, seq ports.RefreshSequencer) *RefreshCoordinator {
	return NewRefreshCoordinator(b, seq, nil, nil, domain.DefaultWindowSpec(), logger.NewNopLogger(), nil)
}

func TestRefreshCoordinator_NewerRefreshSupersedes(t *testing.T) {
	builder := newGatedBuilder()
	c := newCoordinator(builder, sequence.NewMemorySequencer())
	ctx := context.Background()

	first := make(chan refreshResult, 1)
	go func() {
		d, err := c.Refresh(ctx, domain.WindowSpec{Range: domain.Range12M})
		first <- refreshResult{d, err}
	}()
	waitStarted(t, builder, "12m")

	second := make(chan refreshResult, 1)
	go func() {
		d, err := c.Refresh(ctx, domain.WindowSpec{Range: domain.Range3M})
		second <- refreshResult{d, err}
	}()
	waitStarted(t, builder, "3m")

	r1 := <-first
	assert.ErrorIs(t, r1.err, ErrStaleRefresh)
	assert.Nil(t, r1.dashboard)

	builder.release("3m")
	r2 := <-second
	require.NoError(t, r2.err)
	assert.Equal(t, uint64(2), r2.dashboard.Sequence)
	assert.Equal(t, "3m", r2.dashboard.Range)
	assert.Equal(t, uint64(2), c.AppliedSequence())

	current, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3m", current.Range)
}

func TestRefreshCoordinator_LateSequenceIsDiscarded(t *testing.T) {
	builder := newGatedBuilder()
	c := newCoordinator(builder, &scriptedSequencer{values: []uint64{5, 3}})
	ctx := context.Background()

	first := make(chan refreshResult, 1)
	go func() {
		d, err := c.Refresh(ctx, domain.DefaultWindowSpec())
		first <- refreshResult{d, err}
	}()
	waitStarted(t, builder, "12m")

	d, err := c.Refresh(ctx, domain.WindowSpec{Range: domain.Range3M})
	assert.ErrorIs(t, err, ErrStaleRefresh)
	assert.Nil(t, d)

	builder.release("12m")
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, uint64(5), r.dashboard.Sequence)
	assert.Equal(t, 1, builder.callCount())
	assert.Equal(t, uint64(5), c.AppliedSequence())
}

// failingBuilder fails its first builds, then delegates
type failingBuilder struct {
	inner    DashboardBuilder
	failures int
}

func (b *failingBuilder) Build(ctx context.Context, spec domain.WindowSpec) (*domain.Dashboard, error) {
	if b.failures > 0 {
		b.failures--
		return nil, domain.DataUnavailable(errors.New("db down"))
	}
	return b.inner.Build(ctx, spec)
}

func TestRefreshCoordinator_SequencerResetRebases(t *testing.T) {
	builder := &failingBuilder{
		inner:    NewDashboardUseCase(syntheticProvider(), 85, logger.NewNopLogger(), nil),
		failures: 1,
	}
	c := newCoordinator(builder, &scriptedSequencer{values: []uint64{5, 1, 2, 3}})
	ctx := context.Background()

	_, err := c.Refresh(ctx, domain.DefaultWindowSpec())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	// the counter restarted at 1
	for _, want := range []uint64{1, 2, 3} {
		d, err := c.Refresh(ctx, domain.DefaultWindowSpec())
		require.NoError(t, err, "sequence %d", want)
		assert.Equal(t, want, d.Sequence)
		assert.Equal(t, want, c.AppliedSequence())
	}

	current, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), current.Sequence)
}

func TestRefreshCoordinator_CurrentHonorsContext(t *testing.T) {
	seq := &scriptedSequencer{err: errors.New("must not be called")}
	c := newCoordinator(newGatedBuilder(), seq)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := c.Current(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, d)
}

func TestRefreshCoordinator_FailedRefreshKeepsCurrent(t *testing.T) {
	spec := domain.WindowSpec{Range: domain.Range6M}
	provider := new(MockSnapshotProvider)
	good, err := syntheticProvider().GenerateSnapshot(context.Background(), spec)
	require.NoError(t, err)
	provider.On("GenerateSnapshot", mock.Anything, spec).Return(good, nil).Once()
	provider.On("GenerateSnapshot", mock.Anything, spec).Return(nil, errors.New("db down")).Once()

	builder := NewDashboardUseCase(provider, 85, logger.NewNopLogger(), nil)
	c := newCoordinator(builder, sequence.NewMemorySequencer())
	ctx := context.Background()

	_, err = c.Refresh(ctx, spec)
	require.NoError(t, err)

	_, err = c.Refresh(ctx, spec)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindDataUnavailable, kind)

	current, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), current.Sequence)
	provider.AssertExpectations(t)
}

func TestRefreshCoordinator_RejectsBeforeSequencing(t *testing.T) {
	seq := &scriptedSequencer{err: errors.New("must not be called")}
	c := newCoordinator(newGatedBuilder(), seq)

	_, err := c.Refresh(context.Background(), domain.WindowSpec{Range: "5m"})
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestRefreshCoordinator_SequencerFailure(t *testing.T) {
	c := newCoordinator(newGatedBuilder(), &scriptedSequencer{err: errors.New("redis: connection refused")})

	_, err := c.Refresh(context.Background(), domain.DefaultWindowSpec())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestRefreshCoordinator_CurrentLoadsDefault(t *testing.T) {
	builder := NewDashboardUseCase(syntheticProvider(), 85, logger.NewNopLogger(), nil)
	c := newCoordinator(builder, sequence.NewMemorySequencer())

	d, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12m", d.Range)
	assert.Equal(t, uint64(1), d.Sequence)
	require.Len(t, d.Snapshot.MonthlyTrends, 12)

	// served copies are independent
	d.Snapshot.KPIs.TotalIncidents = -1
	again, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1847, again.Snapshot.KPIs.TotalIncidents)
	assert.Equal(t, uint64(1), again.Sequence)
}

func TestRefreshCoordinator_CurrentWaitsForInFlight(t *testing.T) {
	builder := newGatedBuilder()
	c := newCoordinator(builder, sequence.NewMemorySequencer())
	ctx := context.Background()

	refreshed := make(chan refreshResult, 1)
	go func() {
		d, err := c.Refresh(ctx, domain.WindowSpec{Range: domain.Range1M})
		refreshed <- refreshResult{d, err}
	}()
	waitStarted(t, builder, "1m")

	current := make(chan refreshResult, 1)
	go func() {
		d, err := c.Current(ctx)
		current <- refreshResult{d, err}
	}()

	builder.release("1m")
	r := <-refreshed
	require.NoError(t, r.err)

	got := <-current
	require.NoError(t, got.err)
	assert.Equal(t, "1m", got.dashboard.Range)
	assert.Equal(t, 1, builder.callCount())
}

func TestRefreshCoordinator_Announces(t *testing.T) {
	builder := NewDashboardUseCase(syntheticProvider(), 85, logger.NewNopLogger(), nil)
	publisher := new(MockEventPublisher)
	broadcaster := new(MockBroadcaster)

	broadcaster.On("Broadcast", ports.BroadcastDashboardRefreshed, "1", mock.AnythingOfType("*domain.Dashboard")).
		Return(errors.New("no clients"))
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e ports.Event) bool {
		return e.Type == ports.EventTypeDashboardRefreshed &&
			e.AggregateID == "current" &&
			e.Version == 1 &&
			e.Data["range"] == "3m"
	})).Return(errors.New("broker unavailable"))

	c := NewRefreshCoordinator(builder, sequence.NewMemorySequencer(), publisher, broadcaster,
		domain.DefaultWindowSpec(), logger.NewNopLogger(), nil)

	d, err := c.Refresh(context.Background(), domain.WindowSpec{Range: domain.Range3M})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), d.Sequence)

	publisher.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestRefreshCoordinator_PublishOutlivesRequest(t *testing.T) {
	builder := NewDashboardUseCase(syntheticProvider(), 85, logger.NewNopLogger(), nil)
	publisher := new(MockEventPublisher)
	broadcaster := new(MockBroadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the client goes away right after the refresh is applied
	broadcaster.On("Broadcast", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)

	var publishErr error
	var hasDeadline bool
	publisher.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			publishCtx := args.Get(0).(context.Context)
			publishErr = publishCtx.Err()
			_, hasDeadline = publishCtx.Deadline()
		}).
		Return(nil)

	c := NewRefreshCoordinator(builder, sequence.NewMemorySequencer(), publisher, broadcaster,
		domain.DefaultWindowSpec(), logger.NewNopLogger(), nil)

	_, err := c.Refresh(ctx, domain.DefaultWindowSpec())
	require.NoError(t, err)

	require.Error(t, ctx.Err())
	assert.NoError(t, publishErr)
	assert.True(t, hasDeadline)
	publisher.AssertExpectations(t)
}
