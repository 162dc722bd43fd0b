package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/catalog"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/metrics"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
)

// fakeStore is an in-memory cart service. When hold is set, the first PutCart
// signals entered and blocks until hold is closed.
type fakeStore struct {
	mu       sync.Mutex
	remote   map[string]models.CartLine
	writes   []map[string]*models.CartLine
	calls    int
	hold     chan struct{}
	entered  chan struct{}
	putErr   error
	getErr   error
	getLines []models.CartLine
}

func newFakeStore() *fakeStore {
	return &fakeStore{remote: make(map[string]models.CartLine), entered: make(chan struct{}, 1)}
}

func (s *fakeStore) GetCart(ctx context.Context, userID string) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLines, s.getErr
}

func (s *fakeStore) PutCart(ctx context.Context, userID string, items map[string]*models.CartLine) error {
	s.mu.Lock()
	s.calls++
	call, hold := s.calls, s.hold
	s.mu.Unlock()

	if hold != nil && call == 1 {
		s.entered <- struct{}{}
		<-hold
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.writes = append(s.writes, items)
	for id, line := range items {
		if line == nil {
			delete(s.remote, id)
			continue
		}
		s.remote[id] = *line
	}
	return nil
}

func (s *fakeStore) remoteQuantity(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote[id].Quantity
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

type stubCatalog map[string]catalog.Entry

func (c stubCatalog) Lookup(id string) (catalog.Entry, bool) {
	entry, ok := c[id]
	return entry, ok
}

func menu() stubCatalog {
	return stubCatalog{
		"1": {Item: models.MenuItem{ID: "1", Name: "Chicken Biryani", Price: 100, Enabled: true}, CategoryEnabled: true},
		"2": {Item: models.MenuItem{ID: "2", Name: "Butter Naan", Price: 40, Enabled: true}, CategoryEnabled: true},
		"3": {Item: models.MenuItem{ID: "3", Name: "Mutton Biryani", Price: 320, Enabled: false}, CategoryEnabled: true},
	}
}

func TestReconciler_IncrementDecrementProperty(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 20; run++ {
		store := newFakeStore()
		r := NewReconciler("u1", store, menu())
		want := 0

		for step := 0; step < 40; step++ {
			var cart models.Cart
			var err error
			if rng.Intn(2) == 0 {
				cart, err = r.Increment(ctx, "1")
				want++
			} else {
				cart, err = r.Decrement(ctx, "1")
				if want > 0 {
					want--
				}
			}
			require.NoError(t, err)

			line, present := cart.Lines["1"]
			if want == 0 {
				assert.False(t, present, "line must be absent at zero")
			} else {
				require.True(t, present)
				assert.Equal(t, want, line.Quantity)
			}
		}

		require.NoError(t, r.Flush(ctx))
		assert.Equal(t, want, store.remoteQuantity("1"), "remote must converge to the local value")
	}
}

func TestReconciler_DecrementAbsentIsNoop(t *testing.T) {
	store := newFakeStore()
	r := NewReconciler("u1", store, menu())

	cart, err := r.Decrement(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	require.NoError(t, r.Flush(context.Background()))
	assert.Equal(t, 0, store.writeCount())
}

func TestReconciler_IncrementUsesCatalogMetadata(t *testing.T) {
	store := newFakeStore()
	r := NewReconciler("u1", store, menu())

	cart, err := r.Increment(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, models.CartLine{ItemID: "2", Name: "Butter Naan", UnitPrice: 40, Quantity: 1}, cart.Lines["2"])
}

func TestReconciler_IncrementRejectsUnknownAndUnavailable(t *testing.T) {
	store := newFakeStore()
	r := NewReconciler("u1", store, menu())

	_, err := r.Increment(context.Background(), "99")
	assert.ErrorIs(t, err, apperror.ErrUnknownItem)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = r.Increment(context.Background(), "3")
	assert.ErrorIs(t, err, apperror.ErrItemUnavailable)

	require.NoError(t, r.Flush(context.Background()))
	assert.Equal(t, 0, store.writeCount())
	assert.True(t, r.Snapshot().IsEmpty())
}

func TestReconciler_DelayedFirstWriteStillConvergesToTwo(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.hold = make(chan struct{})
	r := NewReconciler("u1", store, menu())

	_, err := r.Increment(ctx, "1")
	require.NoError(t, err)
	<-store.entered

	cart, err := r.Increment(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Quantity("1"))

	close(store.hold)
	require.NoError(t, r.Flush(ctx))

	assert.Equal(t, 2, store.remoteQuantity("1"))
	require.Equal(t, 2, store.writeCount())
	assert.Equal(t, 2, store.writes[1]["1"].Quantity, "last write carries the absolute quantity")
}

func TestReconciler_CoalescesPendingWrites(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.hold = make(chan struct{})
	m := metrics.NewCollector()
	r := NewReconciler("u1", store, menu(), WithMetrics(m))

	_, _ = r.Increment(ctx, "1")
	<-store.entered
	_, _ = r.Increment(ctx, "1")
	_, _ = r.Increment(ctx, "1")
	_, _ = r.Increment(ctx, "1")

	close(store.hold)
	require.NoError(t, r.Flush(ctx))

	require.Equal(t, 2, store.writeCount(), "only the in-flight and the latest pending write are sent")
	assert.Equal(t, 4, store.remoteQuantity("1"))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CartWritesSkipped))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CartWrites.WithLabelValues("ok")))
}

func TestReconciler_ItemsWriteIndependently(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.hold = make(chan struct{})
	r := NewReconciler("u1", store, menu())

	_, _ = r.Increment(ctx, "1")
	<-store.entered
	_, _ = r.Increment(ctx, "2")

	assert.Eventually(t, func() bool { return store.remoteQuantity("2") == 1 }, time.Second, 5*time.Millisecond)

	close(store.hold)
	require.NoError(t, r.Flush(ctx))
	assert.Equal(t, 1, store.remoteQuantity("1"))
}

func TestReconciler_FailedWriteKeepsOptimisticState(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.putErr = apperror.Transport("put_cart", errors.New("timeout"))
	m := metrics.NewCollector()
	r := NewReconciler("u1", store, menu(), WithMetrics(m))

	cart, err := r.Increment(ctx, "1")
	require.NoError(t, err, "write failures never block the user")
	assert.Equal(t, 1, cart.Quantity("1"))

	flushErr := r.Flush(ctx)
	require.Error(t, flushErr)
	assert.True(t, apperror.IsKind(flushErr, apperror.KindTransport))
	assert.Equal(t, 1, r.Snapshot().Quantity("1"))

	select {
	case got := <-r.Errors():
		assert.True(t, apperror.IsKind(got, apperror.KindTransport))
	default:
		t.Fatal("expected failure on Errors channel")
	}

	assert.NoError(t, r.Flush(ctx), "failures are reported once")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CartWrites.WithLabelValues("error")))
}

func TestReconciler_ErrorsChannelDropsOldest(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.putErr = errors.New("down")
	r := NewReconciler("u1", store, menu())

	for i := 0; i < errorBuffer+5; i++ {
		_, _ = r.Increment(ctx, "1")
		require.Error(t, r.Flush(ctx))
	}

	assert.Len(t, r.Errors(), errorBuffer)
}

func TestReconciler_LoadRemoteReplaces(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	r := NewReconciler("u1", store, menu())

	_, _ = r.Increment(ctx, "1")
	_, _ = r.Increment(ctx, "1")
	require.NoError(t, r.Flush(ctx))

	store.getLines = []models.CartLine{
		{ItemID: "2", Name: "Butter Naan", UnitPrice: 40, Quantity: 3},
		{ItemID: "4", Quantity: 0},
	}

	cart, err := r.LoadRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, cart.Quantity("1"), "server wins on load")
	assert.Equal(t, 3, cart.Quantity("2"))
	_, zeroLine := cart.Lines["4"]
	assert.False(t, zeroLine, "zero-quantity lines are never stored")
}

func TestReconciler_LoadFailureEmptiesProjection(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	r := NewReconciler("u1", store, menu())
	_, _ = r.Increment(ctx, "1")
	require.NoError(t, r.Flush(ctx))

	store.getErr = apperror.Rejected(401, "token expired")
	cart, err := r.LoadRemote(ctx)

	require.Error(t, err)
	assert.True(t, cart.IsEmpty())
	assert.True(t, r.Snapshot().IsEmpty())
}

func TestReconciler_ClearTombstonesEveryLine(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	r := NewReconciler("u1", store, menu())

	_, _ = r.Increment(ctx, "1")
	_, _ = r.Increment(ctx, "2")
	require.NoError(t, r.Flush(ctx))

	cart := r.Clear(ctx)
	assert.True(t, cart.IsEmpty())
	require.NoError(t, r.Flush(ctx))

	assert.Equal(t, 0, store.remoteQuantity("1"))
	assert.Equal(t, 0, store.remoteQuantity("2"))
}

func TestReconciler_ClearWinsOverInFlightWrite(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.hold = make(chan struct{})
	r := NewReconciler("u1", store, menu())

	_, _ = r.Increment(ctx, "1")
	<-store.entered
	r.Clear(ctx)

	close(store.hold)
	require.NoError(t, r.Flush(ctx))

	store.mu.Lock()
	_, present := store.remote["1"]
	store.mu.Unlock()
	assert.False(t, present, "a stale write must not resurrect a cleared line")
}

func TestReconciler_SetNote(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	r := NewReconciler("u1", store, menu())

	_, err := r.SetNote(ctx, "1", "extra spicy")
	assert.ErrorIs(t, err, apperror.ErrNotInCart)

	_, _ = r.Increment(ctx, "1")
	cart, err := r.SetNote(ctx, "1", "extra spicy")
	require.NoError(t, err)
	assert.Equal(t, "extra spicy", cart.Lines["1"].Note)

	require.NoError(t, r.Flush(ctx))
	store.mu.Lock()
	assert.Equal(t, "extra spicy", store.remote["1"].Note)
	store.mu.Unlock()
}

func TestReconciler_SubscribeReceivesLatest(t *testing.T) {
	ctx := context.Background()
	r := NewReconciler("u1", newFakeStore(), menu())

	updates, cancel := r.Subscribe()
	defer cancel()

	initial := <-updates
	assert.True(t, initial.IsEmpty())

	_, _ = r.Increment(ctx, "1")
	_, _ = r.Increment(ctx, "1")
	_, _ = r.Increment(ctx, "2")

	latest := <-updates
	assert.Equal(t, 2, latest.Quantity("1"))
	assert.Equal(t, 1, latest.Quantity("2"))

	cancel()
	_, open := <-updates
	assert.False(t, open)
	require.NoError(t, r.Flush(ctx))
}

func TestReconciler_FlushHonorsContext(t *testing.T) {
	store := newFakeStore()
	store.hold = make(chan struct{})
	r := NewReconciler("u1", store, menu())

	_, _ = r.Increment(context.Background(), "1")
	<-store.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.Flush(ctx)
	assert.True(t, apperror.IsKind(err, apperror.KindTransport))

	close(store.hold)
	require.NoError(t, r.Flush(context.Background()))
}
