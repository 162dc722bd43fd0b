// Package cart keeps the local cart projection consistent with the remote cart service.
//
// The projection is updated optimistically and every change is written back as the
// absolute value of the changed line, or a tombstone when the line is gone. Writes for
// one item are serialized: at most one is in flight and newer edits replace the one
// waiting behind it, so the last local value is always the last value the server sees.
// Writes for different items run independently.
package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/catalog"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/metrics"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/pkg/logger"
)

const errorBuffer = 16

// Store is the remote cart service
type Store interface {
	GetCart(ctx context.Context, userID string) ([]models.CartLine, error)
	PutCart(ctx context.Context, userID string, items map[string]*models.CartLine) error
}

// Catalog resolves item metadata for new lines
type Catalog interface {
	Lookup(id string) (catalog.Entry, bool)
}

// Reconciler owns the local cart projection for one user
type Reconciler struct {
	userID  string
	store   Store
	catalog Catalog
	log     *slog.Logger
	metrics *metrics.Collector

	mu       sync.Mutex
	cart     models.Cart
	writers  map[string]*lineWriter
	subs     map[int]chan models.Cart
	nextSub  int
	failures *multierror.Error

	inflight sync.WaitGroup
	errs     chan error
}

// lineWriter tracks the write pipeline of a single item id
type lineWriter struct {
	pending    *models.CartLine
	hasPending bool
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

// WithMetrics records write and load outcomes
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// NewReconciler creates an empty projection for userID
func NewReconciler(userID string, store Store, cat Catalog, opts ...Option) *Reconciler {
	r := &Reconciler{
		userID:  userID,
		store:   store,
		catalog: cat,
		log:     logger.Discard(),
		cart:    models.NewCart(userID),
		writers: make(map[string]*lineWriter),
		subs:    make(map[int]chan models.Cart),
		errs:    make(chan error, errorBuffer),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "cart", "user_id", userID)
	return r
}

// LoadRemote replaces the projection with the server's cart. On failure the
// projection becomes empty and the error is returned.
func (r *Reconciler) LoadRemote(ctx context.Context) (models.Cart, error) {
	lines, err := r.store.GetCart(ctx, r.userID)
	r.countLoad(err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.log.Warn("cart load failed, clearing local projection", "error", err)
		r.cart = models.NewCart(r.userID)
		r.notifyLocked()
		return r.cart.Clone(), err
	}

	loaded := models.NewCart(r.userID)
	for _, line := range lines {
		if line.ItemID == "" || line.Quantity < 1 {
			continue
		}
		loaded.Lines[line.ItemID] = line
	}

	if diverged := divergence(r.cart, loaded); !r.cart.IsEmpty() && len(diverged) > 0 {
		stale := apperror.Stale("local cart diverged from server on %d line(s)", len(diverged))
		r.log.Info("server cart overrides local projection", "error", stale, "items", diverged)
	}

	r.cart = loaded
	r.notifyLocked()
	return r.cart.Clone(), nil
}

// Increment adds one unit of itemID, creating the line if needed
func (r *Reconciler) Increment(ctx context.Context, itemID string) (models.Cart, error) {
	entry, known := r.catalog.Lookup(itemID)

	r.mu.Lock()
	defer r.mu.Unlock()

	line, present := r.cart.Lines[itemID]
	switch {
	case known && !entry.Orderable():
		return r.cart.Clone(), apperror.Validation(apperror.ErrItemUnavailable, "%s is currently unavailable", entry.Item.Name)
	case !known && !present:
		return r.cart.Clone(), apperror.Validation(apperror.ErrUnknownItem, "item %s is not on the menu", itemID)
	}

	if present {
		line.Quantity++
	} else {
		line = models.CartLine{ItemID: itemID, Quantity: 1}
	}
	if known {
		line.Name = entry.Item.Name
		line.UnitPrice = entry.Item.Price
	}

	r.cart.Lines[itemID] = line
	r.scheduleLocked(ctx, itemID, &line)
	r.notifyLocked()
	return r.cart.Clone(), nil
}

// Decrement removes one unit of itemID; the line disappears at zero.
// Decrementing an absent item is a no-op.
func (r *Reconciler) Decrement(ctx context.Context, itemID string) (models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, present := r.cart.Lines[itemID]
	if !present {
		return r.cart.Clone(), nil
	}

	if line.Quantity <= 1 {
		delete(r.cart.Lines, itemID)
		r.scheduleLocked(ctx, itemID, nil)
	} else {
		line.Quantity--
		r.cart.Lines[itemID] = line
		r.scheduleLocked(ctx, itemID, &line)
	}

	r.notifyLocked()
	return r.cart.Clone(), nil
}

// SetNote attaches a free-text note to an existing line
func (r *Reconciler) SetNote(ctx context.Context, itemID, note string) (models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, present := r.cart.Lines[itemID]
	if !present {
		return r.cart.Clone(), apperror.Validation(apperror.ErrNotInCart, "item %s is not in the cart", itemID)
	}
	if line.Note == note {
		return r.cart.Clone(), nil
	}

	line.Note = note
	r.cart.Lines[itemID] = line
	r.scheduleLocked(ctx, itemID, &line)
	r.notifyLocked()
	return r.cart.Clone(), nil
}

// Clear empties the projection and tombstones every line remotely
func (r *Reconciler) Clear(ctx context.Context) models.Cart {
	r.mu.Lock()
	defer r.mu.Unlock()

	for itemID := range r.cart.Lines {
		delete(r.cart.Lines, itemID)
		r.scheduleLocked(ctx, itemID, nil)
	}

	r.notifyLocked()
	return r.cart.Clone()
}

// Snapshot returns a copy of the current projection
func (r *Reconciler) Snapshot() models.Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cart.Clone()
}

// Subscribe returns a channel carrying the latest snapshot after every change.
// Slow receivers only ever see the newest value. Call cancel to stop receiving.
func (r *Reconciler) Subscribe() (<-chan models.Cart, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan models.Cart, 1)
	ch <- r.cart.Clone()
	r.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Errors delivers remote write failures. The channel is buffered and the oldest
// failure is dropped when nobody is reading.
func (r *Reconciler) Errors() <-chan error {
	return r.errs
}

// Flush waits until no write is pending or in flight and returns the write
// failures collected since the previous Flush.
func (r *Reconciler) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return apperror.Transport("flush cart", ctx.Err())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	failures := r.failures
	r.failures = nil
	return failures.ErrorOrNil()
}

// scheduleLocked queues the absolute value of a line (nil removes it). If a write for
// the same item is in flight, the new value replaces whatever was waiting behind it.
func (r *Reconciler) scheduleLocked(ctx context.Context, itemID string, line *models.CartLine) {
	var value *models.CartLine
	if line != nil {
		copied := *line
		value = &copied
	}

	if w, busy := r.writers[itemID]; busy {
		if w.hasPending && r.metrics != nil {
			r.metrics.CartWritesSkipped.Inc()
		}
		w.pending = value
		w.hasPending = true
		return
	}

	r.writers[itemID] = &lineWriter{}
	r.inflight.Add(1)
	go r.drain(context.WithoutCancel(ctx), itemID, value)
}

// drain sends writes for one item until nothing is waiting
func (r *Reconciler) drain(ctx context.Context, itemID string, value *models.CartLine) {
	defer r.inflight.Done()

	for {
		err := r.store.PutCart(ctx, r.userID, map[string]*models.CartLine{itemID: value})
		if r.metrics != nil {
			r.metrics.CartWrites.WithLabelValues(metrics.Result(err)).Inc()
		}

		r.mu.Lock()
		if err != nil {
			r.recordFailureLocked(itemID, err)
		}

		w := r.writers[itemID]
		if !w.hasPending {
			delete(r.writers, itemID)
			r.mu.Unlock()
			return
		}
		value = w.pending
		w.pending = nil
		w.hasPending = false
		r.mu.Unlock()
	}
}

func (r *Reconciler) recordFailureLocked(itemID string, err error) {
	r.log.Warn("cart write failed, keeping local state", "item_id", itemID, "error", err)
	r.failures = multierror.Append(r.failures, err)

	select {
	case r.errs <- err:
	default:
		select {
		case <-r.errs:
		default:
		}
		select {
		case r.errs <- err:
		default:
		}
	}
}

func (r *Reconciler) notifyLocked() {
	for _, ch := range r.subs {
		snapshot := r.cart.Clone()
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (r *Reconciler) countLoad(err error) {
	if r.metrics != nil {
		r.metrics.CartLoads.WithLabelValues(metrics.Result(err)).Inc()
	}
}

// divergence lists the item ids whose local quantity differs from the server's
func divergence(local, server models.Cart) []string {
	var ids []string
	for id, line := range local.Lines {
		if server.Quantity(id) != line.Quantity {
			ids = append(ids, id)
		}
	}
	for id := range server.Lines {
		if _, ok := local.Lines[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}
