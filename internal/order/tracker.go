package order

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/metrics"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/pkg/logger"
)

const (
	DefaultPollInterval    = 30 * time.Second
	DefaultRefreshInterval = 60 * time.Second
	DefaultPrepWindow      = 40 * time.Minute
)

// Display is what the tracking view renders
type Display struct {
	OrderID   string
	Status    models.OrderStatus
	Message   string
	Remaining time.Duration
	CanCancel bool
	Terminal  bool
}

// Tracker follows the customer's latest order. Observed status never moves
// backwards, and a cancellation the server acknowledged is not undone by a
// poll that has not caught up yet.
type Tracker struct {
	userID          string
	svc             Service
	now             func() time.Time
	pollInterval    time.Duration
	refreshInterval time.Duration
	prepWindow      time.Duration
	log             *slog.Logger
	metrics         *metrics.Collector

	mu             sync.Mutex
	pinned         string
	order          *models.Order
	status         models.OrderStatus
	cancelAcked    bool
	serverTerminal bool
	display        Display
	history        []models.Order
	subs           map[int]chan Display
	nextSub        int
}

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// WithIntervals sets how often the server is polled and how often the display is recomputed
func WithIntervals(poll, refresh time.Duration) TrackerOption {
	return func(t *Tracker) {
		if poll > 0 {
			t.pollInterval = poll
		}
		if refresh > 0 {
			t.refreshInterval = refresh
		}
	}
}

// WithPrepWindow sets the fixed preparation and delivery estimate
func WithPrepWindow(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.prepWindow = d
		}
	}
}

// WithTrackClock overrides the time source
func WithTrackClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithTrackLogger sets the logger
func WithTrackLogger(log *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.log = log }
}

// WithTrackMetrics counts polls and cancellations
func WithTrackMetrics(m *metrics.Collector) TrackerOption {
	return func(t *Tracker) { t.metrics = m }
}

// NewTracker creates a tracker for userID's orders
func NewTracker(userID string, svc Service, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		userID:          userID,
		svc:             svc,
		now:             time.Now,
		pollInterval:    DefaultPollInterval,
		refreshInterval: DefaultRefreshInterval,
		prepWindow:      DefaultPrepWindow,
		log:             logger.Discard(),
		subs:            make(map[int]chan Display),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("component", "order_tracker", "user_id", userID)
	return t
}

// Track pins the tracker to a specific order, typically the one just placed.
// Polls fail with a not-found error while that order is absent.
func (t *Tracker) Track(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pinned = orderID
}

// Run polls and refreshes until ctx is cancelled or the server reports a terminal status.
// Bind ctx to the lifetime of the tracking view.
func (t *Tracker) Run(ctx context.Context) error {
	if _, err := t.Poll(ctx); err != nil {
		t.log.Warn("initial poll failed", "error", err)
	}

	poll := time.NewTicker(t.pollInterval)
	defer poll.Stop()
	refresh := time.NewTicker(t.refreshInterval)
	defer refresh.Stop()

	for {
		if t.finished() {
			t.log.Info("order reached a final status, tracking stopped")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			if _, err := t.Poll(ctx); err != nil {
				t.log.Warn("poll failed", "error", err)
			}
		case <-refresh.C:
			t.Refresh()
		}
	}
}

// Poll fetches the user's orders once and updates the display
func (t *Tracker) Poll(ctx context.Context) (Display, error) {
	orders, err := t.svc.OrdersByUser(ctx, t.userID)
	t.countPoll(err)
	if err != nil {
		return t.View(), err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sorted := newestFirst(orders)
	if t.pinned != "" && find(sorted, t.pinned) == nil {
		t.log.Warn("tracked order not among the user's orders", "order_id", t.pinned)
		return t.display, pinnedNotFound(t.pinned)
	}

	t.history = sorted
	target := t.pick()
	if target == nil {
		return t.display, &apperror.Error{Kind: apperror.KindNotFound, Message: "you have no orders yet", Cause: apperror.ErrNoActiveOrder}
	}

	if t.order == nil || t.order.ID != target.ID {
		t.log.Info("tracking order", "order_id", target.ID, "status", target.Status)
		t.status = ""
		t.cancelAcked = false
		t.serverTerminal = false
	}

	t.observeLocked(target.Status, target.ID)
	observed := *target
	t.order = &observed
	t.recomputeLocked()
	return t.display, nil
}

// Refresh recomputes the display from the cached order without polling
func (t *Tracker) Refresh() Display {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recomputeLocked()
	return t.display
}

// View returns the current display
func (t *Tracker) View() Display {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.display
}

// History returns the orders seen on the last poll, newest first
func (t *Tracker) History() []models.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Order(nil), t.history...)
}

// Cancel asks the server to cancel the tracked order. It is only allowed while the
// order is still waiting for the restaurant. On failure the display is left unchanged.
func (t *Tracker) Cancel(ctx context.Context) (Display, error) {
	t.mu.Lock()
	if t.pinned != "" && (t.order == nil || t.order.ID != t.pinned) {
		pinned := t.pinned
		display := t.display
		t.mu.Unlock()
		return display, pinnedNotFound(pinned)
	}
	if t.order == nil {
		t.mu.Unlock()
		return Display{}, apperror.Validation(apperror.ErrNoActiveOrder, "there is no order to cancel")
	}
	if !t.status.CanCancel() {
		status := t.status
		display := t.display
		t.mu.Unlock()
		return display, apperror.Validation(apperror.ErrCancelNotAllowed, "your order can't be cancelled once it is %s", statusLabel(status))
	}
	orderID := t.order.ID
	t.mu.Unlock()

	err := t.svc.CancelOrder(ctx, t.userID, orderID)
	if t.metrics != nil {
		t.metrics.OrderCancels.WithLabelValues(metrics.Result(err)).Inc()
	}
	if err != nil {
		t.log.Warn("cancel failed", "order_id", orderID, "error", err)
		return t.View(), err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.order != nil && t.order.ID == orderID && !t.status.IsTerminal() {
		t.status = models.StatusCancelled
		t.cancelAcked = true
		t.recomputeLocked()
	}
	t.log.Info("order cancelled", "order_id", orderID)
	return t.display, nil
}

// Subscribe returns a channel carrying every new display. Slow receivers only
// see the newest value. Call cancel to stop receiving.
func (t *Tracker) Subscribe() (<-chan Display, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	ch := make(chan Display, 1)
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}

// observeLocked applies a status reported by the server
func (t *Tracker) observeLocked(observed models.OrderStatus, orderID string) {
	if !observed.Valid() {
		t.log.Warn("ignoring unknown order status", "order_id", orderID, "status", observed)
		return
	}
	t.serverTerminal = observed.IsTerminal()

	if t.cancelAcked {
		switch {
		case observed == models.StatusCancelled:
		case observed.IsTerminal():
			t.log.Warn("server finalized a cancelled order differently", "order_id", orderID, "status", observed)
			t.status = observed
		default:
			t.log.Info("server has not reflected the cancellation yet", "order_id", orderID, "status", observed)
		}
		return
	}

	if !observed.Supersedes(t.status) {
		if observed != t.status {
			t.log.Info("ignoring stale order status", "order_id", orderID, "current", t.status, "observed", observed)
		}
		return
	}
	t.status = observed
}

func (t *Tracker) recomputeLocked() {
	if t.order == nil {
		return
	}

	var remaining time.Duration
	if !t.status.IsTerminal() {
		remaining = t.order.CreatedAt.Add(t.prepWindow).Sub(t.now())
		if remaining < 0 {
			remaining = 0
		}
	}

	next := Display{
		OrderID:   t.order.ID,
		Status:    t.status,
		Message:   message(t.status, remaining),
		Remaining: remaining,
		CanCancel: t.status.CanCancel(),
		Terminal:  t.status.IsTerminal(),
	}
	if next == t.display {
		return
	}
	t.display = next

	for _, ch := range t.subs {
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- next
		}
	}
}

// pick chooses the pinned order, otherwise the newest
func (t *Tracker) pick() *models.Order {
	if len(t.history) == 0 {
		return nil
	}
	if t.pinned != "" {
		return find(t.history, t.pinned)
	}
	return &t.history[0]
}

func find(orders []models.Order, id string) *models.Order {
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i]
		}
	}
	return nil
}

func pinnedNotFound(orderID string) error {
	return &apperror.Error{Kind: apperror.KindNotFound, Message: fmt.Sprintf("order %s not found", orderID), Cause: apperror.ErrOrderNotFound}
}

func (t *Tracker) finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.serverTerminal
}

func (t *Tracker) countPoll(err error) {
	if t.metrics != nil {
		t.metrics.OrderPolls.WithLabelValues(metrics.Result(err)).Inc()
	}
}

func newestFirst(orders []models.Order) []models.Order {
	sorted := append([]models.Order(nil), orders...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted
}

func message(status models.OrderStatus, remaining time.Duration) string {
	var text string
	switch status {
	case models.StatusOrdered:
		text = "Order placed. Waiting for the restaurant to accept it."
	case models.StatusApproved:
		text = "The restaurant accepted your order."
	case models.StatusPreparing:
		text = "Your food is being prepared."
	case models.StatusReady:
		text = "Your order is packed and waiting for a delivery partner."
	case models.StatusPickedUp:
		text = "Your order is on the way!"
	case models.StatusDelivered:
		return "Delivered. Enjoy your meal!"
	case models.StatusRejected:
		return "Sorry, the restaurant couldn't take your order."
	case models.StatusCancelled:
		return "Your order was cancelled."
	default:
		return "Checking your order status..."
	}

	if remaining <= 0 {
		return text + " Arriving shortly."
	}
	minutes := int(math.Ceil(remaining.Minutes()))
	return fmt.Sprintf("%s Arriving in about %d min.", text, minutes)
}

func statusLabel(status models.OrderStatus) string {
	switch status {
	case models.StatusPickedUp:
		return "picked up"
	case "":
		return "being processed"
	default:
		return string(status)
	}
}
