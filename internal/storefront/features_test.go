package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/middleware"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/pricing"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/remote"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/server"
)

const featureSecret = "feature-secret"

// gateway sits in front of the backend to delay cart writes or replay stale order lists
type gateway struct {
	next http.Handler

	holdNextPut atomic.Bool
	release     chan struct{}
	releaseOnce sync.Once

	mu          sync.Mutex
	staleOrders []byte
}

func (g *gateway) open() {
	g.releaseOnce.Do(func() { close(g.release) })
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/cart/") && g.holdNextPut.CompareAndSwap(true, false) {
		<-g.release
	}

	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/orders") {
		g.mu.Lock()
		stale := g.staleOrders
		g.mu.Unlock()
		if stale != nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(stale)
			return
		}
	}

	g.next.ServeHTTP(w, r)
}

type storefrontTestContext struct {
	menu    []models.MenuItem
	coupons []models.Coupon

	backend *server.Backend
	gateway *gateway
	srv     *httptest.Server
	client  *remote.Client
	session *Session

	orderID string
	err     error
}

func (c *storefrontTestContext) reset() {
	if c.srv != nil {
		c.gateway.open()
		c.srv.Close()
	}
	*c = storefrontTestContext{}
}

func (c *storefrontTestContext) itemID(name string) (string, error) {
	for _, item := range c.menu {
		if item.Name == name {
			return item.ID, nil
		}
	}
	return "", fmt.Errorf("%q is not on the menu", name)
}

func (c *storefrontTestContext) theRestaurantSells(name string, price int64) error {
	c.menu = append(c.menu, models.MenuItem{
		ID:      fmt.Sprintf("item-%d", len(c.menu)+1),
		Name:    name,
		Price:   price,
		Diet:    models.DietVeg,
		Enabled: true,
	})
	return nil
}

func (c *storefrontTestContext) theRestaurantOffersCoupon(code string, discount, minimum int64) error {
	c.coupons = append(c.coupons, models.Coupon{
		ID:             strings.ToLower(code),
		Code:           code,
		DiscountAmount: discount,
		MinOrderAmount: minimum,
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	})
	return nil
}

func (c *storefrontTestContext) customerOpensTheStorefront(userID string) error {
	calc := pricing.New(30, decimal.RequireFromString("0.05"))
	c.backend = server.New(server.Options{
		Menu:      []models.Category{{Name: "Meals", Enabled: true, Items: c.menu}},
		Coupons:   c.coupons,
		JWTSecret: featureSecret,
		Pricing:   calc,
	})
	c.gateway = &gateway{next: c.backend, release: make(chan struct{})}
	c.srv = httptest.NewServer(c.gateway)

	token, err := middleware.IssueToken(featureSecret, userID, time.Hour)
	if err != nil {
		return err
	}
	c.client = remote.New(c.srv.URL+"/api", remote.WithTokenSource(remote.StaticToken(token)))
	c.session = New(userID, c.client, Options{DeliveryFee: calc.DeliveryFee, TaxRate: calc.TaxRate})
	return c.session.Start(context.Background())
}

func (c *storefrontTestContext) theCustomerAdds(name string, times int) error {
	id, err := c.itemID(name)
	if err != nil {
		return err
	}
	for i := 0; i < times; i++ {
		if _, err := c.session.Cart.Increment(context.Background(), id); err != nil {
			return err
		}
	}
	return nil
}

func (c *storefrontTestContext) theCustomerRemoves(name string, times int) error {
	id, err := c.itemID(name)
	if err != nil {
		return err
	}
	for i := 0; i < times; i++ {
		if _, err := c.session.Cart.Decrement(context.Background(), id); err != nil {
			return err
		}
	}
	return nil
}

func (c *storefrontTestContext) theCustomerAppliesCoupon(code string) error {
	_, c.err = c.session.ApplyCoupon(context.Background(), code)
	return nil
}

func (c *storefrontTestContext) theSubtotalIs(expected int64) error {
	if got := c.session.Cart.Snapshot().Subtotal(); got != expected {
		return fmt.Errorf("subtotal = %d, want %d", got, expected)
	}
	return nil
}

func (c *storefrontTestContext) theTotalIs(expected int64) error {
	if c.err != nil {
		return fmt.Errorf("unexpected earlier failure: %w", c.err)
	}
	if got := c.session.Totals().Totals.Total; got != expected {
		return fmt.Errorf("total = %d, want %d", got, expected)
	}
	return nil
}

func (c *storefrontTestContext) noCouponIsApplied() error {
	c.session.Totals()
	if applied := c.session.AppliedCoupon(); applied != nil {
		return fmt.Errorf("coupon %s is still applied", applied.Coupon.Code)
	}
	return nil
}

func (c *storefrontTestContext) theRequestFailsWith(message string) error {
	if c.err == nil {
		return fmt.Errorf("expected failure %q, got success", message)
	}
	if got := apperror.Message(c.err); got != message {
		return fmt.Errorf("failure = %q, want %q", got, message)
	}
	return nil
}

func (c *storefrontTestContext) theCustomerChecksOut(address, payment string) error {
	c.orderID, c.err = c.session.Checkout(context.Background(), address, "", models.PaymentMethod(payment))
	return c.err
}

func (c *storefrontTestContext) anOrderIsPlacedWithTotal(total int64) error {
	orders, err := c.backend.Orders.ListByUser(context.Background(), c.session.UserID)
	if err != nil {
		return err
	}
	if len(orders) != 1 || orders[0].ID != c.orderID {
		return fmt.Errorf("expected order %s, backend has %+v", c.orderID, orders)
	}
	if orders[0].Totals.Total != total {
		return fmt.Errorf("order total = %d, want %d", orders[0].Totals.Total, total)
	}
	return nil
}

func (c *storefrontTestContext) remoteLines() (map[string]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.session.Cart.Flush(ctx); err != nil {
		return nil, err
	}
	lines, err := c.client.GetCart(ctx, c.session.UserID)
	if err != nil {
		return nil, err
	}
	held := make(map[string]int, len(lines))
	for _, line := range lines {
		held[line.ItemID] = line.Quantity
	}
	return held, nil
}

func (c *storefrontTestContext) theRemoteCartIsEmpty() error {
	held, err := c.remoteLines()
	if err != nil {
		return err
	}
	if len(held) != 0 {
		return fmt.Errorf("remote cart still holds %v", held)
	}
	return nil
}

func (c *storefrontTestContext) theNextCartWriteIsDelayed() error {
	c.gateway.holdNextPut.Store(true)
	return nil
}

func (c *storefrontTestContext) theDelayedCartWriteCompletes() error {
	c.gateway.open()
	return nil
}

func (c *storefrontTestContext) theRemoteCartHolds(quantity int, name string) error {
	id, err := c.itemID(name)
	if err != nil {
		return err
	}
	held, err := c.remoteLines()
	if err != nil {
		return err
	}
	if held[id] != quantity {
		return fmt.Errorf("remote cart holds %d %s, want %d", held[id], name, quantity)
	}
	return nil
}

func (c *storefrontTestContext) theCustomerHasAnOrderPlaced(name string) error {
	if err := c.theCustomerAdds(name, 1); err != nil {
		return err
	}
	return c.theCustomerChecksOut("12 MG Road", string(models.PaymentCash))
}

func (c *storefrontTestContext) theRestaurantMovesTheOrderTo(status string) error {
	_, err := c.backend.Orders.Advance(context.Background(), c.orderID, models.OrderStatus(status))
	return err
}

func (c *storefrontTestContext) theTrackerPolls() error {
	_, err := c.session.Tracker.Poll(context.Background())
	return err
}

func (c *storefrontTestContext) theTrackedStatusIs(status string) error {
	view := c.session.Tracker.View()
	if view.OrderID != c.orderID {
		return fmt.Errorf("tracking %s, want %s", view.OrderID, c.orderID)
	}
	if string(view.Status) != status {
		return fmt.Errorf("tracked status = %s, want %s", view.Status, status)
	}
	return nil
}

func (c *storefrontTestContext) theOrderServiceStartsLagging() error {
	orders, err := c.client.OrdersByUser(context.Background(), c.session.UserID)
	if err != nil {
		return err
	}
	snapshot, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	c.gateway.mu.Lock()
	c.gateway.staleOrders = snapshot
	c.gateway.mu.Unlock()
	return nil
}

func (c *storefrontTestContext) theOrderServiceCatchesUp() error {
	c.gateway.mu.Lock()
	c.gateway.staleOrders = nil
	c.gateway.mu.Unlock()
	return nil
}

func (c *storefrontTestContext) theCustomerCancelsTheOrder() error {
	_, err := c.session.Tracker.Cancel(context.Background())
	return err
}

func (c *storefrontTestContext) cancellingTheOrderFailsWith(message string) error {
	before := c.session.Tracker.View()
	_, err := c.session.Tracker.Cancel(context.Background())
	if err == nil {
		return fmt.Errorf("expected cancel to fail with %q", message)
	}
	if got := apperror.Message(err); got != message {
		return fmt.Errorf("failure = %q, want %q", got, message)
	}
	if after := c.session.Tracker.View(); after != before {
		return fmt.Errorf("display changed from %+v to %+v", before, after)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &storefrontTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the restaurant sells "([^"]*)" for (\d+)$`, tc.theRestaurantSells)
	ctx.Step(`^the restaurant offers coupon "([^"]*)" worth (\d+) above (\d+)$`, tc.theRestaurantOffersCoupon)
	ctx.Step(`^customer "([^"]*)" opens the storefront$`, tc.customerOpensTheStorefront)
	ctx.Step(`^the next cart write is delayed$`, tc.theNextCartWriteIsDelayed)
	ctx.Step(`^the customer has an order for "([^"]*)" placed$`, tc.theCustomerHasAnOrderPlaced)
	ctx.Step(`^the restaurant moves the order to "([^"]*)"$`, tc.theRestaurantMovesTheOrderTo)

	// When steps
	ctx.Step(`^the customer adds "([^"]*)" (\d+) times$`, tc.theCustomerAdds)
	ctx.Step(`^the customer removes "([^"]*)" (\d+) times$`, tc.theCustomerRemoves)
	ctx.Step(`^the customer applies coupon "([^"]*)"$`, tc.theCustomerAppliesCoupon)
	ctx.Step(`^the customer checks out to "([^"]*)" paying "([^"]*)"$`, tc.theCustomerChecksOut)
	ctx.Step(`^the delayed cart write completes$`, tc.theDelayedCartWriteCompletes)
	ctx.Step(`^the tracker polls$`, tc.theTrackerPolls)
	ctx.Step(`^the order service starts lagging$`, tc.theOrderServiceStartsLagging)
	ctx.Step(`^the order service catches up$`, tc.theOrderServiceCatchesUp)
	ctx.Step(`^the customer cancels the order$`, tc.theCustomerCancelsTheOrder)

	// Then steps
	ctx.Step(`^the subtotal is (\d+)$`, tc.theSubtotalIs)
	ctx.Step(`^the total is (\d+)$`, tc.theTotalIs)
	ctx.Step(`^no coupon is applied$`, tc.noCouponIsApplied)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
	ctx.Step(`^an order is placed with total (\d+)$`, tc.anOrderIsPlacedWithTotal)
	ctx.Step(`^the remote cart is empty$`, tc.theRemoteCartIsEmpty)
	ctx.Step(`^the remote cart holds (\d+) "([^"]*)"$`, tc.theRemoteCartHolds)
	ctx.Step(`^the tracked status is "([^"]*)"$`, tc.theTrackedStatusIs)
	ctx.Step(`^cancelling the order fails with "([^"]*)"$`, tc.cancellingTheOrderFailsWith)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
