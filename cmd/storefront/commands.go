package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/catalog"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/config"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/metrics"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/middleware"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/order"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/remote"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/storefront"
)

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintf(w, "Delicious storefront\n\n")
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  storefront [--user <id>] [--api URL] [--dev-token] <command> [options]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  menu [--veg] [--category NAME]      Show orderable items.\n")
	fmt.Fprintf(w, "  cart                                Show the cart and its totals.\n")
	fmt.Fprintf(w, "  add <itemId> [-n N] [--note TEXT]   Add units of an item.\n")
	fmt.Fprintf(w, "  remove <itemId> [-n N]              Remove units of an item.\n")
	fmt.Fprintf(w, "  clear                               Empty the cart.\n")
	fmt.Fprintf(w, "  coupons                             List coupons on offer.\n")
	fmt.Fprintf(w, "  checkout --address A [--payment cash|online] [--coupon CODE] [--instructions TEXT]\n")
	fmt.Fprintf(w, "  track [--order ID] [--follow]       Show order progress.\n")
	fmt.Fprintf(w, "  history                             List past orders.\n")
	fmt.Fprintf(w, "  cancel [--order ID]                 Cancel an order still awaiting the restaurant.\n")
	fmt.Fprintf(w, "  token                               Print the bearer token in use.\n")
}

type command func(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error

var commands = map[string]command{
	"menu":     menuCmd,
	"cart":     cartCmd,
	"add":      addCmd,
	"remove":   removeCmd,
	"clear":    clearCmd,
	"coupons":  couponsCmd,
	"checkout": checkoutCmd,
	"track":    trackCmd,
	"history":  historyCmd,
	"cancel":   cancelCmd,
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string, out io.Writer) error {
	global := flag.NewFlagSet("storefront", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	userID := global.String("user", cfg.Client.UserID, "customer ID")
	baseURL := global.String("api", cfg.Client.BaseURL, "API base URL")
	devToken := global.Bool("dev-token", cfg.Auth.DevTokens, "sign a local token with the backend secret (development only)")
	if err := global.Parse(args); err != nil || global.NArg() == 0 {
		usage(out)
		return errUsage
	}
	if *userID == "" {
		return errors.New("a user ID is required (--user or STOREFRONT_USER_ID)")
	}

	name, rest := global.Arg(0), global.Args()[1:]

	token, err := bearerToken(cfg, *userID, *devToken)
	if err != nil {
		return err
	}
	if name == "token" {
		fmt.Fprintln(out, token)
		return nil
	}

	cmd, ok := commands[name]
	if !ok {
		usage(out)
		return fmt.Errorf("unknown command %q", name)
	}

	m := metrics.NewCollector()
	client := newClient(cfg, *baseURL, token, log, m)

	opts, err := storefront.OptionsFromConfig(cfg, log, m)
	if err != nil {
		return err
	}
	session := storefront.New(*userID, client, opts)

	if err := session.Start(ctx); err != nil {
		fmt.Fprintf(out, "warning: %s\n", describe(err))
	}
	return cmd(ctx, session, rest, out)
}

// bearerToken returns the configured token. Signing one locally needs the
// backend's secret, so it is only done when dev tokens are enabled.
func bearerToken(cfg *config.Config, userID string, dev bool) (string, error) {
	if cfg.Auth.Token != "" {
		return cfg.Auth.Token, nil
	}
	if !dev {
		return "", errors.New("a bearer token is required (STOREFRONT_TOKEN), or pass --dev-token against a local backend")
	}
	return middleware.IssueToken(cfg.Auth.JWTSecret, userID, 24*time.Hour)
}

func newClient(cfg *config.Config, baseURL, token string, log *slog.Logger, m *metrics.Collector) *remote.Client {
	return remote.New(baseURL,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Client.RequestTimeout}),
		remote.WithTokenSource(remote.StaticToken(token)),
		remote.WithMaxReadAttempts(cfg.Client.MaxReadAttempts),
		remote.WithLogger(log),
		remote.WithMetrics(m),
	)
}

func menuCmd(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("menu", flag.ContinueOnError)
	veg := fs.Bool("veg", false, "vegetarian items only")
	category := fs.String("category", "", "only this category")
	all := fs.Bool("all", false, "include unavailable items")
	if err := fs.Parse(args); err != nil {
		return err
	}

	entries := s.Catalog.Items(catalog.Filter{VegOnly: *veg, Category: *category, AvailableOnly: !*all})
	if len(entries) == 0 {
		fmt.Fprintln(out, "Nothing to show.")
		return nil
	}

	current := ""
	for _, e := range entries {
		if e.Item.Category != current {
			current = e.Item.Category
			fmt.Fprintf(out, "\n%s\n", current)
		}
		marker := ""
		if !e.Orderable() {
			marker = " (unavailable)"
		}
		fmt.Fprintf(out, "  [%s] %-24s %6d  %s%s\n", e.Item.ID, e.Item.Name, e.Item.Price, e.Item.Diet, marker)
	}
	return nil
}

func cartCmd(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error {
	printCart(s, out)
	return nil
}

func addCmd(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	n := fs.Int("n", 1, "units to add")
	note := fs.String("note", "", "note for the kitchen")
	itemID, err := parseItem(fs, args)
	if err != nil {
		return err
	}

	for i := 0; i < *n; i++ {
		if _, err := s.Cart.Increment(ctx, itemID); err != nil {
			return err
		}
	}
	if *note != "" {
		if _, err := s.Cart.SetNote(ctx, itemID, *note); err != nil {
			return err
		}
	}
	return flushAndShow(ctx, s, out)
}

func removeCmd(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	n := fs.Int("n", 1, "units to remove")
	itemID, err := parseItem(fs, args)
	if err != nil {
		return err
	}

	for i := 0; i < *n; i++ {
		if _, err := s.Cart.Decrement(ctx, itemID); err != nil {
			return err
		}
	}
	return flushAndShow(ctx, s, out)
}

func clearCmd(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error {
	s.Cart.Clear(ctx)
	return flushAndShow(ctx, s, out)
}

func couponsCmd(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error {
	offered, err := s.Coupons.Offered(ctx)
	if err != nil {
		return err
	}
	if len(offered) == 0 {
		fmt.Fprintln(out, "No coupons right now.")
		return nil
	}
	for _, c := range offered {
		fmt.Fprintf(out, "  %-12s %s (min %d, until %s)\n", c.Code, c.Description, c.MinOrderAmount, c.ExpiresAt.Format("2006-01-02"))
	}
	return nil
}

func checkoutCmd(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	address := fs.String("address", "", "delivery address")
	payment := fs.String("payment", string(models.PaymentCash), "cash or online")
	code := fs.String("coupon", "", "coupon code")
	instructions := fs.String("instructions", "", "delivery instructions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *code != "" {
		applied, err := s.ApplyCoupon(ctx, *code)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Applied %s: -%d\n", applied.Coupon.Code, applied.DiscountAmount)
	}

	printCart(s, out)

	orderID, err := s.Checkout(ctx, *address, *instructions, models.PaymentMethod(*payment))
	if err != nil {
		return err
	}
	if err := s.Cart.Flush(ctx); err != nil {
		fmt.Fprintf(out, "warning: cart not fully cleared: %s\n", describe(err))
	}
	fmt.Fprintf(out, "Order placed: %s\n", orderID)
	return nil
}

func trackCmd(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("track", flag.ContinueOnError)
	orderID := fs.String("order", "", "order to track, defaults to the newest")
	follow := fs.Bool("follow", false, "keep polling until the order is finished")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID != "" {
		s.Tracker.Track(*orderID)
	}

	if !*follow {
		view, err := s.Tracker.Poll(ctx)
		if err != nil {
			return err
		}
		printDisplay(view, out)
		return nil
	}

	updates, cancel := s.Tracker.Subscribe()
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Tracker.Run(ctx) }()

	for {
		select {
		case view := <-updates:
			printDisplay(view, out)
		case err := <-done:
			select {
			case view := <-updates:
				printDisplay(view, out)
			default:
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func historyCmd(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error {
	if _, err := s.Tracker.Poll(ctx); err != nil && !errors.Is(err, apperror.ErrNoActiveOrder) {
		return err
	}
	history := s.Tracker.History()
	if len(history) == 0 {
		fmt.Fprintln(out, "No orders yet.")
		return nil
	}
	for _, o := range history {
		fmt.Fprintf(out, "  %s  %-10s %6d  %s\n", o.CreatedAt.Local().Format("2006-01-02 15:04"), o.Status, o.Totals.Total, o.ID)
	}
	return nil
}

func cancelCmd(ctx context.Context, s *storefront.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	orderID := fs.String("order", "", "order to cancel, defaults to the newest")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID != "" {
		s.Tracker.Track(*orderID)
	}
	if _, err := s.Tracker.Poll(ctx); err != nil {
		return err
	}

	view, err := s.Tracker.Cancel(ctx)
	if err != nil {
		return err
	}
	printDisplay(view, out)
	return nil
}

func parseItem(fs *flag.FlagSet, args []string) (string, error) {
	// item ID may come before or after the options
	var itemID string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		itemID, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if itemID == "" && fs.NArg() > 0 {
		itemID = fs.Arg(0)
	}
	if itemID == "" {
		return "", fmt.Errorf("%s: an item ID is required", fs.Name())
	}
	return itemID, nil
}

func flushAndShow(ctx context.Context, s *storefront.Session, out io.Writer) error {
	err := s.Cart.Flush(ctx)
	printCart(s, out)
	return err
}

func printCart(s *storefront.Session, out io.Writer) {
	cart := s.Cart.Snapshot()
	if cart.IsEmpty() {
		fmt.Fprintln(out, "Your cart is empty.")
		return
	}
	for _, line := range cart.SortedLines() {
		fmt.Fprintf(out, "  %2d x %-24s %6d", line.Quantity, line.Name, line.Total())
		if line.Note != "" {
			fmt.Fprintf(out, "  (%s)", line.Note)
		}
		fmt.Fprintln(out)
	}

	result := s.Totals()
	totals := result.Totals
	if result.CouponDetached {
		fmt.Fprintf(out, "  coupon removed: %s\n", result.DetachReason)
	}
	fmt.Fprintf(out, "  %-29s %6d\n", "Subtotal", totals.Subtotal)
	fmt.Fprintf(out, "  %-29s %6d\n", "Delivery", totals.DeliveryFee)
	fmt.Fprintf(out, "  %-29s %6d\n", "Tax", totals.Tax)
	if totals.Discount > 0 {
		fmt.Fprintf(out, "  %-29s %6d\n", "Discount", -totals.Discount)
	}
	fmt.Fprintf(out, "  %-29s %6d\n", "Total", totals.Total)
}

func printDisplay(view order.Display, out io.Writer) {
	fmt.Fprintf(out, "%s [%s] %s\n", view.OrderID, view.Status, view.Message)
}

// describe prefers the customer-facing message of an apperror
func describe(err error) string {
	if _, ok := apperror.As(err); ok {
		return apperror.Message(err)
	}
	return err.Error()
}
