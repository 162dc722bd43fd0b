package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/config"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/pricing"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/server"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/pkg/logger"
)

func newCLI(t *testing.T) (func(args ...string) (string, error), *server.Backend) {
	t.Helper()

	backend := server.New(server.Options{
		JWTSecret: "cli-secret",
		Pricing:   pricing.New(30, decimal.RequireFromString("0.05")),
	})
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Auth.JWTSecret = "cli-secret"
	cfg.Client.BaseURL = srv.URL + "/api"
	cfg.Client.UserID = "u1"
	cfg.Auth.DevTokens = true
	cfg.Tracking.PollInterval = 10 * time.Millisecond

	return func(args ...string) (string, error) {
		var out bytes.Buffer
		err := run(context.Background(), cfg, logger.Discard(), args, &out)
		return out.String(), err
	}, backend
}

func TestCLI_OrderJourney(t *testing.T) {
	cli, _ := newCLI(t)

	out, err := cli("menu", "--veg")
	require.NoError(t, err)
	assert.Contains(t, out, "Veg Biryani")
	assert.NotContains(t, out, "Chicken Biryani")
	assert.NotContains(t, out, "Paneer Biryani", "unavailable items are hidden by default")

	out, err = cli("add", "1", "--note", "less spicy")
	require.NoError(t, err)
	assert.Contains(t, out, "Chicken Biryani")
	assert.Contains(t, out, "(less spicy)")

	out, err = cli("cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Chicken Biryani", "cart is reloaded from the server")

	out, err = cli("checkout", "--address", "12 MG Road", "--coupon", "save50", "--payment", "online")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied SAVE50: -50")
	assert.Regexp(t, `Total\s+243`, out)
	assert.Contains(t, out, "Order placed: ")

	out, err = cli("cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty.")

	out, err = cli("history")
	require.NoError(t, err)
	assert.Contains(t, out, "ordered")
	assert.Contains(t, out, "243")

	out, err = cli("cancel")
	require.NoError(t, err)
	assert.Contains(t, out, "Your order was cancelled.")

	out, err = cli("track")
	require.NoError(t, err)
	assert.Contains(t, out, "[cancelled]")
}

func TestCLI_Errors(t *testing.T) {
	cli, _ := newCLI(t)

	_, err := cli()
	assert.ErrorIs(t, err, errUsage)

	_, err = cli("dance")
	assert.EqualError(t, err, `unknown command "dance"`)

	_, err = cli("add")
	assert.EqualError(t, err, "add: an item ID is required")

	_, err = cli("add", "4")
	assert.Error(t, err, "disabled items cannot be added")

	_, err = cli("checkout", "--address", "12 MG Road")
	require.Error(t, err)
	assert.Equal(t, "your cart is empty", describe(err))

	_, err = cli("cancel")
	require.Error(t, err)
	assert.Equal(t, "you have no orders yet", describe(err))
}

func TestCLI_CancelUnknownOrderLeavesOthers(t *testing.T) {
	cli, _ := newCLI(t)

	_, err := cli("add", "1")
	require.NoError(t, err)
	_, err = cli("checkout", "--address", "12 MG Road")
	require.NoError(t, err)

	_, err = cli("cancel", "--order", "no-such-order")
	require.Error(t, err)
	assert.Equal(t, "order no-such-order not found", describe(err))

	_, err = cli("track", "--order", "no-such-order")
	require.Error(t, err)

	out, err := cli("track")
	require.NoError(t, err)
	assert.Contains(t, out, "[ordered]")
}

func TestCLI_FollowPrintsFinalStatus(t *testing.T) {
	cli, backend := newCLI(t)

	_, err := cli("add", "1")
	require.NoError(t, err)
	out, err := cli("checkout", "--address", "12 MG Road")
	require.NoError(t, err)
	orderID := strings.TrimSpace(out[strings.LastIndex(out, "Order placed: ")+len("Order placed: "):])

	for _, status := range []models.OrderStatus{
		models.StatusApproved, models.StatusPreparing, models.StatusReady, models.StatusPickedUp, models.StatusDelivered,
	} {
		_, err := backend.Orders.Advance(context.Background(), orderID, status)
		require.NoError(t, err)
	}

	out, err = cli("track", "--follow")
	require.NoError(t, err)
	assert.Contains(t, out, orderID+" [delivered] Delivered. Enjoy your meal!")
}

func TestCLI_Token(t *testing.T) {
	cli, _ := newCLI(t)

	out, err := cli("--user", "u9", "token")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out), ".")), "prints a JWT")
}

func TestBearerToken(t *testing.T) {
	cfg := config.Default()

	_, err := bearerToken(cfg, "u1", false)
	assert.EqualError(t, err, "a bearer token is required (STOREFRONT_TOKEN), or pass --dev-token against a local backend")

	minted, err := bearerToken(cfg, "u1", true)
	require.NoError(t, err)
	assert.NotEmpty(t, minted)

	cfg.Auth.Token = "issued-elsewhere"
	token, err := bearerToken(cfg, "u1", true)
	require.NoError(t, err)
	assert.Equal(t, "issued-elsewhere", token, "a configured token is never replaced")
}

func TestCLI_RequiresTokenWithoutDevFlag(t *testing.T) {
	cfg := config.Default()
	cfg.Client.UserID = "u1"

	var out bytes.Buffer
	err := run(context.Background(), cfg, logger.Discard(), []string{"menu"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STOREFRONT_TOKEN")

	out.Reset()
	err = run(context.Background(), cfg, logger.Discard(), []string{"--dev-token", "token"}, &out)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out.String()))
}

func TestNewClient_UsesRequestTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	cfg := config.Default()
	cfg.Client.RequestTimeout = 20 * time.Millisecond
	cfg.Client.MaxReadAttempts = 1

	started := time.Now()
	_, err := newClient(cfg, slow.URL, "t", logger.Discard(), nil).GetMenu(context.Background())

	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindTransport))
	assert.Less(t, time.Since(started), 500*time.Millisecond)
}
