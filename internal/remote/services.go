package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
)

// GetMenu fetches the full menu
func (c *Client) GetMenu(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.read(ctx, "get_menu", "/menu", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetCart fetches the authoritative cart lines for a user
func (c *Client) GetCart(ctx context.Context, userID string) ([]models.CartLine, error) {
	var resp models.CartResponse
	if err := c.read(ctx, "get_cart", "/cart/"+url.PathEscape(userID), &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// PutCart writes absolute line values; a nil line removes the item
func (c *Client) PutCart(ctx context.Context, userID string, items map[string]*models.CartLine) error {
	body := models.CartUpdate{Items: items}
	return c.do(ctx, "put_cart", http.MethodPut, "/cart/"+url.PathEscape(userID), body, nil)
}

// GetCoupons fetches every coupon the restaurant publishes
func (c *Client) GetCoupons(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := c.read(ctx, "get_coupons", "/coupons", &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

// CouponEligibility asks whether the user may redeem the coupon
func (c *Client) CouponEligibility(ctx context.Context, userID, couponID string) (models.Eligibility, error) {
	var verdict models.Eligibility
	path := "/coupons/" + url.PathEscape(couponID) + "/eligibility?userId=" + url.QueryEscape(userID)
	if err := c.read(ctx, "coupon_eligibility", path, &verdict); err != nil {
		return models.Eligibility{}, err
	}
	return verdict, nil
}

// CreateOrder posts the order snapshot exactly once; it is never retried
func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (string, error) {
	var created models.OrderCreated
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders", req, &created); err != nil {
		return "", err
	}
	return created.OrderID, nil
}

// OrdersByUser lists the user's orders
func (c *Client) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := c.read(ctx, "orders_by_user", "/users/"+url.PathEscape(userID)+"/orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CancelOrder asks the order service to cancel an order
func (c *Client) CancelOrder(ctx context.Context, userID, orderID string) error {
	body := models.CancelRequest{UserID: userID}
	return c.do(ctx, "cancel_order", http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/cancel", body, nil)
}
