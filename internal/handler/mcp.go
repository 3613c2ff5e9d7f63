// MCP transport for the storefront using the official MCP Go SDK.
// Exposes catalog, checkout and order lookup as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/checkout"
	"storefront/internal/model"
)

// === MCP Tool Input/Output Types ===

// SearchProductsInput is the input schema for search_products.
type SearchProductsInput struct {
	Category     string `json:"category,omitempty" jsonschema:"category id to filter by"`
	Sort         string `json:"sort,omitempty" jsonschema:"one of price-low, price-high, name-az, name-za, newest"`
	Limit        int    `json:"limit,omitempty" jsonschema:"page size, default 20"`
	Offset       int    `json:"offset,omitempty" jsonschema:"page offset"`
	LanguageCode string `json:"language_code,omitempty" jsonschema:"language code such as en-us"`
}

// SearchProductsOutput is one page of products.
type SearchProductsOutput struct {
	Total    int             `json:"total"`
	Products []model.Product `json:"products"`
}

// GetProductInput is the input schema for get_product.
type GetProductInput struct {
	Slug         string `json:"slug" jsonschema:"product slug,required"`
	LanguageCode string `json:"language_code,omitempty" jsonschema:"language code such as en-us"`
}

// CheckoutItemInput is one item to buy.
type CheckoutItemInput struct {
	SKU      string `json:"sku" jsonschema:"variant SKU,required"`
	Quantity int    `json:"quantity" jsonschema:"quantity,required"`
	Slug     string `json:"slug,omitempty" jsonschema:"product slug"`
}

// CreateCheckoutSessionInput is the input schema for create_checkout_session.
type CreateCheckoutSessionInput struct {
	Items           []CheckoutItemInput `json:"items" jsonschema:"items to buy,required"`
	Email           string              `json:"email,omitempty" jsonschema:"customer email"`
	CustomerID      string              `json:"customer_id,omitempty" jsonschema:"existing customer id"`
	ShippingAddress *model.Address      `json:"shipping_address,omitempty" jsonschema:"shipping address; collected on the payment page when omitted"`
}

// GetOrderInput is the input schema for get_order.
type GetOrderInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"checkout session id"`
	OrderID   string `json:"order_id,omitempty" jsonschema:"order id"`
	Email     string `json:"email,omitempty" jsonschema:"customer email; returns the latest order"`
}

// GetOrderOutput holds an order, or the payment status while the order is
// being created.
type GetOrderOutput struct {
	Order   *checkout.OrderView     `json:"order,omitempty"`
	Session *checkout.SessionStatus `json:"session,omitempty"`
}

// NewMCPServer creates an MCP server with the storefront tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront catalog and checkout. Search products, then create a checkout " +
				"session and send the shopper to its URL to pay.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_products",
		Description: "List catalog products, optionally filtered by category and sorted.",
	}, h.mcpSearchProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_product",
		Description: "Get a product and its variants by slug.",
	}, h.mcpGetProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_checkout_session",
		Description: "Create a payment checkout session for the given variant SKUs. Returns the payment page URL.",
	}, h.mcpCreateCheckoutSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_order",
		Description: "Look up an order by checkout session id, order id, or customer email.",
	}, h.mcpGetOrder)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpSearchProducts(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchProductsInput,
) (*mcp.CallToolResult, *SearchProductsOutput, error) {
	locale := languageLocale(input.LanguageCode)
	q := model.ProductQuery{Limit: 20, Offset: max(input.Offset, 0), Locale: locale}
	if input.Limit > 0 {
		q.Limit = min(input.Limit, 100)
	}
	if where, ok := categoryFilter(input.Category); ok {
		q.Where = append(q.Where, where)
	}
	if sort, ok := productSorts[input.Sort]; ok {
		q.Sort = append(q.Sort, sort)
	}

	page, err := h.catalog.FetchProducts(ctx, q)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &SearchProductsOutput{Total: page.Total, Products: page.Results}, nil
}

func (h *Handler) mcpGetProduct(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetProductInput,
) (*mcp.CallToolResult, *model.Product, error) {
	if input.Slug == "" {
		return nil, nil, fmt.Errorf("slug is required")
	}

	product, err := h.catalog.FetchProductBySlug(ctx, input.Slug, languageLocale(input.LanguageCode))
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	if product == nil {
		return nil, nil, fmt.Errorf("NOT_FOUND: product %q not found", input.Slug)
	}
	return nil, product, nil
}

func (h *Handler) mcpCreateCheckoutSession(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CreateCheckoutSessionInput,
) (*mcp.CallToolResult, *checkout.StripeSessionResult, error) {
	items := make([]model.CartItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, model.CartItem{
			Product:    model.Product{Slug: item.Slug},
			Variant:    model.Variant{VariantSKU: item.SKU},
			Quantity:   item.Quantity,
			VariantSKU: item.SKU,
		})
	}

	res, err := h.checkout.CreateStripeSession(ctx, checkout.StripeSessionRequest{
		Items:           items,
		CustomerID:      input.CustomerID,
		Email:           input.Email,
		ShippingAddress: input.ShippingAddress,
	})
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, res, nil
}

func (h *Handler) mcpGetOrder(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetOrderInput,
) (*mcp.CallToolResult, *GetOrderOutput, error) {
	if input.SessionID == "" && input.OrderID == "" {
		if input.Email == "" {
			return nil, nil, fmt.Errorf("one of session_id, order_id or email is required")
		}
		order, err := h.checkout.LatestOrderForEmail(ctx, input.Email)
		if err != nil {
			return nil, nil, h.mcpError(err)
		}
		return nil, &GetOrderOutput{Order: order}, nil
	}

	res, err := h.checkout.LookupOrder(ctx, input.SessionID, input.OrderID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &GetOrderOutput{Order: res.Order, Session: res.Session}, nil
}

// mcpError converts service errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var cerr *checkout.Error
	if errors.As(err, &cerr) {
		if cerr.Status >= http.StatusInternalServerError {
			h.logger.Error("mcp checkout error", "error", err.Error())
		}
		if cerr.Message != "" {
			return fmt.Errorf("%s: %s", cerr.Title, cerr.Message)
		}
		return errors.New(cerr.Title)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
