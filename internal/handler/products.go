package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dunglas/httpsfv"

	"storefront/internal/model"
)

const (
	catalogMaxAge               = 60
	catalogStaleWhileRevalidate = 120
	defaultLanguageCode         = "en-us"

	// allCategories disables the category filter.
	allCategories = "all"
)

// productSorts maps the storefront's sort keys to catalog sort expressions.
var productSorts = map[string]string{
	"price-low":  "price asc",
	"price-high": "price desc",
	"name-az":    "name.en asc",
	"name-za":    "name.en desc",
	"newest":     "createdAt desc",
}

// catalogCacheControl is the shared-cache policy for catalog responses,
// serialized as an RFC 8941 dictionary.
var catalogCacheControl = func() string {
	dict := httpsfv.NewDictionary()
	dict.Add("public", httpsfv.NewItem(true))
	dict.Add("s-maxage", httpsfv.NewItem(catalogMaxAge))
	dict.Add("stale-while-revalidate", httpsfv.NewItem(catalogStaleWhileRevalidate))
	v, err := httpsfv.Marshal(dict)
	if err != nil {
		panic(fmt.Sprintf("cache-control: %v", err))
	}
	return v
}()

type productListResponse struct {
	Success    bool          `json:"success"`
	Total      int           `json:"total"`
	TotalCount int           `json:"totalCount"`
	Products   []productView `json:"products"`
}

type productResponse struct {
	Success bool         `json:"success"`
	Product *productView `json:"product,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// productView is a catalog product as the storefront renders it. Category
// is always null; products are not mapped to storefront categories.
type productView struct {
	ID string `json:"id"`
	model.Product
	FeaturedImage *model.Image `json:"featuredImage"`
	Category      *string      `json:"category"`
}

func newProductView(p model.Product, id string) productView {
	if p.Variants == nil {
		p.Variants = []model.Variant{}
	}
	return productView{ID: id, Product: p, FeaturedImage: p.FeaturedImage}
}

// listProductViews keys each product by SKU, or by its position in the
// page when it has none.
func listProductViews(products []model.Product) []productView {
	views := make([]productView, len(products))
	for i, p := range products {
		id := p.SKU
		if id == "" {
			id = fmt.Sprintf("product-%d", i)
		}
		views[i] = newProductView(p, id)
	}
	return views
}

// productQuery builds a catalog query from the listing parameters:
// category, sort, limit (default 100), offset and languageCode.
func productQuery(r *http.Request) model.ProductQuery {
	q := r.URL.Query()
	locale := languageLocale(q.Get("languageCode"))

	pq := model.ProductQuery{Limit: 100, Locale: locale}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		pq.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		pq.Offset = v
	}
	if where, ok := categoryFilter(q.Get("category")); ok {
		pq.Where = append(pq.Where, where)
	}
	if sort, ok := productSorts[q.Get("sort")]; ok {
		pq.Sort = append(pq.Sort, sort)
	}
	return pq
}

// categoryFilter returns the catalog predicate for a category id. Empty
// and "all" select every category.
func categoryFilter(category string) (string, bool) {
	if category == "" || category == allCategories {
		return "", false
	}
	return fmt.Sprintf("categories(id = %q)", category), true
}

// languageLocale maps a language code ("en-us") to the catalog locale ("en").
func languageLocale(code string) string {
	if code == "" {
		code = defaultLanguageCode
	}
	lang, _, _ := strings.Cut(code, "-")
	return strings.ToLower(lang)
}

// handleListProducts returns a page of catalog products.
// GET /api/products
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := productQuery(r)

	page, err := h.catalog.FetchProducts(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing products failed", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusInternalServerError, productResponse{Error: "Failed to fetch products"})
		return
	}

	w.Header().Set("Cache-Control", catalogCacheControl)
	h.writeJSON(w, http.StatusOK, productListResponse{
		Success:    true,
		Total:      page.Count,
		TotalCount: page.Total,
		Products:   listProductViews(page.Results),
	})
}

// handleGetProduct returns one product by slug.
// GET /api/products/{slug}
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := r.PathValue("slug")
	locale := languageLocale(r.URL.Query().Get("languageCode"))

	product, err := h.catalog.FetchProductBySlug(ctx, slug, locale)
	if err != nil {
		h.logger.ErrorContext(ctx, "fetching product failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		h.writeJSON(w, http.StatusInternalServerError, productResponse{Error: "Failed to fetch product"})
		return
	}
	if product == nil {
		h.writeJSON(w, http.StatusNotFound, productResponse{Error: "Product not found"})
		return
	}

	w.Header().Set("Cache-Control", catalogCacheControl)
	id := product.SKU
	if id == "" {
		id = product.Slug
	}
	view := newProductView(*product, id)
	h.writeJSON(w, http.StatusOK, productResponse{Success: true, Product: &view})
}
