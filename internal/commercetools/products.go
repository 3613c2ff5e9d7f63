package commercetools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/model"
)

const (
	pathProductProjections = "/product-projections"

	defaultProductLimit = 100
	defaultLocale       = "en"
)

// FetchProducts returns one page of published products.
// Limit defaults to 100 and Locale to "en".
func (c *Client) FetchProducts(ctx context.Context, q model.ProductQuery) (*model.ProductPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultProductLimit
	}
	locale := q.Locale
	if locale == "" {
		locale = defaultLocale
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(max(q.Offset, 0)))
	query.Set("localeProjection", locale)
	for _, w := range q.Where {
		query.Add("where", w)
	}
	for _, s := range q.Sort {
		query.Add("sort", s)
	}

	req, err := c.newRequest(ctx, http.MethodGet, pathProductProjections, query, nil)
	if err != nil {
		return nil, fmt.Errorf("creating products request: %w", err)
	}

	var resp PagedResponse[ProductProjection]
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}

	page := &model.ProductPage{
		Results: make([]model.Product, 0, len(resp.Results)),
		Total:   resp.Total,
		Count:   resp.Count,
		Offset:  resp.Offset,
		Limit:   resp.Limit,
	}
	for i := range resp.Results {
		page.Results = append(page.Results, TransformProduct(&resp.Results[i]))
	}
	return page, nil
}

// SlugLocaleCandidates lists the locales tried for a slug lookup, in order:
// the requested locale, "en", "en-US", then the requested locale again,
// deduplicated.
func SlugLocaleCandidates(locale string) []string {
	if locale == "" {
		locale = defaultLocale
	}
	seen := make(map[string]bool, 4)
	var out []string
	for _, l := range []string{locale, "en", "en-US", locale} {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// FetchProductBySlug finds a product whose slug matches in the first
// candidate locale that has one. Returns nil, nil when no locale matches.
//
// Slugs are stored under inconsistent locale keys in the catalog, so a match
// may come from a different locale than the one requested.
//
// Concurrent lookups of the same slug share one backend walk. The shared walk
// is detached from any single caller's cancellation; each caller stops
// waiting when its own ctx is done.
func (c *Client) FetchProductBySlug(ctx context.Context, slug, locale string) (*model.Product, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.slugLookups.DoChan(locale+"|"+slug, func() (interface{}, error) {
		for _, candidate := range SlugLocaleCandidates(locale) {
			p, err := c.findBySlug(shared, slug, candidate, locale)
			if err != nil {
				return nil, err
			}
			if p != nil {
				return p, nil
			}
		}
		return (*model.Product)(nil), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Product), nil
	}
}

func (c *Client) findBySlug(ctx context.Context, slug, slugLocale, projectionLocale string) (*model.Product, error) {
	if projectionLocale == "" {
		projectionLocale = defaultLocale
	}

	query := url.Values{}
	query.Set("where", fmt.Sprintf("slug(%s = :slug)", slugLocale))
	query.Set("var.slug", slug)
	query.Set("limit", "1")
	query.Set("localeProjection", projectionLocale)

	req, err := c.newRequest(ctx, http.MethodGet, pathProductProjections, query, nil)
	if err != nil {
		return nil, fmt.Errorf("creating product slug request: %w", err)
	}

	var resp PagedResponse[ProductProjection]
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("fetching product by slug %q (%s): %w", slug, slugLocale, err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	p := TransformProduct(&resp.Results[0])
	return &p, nil
}

// FetchProductByID returns a single published product.
func (c *Client) FetchProductByID(ctx context.Context, id, locale string) (*model.Product, error) {
	if locale == "" {
		locale = defaultLocale
	}

	query := url.Values{}
	query.Set("localeProjection", locale)

	req, err := c.newRequest(ctx, http.MethodGet, pathProductProjections+"/"+url.PathEscape(id), query, nil)
	if err != nil {
		return nil, fmt.Errorf("creating product request: %w", err)
	}

	var resp ProductProjection
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("fetching product %s: %w", id, err)
	}

	p := TransformProduct(&resp)
	return &p, nil
}
