package content

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"storefront/internal/agility"
	"storefront/internal/model"
)

const (
	productsSegment       = "products"
	productDetailsSegment = "product-details"
)

var searchParamMarker = regexp.MustCompile(`~~~+`)

// PageResult is a resolved CMS page plus the data its modules share.
type PageResult struct {
	Locale          string                 `json:"locale"`
	Path            string                 `json:"path"`
	SitemapNode     agility.SitemapNode    `json:"sitemapNode"`
	Page            *agility.Page          `json:"page"`
	DynamicPageItem *agility.ContentItem   `json:"dynamicPageItem,omitempty"`
	GlobalData      map[string]interface{} `json:"globalData"`
}

// Route is a page path after product and search parameter rewriting.
type Route struct {
	Segments     []string
	ProductSlug  string
	SearchParams map[string]string
}

// ParseRoute splits a page path into segments and applies the storefront's
// rewrites:
//
//   - .../products/{slug} becomes .../products/product-details and the slug
//     is kept for the product lookup.
//   - A trailing ~~~k=v&k2=v2~~~ segment is decoded into SearchParams.
func ParseRoute(rawPath string) Route {
	segments := strings.Split(strings.Trim(rawPath, "/"), "/")
	r := Route{Segments: segments, SearchParams: map[string]string{}}

	for i, seg := range segments {
		if seg != productsSegment || i >= len(segments)-1 {
			continue
		}
		slug := segments[i+1]
		if slug != productDetailsSegment && slug != "" {
			r.ProductSlug = slug
			r.Segments = append(append([]string{}, segments[:i]...), productsSegment, productDetailsSegment)
		}
		break
	}

	last := r.Segments[len(r.Segments)-1]
	if strings.HasPrefix(last, "~~~") && strings.HasSuffix(last, "~~~") {
		encoded := searchParamMarker.ReplaceAllString(last, "")
		decoded, err := url.PathUnescape(encoded)
		if err != nil {
			decoded = encoded
		}
		for _, part := range strings.Split(decoded, "&") {
			kv := strings.Split(strings.TrimSpace(part), "=")
			if len(kv) == 2 {
				r.SearchParams[kv[0]] = kv[1]
			}
		}
		r.Segments = r.Segments[:len(r.Segments)-1]
		if len(r.Segments) == 0 {
			r.Segments = []string{""}
		}
	}

	return r
}

// Path returns the sitemap path of the route, without a leading locale.
func (r Route) Path(locale string) string {
	segs := r.Segments
	if len(segs) > 0 && strings.EqualFold(segs[0], locale) {
		segs = segs[1:]
	}
	return "/" + strings.Join(segs, "/")
}

// ResolvePage finds the page for rawPath in the sitemap and loads it.
// Product routes attach the product to globalData.product; a product that
// cannot be loaded is logged and left out.
func (s *Service) ResolvePage(ctx context.Context, rawPath, locale string) (*PageResult, error) {
	locale = s.locale(locale)
	route := ParseRoute(rawPath)
	path := route.Path(locale)

	sitemap, err := s.cms.GetSitemapFlat(ctx, s.cfg.Sitemap, locale)
	if err != nil {
		return nil, sitemapError(s.cfg.Sitemap, err)
	}

	node, ok := sitemap.Lookup(path)
	if !ok && path == "/" {
		node, ok = sitemap.Lookup("/home")
	}
	if !ok {
		if route.ProductSlug != "" {
			s.logger.ErrorContext(ctx, "product details page missing from sitemap",
				slog.String("path", rawPath),
				slog.String("rewritten", path),
				slog.String("locale", locale),
			)
		}
		return nil, model.NewNotFoundError("page")
	}

	page, err := s.cms.GetPage(ctx, node.PageID, locale)
	if err != nil {
		return nil, err
	}

	result := &PageResult{
		Locale:      locale,
		Path:        path,
		SitemapNode: node,
		Page:        page,
		GlobalData: map[string]interface{}{
			"searchParams": route.SearchParams,
		},
	}

	if node.ContentID > 0 {
		item, err := s.cms.GetContentItem(ctx, node.ContentID, locale)
		switch {
		case err == nil:
			result.DynamicPageItem = item
		case errors.Is(err, model.ErrNotFound):
		default:
			s.logger.ErrorContext(ctx, "dynamic page item lookup failed",
				slog.Int("content_id", node.ContentID),
				slog.String("error", err.Error()),
			)
		}
	}

	if route.ProductSlug != "" {
		if p := s.productBySlug(ctx, route.ProductSlug, locale); p != nil {
			result.GlobalData["product"] = p
		}
	}

	return result, nil
}
