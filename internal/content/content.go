// Package content assembles CMS-driven presentation data: pages resolved
// from the sitemap, post listings and featured product modules. Products
// referenced by content are loaded from the commerce catalog.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"storefront/internal/adapter"
	"storefront/internal/agility"
	"storefront/internal/model"
)

// Config controls locale and sitemap defaults.
type Config struct {
	DefaultLocale string // e.g. "en-us"
	Sitemap       string // sitemap channel, e.g. "website"
}

// Service reads content from the CMS and enriches it with catalog products.
type Service struct {
	cms     adapter.CMS
	catalog adapter.Catalog
	cfg     Config
	logger  *slog.Logger
}

// NewService creates a content service.
func NewService(cms adapter.CMS, catalog adapter.Catalog, cfg Config, logger *slog.Logger) *Service {
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "en-us"
	}
	if cfg.Sitemap == "" {
		cfg.Sitemap = "website"
	}
	return &Service{cms: cms, catalog: catalog, cfg: cfg, logger: logger}
}

// DefaultLocale returns the CMS default locale.
func (s *Service) DefaultLocale() string {
	return s.cfg.DefaultLocale
}

func (s *Service) locale(locale string) string {
	if locale == "" {
		return s.cfg.DefaultLocale
	}
	return strings.ToLower(locale)
}

// CatalogLocale maps a CMS locale ("en-us") to the catalog language ("en").
func CatalogLocale(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	if lang == "" {
		return "en"
	}
	return strings.ToLower(lang)
}

// productBySlug fetches a product and treats upstream failures as misses.
func (s *Service) productBySlug(ctx context.Context, slug, locale string) *model.Product {
	p, err := s.catalog.FetchProductBySlug(ctx, slug, CatalogLocale(locale))
	if err != nil {
		s.logger.ErrorContext(ctx, "product lookup failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if p == nil {
		s.logger.WarnContext(ctx, "product not found in catalog",
			slog.String("slug", slug),
			slog.String("locale", CatalogLocale(locale)),
		)
	}
	return p
}

func imageFromProduct(p *model.Product) *agility.Image {
	if p == nil || p.FeaturedImage == nil {
		return nil
	}
	return &agility.Image{
		URL:    p.FeaturedImage.URL,
		Label:  p.FeaturedImage.Label,
		Width:  p.FeaturedImage.Width,
		Height: p.FeaturedImage.Height,
	}
}

func sitemapError(channel string, err error) error {
	return fmt.Errorf("loading sitemap %s: %w", channel, err)
}
