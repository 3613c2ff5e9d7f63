package content

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"storefront/internal/agility"
	"storefront/internal/model"
)

var featuredProductFields = []string{"product1", "product2", "product3"}

// CTALink is a CMS URL field.
type CTALink struct {
	Href   string `json:"href"`
	Target string `json:"target,omitempty"`
	Text   string `json:"text,omitempty"`
}

// FeaturedProducts is the featured products module with its products loaded.
type FeaturedProducts struct {
	ContentID       int             `json:"contentID"`
	Heading         string          `json:"heading"`
	Subheading      string          `json:"subheading,omitempty"`
	CTAText         string          `json:"ctaText,omitempty"`
	CTALink         *CTALink        `json:"ctaLink,omitempty"`
	BackgroundImage *agility.Image  `json:"backgroundImage,omitempty"`
	Products        []model.Product `json:"products"`
}

// FeaturedProducts loads the module and up to three products it references.
// Products are fetched concurrently; slugs that miss are dropped.
func (s *Service) FeaturedProducts(ctx context.Context, contentID int, locale string) (*FeaturedProducts, error) {
	locale = s.locale(locale)

	item, err := s.cms.GetContentItem(ctx, contentID, locale)
	if err != nil {
		return nil, fmt.Errorf("loading featured products module %d: %w", contentID, err)
	}

	module := &FeaturedProducts{
		ContentID:       item.ContentID,
		Heading:         item.String("heading"),
		Subheading:      item.String("subheading"),
		CTAText:         item.String("ctaText"),
		BackgroundImage: item.Image("backgroundImage"),
		Products:        []model.Product{},
	}
	if raw, ok := item.Fields["ctaLink"]; ok {
		var link CTALink
		if json.Unmarshal(raw, &link) == nil && link.Href != "" {
			module.CTALink = &link
		}
	}

	var slugs []string
	for _, field := range featuredProductFields {
		if slug := featuredSlug(item.String(field)); slug != "" {
			slugs = append(slugs, slug)
		}
	}

	found := make([]*model.Product, len(slugs))
	g, gctx := errgroup.WithContext(ctx)
	for i, slug := range slugs {
		g.Go(func() error {
			found[i] = s.productBySlug(gctx, slug, locale)
			return nil
		})
	}
	g.Wait()

	for _, p := range found {
		if p != nil {
			module.Products = append(module.Products, *p)
		}
	}
	if len(module.Products) == 0 && len(slugs) > 0 {
		s.logger.WarnContext(ctx, "no featured products found; check the product slugs in the CMS")
	}
	return module, nil
}

// featuredSlug reads a product1..3 field. Non-JSON values are used as the
// slug unchanged.
func featuredSlug(value string) string {
	if value == "" {
		return ""
	}
	slug, isJSON := ProductSlugFromField(value)
	if !isJSON {
		return value
	}
	return slug
}
