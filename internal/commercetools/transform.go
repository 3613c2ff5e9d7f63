package commercetools

import (
	"encoding/json"
	"regexp"
	"strings"

	"storefront/internal/model"
)

// =============================================================================
// PRODUCT TRANSFORMATION
// =============================================================================
//
// Maps localized, variant-based product projections to model.Product.
//
// Localized fields always resolve through model.LocalizedString.Preferred
// ("en", "en-US", then first available), whatever locale the request used.
// Callers that need another language must read the projection directly.
// =============================================================================

const defaultColorHex = "#000000"

var whitespaceRun = regexp.MustCompile(`\s+`)

// TransformProduct converts a product projection to the storefront shape.
// Pure: no I/O, output depends only on p.
func TransformProduct(p *ProductProjection) model.Product {
	master := p.MasterVariant

	slug := p.Slug.Preferred()
	if slug == "" {
		slug = p.ID
	}

	product := model.Product{
		Title:           p.Name.Preferred(),
		SKU:             p.ID,
		Slug:            whitespaceRun.ReplaceAllString(strings.ToLower(slug), "-"),
		Description:     p.Description.Preferred(),
		BasePrice:       "0.00",
		CommercetoolsID: p.ID,
	}

	if master != nil {
		if master.SKU != "" {
			product.SKU = master.SKU
		}
		if cents := firstPriceCents(master); cents != 0 {
			product.BasePrice = model.FormatCents(cents)
		}
		product.FeaturedImage = firstImage(master)
	}

	// Master first, then the remaining variants in backend order.
	all := make([]ProductVariant, 0, len(p.Variants)+1)
	if master != nil {
		all = append(all, *master)
	}
	all = append(all, p.Variants...)

	product.Variants = make([]model.Variant, 0, len(all))
	for i := range all {
		product.Variants = append(product.Variants, transformVariant(&all[i]))
	}

	return product
}

func transformVariant(v *ProductVariant) model.Variant {
	color := attributeString(findAttribute(v.Attributes, "color", "Color"))
	colorHex := color
	if colorHex == "" {
		colorHex = defaultColorHex
	}

	stock := 0
	if v.Availability != nil {
		stock = v.Availability.AvailableQuantity
	}

	return model.Variant{
		VariantID:  v.ID,
		VariantSKU: v.SKU,
		Color:      color,
		ColorName:  color,
		ColorHEX:   colorHex,
		Size: model.SizeField{
			Fields: model.SizeFields{
				Title: attributeString(findAttribute(v.Attributes, "size", "Size")),
			},
		},
		Price:         model.CentsToDecimal(firstPriceCents(v)).InexactFloat64(),
		VariantImage:  firstImage(v),
		StockQuantity: stock,
	}
}

func firstPriceCents(v *ProductVariant) int64 {
	if len(v.Prices) == 0 {
		return 0
	}
	return v.Prices[0].Value.CentAmount
}

func firstImage(v *ProductVariant) *model.Image {
	if len(v.Images) == 0 {
		return nil
	}
	img := v.Images[0]
	out := &model.Image{URL: img.URL, Label: img.Label}
	if img.Dimensions != nil {
		out.Width = img.Dimensions.W
		out.Height = img.Dimensions.H
	}
	return out
}

func findAttribute(attrs []Attribute, names ...string) json.RawMessage {
	for _, attr := range attrs {
		for _, name := range names {
			if attr.Name == name {
				return attr.Value
			}
		}
	}
	return nil
}

// attributeString reads a plain string, an enum label/key or a localized
// string from an attribute value. Other types yield "".
func attributeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var enum struct {
		Key   string          `json:"key"`
		Label json.RawMessage `json:"label"`
	}
	if err := json.Unmarshal(raw, &enum); err == nil && (enum.Key != "" || len(enum.Label) > 0) {
		if label := attributeString(enum.Label); label != "" {
			return label
		}
		return enum.Key
	}

	var localized model.LocalizedString
	if err := json.Unmarshal(raw, &localized); err == nil {
		return localized.Preferred()
	}

	return ""
}
