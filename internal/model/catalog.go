package model

import (
	"sort"
)

// LocalizedString maps locale codes to text, e.g. {"en": "Pillow", "de": "Kissen"}.
type LocalizedString map[string]string

// Preferred returns the storefront's display value: "en", then "en-US", then
// the first non-empty value in locale order. Empty when nothing is set.
func (l LocalizedString) Preferred() string {
	if len(l) == 0 {
		return ""
	}
	if v := l["en"]; v != "" {
		return v
	}
	if v := l["en-US"]; v != "" {
		return v
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if l[k] != "" {
			return l[k]
		}
	}
	return ""
}

// Image is a product or variant image.
type Image struct {
	URL    string `json:"url"`
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SizeField mirrors the CMS linked-content shape the storefront uses for sizes.
type SizeField struct {
	ContentID int        `json:"contentID"`
	Fields    SizeFields `json:"fields"`
}

// SizeFields holds the size title.
type SizeFields struct {
	Title string `json:"title"`
}

// Variant is a purchasable variant of a Product.
// Derived from backend variant attributes at read time.
type Variant struct {
	VariantID     int       `json:"variantId"`
	VariantSKU    string    `json:"variantSKU"`
	VariantName   string    `json:"variantName,omitempty"`
	Color         string    `json:"color"`
	ColorName     string    `json:"colorName"`
	ColorHEX      string    `json:"colorHEX"`
	Size          SizeField `json:"size"`
	Price         float64   `json:"price"`
	VariantImage  *Image    `json:"variantImage,omitempty"`
	StockQuantity int       `json:"stockQuantity"`
}

// Product is the storefront's product shape: an immutable snapshot per fetch.
type Product struct {
	Title           string    `json:"title"`
	SKU             string    `json:"sku"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	BasePrice       string    `json:"basePrice"` // decimal string, e.g. "19.99"
	FeaturedImage   *Image    `json:"featuredImage,omitempty"`
	Variants        []Variant `json:"variants"`
	CommercetoolsID string    `json:"commercetoolsId,omitempty"`
}

// VariantBySKU returns the variant with the given SKU, or nil.
func (p *Product) VariantBySKU(sku string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].VariantSKU == sku {
			return &p.Variants[i]
		}
	}
	return nil
}

// ProductQuery parameterises a catalog listing.
type ProductQuery struct {
	Limit  int
	Offset int
	Where  []string
	Sort   []string
	Locale string
}

// ProductPage is one page of catalog results.
type ProductPage struct {
	Results []Product `json:"results"`
	Total   int       `json:"total"`
	Count   int       `json:"count"`
	Offset  int       `json:"offset"`
	Limit   int       `json:"limit"`
}
