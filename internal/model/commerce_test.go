package model

import (
	"testing"
)

func TestLineItemDraft_Validate(t *testing.T) {
	tests := []struct {
		name    string
		draft   LineItemDraft
		wantErr error
	}{
		{"sku only", LineItemDraft{SKU: "MUG-RED", Quantity: 1}, nil},
		{"product and variant", LineItemDraft{ProductID: "p1", VariantID: 2, Quantity: 3}, nil},
		{"both identifiers", LineItemDraft{SKU: "MUG-RED", ProductID: "p1", VariantID: 1, Quantity: 1}, errDraftBothIdentifiers},
		{"product without variant", LineItemDraft{ProductID: "p1", Quantity: 1}, errDraftNoIdentifier},
		{"nothing", LineItemDraft{Quantity: 1}, errDraftNoIdentifier},
		{"blank sku", LineItemDraft{SKU: "  ", Quantity: 1}, errDraftNoIdentifier},
		{"zero quantity", LineItemDraft{SKU: "MUG-RED"}, errDraftQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.draft.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocalizedString_Preferred(t *testing.T) {
	tests := []struct {
		name string
		in   LocalizedString
		want string
	}{
		{"english first", LocalizedString{"de": "Kissen", "en": "Pillow", "en-US": "Pillow US"}, "Pillow"},
		{"en-US fallback", LocalizedString{"de": "Kissen", "en-US": "Pillow US"}, "Pillow US"},
		{"first by locale", LocalizedString{"fr": "Coussin", "de": "Kissen"}, "Kissen"},
		{"skips empty", LocalizedString{"en": "", "fr": "Coussin"}, "Coussin"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Preferred(); got != tt.want {
				t.Errorf("Preferred() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCartLineItemBySKU(t *testing.T) {
	cart := &Cart{LineItems: []LineItem{
		{ID: "li-1", Variant: LineItemVariant{SKU: "A"}},
		{ID: "li-2", Variant: LineItemVariant{SKU: "B"}},
	}}

	if li := cart.LineItemBySKU("B"); li == nil || li.ID != "li-2" {
		t.Errorf("LineItemBySKU(B) = %+v, want li-2", li)
	}
	if li := cart.LineItemBySKU("C"); li != nil {
		t.Errorf("LineItemBySKU(C) = %+v, want nil", li)
	}
}

func TestProductVariantBySKU(t *testing.T) {
	p := &Product{Variants: []Variant{{VariantSKU: "S"}, {VariantSKU: "M"}}}
	if v := p.VariantBySKU("M"); v == nil || v.VariantSKU != "M" {
		t.Errorf("VariantBySKU(M) = %+v", v)
	}
	if v := p.VariantBySKU("XL"); v != nil {
		t.Errorf("VariantBySKU(XL) = %+v, want nil", v)
	}
}
