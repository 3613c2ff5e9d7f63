// Package reconcile computes the mutations that turn a backend cart's current
// line items into a desired set. The cart endpoints use it to offer PUT
// semantics: fetch the cart, diff, and apply only the necessary mutations.
package reconcile

import (
	"strconv"

	"storefront/internal/model"
)

// LineItemDiff describes the mutations needed to reconcile line items.
// Operations should be applied in order: Remove → Update → Add
// so an update never targets a removed line.
type LineItemDiff struct {
	ToRemove []ItemToRemove
	ToUpdate []ItemToUpdate
	ToAdd    []model.LineItemDraft
}

// ItemToRemove is a line present in the cart but not desired.
type ItemToRemove struct {
	LineItemID string
	SKU        string
}

// ItemToUpdate is a line present in both with a different quantity.
type ItemToUpdate struct {
	LineItemID  string
	SKU         string
	OldQuantity int
	NewQuantity int
}

// IsEmpty returns true if no line item changes are needed.
func (d *LineItemDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// Len is the number of mutations in the diff.
func (d *LineItemDiff) Len() int {
	return len(d.ToAdd) + len(d.ToRemove) + len(d.ToUpdate)
}

// DiffLineItems computes the delta between a cart's line items and desired
// drafts. A draft matches a line by SKU, or by product and variant id when
// the draft names no SKU. Drafts with the same identity are merged by
// summing quantities; a desired quantity of zero or less removes the line.
//
// Output follows input order so repeated diffs apply mutations identically.
func DiffLineItems(current []model.LineItem, desired []model.LineItemDraft) *LineItemDiff {
	diff := &LineItemDiff{}

	currentByKey := make(map[string]int, len(current)*2)
	for i, item := range current {
		if item.Variant.SKU != "" {
			currentByKey[skuKey(item.Variant.SKU)] = i
		}
		currentByKey[variantKey(item.ProductID, item.Variant.ID)] = i
	}

	// Merge desired drafts by the current line they resolve to, or by their
	// own key when no line matches.
	type want struct {
		draft    model.LineItemDraft
		line     int // index into current, -1 when new
		quantity int
	}
	var wants []*want
	byKey := make(map[string]*want)
	for _, d := range desired {
		key := draftKey(d)
		line := -1
		if i, ok := currentByKey[key]; ok {
			line = i
			key = "line:" + strconv.Itoa(i)
		}
		if w, ok := byKey[key]; ok {
			w.quantity += d.Quantity
			continue
		}
		w := &want{draft: d, line: line, quantity: d.Quantity}
		byKey[key] = w
		wants = append(wants, w)
	}

	kept := make(map[int]bool)
	for _, w := range wants {
		if w.line < 0 {
			if w.quantity > 0 {
				add := w.draft
				add.Quantity = w.quantity
				diff.ToAdd = append(diff.ToAdd, add)
			}
			continue
		}
		if w.quantity <= 0 {
			continue
		}
		kept[w.line] = true
		cur := current[w.line]
		if cur.Quantity != w.quantity {
			diff.ToUpdate = append(diff.ToUpdate, ItemToUpdate{
				LineItemID:  cur.ID,
				SKU:         cur.Variant.SKU,
				OldQuantity: cur.Quantity,
				NewQuantity: w.quantity,
			})
		}
	}

	for i, item := range current {
		if !kept[i] {
			diff.ToRemove = append(diff.ToRemove, ItemToRemove{
				LineItemID: item.ID,
				SKU:        item.Variant.SKU,
			})
		}
	}

	return diff
}

func draftKey(d model.LineItemDraft) string {
	if d.SKU != "" {
		return skuKey(d.SKU)
	}
	return variantKey(d.ProductID, d.VariantID)
}

func skuKey(sku string) string {
	return "sku:" + sku
}

func variantKey(productID string, variantID int) string {
	return "variant:" + productID + ":" + strconv.Itoa(variantID)
}

// ShippingMethodChanged returns true if a shipping method is requested and
// differs from the cart's current one.
func ShippingMethodChanged(currentID, desiredID string) bool {
	return desiredID != "" && currentID != desiredID
}
