// Package cartstore keeps the shopper's storefront cart: a local mirror of
// product snapshots and quantities, mutated only through typed actions.
//
// Prices in the store are the ones captured when an item was added. They are
// advisory; the backend cart computed at checkout is authoritative.
package cartstore

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

// State is the full cart store state for one session.
type State struct {
	Items  []model.CartItem `json:"items"`
	IsOpen bool             `json:"isOpen"`
}

// Subtotal sums variant price times quantity.
func (s State) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(unitPrice(item).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ItemCount sums quantities.
func (s State) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// unitPrice uses the variant price, falling back to the product base price.
func unitPrice(item model.CartItem) decimal.Decimal {
	if item.Variant.Price > 0 {
		return decimal.NewFromFloat(item.Variant.Price)
	}
	if d, err := decimal.NewFromString(item.Product.BasePrice); err == nil {
		return d
	}
	return decimal.Zero
}

func (s State) indexOf(sku string) int {
	for i, item := range s.Items {
		if item.VariantSKU == sku {
			return i
		}
	}
	return -1
}

// Action is a typed cart mutation.
type Action interface {
	// Validate rejects malformed actions before they reach the state.
	Validate() error
	apply(State) State
}

var (
	ErrMissingSKU      = errors.New("cart item needs a variant SKU")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// AddItem adds a variant, or increases the quantity when its SKU is present.
type AddItem struct {
	Product  model.Product
	Variant  model.Variant
	Quantity int
}

func (a AddItem) Validate() error {
	if strings.TrimSpace(a.Variant.VariantSKU) == "" {
		return ErrMissingSKU
	}
	if a.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func (a AddItem) apply(s State) State {
	items := cloneItems(s.Items)
	if i := s.indexOf(a.Variant.VariantSKU); i >= 0 {
		items[i].Quantity += a.Quantity
	} else {
		items = append(items, model.CartItem{
			Product:    a.Product,
			Variant:    a.Variant,
			Quantity:   a.Quantity,
			VariantSKU: a.Variant.VariantSKU,
			ProductID:  a.Product.CommercetoolsID,
		})
	}
	s.Items = items
	return s
}

// UpdateQuantity sets an item's quantity. Zero or less removes it.
type UpdateQuantity struct {
	SKU      string
	Quantity int
}

func (a UpdateQuantity) Validate() error {
	if strings.TrimSpace(a.SKU) == "" {
		return ErrMissingSKU
	}
	return nil
}

func (a UpdateQuantity) apply(s State) State {
	if a.Quantity <= 0 {
		return RemoveItem{SKU: a.SKU}.apply(s)
	}
	i := s.indexOf(a.SKU)
	if i < 0 {
		return s
	}
	items := cloneItems(s.Items)
	items[i].Quantity = a.Quantity
	s.Items = items
	return s
}

// RemoveItem drops the item with SKU. Unknown SKUs are ignored.
type RemoveItem struct {
	SKU string
}

func (a RemoveItem) Validate() error {
	if strings.TrimSpace(a.SKU) == "" {
		return ErrMissingSKU
	}
	return nil
}

func (a RemoveItem) apply(s State) State {
	items := make([]model.CartItem, 0, len(s.Items))
	for _, item := range s.Items {
		if item.VariantSKU != a.SKU {
			items = append(items, item)
		}
	}
	s.Items = items
	return s
}

// Clear empties the cart. Dispatched after a successful checkout.
type Clear struct{}

func (Clear) Validate() error { return nil }

func (Clear) apply(s State) State {
	s.Items = []model.CartItem{}
	return s
}

// Open shows the cart drawer.
type Open struct{}

func (Open) Validate() error { return nil }

func (Open) apply(s State) State {
	s.IsOpen = true
	return s
}

// Close hides the cart drawer.
type Close struct{}

func (Close) Validate() error { return nil }

func (Close) apply(s State) State {
	s.IsOpen = false
	return s
}

// Reduce applies a validated action and returns the next state.
// The input state is not modified.
func Reduce(s State, a Action) (State, error) {
	if err := a.Validate(); err != nil {
		return s, err
	}
	return a.apply(s), nil
}

func cloneItems(items []model.CartItem) []model.CartItem {
	out := make([]model.CartItem, len(items))
	copy(out, items)
	return out
}
