package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/mod/semver"

	"storefront/internal/model"
)

// SchemaVersion is the snapshot format written by this build. Snapshots with
// another major version are discarded on load.
const SchemaVersion = "v1.1.0"

// ErrNoSnapshot is returned by a Persister when a session has nothing saved.
var ErrNoSnapshot = errors.New("no cart snapshot")

// Persister is the serialization boundary for cart snapshots.
type Persister interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, data []byte) error
	Delete(ctx context.Context, sessionID string) error
}

// snapshot is the persisted form of State.
type snapshot struct {
	SchemaVersion string    `json:"schemaVersion"`
	State         State     `json:"state"`
	SavedAt       time.Time `json:"savedAt"`
}

// View is State plus its derived totals, as served to clients.
type View struct {
	Items     []itemView `json:"items"`
	Subtotal  string     `json:"subtotal"`
	ItemCount int        `json:"itemCount"`
	IsOpen    bool       `json:"isOpen"`
}

type itemView struct {
	ProductSlug string  `json:"productSlug"`
	Title       string  `json:"title"`
	VariantSKU  string  `json:"variantSKU"`
	ProductID   string  `json:"productId,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   string  `json:"lineTotal"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Color       string  `json:"color,omitempty"`
	Size        string  `json:"size,omitempty"`
}

// NewView derives the client view of s.
func NewView(s State) View {
	v := View{
		Items:     make([]itemView, 0, len(s.Items)),
		Subtotal:  s.Subtotal().StringFixed(2),
		ItemCount: s.ItemCount(),
		IsOpen:    s.IsOpen,
	}
	for _, item := range s.Items {
		price := unitPrice(item)
		iv := itemView{
			ProductSlug: item.Product.Slug,
			Title:       item.Product.Title,
			VariantSKU:  item.VariantSKU,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			UnitPrice:   price.InexactFloat64(),
			LineTotal:   price.Mul(decimal.NewFromInt(int64(item.Quantity))).StringFixed(2),
			Color:       item.Variant.ColorName,
			Size:        item.Variant.Size.Fields.Title,
		}
		switch {
		case item.Variant.VariantImage != nil:
			iv.ImageURL = item.Variant.VariantImage.URL
		case item.Product.FeaturedImage != nil:
			iv.ImageURL = item.Product.FeaturedImage.URL
		}
		v.Items = append(v.Items, iv)
	}
	return v
}

const lockStripes = 64

// Store owns cart state per session. Mutations of one session are
// serialized around load, reduce and save.
type Store struct {
	persister Persister
	locks     [lockStripes]sync.Mutex
}

// New creates a Store over p.
func New(p Persister) *Store {
	return &Store{persister: p}
}

func (s *Store) lock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%lockStripes]
}

// Get returns the session's current state. Unknown sessions are empty.
func (s *Store) Get(ctx context.Context, sessionID string) (State, error) {
	return s.load(ctx, sessionID)
}

// Dispatch applies action to the session's state and persists the result.
func (s *Store) Dispatch(ctx context.Context, sessionID string, action Action) (State, error) {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}

	next, err := Reduce(current, action)
	if err != nil {
		return current, err
	}

	if err := s.save(ctx, sessionID, next); err != nil {
		return current, err
	}
	return next, nil
}

// Reset deletes the session's snapshot. The next read starts empty.
func (s *Store) Reset(ctx context.Context, sessionID string) error {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.persister.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting cart snapshot: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, sessionID string) (State, error) {
	empty := State{Items: []model.CartItem{}}
	data, err := s.persister.Load(ctx, sessionID)
	if errors.Is(err, ErrNoSnapshot) {
		return empty, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("loading cart snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return empty, nil
	}
	if !Compatible(snap.SchemaVersion) {
		return empty, nil
	}
	if snap.State.Items == nil {
		snap.State.Items = empty.Items
	}
	return snap.State, nil
}

func (s *Store) save(ctx context.Context, sessionID string, state State) error {
	data, err := json.Marshal(snapshot{
		SchemaVersion: SchemaVersion,
		State:         state,
		SavedAt:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal cart snapshot failed: %w", err)
	}
	if err := s.persister.Save(ctx, sessionID, data); err != nil {
		return fmt.Errorf("saving cart snapshot: %w", err)
	}
	return nil
}

// Compatible reports whether a snapshot written with version can be read.
// Same major version only; malformed versions are incompatible.
func Compatible(version string) bool {
	if !semver.IsValid(version) {
		return false
	}
	return semver.Major(version) == semver.Major(SchemaVersion)
}
