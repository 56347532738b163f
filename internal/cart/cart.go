package cart

import (
	"context"
	"errors"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
)

// Item is one line of the cart. Price is in minor currency units.
type Item struct {
	ProductID     string `json:"productId"`
	VariationID   string `json:"variationId"`
	ProductName   string `json:"productName"`
	VariationName string `json:"variationName"`
	Price         int64  `json:"price"`
	Quantity      int    `json:"quantity"`
	ImageURL      string `json:"imageUrl,omitempty"`
}

// LineTotal is price × quantity.
func (i Item) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// NewItem is what the catalog hands to AddItem; quantity is implied.
type NewItem struct {
	ProductID     string
	VariationID   string
	ProductName   string
	VariationName string
	Price         int64
	ImageURL      string
}

// LineItem is the pricing and order-creation view of a cart line.
type LineItem struct {
	CatalogObjectID string
	Quantity        int
}

// ItemCount sums quantities.
func ItemCount(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// Subtotal sums line totals.
func Subtotal(items []Item) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// LineItems projects items to (variation, quantity) pairs in cart order.
func LineItems(items []Item) []LineItem {
	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineItem{CatalogObjectID: item.VariationID, Quantity: item.Quantity})
	}
	return lines
}

// Persister is the storage contract the cart writes through to.
type Persister interface {
	Load(ctx context.Context) []Item
	Save(ctx context.Context, items []Item)
	Clear(ctx context.Context)
}

// Listener receives a snapshot of the line items after a mutation changed them.
// Listeners run synchronously and must not mutate the cart.
type Listener func(items []Item)

// Cart is the in-memory cart aggregate. All mutations hydrate first, apply under the
// lock and write through to the store before the lock is released.
type Cart struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	store    Persister
	items    []Item
	hydrated bool

	// listenMu guards listeners only and is never held while a listener runs, so a
	// listener may unsubscribe during notification.
	listenMu  sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// New wires a cart over the given store. The cart reports Loading until hydrated.
func New(store Persister) (*Cart, error) {
	if store == nil {
		return nil, errors.New("cart store required")
	}
	return &Cart{store: store, listeners: map[int]Listener{}}, nil
}

// Hydrate loads the stored cart once. Later calls are no-ops.
func (c *Cart) Hydrate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hydrateLocked(ctx)
}

func (c *Cart) hydrateLocked(ctx context.Context) {
	if c.hydrated {
		return
	}
	// a cancelled request must not leave the cart hydrated as empty
	c.items = c.store.Load(context.WithoutCancel(ctx))
	c.hydrated = true
}

// AddItem increments the matching line or appends a new line with quantity 1.
func (c *Cart) AddItem(ctx context.Context, item NewItem) error {
	item.VariationID = strings.TrimSpace(item.VariationID)
	if item.VariationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "variation id is required")
	}
	if item.Price < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	c.mutate(ctx, func(items []Item) ([]Item, bool) {
		for i := range items {
			if items[i].VariationID == item.VariationID {
				items[i].Quantity++
				return items, true
			}
		}
		return append(items, Item{
			ProductID:     item.ProductID,
			VariationID:   item.VariationID,
			ProductName:   item.ProductName,
			VariationName: item.VariationName,
			Price:         item.Price,
			Quantity:      1,
			ImageURL:      item.ImageURL,
		}), true
	})
	return nil
}

// RemoveItem deletes the matching line. Absent lines are ignored.
func (c *Cart) RemoveItem(ctx context.Context, variationID string) {
	variationID = strings.TrimSpace(variationID)
	c.mutate(ctx, func(items []Item) ([]Item, bool) {
		return remove(items, variationID)
	})
}

// UpdateQuantity replaces the quantity in place; quantity <= 0 removes the line.
func (c *Cart) UpdateQuantity(ctx context.Context, variationID string, quantity int) {
	variationID = strings.TrimSpace(variationID)
	c.mutate(ctx, func(items []Item) ([]Item, bool) {
		if quantity <= 0 {
			return remove(items, variationID)
		}
		for i := range items {
			if items[i].VariationID == variationID {
				if items[i].Quantity == quantity {
					return items, false
				}
				items[i].Quantity = quantity
				return items, true
			}
		}
		return items, false
	})
}

// Clear empties the cart and deletes it from the store.
func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	c.hydrateLocked(ctx)
	changed := len(c.items) > 0
	c.items = []Item{}
	c.store.Clear(ctx)
	c.publishLocked(changed)
}

func (c *Cart) mutate(ctx context.Context, fn func([]Item) ([]Item, bool)) {
	c.mu.Lock()
	c.hydrateLocked(ctx)
	next, changed := fn(c.items)
	c.items = next
	c.store.Save(ctx, c.items)
	c.publishLocked(changed)
}

// publishLocked releases c.mu and, when changed, notifies listeners in mutation order.
func (c *Cart) publishLocked(changed bool) {
	if !changed {
		c.mu.Unlock()
		return
	}
	c.listenMu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.listenMu.Unlock()
	if len(listeners) == 0 {
		c.mu.Unlock()
		return
	}
	snapshot := clone(c.items)
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	for _, fn := range listeners {
		fn(clone(snapshot))
	}
}

// Subscribe registers fn for change notifications; the returned func unregisters it.
func (c *Cart) Subscribe(fn Listener) func() {
	c.listenMu.Lock()
	defer c.listenMu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenMu.Lock()
			delete(c.listeners, id)
			c.listenMu.Unlock()
		})
	}
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.items)
}

// ItemCount is the sum of quantities.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ItemCount(c.items)
}

// Subtotal is the sum of line totals in minor units.
func (c *Cart) Subtotal() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Subtotal(c.items)
}

// LineItems returns the (variation, quantity) pairs used for pricing and orders.
func (c *Cart) LineItems() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return LineItems(c.items)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// Loading reports whether the cart has not been hydrated yet. Reads return an
// empty cart while loading.
func (c *Cart) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.hydrated
}

func remove(items []Item, variationID string) ([]Item, bool) {
	for i := range items {
		if items[i].VariationID == variationID {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}

func clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
