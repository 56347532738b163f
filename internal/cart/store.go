package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/kv"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
)

const (
	// StorageKey holds the JSON encoded line items.
	StorageKey = "rmjobsites_cart"
	// CountKey holds the badge count (sum of quantities).
	CountKey = "rmjobsites_cart_count"
	// CountTTL bounds how long the badge count survives without a cart save.
	CountTTL = 7 * 24 * time.Hour
)

// Store persists cart contents in a key-value backend. Every failure is logged and
// absorbed; callers always get a usable (possibly empty) cart.
type Store struct {
	kv     kv.Store
	logger *logger.Logger
}

// NewStore wires the persistent cart store.
func NewStore(store kv.Store, logg *logger.Logger) (*Store, error) {
	if store == nil {
		return nil, errors.New("kv store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{kv: store, logger: logg}, nil
}

// Load returns the stored line items, or an empty slice when nothing usable is stored.
func (s *Store) Load(ctx context.Context) []Item {
	raw, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Error(ctx, "cart.load_failed", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "read cart"))
		}
		return []Item{}
	}

	var stored []Item
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Error(ctx, "cart.decode_failed", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decode cart"))
		return []Item{}
	}

	items, dropped := normalize(stored)
	if dropped > 0 {
		warnCtx := s.logger.WithField(ctx, "dropped_lines", dropped)
		s.logger.Warn(warnCtx, "cart.invalid_lines_dropped")
	}
	return items
}

// Save overwrites the stored cart and refreshes the badge count.
func (s *Store) Save(ctx context.Context, items []Item) {
	if items == nil {
		items = []Item{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		s.logger.Error(ctx, "cart.encode_failed", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encode cart"))
		return
	}
	if err := s.kv.Set(ctx, StorageKey, string(payload), 0); err != nil {
		s.logger.Error(ctx, "cart.save_failed", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write cart"))
	}
	count := strconv.Itoa(ItemCount(items))
	if err := s.kv.Set(ctx, CountKey, count, CountTTL); err != nil {
		s.logger.Error(ctx, "cart.count_save_failed", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write cart count"))
	}
}

// Clear removes the stored cart and the badge count.
func (s *Store) Clear(ctx context.Context) {
	if err := s.kv.Delete(ctx, StorageKey, CountKey); err != nil {
		s.logger.Error(ctx, "cart.clear_failed", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear cart"))
	}
}

// Count reads the badge count without decoding the cart.
func (s *Store) Count(ctx context.Context) int {
	raw, err := s.kv.Get(ctx, CountKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Error(ctx, "cart.count_load_failed", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "read cart count"))
		}
		return 0
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0
	}
	return count
}

// normalize drops lines without a variation or with a non-positive quantity and merges
// duplicate variations into the first occurrence.
func normalize(stored []Item) ([]Item, int) {
	items := make([]Item, 0, len(stored))
	index := make(map[string]int, len(stored))
	dropped := 0
	for _, item := range stored {
		if item.VariationID == "" || item.Quantity < 1 || item.Price < 0 {
			dropped++
			continue
		}
		if pos, ok := index[item.VariationID]; ok {
			items[pos].Quantity += item.Quantity
			dropped++
			continue
		}
		index[item.VariationID] = len(items)
		items = append(items, item)
	}
	return items, dropped
}
