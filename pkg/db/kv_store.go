package db

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/rmjobsites-storefront/pkg/db/models"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/kv"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVStore persists kv entries in the kv_entries table. Expired rows are invisible to Get
// and removed lazily or by PurgeExpired.
type KVStore struct {
	client *Client
	now    func() time.Time
}

var _ kv.Store = (*KVStore)(nil)

func NewKVStore(client *Client) *KVStore {
	return &KVStore{client: client, now: time.Now}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var entry models.KVEntry
	err := s.client.DB().WithContext(ctx).
		Where("entry_key = ?", key).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if entry.Expired(s.now()) {
		if delErr := s.Delete(ctx, key); delErr != nil {
			return "", delErr
		}
		return "", kv.ErrNotFound
	}
	return entry.Value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	now := s.now().UTC()
	entry := models.KVEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		entry.ExpiresAt = &expires
	}
	return s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"entry_value", "expires_at", "updated_at"}),
		}).
		Create(&entry).Error
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.DB().WithContext(ctx).
		Where("entry_key IN ?", keys).
		Delete(&models.KVEntry{}).Error
}

// PurgeExpired removes every expired entry and returns how many rows were deleted.
func (s *KVStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.client.DB().WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.KVEntry{})
	return res.RowsAffected, res.Error
}

func (s *KVStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *KVStore) Close() error {
	return s.client.Close()
}
