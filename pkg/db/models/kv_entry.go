package models

import "time"

// KVEntry is one key of local client state (cart, badge count, user session).
type KVEntry struct {
	Key       string     `gorm:"column:entry_key;primaryKey;size:255"`
	Value     string     `gorm:"column:entry_value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// Expired reports whether the entry is past its expiry at now.
func (e KVEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}
