package models

import (
	"time"
)

// SecureEntry is one key-value row of client secure storage when it is
// backed by SQL. Values are opaque (usually ciphertext).
type SecureEntry struct {
	Key       string    `gorm:"primaryKey;size:255" json:"key"`
	Value     []byte    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
