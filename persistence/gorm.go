package persistence

import (
	"context"
	"errors"
	"fmt"

	"challenge-reward-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps entries in the secure_entries table.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore migrates the entry table and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.SecureEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate secure entries: %w", err)
	}
	return &GormStore{DB: db}, nil
}

func (g *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.SecureEntry
	err := g.DB.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", key, err)
	}
	return entry.Value, nil
}

func (g *GormStore) Set(ctx context.Context, key string, value []byte) error {
	entry := models.SecureEntry{Key: key, Value: value}
	err := g.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

func (g *GormStore) Delete(ctx context.Context, key string) error {
	if err := g.DB.WithContext(ctx).Where("key = ?", key).Delete(&models.SecureEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
