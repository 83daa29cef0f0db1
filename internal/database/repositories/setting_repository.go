package repositories

import (
	"context"
	"errors"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bbernstein/lacylights-ddp/internal/database/models"
)

// SettingRepository handles setting data access.
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new SettingRepository.
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// FindByKey returns a setting by key, or nil if it does not exist.
func (r *SettingRepository) FindByKey(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	result := r.db.WithContext(ctx).First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &setting, nil
}

// Upsert creates or updates a setting by key.
func (r *SettingRepository) Upsert(ctx context.Context, key, value string) error {
	setting := models.Setting{
		ID:    cuid.New(),
		Key:   key,
		Value: value,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// Delete deletes a setting by key.
func (r *SettingRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&models.Setting{}, "key = ?", key).Error
}

// LoadStatus returns the stored DDP status payload, or nil if none was saved.
func (r *SettingRepository) LoadStatus(ctx context.Context) ([]byte, error) {
	setting, err := r.FindByKey(ctx, models.SettingStatusJSON)
	if err != nil || setting == nil {
		return nil, err
	}
	return []byte(setting.Value), nil
}

// SaveStatus stores the DDP status payload.
func (r *SettingRepository) SaveStatus(ctx context.Context, payload []byte) error {
	return r.Upsert(ctx, models.SettingStatusJSON, string(payload))
}

// ClearStatus removes the stored DDP status payload.
func (r *SettingRepository) ClearStatus(ctx context.Context) error {
	return r.Delete(ctx, models.SettingStatusJSON)
}
