package repositories

import (
	"context"
	"errors"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bbernstein/lacylights-ddp/internal/database/models"
)

// OutputRepository handles output data access.
type OutputRepository struct {
	db *gorm.DB
}

// NewOutputRepository creates a new OutputRepository.
func NewOutputRepository(db *gorm.DB) *OutputRepository {
	return &OutputRepository{db: db}
}

// FindAll returns all outputs ordered by device id.
func (r *OutputRepository) FindAll(ctx context.Context) ([]models.Output, error) {
	var outputs []models.Output
	result := r.db.WithContext(ctx).
		Order("device_id ASC").
		Find(&outputs)
	return outputs, result.Error
}

// FindByDeviceID returns the output for a DDP device id, or nil.
func (r *OutputRepository) FindByDeviceID(ctx context.Context, deviceID int) (*models.Output, error) {
	var output models.Output
	result := r.db.WithContext(ctx).First(&output, "device_id = ?", deviceID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &output, nil
}

// Save creates the output or updates the size and name of an existing one
// with the same device id.
func (r *OutputRepository) Save(ctx context.Context, output *models.Output) error {
	if output.ID == "" {
		output.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "size", "updated_at"}),
	}).Create(output).Error
}

// Delete removes the output for a device id.
func (r *OutputRepository) Delete(ctx context.Context, deviceID int) error {
	return r.db.WithContext(ctx).Delete(&models.Output{}, "device_id = ?", deviceID).Error
}
