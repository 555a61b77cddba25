package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/errors"
)

// SensorHistoryOptions windows a sensor-data history query.
type SensorHistoryOptions struct {
	Start *time.Time
	End   *time.Time
	Limit int
}

type SensorRepository struct {
	db *gorm.DB
}

func NewSensorRepository(db *gorm.DB) *SensorRepository {
	return &SensorRepository{db: db}
}

func (r *SensorRepository) Create(ctx context.Context, reading *models.SensorData) error {
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(reading).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "sensor.create", "failed to store reading", err)
	}
	return nil
}

// LatestByDevice returns nil, nil when the device has no readings yet.
func (r *SensorRepository) LatestByDevice(ctx context.Context, deviceID uint) (*models.SensorData, error) {
	var reading models.SensorData
	err := r.db.WithContext(ctx).
		Where("device_ref = ?", deviceID).
		Order("timestamp DESC").
		First(&reading).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "sensor.latest", "failed to load latest reading", err)
	}
	return &reading, nil
}

// HistoryByDevice returns readings newest first.
func (r *SensorRepository) HistoryByDevice(ctx context.Context, deviceID uint, opts SensorHistoryOptions) ([]models.SensorData, error) {
	query := r.db.WithContext(ctx).Where("device_ref = ?", deviceID)
	if opts.Start != nil {
		query = query.Where("timestamp >= ?", *opts.Start)
	}
	if opts.End != nil {
		query = query.Where("timestamp <= ?", *opts.End)
	}

	limit := opts.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var readings []models.SensorData
	if err := query.Order("timestamp DESC").Limit(limit).Find(&readings).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "sensor.history", "failed to load readings", err)
	}
	return readings, nil
}

// DeleteOlderThan trims readings beyond the retention window.
func (r *SensorRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SensorData{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.KindStorage, "sensor.cleanup", "failed to delete readings", res.Error)
	}
	return res.RowsAffected, nil
}
