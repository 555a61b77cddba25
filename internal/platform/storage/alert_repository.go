package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/errors"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "alert.create", "failed to create alert", err)
	}
	return nil
}

// FindActiveByMessage checks whether an identical active alert already exists
// for the device. Used to deduplicate threshold alerts across readings.
func (r *AlertRepository) FindActiveByMessage(ctx context.Context, deviceID uint, message string) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).
		Where("device_ref = ? AND message = ? AND status = ?", deviceID, message, models.AlertActive).
		First(&alert).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "alert.find_active", "failed to find alert", err)
	}
	return &alert, nil
}

func (r *AlertRepository) ListByDevice(ctx context.Context, deviceID uint, onlyActive bool) ([]models.Alert, error) {
	query := r.db.WithContext(ctx).Where("device_ref = ?", deviceID)
	if onlyActive {
		query = query.Where("status = ?", models.AlertActive)
	}

	var alerts []models.Alert
	if err := query.Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "alert.list_by_device", "failed to list alerts", err)
	}
	return alerts, nil
}

func (r *AlertRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	err := r.db.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "alert.update_status", "failed to update alert", err)
	}
	return nil
}

// ResolveForDevice marks every active alert of a device resolved; used when a
// device returns to normal operation.
func (r *AlertRepository) ResolveForDevice(ctx context.Context, deviceID uint) error {
	err := r.db.WithContext(ctx).Model(&models.Alert{}).
		Where("device_ref = ? AND status = ?", deviceID, models.AlertActive).
		Updates(map[string]interface{}{"status": models.AlertResolved, "updated_at": time.Now()}).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "alert.resolve_for_device", "failed to resolve alerts", err)
	}
	return nil
}
