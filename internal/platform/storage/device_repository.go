package storage

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/errors"
)

// DeviceFilters narrows and pages device listings.
type DeviceFilters struct {
	Search    string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// DeviceStatistics is the aggregate consumed by the dashboard.
type DeviceStatistics struct {
	TotalDevices   int64 `json:"totalDevices"`
	Active         int64 `json:"active"`
	Inactive       int64 `json:"inactive"`
	Maintenance    int64 `json:"maintenance"`
	Error          int64 `json:"error"`
	WarrantyActive int64 `json:"warrantyActive"`
}

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Create(ctx context.Context, device *models.Device) error {
	if err := r.db.WithContext(ctx).Create(device).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "device.create", "failed to create device", err)
	}
	return nil
}

// FindByID returns nil, nil when the device does not exist.
func (r *DeviceRepository) FindByID(ctx context.Context, id uint) (*models.Device, error) {
	var device models.Device
	if err := r.db.WithContext(ctx).First(&device, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "device.find_by_id", "failed to find device", err)
	}
	return &device, nil
}

func (r *DeviceRepository) FindByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	var device models.Device
	if err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&device).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "device.find_by_device_id", "failed to find device", err)
	}
	return &device, nil
}

var deviceSortColumns = map[string]string{
	"deviceName":       "device_name",
	"deviceType":       "device_type",
	"status":           "status",
	"ownerName":        "owner_name",
	"installationDate": "installation_date",
	"createdAt":        "created_at",
}

func (r *DeviceRepository) List(ctx context.Context, filters DeviceFilters) ([]models.Device, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Device{})

	if filters.Search != "" {
		like := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where(
			"LOWER(device_name) LIKE ? OR LOWER(device_id) LIKE ? OR LOWER(owner_name) LIKE ? OR LOWER(installation_address) LIKE ?",
			like, like, like, like,
		)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(errors.KindStorage, "device.list", "failed to count devices", err)
	}

	column, ok := deviceSortColumns[filters.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		direction = "ASC"
	}

	page, pageSize := normalizePage(filters.Page, filters.PageSize)
	var devices []models.Device
	if err := query.
		Order(column + " " + direction).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&devices).Error; err != nil {
		return nil, 0, errors.Wrap(errors.KindStorage, "device.list", "failed to list devices", err)
	}
	return devices, total, nil
}

func (r *DeviceRepository) Update(ctx context.Context, device *models.Device) error {
	if err := r.db.WithContext(ctx).Save(device).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "device.update", "failed to update device", err)
	}
	return nil
}

func (r *DeviceRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	err := r.db.WithContext(ctx).Model(&models.Device{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "device.update_status", "failed to update device status", err)
	}
	return nil
}

// Delete soft-deletes the device; sensor and alert history survives for audit.
func (r *DeviceRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Device{}, id).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "device.delete", "failed to delete device", err)
	}
	return nil
}

// ListByStatuses returns devices whose status is in the given set; used by the
// sensor simulator.
func (r *DeviceRepository) ListByStatuses(ctx context.Context, statuses []string) ([]models.Device, error) {
	var devices []models.Device
	if err := r.db.WithContext(ctx).Where("status IN ?", statuses).Find(&devices).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "device.list_by_statuses", "failed to list devices", err)
	}
	return devices, nil
}

func (r *DeviceRepository) Statistics(ctx context.Context) (*DeviceStatistics, error) {
	stats := &DeviceStatistics{}
	base := r.db.WithContext(ctx).Model(&models.Device{})

	if err := base.Session(&gorm.Session{}).Count(&stats.TotalDevices).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "device.statistics", "failed to count devices", err)
	}

	counts := []struct {
		status string
		target *int64
	}{
		{models.DeviceActive, &stats.Active},
		{models.DeviceInactive, &stats.Inactive},
		{models.DeviceMaintenance, &stats.Maintenance},
		{models.DeviceError, &stats.Error},
	}
	for _, c := range counts {
		if err := base.Session(&gorm.Session{}).Where("status = ?", c.status).Count(c.target).Error; err != nil {
			return nil, errors.Wrap(errors.KindStorage, "device.statistics", "failed to count devices by status", err)
		}
	}

	// Warranty still active: installation date + warranty months in the future.
	err := base.Session(&gorm.Session{}).
		Where("datetime(installation_date, '+' || warranty_months || ' months') > datetime('now')").
		Count(&stats.WarrantyActive).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "device.statistics", "failed to count warranty devices", err)
	}
	return stats, nil
}
