package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"coolwatch-server-go/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	return db
}

func seedDevice(t *testing.T, repo *DeviceRepository, deviceID, status string) *models.Device {
	t.Helper()
	device := &models.Device{
		DeviceID:         deviceID,
		DeviceName:       "Cold store " + deviceID,
		DeviceType:       "industrial-freezer",
		Status:           status,
		OwnerName:        "ACME Foods",
		InstallationDate: time.Now().AddDate(0, -6, 0),
		WarrantyMonths:   24,
	}
	if err := repo.Create(context.Background(), device); err != nil {
		t.Fatalf("creating device: %v", err)
	}
	return device
}

func TestSeedAdminUserIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := SeedAdminUser(db, nil); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := SeedAdminUser(db, nil); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var count int64
	db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one admin, got %d", count)
	}
}

func TestUserRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	user := &models.User{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "hash",
		Role:     models.RoleTechnician,
		IsActive: true,
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindByUsername(ctx, "jdoe")
	if err != nil || found == nil {
		t.Fatalf("find by username: %v, %v", found, err)
	}
	if found.ID != user.ID {
		t.Fatalf("wrong user returned: %d", found.ID)
	}

	missing, err := repo.FindByID(ctx, 9999)
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}

	if err := repo.Deactivate(ctx, user.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	found, _ = repo.FindByID(ctx, user.ID)
	if found.IsActive {
		t.Fatalf("user must be inactive after deactivation")
	}
}

func TestUserRepositoryListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	names := []struct{ username, role string }{
		{"alice", models.RoleAdmin},
		{"bob", models.RoleTechnician},
		{"carol", models.RoleTechnician},
	}
	for _, n := range names {
		if err := repo.Create(ctx, &models.User{
			Username: n.username,
			Email:    n.username + "@example.com",
			Password: "hash",
			Role:     n.role,
			IsActive: true,
		}); err != nil {
			t.Fatalf("create %s: %v", n.username, err)
		}
	}

	users, total, err := repo.List(ctx, UserFilters{Role: models.RoleTechnician})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Fatalf("expected 2 technicians, got total=%d len=%d", total, len(users))
	}

	users, total, err = repo.List(ctx, UserFilters{Search: "ali"})
	if err != nil {
		t.Fatalf("list search: %v", err)
	}
	if total != 1 || users[0].Username != "alice" {
		t.Fatalf("search mismatch: total=%d", total)
	}
}

func TestDeviceRepositoryListAndStatistics(t *testing.T) {
	ctx := context.Background()
	repo := NewDeviceRepository(openTestDB(t))

	seedDevice(t, repo, "CW-001", models.DeviceActive)
	seedDevice(t, repo, "CW-002", models.DeviceError)
	seedDevice(t, repo, "CW-003", models.DeviceMaintenance)

	devices, total, err := repo.List(ctx, DeviceFilters{Status: models.DeviceError})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || devices[0].DeviceID != "CW-002" {
		t.Fatalf("status filter mismatch: total=%d", total)
	}

	devices, _, err = repo.List(ctx, DeviceFilters{SortBy: "deviceName", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("list sorted: %v", err)
	}
	if devices[0].DeviceID != "CW-001" {
		t.Fatalf("sort mismatch: first=%s", devices[0].DeviceID)
	}

	stats, err := repo.Statistics(ctx)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalDevices != 3 || stats.Active != 1 || stats.Error != 1 || stats.Maintenance != 1 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
	if stats.WarrantyActive != 3 {
		t.Fatalf("expected all devices under warranty, got %d", stats.WarrantyActive)
	}
}

func TestDeviceRepositorySoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewDeviceRepository(openTestDB(t))
	device := seedDevice(t, repo, "CW-010", models.DeviceActive)

	if err := repo.Delete(ctx, device.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	found, err := repo.FindByID(ctx, device.ID)
	if err != nil {
		t.Fatalf("find after delete: %v", err)
	}
	if found != nil {
		t.Fatalf("soft-deleted device must not be returned")
	}
}

func TestSensorRepositoryLatestAndHistory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	devices := NewDeviceRepository(db)
	sensors := NewSensorRepository(db)
	device := seedDevice(t, devices, "CW-020", models.DeviceActive)

	temp1, temp2 := 2.5, 4.1
	old := &models.SensorData{DeviceRef: device.ID, TempColdStorage: &temp1, Timestamp: time.Now().Add(-time.Hour)}
	latest := &models.SensorData{DeviceRef: device.ID, TempColdStorage: &temp2, Timestamp: time.Now()}
	for _, reading := range []*models.SensorData{old, latest} {
		if err := sensors.Create(ctx, reading); err != nil {
			t.Fatalf("create reading: %v", err)
		}
	}

	got, err := sensors.LatestByDevice(ctx, device.ID)
	if err != nil || got == nil {
		t.Fatalf("latest: %v, %v", got, err)
	}
	if got.ID != latest.ID {
		t.Fatalf("expected newest reading, got %d", got.ID)
	}

	start := time.Now().Add(-30 * time.Minute)
	history, err := sensors.HistoryByDevice(ctx, device.ID, SensorHistoryOptions{Start: &start})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ID != latest.ID {
		t.Fatalf("window filter mismatch: %d entries", len(history))
	}
}

func TestAlertRepositoryDeduplication(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	devices := NewDeviceRepository(db)
	alerts := NewAlertRepository(db)
	device := seedDevice(t, devices, "CW-030", models.DeviceActive)

	alert := &models.Alert{
		DeviceRef: device.ID,
		Severity:  models.SeverityError,
		Message:   "High cold storage temperature: 6.2°C",
		Status:    models.AlertActive,
	}
	if err := alerts.Create(ctx, alert); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup, err := alerts.FindActiveByMessage(ctx, device.ID, alert.Message)
	if err != nil || dup == nil {
		t.Fatalf("expected duplicate to be found: %v, %v", dup, err)
	}

	if err := alerts.ResolveForDevice(ctx, device.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	dup, err = alerts.FindActiveByMessage(ctx, device.ID, alert.Message)
	if err != nil {
		t.Fatalf("find after resolve: %v", err)
	}
	if dup != nil {
		t.Fatalf("resolved alert must not count as active duplicate")
	}
}

func TestActivityRepositoryStatisticsAndCleanup(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(openTestDB(t))

	entries := []models.Activity{
		{Action: "User logged in", Type: models.ActivityUser, Severity: models.SeverityInfo, Timestamp: time.Now()},
		{Action: "Alert generated", Type: models.ActivityAlert, Severity: models.SeverityError, Timestamp: time.Now()},
		{Action: "Old event", Type: models.ActivitySystem, Severity: models.SeverityInfo, Timestamp: time.Now().AddDate(0, 0, -40)},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	stats, err := repo.Statistics(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("expected 2 recent activities, got %d", stats.Total)
	}
	if stats.ByType[models.ActivityAlert] != 1 || stats.BySeverity[models.SeverityError] != 1 {
		t.Fatalf("unexpected buckets: %+v", stats)
	}

	removed, err := repo.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed activity, got %d", removed)
	}
}
