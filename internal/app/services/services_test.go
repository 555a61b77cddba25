package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coolwatch-server-go/internal/domain/auth"
	"coolwatch-server-go/internal/domain/auth/store"
	"coolwatch-server-go/internal/domain/eventbus"
	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/errors"
	"coolwatch-server-go/internal/platform/storage"
)

type testEnv struct {
	bus        *eventbus.Bus
	users      *storage.UserRepository
	devices    *storage.DeviceRepository
	readings   *storage.SensorRepository
	alerts     *storage.AlertRepository
	activities *storage.ActivityRepository

	activity *ActivityService
	notifier *NotificationService
	sensor   *SensorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "services.db"), nil)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	env := &testEnv{
		bus:        eventbus.New(),
		users:      storage.NewUserRepository(db),
		devices:    storage.NewDeviceRepository(db),
		readings:   storage.NewSensorRepository(db),
		alerts:     storage.NewAlertRepository(db),
		activities: storage.NewActivityRepository(db),
	}
	env.activity = NewActivityService(env.activities, env.bus, nil)
	env.notifier = NewNotificationService(env.bus, nil)
	env.sensor = NewSensorService(SensorServiceConfig{
		Devices:  env.devices,
		Readings: env.readings,
		Alerts:   env.alerts,
		Activity: env.activity,
		Bus:      env.bus,
		Logger:   nil,
	})
	return env
}

func (env *testEnv) seedDevice(t *testing.T, status string) *models.Device {
	t.Helper()
	device := &models.Device{
		DeviceID:         "CU-" + status,
		DeviceName:       "Cold room unit",
		DeviceType:       "COLD_ROOM",
		Status:           status,
		OwnerName:        "Test Owner",
		InstallationDate: time.Now().AddDate(-1, 0, 0),
	}
	if err := env.devices.Create(context.Background(), device); err != nil {
		t.Fatalf("seeding device: %v", err)
	}
	return device
}

func (env *testEnv) newAuthService(t *testing.T) (*AuthService, store.TokenStore) {
	t.Helper()
	refresh := store.NewMemory(store.Config{TTL: time.Minute})
	t.Cleanup(func() { _ = refresh.Close(context.Background()) })

	return NewAuthService(AuthServiceConfig{
		Users:      env.users,
		Tokens:     auth.NewTokenManager("test-secret", "coolwatch", "coolwatch-clients", time.Minute),
		Refresh:    refresh,
		RefreshTTL: time.Minute,
		Activity:   env.activity,
		Notifier:   env.notifier,
		Logger:     nil,
	}), refresh
}

func (env *testEnv) seedUser(t *testing.T, username, password string, active bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
		Role:     models.RoleTechnician,
		IsActive: active,
	}
	if err := env.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

func f(v float64) *float64 { return &v }

func normalReading() *models.SensorData {
	return &models.SensorData{
		TempColdStorage:   f(3.5),
		TempEnvironment:   f(24.0),
		PressureSuction:   f(2.5),
		PressureDischarge: f(9.0),
		VoltageA:          f(228.0),
		CurrentA:          f(11.0),
	}
}

func TestIngestNormalReadingRaisesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	device := env.seedDevice(t, models.DeviceActive)

	stored, raised, err := env.sensor.Ingest(ctx, device.ID, normalReading())
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if len(raised) != 0 {
		t.Fatalf("expected no alerts, got %d", len(raised))
	}
	if stored.ID == 0 || stored.DeviceRef != device.ID {
		t.Fatalf("reading not persisted correctly: %+v", stored)
	}

	latest, err := env.readings.LatestByDevice(ctx, device.ID)
	if err != nil || latest == nil || latest.ID != stored.ID {
		t.Fatalf("latest reading mismatch: %+v, %v", latest, err)
	}

	current, _ := env.devices.FindByID(ctx, device.ID)
	if current.Status != models.DeviceActive {
		t.Fatalf("status must stay ACTIVE, got %s", current.Status)
	}
}

func TestIngestRaisesAlertsAndEscalates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	device := env.seedDevice(t, models.DeviceActive)

	var alertEvents int
	if err := env.bus.Subscribe(eventbus.EventAlertCreated, func(ev eventbus.AlertCreatedEvent) {
		alertEvents++
	}); err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	reading := normalReading()
	reading.TempColdStorage = f(7.5)  // over the 5.0°C limit
	reading.TempEnvironment = f(38.0) // over the 35.0°C limit

	_, raised, err := env.sensor.Ingest(ctx, device.ID, reading)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if len(raised) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(raised))
	}
	if alertEvents != 2 {
		t.Fatalf("expected 2 alert events on the bus, got %d", alertEvents)
	}

	current, _ := env.devices.FindByID(ctx, device.ID)
	if current.Status != models.DeviceError {
		t.Fatalf("expected ERROR status, got %s", current.Status)
	}
}

func TestIngestDeduplicatesActiveAlerts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	device := env.seedDevice(t, models.DeviceActive)

	for i := 0; i < 3; i++ {
		hot := normalReading()
		hot.TempColdStorage = f(8.0)
		if _, _, err := env.sensor.Ingest(ctx, device.ID, hot); err != nil {
			t.Fatalf("Ingest %d returned error: %v", i, err)
		}
	}

	active, err := env.alerts.ListByDevice(ctx, device.ID, true)
	if err != nil {
		t.Fatalf("listing alerts: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected a single active alert, got %d", len(active))
	}
}

func TestResolvedAlertCanBeRaisedAgain(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	device := env.seedDevice(t, models.DeviceActive)

	hot := normalReading()
	hot.TempColdStorage = f(8.0)
	_, raised, err := env.sensor.Ingest(ctx, device.ID, hot)
	if err != nil || len(raised) != 1 {
		t.Fatalf("first ingest: %v, %d alerts", err, len(raised))
	}

	if err := env.alerts.UpdateStatus(ctx, raised[0].ID, models.AlertResolved); err != nil {
		t.Fatalf("resolving alert: %v", err)
	}

	hot = normalReading()
	hot.TempColdStorage = f(8.0)
	_, raised, err = env.sensor.Ingest(ctx, device.ID, hot)
	if err != nil || len(raised) != 1 {
		t.Fatalf("second ingest after resolve: %v, %d alerts", err, len(raised))
	}
}

func TestStatusNeverDowngradesFromError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	device := env.seedDevice(t, models.DeviceError)

	warm := normalReading()
	warm.TempEnvironment = f(38.0) // warning only

	if _, _, err := env.sensor.Ingest(ctx, device.ID, warm); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}

	current, _ := env.devices.FindByID(ctx, device.ID)
	if current.Status != models.DeviceError {
		t.Fatalf("ERROR status must not downgrade, got %s", current.Status)
	}
}

func TestWarningEscalatesToMaintenance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	device := env.seedDevice(t, models.DeviceActive)

	warm := normalReading()
	warm.PressureSuction = f(0.4)

	if _, _, err := env.sensor.Ingest(ctx, device.ID, warm); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}

	current, _ := env.devices.FindByID(ctx, device.ID)
	if current.Status != models.DeviceMaintenance {
		t.Fatalf("expected MAINTENANCE status, got %s", current.Status)
	}
}

func TestIngestUnknownDeviceFails(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.sensor.Ingest(context.Background(), 12345, normalReading())
	if !errors.IsKind(err, errors.KindDomain) {
		t.Fatalf("expected domain error for unknown device, got %v", err)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc, _ := env.newAuthService(t)
	user := env.seedUser(t, "frostine", "chilly-pass", true)

	result, err := svc.Login(ctx, "frostine", "chilly-pass", "10.0.0.9:1234")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("expected a full token pair: %+v", result)
	}
	if result.User.ID != user.ID {
		t.Fatalf("unexpected user in result: %+v", result.User)
	}

	reloaded, _ := env.users.FindByID(ctx, user.ID)
	if reloaded.LastLogin == nil {
		t.Fatalf("last login must be stamped")
	}
}

func TestLoginFailureIsAudited(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc, _ := env.newAuthService(t)
	env.seedUser(t, "frostine", "chilly-pass", true)

	_, err := svc.Login(ctx, "frostine", "wrong-pass", "10.0.0.9:1234")
	if !errors.IsKind(err, errors.KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}

	// inactive accounts are rejected the same way
	env.seedUser(t, "parked", "chilly-pass", false)
	if _, err := svc.Login(ctx, "parked", "chilly-pass", "10.0.0.9:1234"); !errors.IsKind(err, errors.KindAuth) {
		t.Fatalf("expected auth error for inactive user, got %v", err)
	}

	recent, err := env.activities.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("listing activities: %v", err)
	}
	failed := 0
	for _, a := range recent {
		if a.Action == "LOGIN_FAILED" {
			failed++
		}
	}
	if failed != 2 {
		t.Fatalf("expected 2 audited failures, got %d", failed)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc, _ := env.newAuthService(t)
	env.seedUser(t, "frostine", "chilly-pass", true)

	first, err := svc.Login(ctx, "frostine", "chilly-pass", "origin")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token must rotate")
	}

	// the spent token is dead
	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.IsKind(err, errors.KindAuth) {
		t.Fatalf("expected auth error for spent token, got %v", err)
	}
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc, refresh := env.newAuthService(t)
	user := env.seedUser(t, "frostine", "chilly-pass", true)

	session, err := svc.Login(ctx, "frostine", "chilly-pass", "origin")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "wrong", "new-password"); !errors.IsKind(err, errors.KindAuth) {
		t.Fatalf("expected auth error for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "chilly-pass", "short"); !errors.IsKind(err, errors.KindDomain) {
		t.Fatalf("expected domain error for weak password, got %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "chilly-pass", "new-password"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if _, err := refresh.Get(ctx, session.RefreshToken); err != store.ErrTokenNotFound {
		t.Fatalf("old sessions must be revoked, got %v", err)
	}
	if _, err := svc.Login(ctx, "frostine", "new-password", "origin"); err != nil {
		t.Fatalf("login with the new password failed: %v", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc, refresh := env.newAuthService(t)
	user := env.seedUser(t, "frostine", "chilly-pass", true)

	session, err := svc.Login(ctx, "frostine", "chilly-pass", "origin")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if err := svc.Logout(ctx, user.ID, session.RefreshToken); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := refresh.Get(ctx, session.RefreshToken); err != store.ErrTokenNotFound {
		t.Fatalf("refresh token must be gone after logout, got %v", err)
	}
}

func TestSecurityEventCarriesOrigin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var published *models.Activity
	if err := env.bus.Subscribe(eventbus.EventActivityLogged, func(ev eventbus.ActivityLoggedEvent) {
		published = ev.Activity
	}); err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	env.activity.RecordSecurityEvent(ctx, "WEBSOCKET_AUTH_FAILED", "192.0.2.1:5555", map[string]interface{}{
		"reason": "invalid token",
	})

	if published == nil {
		t.Fatalf("activity event not published")
	}
	if published.Action != "WEBSOCKET_AUTH_FAILED" || published.Severity != models.SeverityWarning {
		t.Fatalf("unexpected activity: %+v", published)
	}
	details := string(published.Details)
	if !strings.Contains(details, "192.0.2.1:5555") || !strings.Contains(details, "invalid token") {
		t.Fatalf("details must carry origin and reason: %s", details)
	}
}
