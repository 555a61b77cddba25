package services

import (
	"context"
	"fmt"

	"coolwatch-server-go/internal/domain/eventbus"
	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/errors"
	"coolwatch-server-go/internal/platform/logging"
	"coolwatch-server-go/internal/platform/storage"
)

// thresholdRule compares one sensor channel against its operating limit.
// Messages are stable per rule so active alerts deduplicate by message.
type thresholdRule struct {
	value    func(*models.SensorData) *float64
	violated func(float64) bool
	severity string
	message  string
}

var thresholdRules = []thresholdRule{
	{
		value:    func(d *models.SensorData) *float64 { return d.TempColdStorage },
		violated: func(v float64) bool { return v > 5.0 },
		severity: models.SeverityError,
		message:  "Cold storage temperature above 5.0°C",
	},
	{
		value:    func(d *models.SensorData) *float64 { return d.TempEnvironment },
		violated: func(v float64) bool { return v > 35.0 },
		severity: models.SeverityWarning,
		message:  "Environment temperature above 35.0°C",
	},
	{
		value:    func(d *models.SensorData) *float64 { return d.PressureSuction },
		violated: func(v float64) bool { return v < 1.0 },
		severity: models.SeverityWarning,
		message:  "Suction pressure below 1.0 bar",
	},
	{
		value:    func(d *models.SensorData) *float64 { return d.PressureDischarge },
		violated: func(v float64) bool { return v > 12.0 },
		severity: models.SeverityError,
		message:  "Discharge pressure above 12.0 bar",
	},
	{
		value:    func(d *models.SensorData) *float64 { return d.VoltageA },
		violated: func(v float64) bool { return v < 200.0 || v > 240.0 },
		severity: models.SeverityWarning,
		message:  "Supply voltage outside 200-240 V",
	},
	{
		value:    func(d *models.SensorData) *float64 { return d.CurrentA },
		violated: func(v float64) bool { return v > 20.0 },
		severity: models.SeverityError,
		message:  "Compressor current above 20.0 A",
	},
}

type violation struct {
	severity string
	message  string
	reading  float64
}

func evaluateThresholds(reading *models.SensorData) []violation {
	var out []violation
	for _, rule := range thresholdRules {
		v := rule.value(reading)
		if v == nil || !rule.violated(*v) {
			continue
		}
		out = append(out, violation{severity: rule.severity, message: rule.message, reading: *v})
	}
	return out
}

// SensorService ingests readings, raises threshold alerts and escalates the
// device status.
type SensorService struct {
	devices  *storage.DeviceRepository
	readings *storage.SensorRepository
	alerts   *storage.AlertRepository
	activity *ActivityService
	bus      *eventbus.Bus
	logger   *logging.Logger
}

// SensorServiceConfig carries the service dependencies.
type SensorServiceConfig struct {
	Devices  *storage.DeviceRepository
	Readings *storage.SensorRepository
	Alerts   *storage.AlertRepository
	Activity *ActivityService
	Bus      *eventbus.Bus
	Logger   *logging.Logger
}

func NewSensorService(cfg SensorServiceConfig) *SensorService {
	return &SensorService{
		devices:  cfg.Devices,
		readings: cfg.Readings,
		alerts:   cfg.Alerts,
		activity: cfg.Activity,
		bus:      cfg.Bus,
		logger:   cfg.Logger,
	}
}

// Ingest persists the reading, evaluates the threshold table and returns any
// newly raised alerts. Already-active alerts with the same message are not
// duplicated.
func (s *SensorService) Ingest(ctx context.Context, deviceID uint, reading *models.SensorData) (*models.SensorData, []models.Alert, error) {
	device, err := s.devices.FindByID(ctx, deviceID)
	if err != nil {
		return nil, nil, err
	}
	if device == nil {
		return nil, nil, errors.New(errors.KindDomain, "sensor.ingest", fmt.Sprintf("device %d not found", deviceID))
	}

	reading.DeviceRef = device.ID
	if err := s.readings.Create(ctx, reading); err != nil {
		return nil, nil, err
	}
	s.bus.Publish(eventbus.EventSensorReading, eventbus.SensorReadingEvent{DeviceID: device.ID, Reading: reading})

	violations := evaluateThresholds(reading)
	raised := make([]models.Alert, 0, len(violations))
	worst := ""
	for _, v := range violations {
		if severityRank(v.severity) > severityRank(worst) {
			worst = v.severity
		}

		existing, err := s.alerts.FindActiveByMessage(ctx, device.ID, v.message)
		if err != nil {
			if s.logger != nil {
				s.logger.ErrorTag("Sensor", "alert lookup failed for device %d: %v", device.ID, err)
			}
			continue
		}
		if existing != nil {
			continue
		}

		alert := &models.Alert{
			DeviceRef: device.ID,
			Severity:  v.severity,
			Message:   v.message,
			Status:    models.AlertActive,
		}
		if err := s.alerts.Create(ctx, alert); err != nil {
			if s.logger != nil {
				s.logger.ErrorTag("Sensor", "alert create failed for device %d: %v", device.ID, err)
			}
			continue
		}
		raised = append(raised, *alert)

		s.bus.Publish(eventbus.EventAlertCreated, eventbus.AlertCreatedEvent{DeviceID: device.ID, Alert: alert})
		_, _ = s.activity.Record(ctx, ActivityEntry{
			DeviceID: &device.ID,
			Action:   "ALERT_RAISED",
			Type:     models.ActivityAlert,
			Severity: v.severity,
			Details:  map[string]interface{}{"message": v.message, "value": v.reading},
		})
	}

	s.escalateStatus(ctx, device, worst)
	return reading, raised, nil
}

// escalateStatus raises the device status to match the worst violation.
// Status only ever escalates here: an ERROR device is not downgraded to
// MAINTENANCE by a later warning, recovery is a manual operation.
func (s *SensorService) escalateStatus(ctx context.Context, device *models.Device, worst string) {
	target := statusForSeverity(worst)
	if target == "" || target == device.Status {
		return
	}
	if device.Status == models.DeviceError && target == models.DeviceMaintenance {
		return
	}

	if err := s.devices.UpdateStatus(ctx, device.ID, target); err != nil {
		if s.logger != nil {
			s.logger.ErrorTag("Sensor", "status update failed for device %d: %v", device.ID, err)
		}
		return
	}

	s.bus.Publish(eventbus.EventDeviceStatus, eventbus.DeviceStatusEvent{DeviceID: device.ID, Status: target})
	_, _ = s.activity.Record(ctx, ActivityEntry{
		DeviceID: &device.ID,
		Action:   "DEVICE_STATUS_CHANGED",
		Type:     models.ActivitySystem,
		Severity: worst,
		Details:  map[string]interface{}{"from": device.Status, "to": target},
	})
	device.Status = target
}

func statusForSeverity(severity string) string {
	switch severity {
	case models.SeverityError, models.SeverityCritical:
		return models.DeviceError
	case models.SeverityWarning:
		return models.DeviceMaintenance
	default:
		return ""
	}
}

func severityRank(severity string) int {
	switch severity {
	case models.SeverityCritical:
		return 4
	case models.SeverityError:
		return 3
	case models.SeverityWarning:
		return 2
	case models.SeverityInfo:
		return 1
	default:
		return 0
	}
}
