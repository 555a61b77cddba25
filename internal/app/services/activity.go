// Package services holds the business logic between the HTTP/websocket
// transports and the storage layer.
package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"coolwatch-server-go/internal/domain/eventbus"
	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/logging"
	"coolwatch-server-go/internal/platform/storage"
)

// ActivityService records audit-log entries and announces them on the bus.
type ActivityService struct {
	activities *storage.ActivityRepository
	bus        *eventbus.Bus
	logger     *logging.Logger
}

func NewActivityService(activities *storage.ActivityRepository, bus *eventbus.Bus, logger *logging.Logger) *ActivityService {
	return &ActivityService{
		activities: activities,
		bus:        bus,
		logger:     logger,
	}
}

// ActivityEntry describes one event to record.
type ActivityEntry struct {
	UserID   *uint
	DeviceID *uint
	Action   string
	Type     string
	Severity string
	Details  map[string]interface{}
}

// Record persists the entry and publishes it for realtime delivery.
func (s *ActivityService) Record(ctx context.Context, entry ActivityEntry) (*models.Activity, error) {
	if entry.Type == "" {
		entry.Type = models.ActivitySystem
	}
	if entry.Severity == "" {
		entry.Severity = models.SeverityInfo
	}

	activity := &models.Activity{
		UserRef:   entry.UserID,
		DeviceRef: entry.DeviceID,
		Action:    entry.Action,
		Type:      entry.Type,
		Severity:  entry.Severity,
		Timestamp: time.Now(),
	}
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err == nil {
			activity.Details = datatypes.JSON(raw)
		}
	}

	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, err
	}

	s.bus.Publish(eventbus.EventActivityLogged, eventbus.ActivityLoggedEvent{Activity: activity})
	return activity, nil
}

// RecordSecurityEvent stores a security-relevant event, tagged with the
// origin address it came from. Failures are logged but never propagated,
// auditing must not break the caller's path.
func (s *ActivityService) RecordSecurityEvent(ctx context.Context, action, origin string, details map[string]interface{}) {
	merged := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		merged[k] = v
	}
	merged["origin"] = origin

	if _, err := s.Record(ctx, ActivityEntry{
		Action:   action,
		Type:     models.ActivityError,
		Severity: models.SeverityWarning,
		Details:  merged,
	}); err != nil && s.logger != nil {
		s.logger.ErrorTag("Auth", "failed to record security event %s: %v", action, err)
	}
}
