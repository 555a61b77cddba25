package services

import (
	"time"

	"coolwatch-server-go/internal/domain/eventbus"
	"coolwatch-server-go/internal/platform/logging"
)

// NotificationService publishes user and system notifications for the
// realtime layer to deliver. Fire-and-forget: nobody listening is fine.
type NotificationService struct {
	bus    *eventbus.Bus
	logger *logging.Logger
}

func NewNotificationService(bus *eventbus.Bus, logger *logging.Logger) *NotificationService {
	return &NotificationService{bus: bus, logger: logger}
}

// NotifyUser targets every live connection of one user.
func (s *NotificationService) NotifyUser(userID uint, message, notificationType string) {
	s.bus.Publish(eventbus.EventUserNotification, eventbus.UserNotificationEvent{
		UserID:  userID,
		Message: message,
		Type:    notificationType,
	})
}

// Broadcast targets every connected client.
func (s *NotificationService) Broadcast(message, notificationType string) {
	s.bus.Publish(eventbus.EventSystemNotification, eventbus.SystemNotificationEvent{
		Message:   message,
		Type:      notificationType,
		Timestamp: time.Now(),
	})
	if s.logger != nil {
		s.logger.InfoTag("Realtime", "system notification broadcast: %s", message)
	}
}
