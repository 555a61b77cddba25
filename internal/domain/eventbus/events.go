package eventbus

import (
	"time"

	"coolwatch-server-go/internal/models"
)

// Topics published on the bus. Handlers subscribe with the matching payload
// type below.
const (
	EventSensorReading      = "sensor:reading"
	EventDeviceStatus       = "device:status"
	EventAlertCreated       = "alert:created"
	EventActivityLogged     = "activity:logged"
	EventUserNotification   = "notify:user"
	EventSystemNotification = "notify:system"
)

// SensorReadingEvent carries a freshly stored reading for a device.
type SensorReadingEvent struct {
	DeviceID uint
	Reading  *models.SensorData
}

// DeviceStatusEvent signals a device status transition.
type DeviceStatusEvent struct {
	DeviceID uint
	Status   string
}

// AlertCreatedEvent carries a newly raised alert.
type AlertCreatedEvent struct {
	DeviceID uint
	Alert    *models.Alert
}

// ActivityLoggedEvent carries a recorded activity entry.
type ActivityLoggedEvent struct {
	Activity *models.Activity
}

// UserNotificationEvent targets every connection of a single user.
type UserNotificationEvent struct {
	UserID  uint
	Message string
	Type    string
}

// SystemNotificationEvent is broadcast to every connected client.
type SystemNotificationEvent struct {
	Message   string
	Type      string
	Timestamp time.Time
}
