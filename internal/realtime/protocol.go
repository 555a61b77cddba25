package realtime

import (
	"encoding/json"
	"strconv"
	"time"
)

// Client-initiated operations.
const (
	opJoinDevice      = "join-device"
	opLeaveDevice     = "leave-device"
	opJoinUser        = "join-user"
	opLeaveUser       = "leave-user"
	opJoinAllDevices  = "join-all-devices"
	opLeaveAllDevices = "leave-all-devices"
)

// Server-pushed events.
const (
	eventDeviceData         = "device-data-updated"
	eventDeviceStatus       = "device-status-changed"
	eventNewAlert           = "new-alert"
	eventActivityLogged     = "activity-logged"
	eventUserNotification   = "user-notification"
	eventSystemNotification = "system-notification"
	eventConnected          = "connected"
)

// flexID accepts device/user identifiers sent either as a JSON number or as a
// numeric string. Anything else leaves it unset.
type flexID struct {
	value uint
	ok    bool
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	var asNumber uint64
	if err := json.Unmarshal(data, &asNumber); err == nil {
		f.value, f.ok = uint(asNumber), asNumber > 0
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		parsed, err := strconv.ParseUint(asString, 10, 64)
		if err == nil && parsed > 0 {
			f.value, f.ok = uint(parsed), true
		}
		return nil
	}

	// Malformed identifiers are ignored, never surfaced to the client.
	return nil
}

// clientFrame is the inbound message envelope.
type clientFrame struct {
	Type     string `json:"type"`
	DeviceID flexID `json:"deviceId"`
	UserID   flexID `json:"userId"`
}

// serverFrame is the outbound message envelope.
type serverFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	return json.Marshal(serverFrame{Event: event, Data: data})
}

type deviceDataPayload struct {
	DeviceID   uint        `json:"deviceId"`
	SensorData interface{} `json:"sensorData"`
}

type deviceStatusPayload struct {
	DeviceID uint   `json:"deviceId"`
	Status   string `json:"status"`
}

type alertPayload struct {
	DeviceID uint        `json:"deviceId"`
	Alert    interface{} `json:"alert"`
}

type userNotificationPayload struct {
	UserID    uint      `json:"userId"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type systemNotificationPayload struct {
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type connectedPayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       uint   `json:"userId"`
	Username     string `json:"username"`
}
