package realtime

import (
	"encoding/json"
	"time"

	"coolwatch-server-go/internal/domain/eventbus"
	"coolwatch-server-go/internal/platform/logging"
)

// Hub routes client operations into the registry and pushes domain events to
// the matching subscriber sets. Emits are fire-and-forget: a scope with zero
// subscribers is a no-op and a slow client never blocks the emitter.
type Hub struct {
	registry *Registry
	logger   *logging.Logger
}

// NewHub builds a hub over a fresh registry.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		logger:   logger,
	}
}

// Registry exposes the connection registry, mainly for stats queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run registers the connection, services it until the transport closes, then
// removes every trace of it from the registry.
func (h *Hub) Run(c *Client) {
	h.registry.Register(c)
	if h.logger != nil {
		h.logger.InfoTag("Realtime", "user %s connected (%s)", c.Principal().Username, c.ID())
	}

	if frame, err := encodeFrame(eventConnected, connectedPayload{
		ConnectionID: c.ID(),
		UserID:       c.Principal().UserID,
		Username:     c.Principal().Username,
	}); err == nil {
		c.Enqueue(frame)
	}

	go c.writePump()
	c.readPump(h.handleFrame)

	h.registry.Unregister(c)
	if h.logger != nil {
		h.logger.InfoTag("Realtime", "user %s disconnected (%s)", c.Principal().Username, c.ID())
	}
}

// handleFrame applies one client operation. Malformed frames and unknown
// operations are ignored without a response, the connection stays alive.
func (h *Hub) handleFrame(c *Client, raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}

	switch frame.Type {
	case opJoinDevice:
		if frame.DeviceID.ok {
			h.registry.SubscribeDevice(c.ID(), frame.DeviceID.value)
		}
	case opLeaveDevice:
		if frame.DeviceID.ok {
			h.registry.UnsubscribeDevice(c.ID(), frame.DeviceID.value)
		}
	case opJoinUser:
		// A connection may only join its own user channel.
		if frame.UserID.ok && frame.UserID.value == c.Principal().UserID {
			h.registry.JoinUserChannel(c.ID(), frame.UserID.value)
		}
	case opLeaveUser:
		if frame.UserID.ok {
			h.registry.LeaveUserChannel(c.ID(), frame.UserID.value)
		}
	case opJoinAllDevices:
		h.registry.SubscribeAllDevices(c.ID())
	case opLeaveAllDevices:
		h.registry.UnsubscribeAllDevices(c.ID())
	}
}

// EmitDeviceDataUpdate pushes a sensor reading to the device's subscribers.
func (h *Hub) EmitDeviceDataUpdate(deviceID uint, sensorData interface{}) {
	frame, err := encodeFrame(eventDeviceData, deviceDataPayload{DeviceID: deviceID, SensorData: sensorData})
	if err != nil {
		return
	}
	h.deliver(h.registry.ClientsForDevice(deviceID), frame)
}

// EmitDeviceStatusChange pushes a status transition to the device's
// subscribers and to the dashboard-wide channel.
func (h *Hub) EmitDeviceStatusChange(deviceID uint, status string) {
	frame, err := encodeFrame(eventDeviceStatus, deviceStatusPayload{DeviceID: deviceID, Status: status})
	if err != nil {
		return
	}
	h.deliver(h.registry.ClientsForDevice(deviceID), frame)
	h.deliver(h.registry.AllDevicesClients(), frame)
}

// EmitNewAlert pushes a raised alert to the device's subscribers and to the
// dashboard-wide channel.
func (h *Hub) EmitNewAlert(deviceID uint, alert interface{}) {
	frame, err := encodeFrame(eventNewAlert, alertPayload{DeviceID: deviceID, Alert: alert})
	if err != nil {
		return
	}
	h.deliver(h.registry.ClientsForDevice(deviceID), frame)
	h.deliver(h.registry.AllDevicesClients(), frame)
}

// EmitActivityLogged pushes a recorded activity to every connection.
func (h *Hub) EmitActivityLogged(activity interface{}) {
	frame, err := encodeFrame(eventActivityLogged, activity)
	if err != nil {
		return
	}
	h.deliver(h.registry.AllClients(), frame)
}

// EmitUserNotification pushes a notification to every connection on the
// user's notification channel.
func (h *Hub) EmitUserNotification(userID uint, message, notificationType string) {
	frame, err := encodeFrame(eventUserNotification, userNotificationPayload{
		UserID:    userID,
		Message:   message,
		Type:      notificationType,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}
	h.deliver(h.registry.UserChannelClients(userID), frame)
}

// EmitSystemNotification broadcasts to every connected client.
func (h *Hub) EmitSystemNotification(message, notificationType string) {
	frame, err := encodeFrame(eventSystemNotification, systemNotificationPayload{
		Message:   message,
		Type:      notificationType,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}
	h.deliver(h.registry.AllClients(), frame)
}

// DisconnectUser forcibly closes every connection of a user and returns how
// many were dropped.
func (h *Hub) DisconnectUser(userID uint) int {
	clients := h.registry.ClientsForUser(userID)
	for _, c := range clients {
		c.Close()
		h.registry.Unregister(c)
	}
	if len(clients) > 0 && h.logger != nil {
		h.logger.InfoTag("Realtime", "disconnected %d connection(s) of user %d", len(clients), userID)
	}
	return len(clients)
}

// Stats reports current connection and subscription counts.
func (h *Hub) Stats() Stats {
	return h.registry.Snapshot()
}

// CloseAll drops every connection, used on shutdown.
func (h *Hub) CloseAll() {
	for _, c := range h.registry.AllClients() {
		c.Close()
		h.registry.Unregister(c)
	}
}

func (h *Hub) deliver(clients []*Client, frame []byte) {
	for _, c := range clients {
		c.Enqueue(frame)
	}
}

// BindBus subscribes the hub to the domain events published by the services
// layer. Handlers run async so publishers never wait on socket writes.
func (h *Hub) BindBus(bus *eventbus.Bus) error {
	if err := bus.SubscribeAsync(eventbus.EventSensorReading, func(ev eventbus.SensorReadingEvent) {
		h.EmitDeviceDataUpdate(ev.DeviceID, ev.Reading)
	}); err != nil {
		return err
	}
	if err := bus.SubscribeAsync(eventbus.EventDeviceStatus, func(ev eventbus.DeviceStatusEvent) {
		h.EmitDeviceStatusChange(ev.DeviceID, ev.Status)
	}); err != nil {
		return err
	}
	if err := bus.SubscribeAsync(eventbus.EventAlertCreated, func(ev eventbus.AlertCreatedEvent) {
		h.EmitNewAlert(ev.DeviceID, ev.Alert)
	}); err != nil {
		return err
	}
	if err := bus.SubscribeAsync(eventbus.EventActivityLogged, func(ev eventbus.ActivityLoggedEvent) {
		h.EmitActivityLogged(ev.Activity)
	}); err != nil {
		return err
	}
	if err := bus.SubscribeAsync(eventbus.EventUserNotification, func(ev eventbus.UserNotificationEvent) {
		h.EmitUserNotification(ev.UserID, ev.Message, ev.Type)
	}); err != nil {
		return err
	}
	return bus.SubscribeAsync(eventbus.EventSystemNotification, func(ev eventbus.SystemNotificationEvent) {
		h.EmitSystemNotification(ev.Message, ev.Type)
	})
}
