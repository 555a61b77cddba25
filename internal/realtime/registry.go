package realtime

import "sync"

// Registry tracks live connections and their subscriptions. Connection
// bookkeeping and subscription indexes are guarded by separate locks so
// registration churn and join/leave traffic do not contend with each other.
type Registry struct {
	connMu  sync.RWMutex
	clients map[string]*Client
	users   map[uint]map[string]struct{}

	subMu      sync.RWMutex
	devices    map[uint]map[string]struct{}
	userChans  map[uint]map[string]struct{}
	allDevices map[string]struct{}
}

// NewRegistry builds an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:    make(map[string]*Client),
		users:      make(map[uint]map[string]struct{}),
		devices:    make(map[uint]map[string]struct{}),
		userChans:  make(map[uint]map[string]struct{}),
		allDevices: make(map[string]struct{}),
	}
}

// Register adds an authenticated connection, records it in the principal
// index and enrols it on its user's notification channel. The principal
// index only changes here and in Unregister, so stats and forced
// disconnects always see every live connection.
func (r *Registry) Register(c *Client) {
	if c == nil {
		return
	}
	id := c.ID()
	userID := c.Principal().UserID

	r.connMu.Lock()
	r.clients[id] = c
	if r.users[userID] == nil {
		r.users[userID] = make(map[string]struct{})
	}
	r.users[userID][id] = struct{}{}
	r.connMu.Unlock()

	r.subMu.Lock()
	if r.userChans[userID] == nil {
		r.userChans[userID] = make(map[string]struct{})
	}
	r.userChans[userID][id] = struct{}{}
	r.subMu.Unlock()
}

// Unregister removes the connection and every subscription it holds. Empty
// index entries are pruned so enumeration never yields stale connection ids.
func (r *Registry) Unregister(c *Client) {
	if c == nil {
		return
	}
	id := c.ID()

	r.connMu.Lock()
	delete(r.clients, id)
	userID := c.Principal().UserID
	if set, ok := r.users[userID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.users, userID)
		}
	}
	r.connMu.Unlock()

	r.subMu.Lock()
	for deviceID, set := range r.devices {
		delete(set, id)
		if len(set) == 0 {
			delete(r.devices, deviceID)
		}
	}
	if set, ok := r.userChans[userID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.userChans, userID)
		}
	}
	delete(r.allDevices, id)
	r.subMu.Unlock()
}

// SubscribeDevice adds the connection to a device's subscriber set.
// Idempotent.
func (r *Registry) SubscribeDevice(connID string, deviceID uint) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.devices[deviceID] == nil {
		r.devices[deviceID] = make(map[string]struct{})
	}
	r.devices[deviceID][connID] = struct{}{}
}

// UnsubscribeDevice removes the connection from a device's subscriber set.
func (r *Registry) UnsubscribeDevice(connID string, deviceID uint) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if set, ok := r.devices[deviceID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.devices, deviceID)
		}
	}
}

// SubscribeAllDevices adds the connection to the dashboard-wide channel that
// receives every status change and alert.
func (r *Registry) SubscribeAllDevices(connID string) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.allDevices[connID] = struct{}{}
}

// UnsubscribeAllDevices removes the connection from the dashboard channel.
func (r *Registry) UnsubscribeAllDevices(connID string) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	delete(r.allDevices, connID)
}

// LeaveUserChannel removes the connection from a user's notification channel.
// The principal index is untouched, the connection stays fully registered.
// Removing a connection from a channel it never belonged to is a no-op.
func (r *Registry) LeaveUserChannel(connID string, userID uint) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if set, ok := r.userChans[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.userChans, userID)
		}
	}
}

// JoinUserChannel re-adds a connection to its own user's notification channel.
func (r *Registry) JoinUserChannel(connID string, userID uint) {
	r.connMu.RLock()
	_, live := r.clients[connID]
	r.connMu.RUnlock()
	if !live {
		return
	}

	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.userChans[userID] == nil {
		r.userChans[userID] = make(map[string]struct{})
	}
	r.userChans[userID][connID] = struct{}{}
}

// ClientsForDevice returns the connections subscribed to a device.
func (r *Registry) ClientsForDevice(deviceID uint) []*Client {
	r.subMu.RLock()
	ids := idsOf(r.devices[deviceID])
	r.subMu.RUnlock()
	return r.resolve(ids)
}

// AllDevicesClients returns the connections on the dashboard channel.
func (r *Registry) AllDevicesClients() []*Client {
	r.subMu.RLock()
	ids := idsOf(r.allDevices)
	r.subMu.RUnlock()
	return r.resolve(ids)
}

// UserChannelClients returns the connections on the user's notification
// channel. Connections start on their own channel and drop off it only via
// LeaveUserChannel or disconnect.
func (r *Registry) UserChannelClients(userID uint) []*Client {
	r.subMu.RLock()
	ids := idsOf(r.userChans[userID])
	r.subMu.RUnlock()
	return r.resolve(ids)
}

// ClientsForUser returns every connection registered under the user.
func (r *Registry) ClientsForUser(userID uint) []*Client {
	r.connMu.RLock()
	defer r.connMu.RUnlock()

	out := make([]*Client, 0, len(r.users[userID]))
	for id := range r.users[userID] {
		if c, ok := r.clients[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// AllClients returns every live connection.
func (r *Registry) AllClients() []*Client {
	r.connMu.RLock()
	defer r.connMu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// IsUserConnected reports whether the user has at least one live connection.
func (r *Registry) IsUserConnected(userID uint) bool {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	return len(r.users[userID]) > 0
}

// DeviceSubscription is one row of the stats report.
type DeviceSubscription struct {
	DeviceID    uint `json:"deviceId"`
	Subscribers int  `json:"subscribers"`
}

// Stats summarizes the registry for the health and system endpoints.
type Stats struct {
	ConnectedUsers      int                  `json:"connectedUsers"`
	TotalConnections    int                  `json:"totalConnections"`
	DeviceSubscriptions []DeviceSubscription `json:"deviceSubscriptions"`
}

// Snapshot reports current connection and subscription counts.
func (r *Registry) Snapshot() Stats {
	r.connMu.RLock()
	stats := Stats{
		ConnectedUsers:   len(r.users),
		TotalConnections: len(r.clients),
	}
	r.connMu.RUnlock()

	r.subMu.RLock()
	stats.DeviceSubscriptions = make([]DeviceSubscription, 0, len(r.devices))
	for deviceID, set := range r.devices {
		stats.DeviceSubscriptions = append(stats.DeviceSubscriptions, DeviceSubscription{
			DeviceID:    deviceID,
			Subscribers: len(set),
		})
	}
	r.subMu.RUnlock()

	return stats
}

func (r *Registry) resolve(ids []string) []*Client {
	r.connMu.RLock()
	defer r.connMu.RUnlock()

	out := make([]*Client, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.clients[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func idsOf(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
