// Package eventbus decouples the sensor pipeline from the realtime hub and
// the audit log: producers publish domain events, subscribers fan them out.
package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Bus is the process-local event bus. Constructed per server instance so
// tests can run isolated buses side by side.
type Bus struct {
	inner evbus.Bus
}

func New() *Bus {
	return &Bus{inner: evbus.New()}
}

// Publish delivers the event synchronously to all subscribers of the topic.
func (b *Bus) Publish(topic string, args ...interface{}) {
	b.inner.Publish(topic, args...)
}

// Subscribe registers fn for the topic. fn's signature must match the
// published arguments.
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.inner.Subscribe(topic, fn)
}

// SubscribeAsync registers fn to run on its own goroutine per event.
// Transactional mode keeps per-topic ordering.
func (b *Bus) SubscribeAsync(topic string, fn interface{}) error {
	return b.inner.SubscribeAsync(topic, fn, true)
}

func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.inner.Unsubscribe(topic, fn)
}

// WaitAsync blocks until all async handlers have drained; used in tests and
// shutdown.
func (b *Bus) WaitAsync() {
	b.inner.WaitAsync()
}
