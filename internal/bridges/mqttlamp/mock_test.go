package mqttlamp

import (
	"errors"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/mqtt"
)

// mockBroker implements MQTTClient. Retained messages are replayed
// synchronously on Subscribe, the way a local broker delivers them.
type mockBroker struct {
	mu           sync.Mutex
	retained     map[string][]byte
	handlers     map[string]mqtt.MessageHandler
	published    []mockPublish
	unsubscribed []string
	subscribeErr error
	publishErr   error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func newMockBroker() *mockBroker {
	return &mockBroker{
		retained: make(map[string][]byte),
		handlers: make(map[string]mqtt.MessageHandler),
	}
}

func (m *mockBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *mockBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	if m.subscribeErr != nil {
		m.mu.Unlock()
		return m.subscribeErr
	}
	m.handlers[topic] = handler
	var replay []string
	for t := range m.retained {
		if matches(topic, t) {
			replay = append(replay, t)
		}
	}
	payloads := make([][]byte, len(replay))
	for i, t := range replay {
		payloads[i] = m.retained[t]
	}
	m.mu.Unlock()

	for i, t := range replay {
		_ = handler(t, payloads[i]) //nolint:errcheck // Mirrors broker delivery
	}
	return nil
}

func (m *mockBroker) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	m.unsubscribed = append(m.unsubscribed, topic)
	return nil
}

// retain stores a retained message without delivering it.
func (m *mockBroker) retain(topic string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retained[topic] = payload
}

// deliver routes a live message to the matching subscription.
func (m *mockBroker) deliver(topic string, payload []byte) error {
	m.mu.Lock()
	var handler mqtt.MessageHandler
	for pattern, h := range m.handlers {
		if matches(pattern, topic) {
			handler = h
		}
	}
	m.mu.Unlock()

	if handler == nil {
		return errors.New("mock: no subscriber for " + topic)
	}
	return handler(topic, payload)
}

func (m *mockBroker) subscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

func (m *mockBroker) publishes() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

// matches supports the single-level + wildcard.
func matches(pattern, topic string) bool {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")
	if len(p) != len(t) {
		return false
	}
	for i := range p {
		if p[i] != "+" && p[i] != t[i] {
			return false
		}
	}
	return true
}
