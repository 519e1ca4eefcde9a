package mqtt

import (
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
)

type mockToken struct {
	err  error
	done chan struct{}
}

func newMockToken(err error, completed bool) *mockToken {
	t := &mockToken{err: err, done: make(chan struct{})}
	if completed {
		close(t.done)
	}
	return t
}

func (t *mockToken) Wait() bool {
	<-t.done
	return true
}

func (t *mockToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *mockToken) Done() <-chan struct{} { return t.done }
func (t *mockToken) Error() error          { return t.err }

type mockMessage struct {
	topic   string
	payload []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.payload }
func (m mockMessage) Ack()              {}

// MockClient is a paho client whose behaviour is set per test.
type MockClient struct {
	ConnectFunc           func() paho_mqtt.Token
	SubscribeMultipleFunc func(filters map[string]byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token

	mu           sync.Mutex
	subscribed   []map[string]byte
	disconnected int
}

func (m *MockClient) IsConnected() bool      { return true }
func (m *MockClient) IsConnectionOpen() bool { return true }

func (m *MockClient) Connect() paho_mqtt.Token {
	if m.ConnectFunc != nil {
		return m.ConnectFunc()
	}
	return newMockToken(nil, true)
}

func (m *MockClient) Disconnect(quiesce uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected++
}

func (m *MockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho_mqtt.Token {
	return newMockToken(nil, true)
}

func (m *MockClient) Subscribe(topic string, qos byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token {
	return m.SubscribeMultiple(map[string]byte{topic: qos}, callback)
}

func (m *MockClient) SubscribeMultiple(filters map[string]byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token {
	m.mu.Lock()
	m.subscribed = append(m.subscribed, filters)
	m.mu.Unlock()
	if m.SubscribeMultipleFunc != nil {
		return m.SubscribeMultipleFunc(filters, callback)
	}
	return newMockToken(nil, true)
}

func (m *MockClient) Unsubscribe(topics ...string) paho_mqtt.Token {
	return newMockToken(nil, true)
}

func (m *MockClient) AddRoute(topic string, callback paho_mqtt.MessageHandler) {}

func (m *MockClient) OptionsReader() paho_mqtt.ClientOptionsReader {
	return paho_mqtt.ClientOptionsReader{}
}

func (m *MockClient) subscriptions() []map[string]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]byte(nil), m.subscribed...)
}

func (m *MockClient) disconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnected
}
