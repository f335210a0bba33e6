package mqtt

import (
	"context"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/garage-door/internal/domain/door"
)

// doneToken is a token that has already completed.
type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }

func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)

	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type subscription struct {
	topic    string
	qos      byte
	callback paho.MessageHandler
}

// fakeClient records publishes and subscriptions.
type fakeClient struct {
	mu            sync.Mutex
	published     []published
	subscriptions []subscription
	disconnected  bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	var raw []byte

	switch value := payload.(type) {
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	}

	c.published = append(c.published, published{topic: topic, qos: qos, retained: retained, payload: raw})

	return &doneToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscriptions = append(c.subscriptions, subscription{topic: topic, qos: qos, callback: callback})

	return &doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disconnected = true
}

func (c *fakeClient) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]published(nil), c.published...)
}

// fakeMessage is an inbound message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// fakeCommander forwards requested targets to a channel.
type fakeCommander struct {
	targets chan door.State
}

func newFakeCommander() *fakeCommander {
	return &fakeCommander{targets: make(chan door.State, 4)}
}

func (c *fakeCommander) SetTarget(_ context.Context, target door.State) error {
	c.targets <- target
	return nil
}
