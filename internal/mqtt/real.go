package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

// bufferCapacity is how many messages are kept while the broker is unreachable.
const bufferCapacity = 100

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *logrus.Entry

	mu  sync.Mutex
	buf *ringBuffer

	onStatus func(connected bool)
}

// NewRealPublisher creates a publisher for the given broker. Connecting
// happens in the background with retries, so an unreachable broker never
// delays startup. onStatus, if non-nil, is called on connect and on loss.
func NewRealPublisher(broker string, log *logrus.Entry, onStatus func(connected bool)) *RealPublisher {
	p := newPublisher(nil, log, onStatus)

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "MQTT_DISCONNECT"})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("hello-dongle").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func newPublisher(client paho.Client, log *logrus.Entry, onStatus func(bool)) *RealPublisher {
	return &RealPublisher{
		client:   client,
		log:      log,
		buf:      newRingBuffer(bufferCapacity),
		onStatus: onStatus,
	}
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.log.Info("mqtt connected")
	if p.onStatus != nil {
		p.onStatus(true)
	}

	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if len(pending) > 0 {
		p.log.WithField("count", len(pending)).Info("mqtt replaying buffered messages")
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.WithError(err).Warn("mqtt connection lost")
	if p.onStatus != nil {
		p.onStatus(false)
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends a button event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(Topic, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) - we want lifecycle events delivered
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	// The connection is marked open before onConnect runs, and onConnect
	// drains under mu, so checking and buffering under mu cannot strand a
	// message until the next reconnect.
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		dropped := p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		if dropped {
			p.log.WithField("capacity", p.buf.cap()).Warn("mqtt buffer full, dropping oldest")
		}
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
