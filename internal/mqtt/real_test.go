package mqtt

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

// doneToken is an already completed paho token.
type doneToken struct{ err error }

func (t doneToken) Wait() bool { return true }

func (t doneToken) WaitTimeout(time.Duration) bool { return true }

func (t doneToken) Error() error { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeClient stands in for the paho client. Methods not overridden panic.
type fakeClient struct {
	paho.Client

	mu         sync.Mutex
	open       bool
	publishErr error
	topics     []string
	payloads   []string

	// beforeCheck, if set, runs once inside IsConnectionOpen after the
	// answer has been decided.
	beforeCheck func()
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	open := c.open
	hook := c.beforeCheck
	c.beforeCheck = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return open
}

func (c *fakeClient) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, string(payload.([]byte)))
	return doneToken{err: c.publishErr}
}

func (c *fakeClient) published() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.topics...)
}

func newTestPublisher(c *fakeClient, onStatus func(bool)) *RealPublisher {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return newPublisher(c, logrus.NewEntry(l), onStatus)
}

var click = logic.Event{Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Type: logic.EventClick, Cycle: logic.CycleA}

func TestRealPublisherDirectWhenConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newTestPublisher(c, nil)

	if err := p.Publish(click); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := c.published(); len(got) != 1 || got[0] != Topic {
		t.Errorf("published: got %v, want [%s]", got, Topic)
	}
	if p.buf.len() != 0 {
		t.Errorf("buffer len: got %d, want 0", p.buf.len())
	}
}

func TestRealPublisherBuffersUntilConnect(t *testing.T) {
	c := &fakeClient{}
	var status []bool
	p := newTestPublisher(c, func(up bool) { status = append(status, up) })

	if err := p.Publish(click); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}
	if len(c.published()) != 0 {
		t.Fatalf("nothing should reach the client while disconnected, got %v", c.published())
	}

	c.setOpen(true)
	p.onConnect(c)

	got := c.published()
	if len(got) != 2 || got[0] != Topic || got[1] != TopicSystem {
		t.Errorf("replay: got %v, want [%s %s]", got, Topic, TopicSystem)
	}
	if p.buf.len() != 0 {
		t.Errorf("buffer should be drained, len=%d", p.buf.len())
	}
	if len(status) != 1 || !status[0] {
		t.Errorf("status callbacks: got %v, want [true]", status)
	}
}

func TestRealPublisherConnectDuringCheckReplays(t *testing.T) {
	c := &fakeClient{}
	p := newTestPublisher(c, nil)

	// The connection comes up right after publish saw it closed, and the
	// connect handler runs concurrently.
	connected := make(chan struct{})
	c.beforeCheck = func() {
		c.setOpen(true)
		go func() {
			p.onConnect(c)
			close(connected)
		}()
	}

	if err := p.Publish(click); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("connect handler did not finish")
	}

	if got := c.published(); len(got) != 1 {
		t.Errorf("message should be replayed by the connect handler, published %v", got)
	}
	p.mu.Lock()
	left := p.buf.len()
	p.mu.Unlock()
	if left != 0 {
		t.Errorf("message stranded in buffer, len=%d", left)
	}
}

func TestRealPublisherTokenError(t *testing.T) {
	c := &fakeClient{open: true, publishErr: errors.New("not authorized")}
	p := newTestPublisher(c, nil)

	err := p.Publish(click)
	if err == nil || !errors.Is(err, c.publishErr) {
		t.Errorf("expected wrapped token error, got %v", err)
	}
}

func TestRealPublisherConnectionLostReported(t *testing.T) {
	var status []bool
	p := newTestPublisher(&fakeClient{}, func(up bool) { status = append(status, up) })

	p.onConnectionLost(nil, errors.New("EOF"))
	if len(status) != 1 || status[0] {
		t.Errorf("status callbacks: got %v, want [false]", status)
	}
}
