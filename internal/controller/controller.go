// Package controller serializes button edges and long-press timer expiries
// into a single dispatch goroutine that drives the press classifier and the
// output cycle.
package controller

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/androbi-embedded/hello-dongle/internal/gpio"
	"github.com/androbi-embedded/hello-dongle/internal/logic"
)

// Config holds controller settings.
type Config struct {
	Tracked   logic.Mask    // button tracked for press sessions
	Interval  time.Duration // long-press threshold and repeat period
	QueueSize int           // pending edges/expiries before HandleEdge blocks
}

// DefaultConfig returns the default controller settings.
func DefaultConfig() Config {
	return Config{
		Tracked:   logic.Button1,
		Interval:  logic.DefaultPollInterval,
		QueueSize: 64,
	}
}

// Observer is notified after every dispatched message.
// Called from the dispatch goroutine; implementations must not block.
type Observer interface {
	ObservePress(ctx logic.PressContext, cycle logic.CycleState, counts logic.EventCounts)
}

type messageKind int

const (
	msgEdge messageKind = iota
	msgExpiry
)

type message struct {
	kind    messageKind
	state   logic.Mask
	changed logic.Mask
	gen     uint64
}

// Controller owns the press classifier and output cycle and feeds them from
// one goroutine, so PressContext and the cycle state are never touched
// concurrently.
type Controller struct {
	cfg        Config
	log        *logrus.Entry
	now        func() time.Time
	observer   Observer
	cycle      *logic.Cycle
	classifier *logic.Classifier
	timer      *queueTimer

	queue  chan message
	events chan logic.Event
	done   chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Controller) { c.log = l }
}

// WithClock sets the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithAfterFunc replaces time.AfterFunc for the long-press timer.
func WithAfterFunc(f AfterFunc) Option {
	return func(c *Controller) { c.timer.after = f }
}

// WithObserver registers an observer for state changes.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// New creates a controller driving the indicators and reading buttons on board.
func New(board gpio.Board, cfg Config, opts ...Option) *Controller {
	if cfg.Tracked == 0 {
		cfg.Tracked = logic.Button1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}

	c := &Controller{
		cfg:    cfg,
		log:    logrus.NewEntry(logrus.StandardLogger()),
		now:    time.Now,
		queue:  make(chan message, cfg.QueueSize),
		events: make(chan logic.Event, 16),
		done:   make(chan struct{}),
	}
	c.timer = &queueTimer{after: realAfterFunc, post: c.postExpiry}
	for _, opt := range opts {
		opt(c)
	}

	c.cycle = logic.NewCycle(board)
	c.classifier = logic.NewClassifier(cfg.Tracked, cfg.Interval, c.timer, board, c.cycle)
	return c
}

// HandleEdge is the platform edge callback. It only enqueues; classification
// happens on the dispatch goroutine. It blocks only while the queue is full
// and returns immediately once Run has exited.
func (c *Controller) HandleEdge(state, changed logic.Mask) {
	c.enqueue(message{kind: msgEdge, state: state, changed: changed})
}

func (c *Controller) postExpiry(gen uint64) {
	c.enqueue(message{kind: msgExpiry, gen: gen})
}

func (c *Controller) enqueue(m message) {
	select {
	case c.queue <- m:
	case <-c.done:
	}
}

// Events returns press events that advanced the cycle. The channel is closed
// when Run returns. Events are dropped with a warning if nobody keeps up.
func (c *Controller) Events() <-chan logic.Event {
	return c.events
}

// Cycle returns the output cycle owned by the controller.
func (c *Controller) Cycle() *logic.Cycle {
	return c.cycle
}

// Run dispatches queued edges and expiries until ctx is cancelled.
// It must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.events)
	defer close(c.done)
	defer c.timer.Stop()

	c.log.WithField("interval", c.classifier.Interval()).Info("press classifier started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-c.queue:
			c.dispatch(m)
		}
	}
}

func (c *Controller) dispatch(m message) {
	var (
		ev  *logic.Event
		err error
	)

	switch m.kind {
	case msgEdge:
		ev, err = c.handleEdge(m)
	case msgExpiry:
		if !c.timer.current(m.gen) {
			c.log.WithField("gen", m.gen).Debug("stale timer expiry dropped")
			break
		}
		revalidated := c.classifier.Counts().Revalidate
		ev, err = c.classifier.HandleExpiry(c.now())
		switch {
		case err != nil:
			c.log.WithError(err).Warn("long press check failed")
		case ev != nil:
			c.log.WithField("cycle", ev.Cycle).Debug("long press detected")
		case c.classifier.Counts().Revalidate > revalidated:
			c.log.WithField("press", c.classifier.Context().State).Debug("button released before timer check")
		default:
			c.log.Debug("timer expiry while idle ignored")
		}
	}

	if ev != nil {
		c.emit(*ev)
	}
	if c.observer != nil {
		c.observer.ObservePress(c.classifier.Context(), c.cycle.State(), c.classifier.Counts())
	}
}

func (c *Controller) handleEdge(m message) (*logic.Event, error) {
	log := c.log.WithFields(logrus.Fields{"state": m.state, "changed": m.changed})

	ev, err := c.classifier.HandleEdge(m.state, m.changed, c.now())
	switch {
	case errors.Is(err, logic.ErrUntrackedButton):
		log.Debug("unhandled button")
		return nil, nil
	case errors.Is(err, logic.ErrUnhandledMask), errors.Is(err, logic.ErrUnexpectedEdge):
		log.WithError(err).Debug("edge dropped")
		return nil, nil
	}

	log.Debug("tracked button changed")
	if m.state == c.cfg.Tracked {
		log.Debug("button pressed")
	} else {
		log.Debug("button released")
	}
	if err != nil {
		log.WithError(err).Warn("indicator write failed")
	}
	return ev, err
}

func (c *Controller) emit(ev logic.Event) {
	select {
	case c.events <- ev:
	default:
		c.log.WithField("type", ev.Type).Warn("event consumer lagging, event dropped")
	}
}
