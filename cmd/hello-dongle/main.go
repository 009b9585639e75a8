// Command hello-dongle classifies presses of a single button, steps an
// indicator cycle on each press and blinks a status heartbeat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/androbi-embedded/hello-dongle/internal/controller"
	"github.com/androbi-embedded/hello-dongle/internal/gpio"
	"github.com/androbi-embedded/hello-dongle/internal/heartbeat"
	"github.com/androbi-embedded/hello-dongle/internal/logic"
	"github.com/androbi-embedded/hello-dongle/internal/mqtt"
	"github.com/androbi-embedded/hello-dongle/internal/status"
	"github.com/androbi-embedded/hello-dongle/internal/web"
)

type options struct {
	backend  string
	pins     gpio.Pins
	interval time.Duration
	blink    time.Duration
	broker   string
	httpAddr string
}

func main() {
	opts := options{pins: gpio.DefaultPins()}
	flag.StringVar(&opts.backend, "backend", "cdev", "GPIO backend: cdev or rpio")
	flag.StringVar(&opts.pins.Chip, "chip", gpio.DefaultChip, "GPIO chip (cdev backend)")
	flag.IntVar(&opts.pins.Button, "pin-button", gpio.DefaultPinButton, "BCM pin number for the button")
	flag.IntVar(&opts.pins.Status, "pin-status", gpio.DefaultPinStatus, "BCM pin number for the heartbeat indicator")
	flag.IntVar(&opts.pins.A, "pin-a", gpio.DefaultPinA, "BCM pin number for indicator A")
	flag.IntVar(&opts.pins.B, "pin-b", gpio.DefaultPinB, "BCM pin number for indicator B")
	flag.IntVar(&opts.pins.C, "pin-c", gpio.DefaultPinC, "BCM pin number for indicator C")
	flag.DurationVar(&opts.pins.Debounce, "debounce", opts.pins.Debounce, "Button debounce period (0 to disable)")
	flag.DurationVar(&opts.pins.Poll, "poll", opts.pins.Poll, "Button polling interval (rpio backend)")
	flag.DurationVar(&opts.interval, "interval", logic.DefaultPollInterval, "Long press threshold and repeat period")
	flag.DurationVar(&opts.blink, "blink", heartbeat.DefaultPeriod, "Heartbeat half period")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	logLevel := flag.String("log-level", "debug", "Log level (trace, debug, info, warn, error)")

	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("invalid -log-level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := run(opts); err != nil {
		logrus.WithError(err).Fatal("fatal")
	}
}

func run(opts options) error {
	log := logrus.WithField("component", "main")

	board, gpioErr := openBoard(opts.backend, opts.pins, log)
	if board == nil {
		return gpioErr
	}
	defer board.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Backend:    opts.backend,
		IntervalMs: opts.interval.Milliseconds(),
		BlinkMs:    opts.blink.Milliseconds(),
		DebounceMs: opts.pins.Debounce.Milliseconds(),
		Broker:     opts.broker,
		HTTPAddr:   opts.httpAddr,
	})

	ctrl := controller.New(board, controller.Config{Tracked: logic.Button1, Interval: opts.interval},
		controller.WithLogger(logrus.WithField("component", "controller")),
		controller.WithObserver(tracker),
	)
	if err := board.Watch(ctrl.HandleEdge); err != nil {
		gpioErr = errors.Join(gpioErr, fmt.Errorf("watch button: %w", err))
	}
	if gpioErr != nil {
		// Keep running: the heartbeat and status page stay useful on a half-wired board.
		log.WithError(gpioErr).Error("gpio init degraded")
		tracker.SetGPIOError(gpioErr)
	}

	var publisher mqtt.Publisher
	if opts.broker != "" {
		publisher = mqtt.NewRealPublisher(opts.broker, logrus.WithField("component", "mqtt"), tracker.SetMQTTConnected)
		defer publisher.Close()
	}

	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, logrus.WithField("component", "web"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.WithField("addr", opts.httpAddr).Info("http status server listening")
	}

	hb := heartbeat.New(board, logrus.WithField("component", "heartbeat"))
	hb.Period = opts.blink
	hb.OnToggle = tracker.SetHeartbeat

	log.WithFields(logrus.Fields{
		"backend":  opts.backend,
		"interval": opts.interval,
		"blink":    opts.blink,
		"broker":   opts.broker,
	}).Info("started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(ctrl, hb, publisher, tracker, time.Now, sigCh, log)
}

// openBoard opens the requested backend. A non-nil board may come with an
// error describing lines that could not be configured. An rpio board that
// cannot map memory falls back to the character device.
func openBoard(backend string, pins gpio.Pins, log *logrus.Entry) (gpio.Board, error) {
	switch backend {
	case "cdev":
		return gpio.NewCdevBoard(pins)
	case "rpio":
		b, err := gpio.NewRpioBoard(pins)
		if err == nil {
			return b, nil
		}
		log.WithError(err).Warn("rpio unavailable, falling back to cdev")
		cb, cerr := gpio.NewCdevBoard(pins)
		return cb, errors.Join(err, cerr)
	default:
		return nil, fmt.Errorf("unknown gpio backend %q", backend)
	}
}

// runLoop starts the controller and blinks the heartbeat until a signal
// arrives. STARTUP and SHUTDOWN are published around it; publisher may be nil.
func runLoop(ctrl *controller.Controller, hb *heartbeat.Heartbeat, publisher mqtt.Publisher, tracker *status.Tracker, now func() time.Time, sig <-chan os.Signal, log *logrus.Entry) error {
	publishStatus(publisher, tracker, now, "STARTUP", "", log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("controller stopped")
		}
	}()
	go func() {
		defer wg.Done()
		publishEvents(ctrl.Events(), publisher, log)
	}()

	reasonCh := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			log.WithField("signal", s).Info("shutting down")
			reasonCh <- signalName(s)
			cancel()
		case <-ctx.Done():
			reasonCh <- ""
		}
	}()

	err := hb.Run(ctx)
	cancel()
	wg.Wait()

	publishStatus(publisher, tracker, now, "SHUTDOWN", <-reasonCh, log)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func publishEvents(events <-chan logic.Event, publisher mqtt.Publisher, log *logrus.Entry) {
	for ev := range events {
		if publisher == nil {
			continue
		}
		if err := publisher.Publish(ev); err != nil {
			log.WithError(err).WithField("event", ev.Type).Warn("publish error")
		}
	}
}

func publishStatus(publisher mqtt.Publisher, tracker *status.Tracker, now func() time.Time, event, reason string, log *logrus.Entry) {
	if publisher == nil {
		return
	}
	if cs, ok := publisher.(mqtt.ConnectionStatus); ok {
		tracker.SetMQTTConnected(cs.IsConnected())
	}
	snap := tracker.Snapshot()
	err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  now(),
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.WithError(err).Warnf("failed to publish %s event", event)
		return
	}
	log.Infof("published %s event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
