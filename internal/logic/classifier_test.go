package logic

import (
	"errors"
	"testing"
	"time"
)

// fakeTimer records Start/Stop calls. Expiry is delivered by the test.
type fakeTimer struct {
	armed   bool
	starts  int
	stops   int
	lastDur time.Duration
}

func (f *fakeTimer) Start(d time.Duration) {
	f.armed = true
	f.starts++
	f.lastDur = d
}

func (f *fakeTimer) Stop() {
	f.armed = false
	f.stops++
}

// fakeButtons is a live button snapshot controlled by the test.
type fakeButtons struct {
	mask Mask
	err  error
}

func (f *fakeButtons) Buttons() (Mask, error) {
	return f.mask, f.err
}

type classifierRig struct {
	c       *Classifier
	timer   *fakeTimer
	buttons *fakeButtons
	cycle   *Cycle
	out     *recordingWriter
	start   time.Time
}

func newRig(t *testing.T) *classifierRig {
	t.Helper()
	r := &classifierRig{
		timer:   &fakeTimer{},
		buttons: &fakeButtons{},
		out:     newRecordingWriter(),
		start:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	r.cycle = NewCycle(r.out)
	r.c = NewClassifier(Button1, 200*time.Millisecond, r.timer, r.buttons, r.cycle)
	return r
}

func (r *classifierRig) at(ms int) time.Time {
	return r.start.Add(time.Duration(ms) * time.Millisecond)
}

func (r *classifierRig) press(t *testing.T) {
	t.Helper()
	r.buttons.mask = Button1
	ev, err := r.c.HandleEdge(Button1, Button1, r.start)
	if err != nil {
		t.Fatalf("press: unexpected error: %v", err)
	}
	if ev != nil {
		t.Fatalf("press: unexpected event %+v", ev)
	}
}

func (r *classifierRig) release(t *testing.T, ms int) *Event {
	t.Helper()
	r.buttons.mask = 0
	ev, err := r.c.HandleEdge(0, Button1, r.at(ms))
	if err != nil {
		t.Fatalf("release: unexpected error: %v", err)
	}
	return ev
}

func TestNewClassifierDefaultInterval(t *testing.T) {
	c := NewClassifier(Button1, 0, &fakeTimer{}, &fakeButtons{}, NewCycle(newRecordingWriter()))
	if c.Interval() != DefaultPollInterval {
		t.Errorf("expected default interval %v, got %v", DefaultPollInterval, c.Interval())
	}
	if c.Context().State != PressIdle {
		t.Errorf("expected IDLE, got %s", c.Context().State)
	}
}

func TestPressArmsTimer(t *testing.T) {
	r := newRig(t)
	r.press(t)

	ctx := r.c.Context()
	if ctx.State != PressWaiting {
		t.Errorf("expected PRESSED_WAITING, got %s", ctx.State)
	}
	if ctx.HeldMask != Button1 {
		t.Errorf("expected held mask %#x, got %#x", Button1, ctx.HeldMask)
	}
	if ctx.LongPress {
		t.Error("long press flag should be cleared on press")
	}
	if !r.timer.armed || r.timer.lastDur != 200*time.Millisecond {
		t.Errorf("expected timer armed for 200ms, got armed=%v dur=%v", r.timer.armed, r.timer.lastDur)
	}
}

func TestShortClick(t *testing.T) {
	// press at t=0, release at t=50ms
	r := newRig(t)
	r.press(t)
	ev := r.release(t, 50)

	if ev == nil {
		t.Fatal("expected click event")
	}
	if ev.Type != EventClick {
		t.Errorf("expected CLICK, got %s", ev.Type)
	}
	if ev.Cycle != CycleA {
		t.Errorf("expected cycle A, got %s", ev.Cycle)
	}
	if !ev.Timestamp.Equal(r.at(50)) {
		t.Errorf("unexpected timestamp %v", ev.Timestamp)
	}
	if r.timer.armed {
		t.Error("timer should be stopped after release")
	}
	if r.c.Context().State != PressIdle {
		t.Errorf("expected IDLE, got %s", r.c.Context().State)
	}
	if r.cycle.State() != CycleA {
		t.Errorf("expected cycle A, got %s", r.cycle.State())
	}

	counts := r.c.Counts()
	if counts.Clicks != 1 || counts.LongPress != 0 {
		t.Errorf("unexpected counts %+v", counts)
	}
}

func TestLongPressRepeats(t *testing.T) {
	// press at t=0, held through t=1000ms: fires at 200,400,600,800,1000
	r := newRig(t)
	r.press(t)

	want := []CycleState{CycleA, CycleB, CycleC, CycleOff, CycleA}
	for i, w := range want {
		ev, err := r.c.HandleExpiry(r.at((i + 1) * 200))
		if err != nil {
			t.Fatalf("expiry %d: unexpected error: %v", i, err)
		}
		if ev == nil || ev.Type != EventLongPress {
			t.Fatalf("expiry %d: expected LONG_PRESS event, got %+v", i, ev)
		}
		if ev.Cycle != w {
			t.Errorf("expiry %d: expected %s, got %s", i, w, ev.Cycle)
		}
		if !r.timer.armed {
			t.Errorf("expiry %d: timer should be re-armed", i)
		}
		if r.c.Context().State != PressLong {
			t.Errorf("expiry %d: expected LONG_ACTIVE, got %s", i, r.c.Context().State)
		}
	}

	if r.timer.starts != 6 {
		t.Errorf("expected 6 timer starts (press + 5 re-arms), got %d", r.timer.starts)
	}

	// Release after long press must not advance again.
	ev := r.release(t, 1050)
	if ev != nil {
		t.Errorf("expected no event on release after long press, got %+v", ev)
	}
	if r.cycle.State() != CycleA {
		t.Errorf("expected cycle A, got %s", r.cycle.State())
	}
	if r.timer.armed {
		t.Error("timer should be stopped after release")
	}
	if counts := r.c.Counts(); counts.LongPress != 5 || counts.Clicks != 0 {
		t.Errorf("unexpected counts %+v", counts)
	}
}

func TestReleaseSeenByExpiryStillClicksOnce(t *testing.T) {
	// Released before the interval, but the edge is handled after the expiry.
	r := newRig(t)
	r.press(t)
	r.buttons.mask = 0

	ev, err := r.c.HandleExpiry(r.at(200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev != nil {
		t.Errorf("expected no event at expiry, got %+v", ev)
	}
	if r.cycle.State() != CycleOff {
		t.Errorf("expected no advance at expiry, got %s", r.cycle.State())
	}
	if r.timer.starts != 1 {
		t.Errorf("timer must not be re-armed, starts=%d", r.timer.starts)
	}
	ctx := r.c.Context()
	if ctx.State != PressWaiting || ctx.LongPress {
		t.Errorf("expected PRESSED_WAITING with flag cleared, got %+v", ctx)
	}

	ev = r.release(t, 205)
	if ev == nil || ev.Type != EventClick || ev.Cycle != CycleA {
		t.Fatalf("expected click to A, got %+v", ev)
	}
	if r.cycle.State() != CycleA {
		t.Errorf("expected A, got %s", r.cycle.State())
	}
	counts := r.c.Counts()
	if counts.Clicks != 1 || counts.Revalidate != 1 || counts.LongPress != 0 {
		t.Errorf("counts: got %+v", counts)
	}
	if r.c.Context().State != PressIdle {
		t.Errorf("expected IDLE after release, got %s", r.c.Context().State)
	}
}

func TestReleaseSeenByExpiryAfterLongPressDropsLateEdge(t *testing.T) {
	r := newRig(t)
	r.press(t)
	if ev, _ := r.c.HandleExpiry(r.at(200)); ev == nil || ev.Type != EventLongPress {
		t.Fatalf("expected long press, got %+v", ev)
	}

	// Released before the next repeat; the edge is handled after the expiry.
	r.buttons.mask = 0
	ev, err := r.c.HandleExpiry(r.at(400))
	if err != nil || ev != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", ev, err)
	}
	if r.c.Context() != (PressContext{State: PressIdle}) {
		t.Errorf("expected IDLE, got %+v", r.c.Context())
	}

	ev, err = r.c.HandleEdge(0, Button1, r.at(405))
	if !errors.Is(err, ErrUnexpectedEdge) {
		t.Errorf("expected ErrUnexpectedEdge, got %v", err)
	}
	if ev != nil || r.cycle.State() != CycleA {
		t.Errorf("late release must not advance, state=%s", r.cycle.State())
	}
	if c := r.c.Counts(); c.Clicks != 0 || c.LongPress != 1 || c.Revalidate != 1 {
		t.Errorf("counts: got %+v", c)
	}
}

func TestExpiryReadErrorWaitsForRelease(t *testing.T) {
	r := newRig(t)
	r.press(t)
	r.buttons.err = errors.New("bus error")

	ev, err := r.c.HandleExpiry(r.at(200))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, r.buttons.err) {
		t.Errorf("expected wrapped read error, got %v", err)
	}
	if ev != nil {
		t.Errorf("expected no event, got %+v", ev)
	}
	if r.c.Context().State != PressWaiting {
		t.Errorf("expected PRESSED_WAITING, got %s", r.c.Context().State)
	}

	r.buttons.err = nil
	if ev := r.release(t, 300); ev == nil || ev.Type != EventClick {
		t.Errorf("expected the release to click, got %+v", ev)
	}
}

func TestExpiryReadErrorEndsLongPress(t *testing.T) {
	r := newRig(t)
	r.press(t)
	r.c.HandleExpiry(r.at(200))
	r.buttons.err = errors.New("bus error")

	if _, err := r.c.HandleExpiry(r.at(400)); err == nil {
		t.Fatal("expected error")
	}
	if r.c.Context().State != PressIdle {
		t.Errorf("expected IDLE, got %s", r.c.Context().State)
	}
}

func TestExpiryWhileIdleIgnored(t *testing.T) {
	r := newRig(t)
	r.buttons.mask = Button1

	ev, err := r.c.HandleExpiry(r.at(200))
	if err != nil || ev != nil {
		t.Errorf("expected (nil, nil), got (%+v, %v)", ev, err)
	}
	if r.cycle.State() != CycleOff {
		t.Errorf("expected no advance, got %s", r.cycle.State())
	}
}

func TestDroppedEdges(t *testing.T) {
	tests := []struct {
		name    string
		state   Mask
		changed Mask
		want    error
	}{
		{"untracked button", 1 << 1, 1 << 1, ErrUntrackedButton},
		{"two buttons changed", Button1 | 1<<1, Button1 | 1<<1, ErrUntrackedButton},
		{"no change bits", 0, 0, ErrUntrackedButton},
		{"tracked changed with other held", Button1 | 1<<2, Button1, ErrUnhandledMask},
		{"release while idle", 0, Button1, ErrUnexpectedEdge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			before := r.c.Context()

			ev, err := r.c.HandleEdge(tt.state, tt.changed, r.start)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if ev != nil {
				t.Errorf("expected no event, got %+v", ev)
			}
			if r.c.Context() != before {
				t.Errorf("press context changed: %+v -> %+v", before, r.c.Context())
			}
			if r.cycle.State() != CycleOff {
				t.Errorf("cycle advanced to %s", r.cycle.State())
			}
			if r.timer.starts != 0 || r.timer.stops != 0 {
				t.Errorf("timer touched: starts=%d stops=%d", r.timer.starts, r.timer.stops)
			}
			if r.c.Counts().Ignored != 1 {
				t.Errorf("expected 1 ignored edge, got %d", r.c.Counts().Ignored)
			}
		})
	}
}

func TestDuplicatePressIgnored(t *testing.T) {
	r := newRig(t)
	r.press(t)

	_, err := r.c.HandleEdge(Button1, Button1, r.at(10))
	if !errors.Is(err, ErrUnexpectedEdge) {
		t.Errorf("expected ErrUnexpectedEdge, got %v", err)
	}
	if r.timer.starts != 1 {
		t.Errorf("duplicate press must not re-arm, starts=%d", r.timer.starts)
	}

	// Session continues normally.
	ev := r.release(t, 50)
	if ev == nil || ev.Type != EventClick {
		t.Errorf("expected click, got %+v", ev)
	}
}

func TestNewPressClearsLongFlag(t *testing.T) {
	r := newRig(t)
	r.press(t)
	if _, err := r.c.HandleExpiry(r.at(200)); err != nil {
		t.Fatal(err)
	}
	r.release(t, 250)

	// Second session is a short click and must advance on release.
	r.press(t)
	if r.c.Context().LongPress {
		t.Fatal("flag should be cleared by new press")
	}
	ev := r.release(t, 300)
	if ev == nil || ev.Type != EventClick {
		t.Fatalf("expected click, got %+v", ev)
	}
	if r.cycle.State() != CycleB {
		t.Errorf("expected B, got %s", r.cycle.State())
	}
}

func TestClickReturnsWriteError(t *testing.T) {
	r := newRig(t)
	r.out.err = errors.New("line busy")
	r.press(t)

	r.buttons.mask = 0
	ev, err := r.c.HandleEdge(0, Button1, r.at(50))
	if err == nil {
		t.Error("expected write error")
	}
	if ev == nil || ev.Cycle != CycleA {
		t.Errorf("expected click event to A alongside error, got %+v", ev)
	}
}
