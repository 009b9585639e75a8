package controller

import "time"

// AfterFunc schedules f after d. It matches time.AfterFunc so tests can
// substitute a manual clock.
type AfterFunc func(d time.Duration, f func()) Stopper

// Stopper cancels a scheduled call.
type Stopper interface {
	Stop() bool
}

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// queueTimer implements logic.Timer by posting expiries into the dispatch
// queue. Every Start and Stop bumps the generation, and the consumer drops
// expiries whose generation is no longer current, so a timer that fired
// before Stop never reaches the classifier.
//
// Start and Stop must be called from the dispatch goroutine only.
type queueTimer struct {
	after AfterFunc
	post  func(gen uint64)
	gen   uint64
	t     Stopper
}

func (q *queueTimer) Start(d time.Duration) {
	q.Stop()
	gen := q.gen
	q.t = q.after(d, func() { q.post(gen) })
}

// Stop is idempotent and safe when the timer already fired or was never armed.
func (q *queueTimer) Stop() {
	if q.t != nil {
		q.t.Stop()
		q.t = nil
	}
	q.gen++
}

func (q *queueTimer) current(gen uint64) bool {
	return q.t != nil && gen == q.gen
}
