// Package admission implements the Admission Controller (C5): a bounded
// in-flight counter that throttles submissions beyond a configured ceiling
// and exposes gauge/counter metrics for it.
package admission

import (
	"errors"
	"sync/atomic"

	"github.com/sempr/judgecore/internal/metrics"
)

// ErrThrottled is returned by Acquire when the in-flight ceiling has been
// reached. Callers map it straight to HTTP 429 with the fixed body text.
var ErrThrottled = errors.New("request throttled, service reached max allowed requests")

// Controller gates how many Executions may hold the sandbox driver at once.
// The counter is atomic so Acquire/Release never need a mutex on the hot
// path; correctness only requires that every Acquire that returns nil is
// matched by exactly one Release.
type Controller struct {
	inFlight    int64
	maxRequests int64
}

func New(maxRequests int) *Controller {
	return &Controller{maxRequests: int64(maxRequests)}
}

// Acquire reserves a slot or returns ErrThrottled. It never blocks: a
// submission beyond the ceiling is rejected immediately rather than queued,
// so the caller can reject before doing any workspace or sandbox work.
func (c *Controller) Acquire() error {
	for {
		cur := atomic.LoadInt64(&c.inFlight)
		if cur >= c.maxRequests {
			metrics.ThrottledTotal.Inc()
			return ErrThrottled
		}
		if atomic.CompareAndSwapInt64(&c.inFlight, cur, cur+1) {
			metrics.InFlight.Set(float64(cur + 1))
			return nil
		}
	}
}

// Release frees a slot acquired by a successful Acquire call. Callers must
// invoke it on every exit path of the pipeline that followed a successful
// Acquire, including panics and infrastructure errors — a defer right after
// a successful Acquire is the idiomatic placement.
func (c *Controller) Release() {
	atomic.AddInt64(&c.inFlight, -1)
	metrics.InFlight.Set(float64(atomic.LoadInt64(&c.inFlight)))
}

// InFlight reports the current number of admitted, not-yet-released
// Executions. Exposed for tests asserting slot accounting; production
// monitoring should read the Prometheus gauge instead.
func (c *Controller) InFlight() int64 {
	return atomic.LoadInt64(&c.inFlight)
}
