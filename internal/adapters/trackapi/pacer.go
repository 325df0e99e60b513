package trackapi

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time for the pacer.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Pacer spaces consecutive requests by a fixed delay. The first Wait never
// blocks.
type Pacer struct {
	mu    sync.Mutex
	delay time.Duration
	clk   Clock
	last  time.Time
}

// NewPacer creates a pacer. A nil clock means the wall clock.
func NewPacer(delay time.Duration, clk Clock) *Pacer {
	if clk == nil {
		clk = RealClock{}
	}
	if delay < 0 {
		delay = 0
	}
	return &Pacer{delay: delay, clk: clk}
}

// Wait blocks until the delay since the previous request has elapsed.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if wait := p.delay - p.clk.Now().Sub(p.last); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.clk.After(wait):
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.last = p.clk.Now()
	return nil
}

// Delay returns the configured spacing.
func (p *Pacer) Delay() time.Duration { return p.delay }
