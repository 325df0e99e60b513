package trackapi

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits = append(f.waits, d)
	f.now = f.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- f.now
	return ch
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestPacer(t *testing.T) {
	Convey("Given a pacer with a 1.5s delay", t, func() {
		clk := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		p := NewPacer(1500*time.Millisecond, clk)
		ctx := context.Background()

		Convey("When waiting for the first request", func() {
			So(p.Wait(ctx), ShouldBeNil)

			Convey("Then it does not block", func() {
				So(clk.waits, ShouldBeEmpty)
			})

			Convey("And the next request waits the full delay", func() {
				So(p.Wait(ctx), ShouldBeNil)
				So(clk.waits, ShouldResemble, []time.Duration{1500 * time.Millisecond})
			})

			Convey("And time already spent counts toward the delay", func() {
				clk.advance(time.Second)
				So(p.Wait(ctx), ShouldBeNil)
				So(clk.waits, ShouldResemble, []time.Duration{500 * time.Millisecond})
			})

			Convey("And no wait is needed once the delay has passed", func() {
				clk.advance(2 * time.Second)
				So(p.Wait(ctx), ShouldBeNil)
				So(clk.waits, ShouldBeEmpty)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			So(p.Wait(cctx), ShouldEqual, context.Canceled)
		})
	})

	Convey("Given a negative delay", t, func() {
		So(NewPacer(-time.Second, nil).Delay(), ShouldEqual, 0)
	})
}
