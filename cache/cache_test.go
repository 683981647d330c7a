package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aquilax/inquiryboard/cache/memory"
	. "github.com/smartystreets/goconvey/convey"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type brokenBackend struct{ gets, sets int }

func (b *brokenBackend) Get(context.Context, string) ([]byte, bool, error) {
	b.gets++
	return nil, false, errors.New("backend down")
}

func (b *brokenBackend) Set(context.Context, string, []byte, time.Duration) error {
	b.sets++
	return errors.New("backend down")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetOrCompute(t *testing.T) {
	ctx := context.Background()
	Convey("Given a cache over an in-memory backend", t, func() {
		clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		backend, err := memory.New(16)
		So(err, ShouldBeNil)
		backend.Now = clk.Now
		c := New(backend, quietLogger())

		calls := 0
		compute := func(context.Context) ([]string, error) {
			calls++
			return []string{"a", "b"}, nil
		}

		Convey("A second call within the ttl does not recompute", func() {
			v, err := GetOrCompute(ctx, c, "k", time.Minute, compute)
			So(err, ShouldBeNil)
			So(v, ShouldResemble, []string{"a", "b"})
			clk.now = clk.now.Add(59 * time.Second)
			v, err = GetOrCompute(ctx, c, "k", time.Minute, compute)
			So(err, ShouldBeNil)
			So(v, ShouldResemble, []string{"a", "b"})
			So(calls, ShouldEqual, 1)

			Convey("Expiry is absolute from the write", func() {
				clk.now = clk.now.Add(time.Second)
				_, err := GetOrCompute(ctx, c, "k", time.Minute, compute)
				So(err, ShouldBeNil)
				So(calls, ShouldEqual, 2)
			})
		})

		Convey("Different keys are cached separately", func() {
			_, _ = GetOrCompute(ctx, c, "k1", time.Minute, compute)
			_, _ = GetOrCompute(ctx, c, "k2", time.Minute, compute)
			So(calls, ShouldEqual, 2)
		})

		Convey("Callers never share the cached slice", func() {
			v, _ := GetOrCompute(ctx, c, "k", time.Minute, compute)
			v[0] = "changed"
			again, _ := GetOrCompute(ctx, c, "k", time.Minute, compute)
			So(again[0], ShouldEqual, "a")
		})

		Convey("Compute errors are returned and not cached", func() {
			boom := errors.New("boom")
			_, err := GetOrCompute(ctx, c, "k", time.Minute, func(context.Context) ([]string, error) {
				calls++
				return nil, boom
			})
			So(errors.Is(err, boom), ShouldBeTrue)
			v, err := GetOrCompute(ctx, c, "k", time.Minute, compute)
			So(err, ShouldBeNil)
			So(v, ShouldResemble, []string{"a", "b"})
			So(calls, ShouldEqual, 2)
		})

		Convey("Undecodable entries are recomputed", func() {
			So(backend.Set(ctx, "k", []byte("{not json"), time.Minute), ShouldBeNil)
			v, err := GetOrCompute(ctx, c, "k", time.Minute, compute)
			So(err, ShouldBeNil)
			So(v, ShouldResemble, []string{"a", "b"})
			So(calls, ShouldEqual, 1)
		})
	})

	Convey("Given a failing backend", t, func() {
		backend := &brokenBackend{}
		c := New(backend, quietLogger())
		calls := 0
		for i := 0; i < 3; i++ {
			v, err := GetOrCompute(ctx, c, "k", time.Minute, func(context.Context) (int, error) {
				calls++
				return 42, nil
			})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 42)
		}
		Convey("Every call falls back to compute without an error", func() {
			So(calls, ShouldEqual, 3)
			So(backend.gets, ShouldEqual, 3)
			So(backend.sets, ShouldEqual, 3)
		})
	})

	Convey("Given no backend", t, func() {
		calls := 0
		compute := func(context.Context) (int, error) {
			calls++
			return calls, nil
		}
		for _, c := range []*Cache{nil, New(nil, quietLogger())} {
			_, _ = GetOrCompute(ctx, c, "k", time.Minute, compute)
		}
		So(calls, ShouldEqual, 2)
	})
}
