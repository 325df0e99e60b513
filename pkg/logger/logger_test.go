package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			err := Init()

			Convey("Then Get returns a logger", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWithWriter(&bytes.Buffer{}, "xml")

			Convey("Then it returns an error", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When initialized with a nil writer", func() {
			So(InitWithWriter(nil, "text"), ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing text to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, "text"), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "map synced",
				String("map", "abc"),
				Int("records", 12),
				Int64("time_ms", 48000),
				Bool("new_wr", true),
				Duration("took", 2*time.Second),
				Error(errors.New("boom")),
			)

			Convey("Then the fields and the caller are written", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "map synced")
				So(out, ShouldContainSubstring, "map=abc")
				So(out, ShouldContainSubstring, "records=12")
				So(out, ShouldContainSubstring, "new_wr=true")
				So(out, ShouldContainSubstring, "error=boom")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging below the current level", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then only the enabled entry is written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})

		Convey("When using a named logger", func() {
			Named("sync").Info(ctx, "hello")

			Convey("Then the component is attached", func() {
				So(buf.String(), ShouldContainSubstring, "component=sync")
			})
		})
	})

	Convey("Given a logger writing JSON", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, "json"), ShouldBeNil)
		Get().Info(context.Background(), "json entry", String("k", "v"))

		So(buf.String(), ShouldContainSubstring, `"msg":"json entry"`)
		So(buf.String(), ShouldContainSubstring, `"k":"v"`)
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(SetLevelString("debug"), ShouldBeNil)
		So(SetLevelString("INFO"), ShouldBeNil)
		So(SetLevelString("warning"), ShouldBeNil)
		So(SetLevelString("error"), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}
