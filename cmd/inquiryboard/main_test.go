package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aquilax/inquiryboard/database/sqlite"
	"github.com/aquilax/inquiryboard/inquiry"
	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, dir string) string {
	path := filepath.Join(dir, "board.yml")
	body := "database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "board.db") +
		"\ncache:\n  backend: none\nattachments:\n  dir: " + filepath.Join(dir, "files") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	Convey("Given a config file", t, func() {
		dir := t.TempDir()
		path := writeConfig(t, dir)
		var stdout, stderr bytes.Buffer

		Convey("migrate succeeds on an empty database", func() {
			So(run(ctx, []string{"-config", path, "migrate"}, &stdout, &stderr), ShouldBeNil)
		})

		Convey("recent prints every section", func() {
			So(run(ctx, []string{"-config", path, "recent"}, &stdout, &stderr), ShouldBeNil)
			So(stdout.String(), ShouldContainSubstring, "posts:")
			So(stdout.String(), ShouldContainSubstring, "comments:")
		})

		Convey("feed writes RSS by default", func() {
			So(run(ctx, []string{"-config", path, "feed"}, &stdout, &stderr), ShouldBeNil)
			So(stdout.String(), ShouldContainSubstring, "<rss")
		})

		Convey("pinning a missing post fails", func() {
			So(run(ctx, []string{"-config", path, "pin", "42"}, &stdout, &stderr), ShouldNotBeNil)
			So(run(ctx, []string{"-config", path, "pin", "x"}, &stdout, &stderr), ShouldNotBeNil)
		})

		Convey("delete removes a post without its password", func() {
			db, err := sqlite.Open(ctx, filepath.Join(dir, "board.db"))
			So(err, ShouldBeNil)
			id, err := db.AddPost(ctx, &inquiry.Inquiry{Name: "n", Title: "spam", Content: "c", Password: "h"})
			So(err, ShouldBeNil)
			So(db.Close(), ShouldBeNil)

			So(run(ctx, []string{"-config", path, "delete", "1"}, &stdout, &stderr), ShouldBeNil)
			So(stdout.String(), ShouldContainSubstring, "deleted post 1")
			So(id, ShouldEqual, 1)

			err = run(ctx, []string{"-config", path, "delete", "1"}, &stdout, &stderr)
			So(errors.Is(err, inquiry.ErrNotFound), ShouldBeTrue)
			So(run(ctx, []string{"-config", path, "delete"}, &stdout, &stderr), ShouldNotBeNil)
		})

		Convey("unknown commands fail", func() {
			So(run(ctx, []string{"-config", path, "serve"}, &stdout, &stderr), ShouldNotBeNil)
			So(run(ctx, []string{}, &stdout, &stderr), ShouldNotBeNil)
		})
	})
}
