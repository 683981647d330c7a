package attachment

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aquilax/inquiryboard/inquiry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"spaces and case", "My Report.PDF", "my-report.pdf"},
		{"windows path", `C:\Users\kim\photo.JPG`, "photo.jpg"},
		{"unix path", "../../etc/passwd", "passwd"},
		{"no stem", ".png", "file.png"},
		{"no extension", "README", "readme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanName(tt.in); got != tt.want {
				t.Errorf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNumbered(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{"report.pdf", 0, "report.pdf"},
		{"report.pdf", 1, "report(1).pdf"},
		{"report.pdf", 12, "report(12).pdf"},
		{"readme", 2, "readme(2)"},
	}
	for _, tt := range tests {
		if got := Numbered(tt.name, tt.n); got != tt.want {
			t.Errorf("Numbered(%q, %d) = %q, want %q", tt.name, tt.n, got, tt.want)
		}
	}
}

func TestDisk(t *testing.T) {
	ctx := context.Background()
	Convey("Given a disk store", t, func() {
		dir := t.TempDir()
		d, err := NewDisk(filepath.Join(dir, "files"))
		So(err, ShouldBeNil)

		Convey("Save reports the stored name and size", func() {
			a, err := d.Save(ctx, "Notes.txt", strings.NewReader("hello"))
			So(err, ShouldBeNil)
			So(a, ShouldResemble, inquiry.Attachment{Name: "notes.txt", Size: 5})

			r, err := d.Open(a.Name)
			So(err, ShouldBeNil)
			body, _ := io.ReadAll(r)
			r.Close()
			So(string(body), ShouldEqual, "hello")

			Convey("Taken names are numbered", func() {
				b, err := d.Save(ctx, "notes.txt", strings.NewReader("again"))
				So(err, ShouldBeNil)
				So(b.Name, ShouldEqual, "notes(1).txt")
				c, err := d.Save(ctx, "NOTES.txt", strings.NewReader("third"))
				So(err, ShouldBeNil)
				So(c.Name, ShouldEqual, "notes(2).txt")
			})

			Convey("Remove deletes the file and tolerates repeats", func() {
				So(d.Remove(a.Name), ShouldBeNil)
				So(d.Remove(a.Name), ShouldBeNil)
				_, err := d.Open(a.Name)
				So(errors.Is(err, inquiry.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("No temporary files are left behind", func() {
			_, err := d.Save(ctx, "a.bin", strings.NewReader("x"))
			So(err, ShouldBeNil)
			entries, err := os.ReadDir(filepath.Join(dir, "files"))
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
		})

		Convey("Concurrent uploads of one name get distinct names", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			names := map[string]bool{}
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					a, err := d.Save(ctx, "same.png", strings.NewReader("x"))
					if err != nil {
						return
					}
					mu.Lock()
					names[a.Name] = true
					mu.Unlock()
				}()
			}
			wg.Wait()
			So(names, ShouldHaveLength, 5)
		})

		Convey("Names that escape the directory are rejected", func() {
			_, err := d.Open("../secret")
			So(errors.Is(err, inquiry.ErrInvalidArgument), ShouldBeTrue)
			So(errors.Is(d.Remove(""), inquiry.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("A cancelled context stops the upload", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := d.Save(cctx, "late.txt", strings.NewReader("x"))
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
