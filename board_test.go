package inquiryboard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aquilax/inquiryboard/attachment"
	"github.com/aquilax/inquiryboard/cache"
	cachememory "github.com/aquilax/inquiryboard/cache/memory"
	"github.com/aquilax/inquiryboard/config"
	"github.com/aquilax/inquiryboard/database/memory"
	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/aquilax/inquiryboard/secret"
	"github.com/aquilax/inquiryboard/syndication"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	board *Board
	db    *memory.Memory
	files *attachment.Disk
	now   *time.Time
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, flood time.Duration) *fixture {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	backend, err := cachememory.New(64)
	require.NoError(t, err)
	backend.Now = func() time.Time { return now }
	files, err := attachment.NewDisk(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	db := memory.New()
	b := New(db, Options{
		Attachments:   files,
		Cache:         cache.New(backend, quietLogger()),
		CacheTTL:      time.Minute,
		PageSize:      2,
		FloodInterval: flood,
		Site:          syndication.Site{Title: "Board", BaseURL: "http://example.com"},
		Logger:        quietLogger(),
	})
	b.guard.Now = func() time.Time { return now }
	return &fixture{board: b, db: db, files: files, now: &now}
}

func submission(title string) *inquiry.Inquiry {
	return &inquiry.Inquiry{
		Name:     "Kim",
		Title:    title,
		Content:  "about " + title,
		Password: "plain",
		PostIP:   "10.0.0.1",
	}
}

func TestBoardPosts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	b := f.board

	t.Run("passwords are stored hashed", func(t *testing.T) {
		p := submission("first")
		id, err := b.Add(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, id, p.ID)
		assert.Equal(t, "plain", p.Password, "the caller's value is left alone")
		stored, err := f.db.GetPost(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, secret.Tripcode{}.Hash("plain"), stored.Password)
		assert.Equal(t, inquiry.EncodingText, stored.Encoding)
	})

	t.Run("invalid submissions are rejected", func(t *testing.T) {
		_, err := b.Add(ctx, &inquiry.Inquiry{Title: "  ", Encoding: "rtf"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		var verrs ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Len(t, verrs, 5)
	})

	t.Run("replies need an existing parent", func(t *testing.T) {
		r := submission("orphan")
		_, err := b.Reply(ctx, r)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		r.ParentID = 999
		_, err = b.Reply(ctx, r)
		assert.ErrorIs(t, err, ErrNotFound)

		parent := submission("parent")
		_, err = b.Add(ctx, parent)
		require.NoError(t, err)
		r.ParentID = parent.ID
		id, err := b.Reply(ctx, r)
		require.NoError(t, err)
		got, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, parent.ID, got.ParentID)
	})

	t.Run("update and delete check the password", func(t *testing.T) {
		p := submission("editable")
		id, err := b.Add(ctx, p)
		require.NoError(t, err)

		edit := submission("edited")
		edit.ID = id
		edit.Password = "wrong"
		n, err := b.Update(ctx, edit)
		require.NoError(t, err)
		assert.Zero(t, n)

		edit.Password = "plain"
		n, err = b.Update(ctx, edit)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		got, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Title)

		n, err = b.Delete(ctx, id, "wrong")
		require.NoError(t, err)
		assert.Zero(t, n)
		n, err = b.Delete(ctx, id, "")
		require.NoError(t, err)
		assert.Zero(t, n)
		n, err = b.Delete(ctx, id, "plain")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		_, err = b.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
		n, err = b.Delete(ctx, id, "plain")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestBoardListing(t *testing.T) {
	ctx := context.Background()
	Convey("Given a board with five posts", t, func() {
		f := newFixture(t, 0)
		b := f.board
		var ids []inquiry.ID
		for _, title := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
			id, err := b.Add(ctx, submission(title))
			So(err, ShouldBeNil)
			ids = append(ids, id)
		}
		So(b.Pin(ctx, ids[3]), ShouldBeNil)

		Convey("List splits pinned posts out of the page", func() {
			l, err := b.List(ctx, 0, nil)
			So(err, ShouldBeNil)
			So(l.Pager.TotalItems, ShouldEqual, 5)
			So(l.Pager.TotalPages, ShouldEqual, 3)
			So(l.Pinned, ShouldHaveLength, 1)
			So(l.Pinned[0].ID, ShouldEqual, ids[3])
			So(l.Posts, ShouldHaveLength, 1)
			So(l.Posts[0].ID, ShouldEqual, ids[4])
		})

		Convey("Pages past the end are empty, not errors", func() {
			l, err := b.List(ctx, 7, nil)
			So(err, ShouldBeNil)
			So(l.Pager.InRange, ShouldBeFalse)
			So(l.Posts, ShouldBeEmpty)
			So(l.Pinned, ShouldBeEmpty)
		})

		Convey("Search counts and pages agree", func() {
			s := &inquiry.Search{Field: inquiry.SearchTitle, Query: "ta"}
			l, err := b.List(ctx, 0, s)
			So(err, ShouldBeNil)
			So(l.Pager.TotalItems, ShouldEqual, 2)
			n, err := b.CountBySearch(ctx, "title", "ta")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			page, err := b.GetSearchPage(ctx, 0, n, "Title", "ta")
			So(err, ShouldBeNil)
			So(page, ShouldHaveLength, 2)
		})

		Convey("Unknown search fields fail loudly", func() {
			_, err := b.GetSearchPage(ctx, 0, 2, "Password", "x")
			So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
			_, err = b.CountBySearch(ctx, "Email", "x")
			So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
			_, err = b.List(ctx, 0, &inquiry.Search{Field: "Email"})
			So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("Bad page sizes fail loudly", func() {
			_, err := b.GetPage(ctx, 0, 0)
			So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("CountAll matches a page of that size", func() {
			n, err := b.CountAll(ctx)
			So(err, ShouldBeNil)
			page, err := b.GetPage(ctx, 0, n)
			So(err, ShouldBeNil)
			So(page, ShouldHaveLength, n)
		})

		Convey("Adjacent posts follow identity order", func() {
			prev, next, err := b.Adjacent(ctx, ids[2], nil)
			So(err, ShouldBeNil)
			So(prev.ID, ShouldEqual, ids[1])
			So(next.ID, ShouldEqual, ids[3])
		})

		Convey("Adjacent posts can be limited to a search", func() {
			s := &inquiry.Search{Field: inquiry.SearchTitle, Query: "ta"}
			prev, next, err := b.Adjacent(ctx, ids[2], s)
			So(err, ShouldBeNil)
			So(prev.ID, ShouldEqual, ids[1])
			So(next.ID, ShouldEqual, ids[3])
			prev, next, err = b.Adjacent(ctx, ids[3], s)
			So(err, ShouldBeNil)
			So(prev.ID, ShouldEqual, ids[1])
			So(next, ShouldBeNil)
		})

		Convey("A reply draft quotes the parent", func() {
			d, err := b.ReplyDraft(ctx, ids[0])
			So(err, ShouldBeNil)
			So(d.Title, ShouldEqual, "Re : alpha")
			So(d.ParentID, ShouldEqual, ids[0])
			_, err = b.ReplyDraft(ctx, 999)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("Feeds and sitemaps list the posts", func() {
			var buf bytes.Buffer
			So(b.WriteFeed(ctx, &buf, syndication.FormatAtom), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "epsilon")
			xml, err := b.Sitemap(ctx)
			So(err, ShouldBeNil)
			So(string(xml), ShouldContainSubstring, "/inquiry/1/alpha.html")
		})
	})
}

func TestBoardAttachments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	b := f.board

	a, err := b.StoreAttachment(ctx, "Cat Photo.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, inquiry.Attachment{Name: "cat-photo.png", Size: 9}, a)

	p := submission("with file")
	p.AttachmentName, p.AttachmentSize = a.Name, a.Size
	id, err := b.Add(ctx, p)
	require.NoError(t, err)
	plain, err := b.Add(ctx, submission("without file"))
	require.NoError(t, err)

	name, err := b.Download(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cat-photo.png", name)
	require.NoError(t, b.DownloadByName(ctx, name))
	got, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.DownloadCount)

	_, err = b.Download(ctx, plain)
	assert.ErrorIs(t, err, ErrNotFound)
	name, err = b.AttachmentName(ctx, plain)
	require.NoError(t, err)
	assert.Empty(t, name)

	photos, err := b.RecentPhotosNoCache(ctx)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, id, photos[0].ID)

	r, err := b.OpenAttachment("cat-photo.png")
	require.NoError(t, err)
	r.Close()

	n, err := b.Delete(ctx, id, "plain")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = b.OpenAttachment("cat-photo.png")
	assert.ErrorIs(t, err, ErrNotFound)

	p = submission("admin removes")
	p.AttachmentName, p.AttachmentSize = "spam.png", 4
	spam, err := b.Add(ctx, p)
	require.NoError(t, err)
	_, err = f.files.Save(ctx, "spam.png", strings.NewReader("spam"))
	require.NoError(t, err)
	_, err = b.AddComment(ctx, &inquiry.Comment{BoardID: spam, Name: "x", Opinion: "y", Password: "pw"})
	require.NoError(t, err)
	n, err = b.DeleteByAdmin(ctx, spam)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = b.Get(ctx, spam)
	assert.ErrorIs(t, err, ErrNotFound)
	comments, err := b.Comments(ctx, spam)
	require.NoError(t, err)
	assert.Empty(t, comments)
	_, err = b.OpenAttachment("spam.png")
	assert.ErrorIs(t, err, ErrNotFound)
	n, err = b.DeleteByAdmin(ctx, spam)
	require.NoError(t, err)
	assert.Zero(t, n)

	noFiles := New(memory.New(), Options{Logger: quietLogger()})
	_, err = noFiles.StoreAttachment(ctx, "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrAttachmentsDisabled)
}

func TestBoardComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	b := f.board
	id, err := b.Add(ctx, submission("thread"))
	require.NoError(t, err)

	c := &inquiry.Comment{BoardID: id, Name: "Lee", Opinion: "agreed", Password: "pw"}
	cid, err := b.AddComment(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, cid, c.ID)
	stored, err := b.Comments(ctx, id)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEqual(t, "pw", stored[0].Password)

	_, err = b.AddComment(ctx, &inquiry.Comment{BoardID: id})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = b.AddComment(ctx, &inquiry.Comment{BoardID: 999, Name: "x", Opinion: "y", Password: "z"})
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := b.CountMatchingComments(ctx, id, cid, "pw")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := b.DeleteComment(ctx, id, cid, "nope")
	require.NoError(t, err)
	assert.Zero(t, rows)
	post, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, post.CommentCount)

	rows, err = b.DeleteComment(ctx, id, cid, "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	post, err = b.Get(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, post.CommentCount)
}

func TestBoardRecentReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	b := f.board
	first := submission("first")
	first.Category = "qna"
	_, err := b.Add(ctx, first)
	require.NoError(t, err)
	_, err = b.AddComment(ctx, &inquiry.Comment{BoardID: first.ID, Name: "a", Opinion: "b", Password: "c"})
	require.NoError(t, err)

	posts, err := b.RecentPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	comments, err := b.RecentComments(ctx)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
	summary, err := b.CategorySummary(ctx, "qna")
	require.NoError(t, err)
	assert.Len(t, summary, 1)

	second := submission("second")
	second.Category = "qna"
	_, err = b.Add(ctx, second)
	require.NoError(t, err)
	_, err = b.AddComment(ctx, &inquiry.Comment{BoardID: second.ID, Name: "a", Opinion: "b", Password: "c"})
	require.NoError(t, err)

	posts, _ = b.RecentPosts(ctx)
	assert.Len(t, posts, 1, "cached within the ttl")
	posts, _ = b.RecentPostsNoCache(ctx)
	assert.Len(t, posts, 2)
	comments, _ = b.RecentComments(ctx)
	assert.Len(t, comments, 1)
	comments, _ = b.RecentCommentsNoCache(ctx)
	assert.Len(t, comments, 2)
	summary, _ = b.CategorySummaryNoCache(ctx, "qna")
	assert.Len(t, summary, 2)

	*f.now = f.now.Add(time.Minute)
	posts, _ = b.RecentPosts(ctx)
	assert.Len(t, posts, 2, "refreshed after the ttl")
	summary, _ = b.CategorySummary(ctx, "qna")
	assert.Len(t, summary, 2)
	photos, err := b.RecentPhotos(ctx)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestBoardFloodGuard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	b := f.board

	_, err := b.Add(ctx, submission("one"))
	require.NoError(t, err)
	_, err = b.Add(ctx, submission("two"))
	assert.ErrorIs(t, err, ErrPostTooFrequent)

	other := submission("three")
	other.PostIP = "10.0.0.9"
	_, err = b.Add(ctx, other)
	require.NoError(t, err)

	*f.now = f.now.Add(time.Minute)
	_, err = b.Add(ctx, submission("four"))
	require.NoError(t, err)

	orphan := submission("orphan")
	orphan.PostIP = "10.0.0.7"
	orphan.ParentID = 999
	_, err = b.Reply(ctx, orphan)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = b.Add(ctx, orphan)
	require.NoError(t, err, "a post that was never stored does not throttle its poster")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	conf := &config.Config{
		Database:    config.Database{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "board.db"), Timeout: 5 * time.Second},
		Cache:       config.Cache{Backend: "memory", Size: 16, TTL: time.Minute},
		Board:       config.Board{PageSize: 5, RecentPosts: 3, RecentPhotos: 4, RecentComments: 2, CategorySummary: 3, Hasher: "hmac", HasherKey: "k"},
		Attachments: config.Attachments{Dir: filepath.Join(t.TempDir(), "files")},
	}
	b, err := Open(ctx, conf, quietLogger())
	require.NoError(t, err)
	defer b.Close()

	id, err := b.Add(ctx, submission("persisted"))
	require.NoError(t, err)
	got, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, secret.NewHMAC("k").Hash("plain"), got.Password)

	conf.Database.Driver = "mysql"
	_, err = Open(ctx, conf, quietLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
