// Package databasetest holds the behaviour every database.Database backend
// must share. Backend packages call Run from their own tests.
package databasetest

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/aquilax/inquiryboard/database"
	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/aquilax/inquiryboard/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) database.Database

func Run(t *testing.T, newDB Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, db database.Database)
	}{
		{"AddPostAssignsIncreasingIDs", testAddPost},
		{"ReplyThreading", testReply},
		{"UpdateRequiresPassword", testUpdate},
		{"DeleteRequiresPasswordAndCascades", testDelete},
		{"AdminDeleteCascades", testDeleteByAdmin},
		{"PagingIsNewestFirst", testPaging},
		{"CountMatchesPage", testCount},
		{"Search", testSearch},
		{"SearchFoldsUnicode", testSearchUnicode},
		{"DownloadCount", testDownloadCount},
		{"Pin", testPin},
		{"AdjacentPosts", testAdjacent},
		{"RecentReads", testRecent},
		{"CommentCounter", testCommentCounter},
		{"ConcurrentCommentDelete", testConcurrentCommentDelete},
		{"CommentOrdering", testCommentOrdering},
		{"CancelledWritesChangeNothing", testCancelledWrites},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newDB(t))
		})
	}
}

func post(title string) *inquiry.Inquiry {
	return &inquiry.Inquiry{
		Name:     "tester",
		Title:    title,
		Content:  "content of " + title,
		Encoding: inquiry.EncodingText,
		Password: "hash",
	}
}

func window(t *testing.T, pageIndex, pageSize int) pagination.Window {
	t.Helper()
	w, err := pagination.NewWindow(pageIndex, pageSize)
	require.NoError(t, err)
	return w
}

func ids(l inquiry.List) []inquiry.ID {
	r := make([]inquiry.ID, len(l))
	for i := range l {
		r[i] = l[i].ID
	}
	return r
}

func mustAdd(t *testing.T, db database.Database, p *inquiry.Inquiry) inquiry.ID {
	t.Helper()
	id, err := db.AddPost(context.Background(), p)
	require.NoError(t, err)
	return id
}

func commentCount(t *testing.T, db database.Database, id inquiry.ID) int {
	t.Helper()
	p, err := db.GetPost(context.Background(), id)
	require.NoError(t, err)
	return p.CommentCount
}

func testAddPost(t *testing.T, db database.Database) {
	ctx := context.Background()
	p := post("first")
	p.CommentCount = 10
	p.DownloadCount = 20
	p.IsPinned = true
	p.ParentID = 99
	p.AttachmentName = "a.png"
	p.AttachmentSize = 512
	first := mustAdd(t, db, p)
	assert.Equal(t, first, p.ID)
	second := mustAdd(t, db, post("second"))
	assert.Greater(t, second, first)

	got, err := db.GetPost(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, "content of first", got.Content)
	assert.Equal(t, inquiry.EncodingText, got.Encoding)
	assert.Equal(t, inquiry.RootID, got.ParentID)
	assert.Zero(t, got.CommentCount)
	assert.Zero(t, got.DownloadCount)
	assert.False(t, got.IsPinned)
	assert.Equal(t, int64(512), got.AttachmentSize)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Nil(t, got.ModifiedAt)

	name, err := db.GetAttachmentName(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "a.png", name)

	_, err = db.GetPost(ctx, second+100)
	assert.ErrorIs(t, err, inquiry.ErrNotFound)
	_, err = db.GetAttachmentName(ctx, second+100)
	assert.ErrorIs(t, err, inquiry.ErrNotFound)
}

func testReply(t *testing.T, db database.Database) {
	ctx := context.Background()
	a := mustAdd(t, db, post("A"))

	r := post("B")
	r.ParentID = a
	b, err := db.ReplyPost(ctx, r)
	require.NoError(t, err)
	got, err := db.GetPost(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, a, got.ParentID)

	rr := post("C")
	rr.ParentID = b
	c, err := db.ReplyPost(ctx, rr)
	require.NoError(t, err)
	got, err = db.GetPost(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, a, got.ParentID, "a reply to a reply joins the thread root")

	orphan := post("D")
	orphan.ParentID = c + 100
	_, err = db.ReplyPost(ctx, orphan)
	assert.ErrorIs(t, err, inquiry.ErrNotFound)
	total, err := db.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func testUpdate(t *testing.T, db database.Database) {
	ctx := context.Background()
	id := mustAdd(t, db, post("original"))

	wrong := post("changed")
	wrong.ID = id
	wrong.Password = "other"
	n, err := db.UpdatePost(ctx, wrong)
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err := db.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)
	assert.Nil(t, got.ModifiedAt)

	missing := post("changed")
	missing.ID = id + 100
	n, err = db.UpdatePost(ctx, missing)
	require.NoError(t, err)
	assert.Zero(t, n)

	right := post("changed")
	right.ID = id
	right.Category = "news"
	right.Encoding = inquiry.EncodingHTML
	right.ModifyIP = "10.0.0.2"
	n, err = db.UpdatePost(ctx, right)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err = db.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Title)
	assert.Equal(t, "news", got.Category)
	assert.Equal(t, inquiry.EncodingHTML, got.Encoding)
	assert.Equal(t, "10.0.0.2", got.ModifyIP)
	assert.NotNil(t, got.ModifiedAt)
}

func testDelete(t *testing.T, db database.Database) {
	ctx := context.Background()
	a := mustAdd(t, db, post("A"))
	r := post("B")
	r.ParentID = a
	b, err := db.ReplyPost(ctx, r)
	require.NoError(t, err)
	_, err = db.AddComment(ctx, &inquiry.Comment{BoardID: a, Name: "x", Opinion: "y", Password: "c"})
	require.NoError(t, err)
	_, err = db.AddComment(ctx, &inquiry.Comment{BoardID: b, Name: "x", Opinion: "z", Password: "c"})
	require.NoError(t, err)

	n, err := db.DeletePost(ctx, a, "wrong")
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = db.GetPost(ctx, a)
	require.NoError(t, err)

	n, err = db.DeletePost(ctx, a, "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = db.GetPost(ctx, a)
	assert.ErrorIs(t, err, inquiry.ErrNotFound)

	comments, err := db.GetComments(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, comments)
	recent, err := db.RecentComments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, b, recent[0].BoardID)

	reply, err := db.GetPost(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, a, reply.ParentID)

	n, err = db.DeletePost(ctx, a, "hash")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testDeleteByAdmin(t *testing.T, db database.Database) {
	ctx := context.Background()
	a := mustAdd(t, db, post("A"))
	b := mustAdd(t, db, post("B"))
	_, err := db.AddComment(ctx, &inquiry.Comment{BoardID: a, Name: "x", Opinion: "y", Password: "c"})
	require.NoError(t, err)

	n, err := db.DeletePostByAdmin(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = db.GetPost(ctx, a)
	assert.ErrorIs(t, err, inquiry.ErrNotFound)
	comments, err := db.RecentComments(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, comments)

	n, err = db.DeletePostByAdmin(ctx, a)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = db.GetPost(ctx, b)
	require.NoError(t, err)
}

func testPaging(t *testing.T, db database.Database) {
	ctx := context.Background()
	first := mustAdd(t, db, post("1"))
	second := mustAdd(t, db, post("2"))
	third := mustAdd(t, db, post("3"))

	l, err := db.GetPosts(ctx, window(t, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, []inquiry.ID{third, second}, ids(l))

	l, err = db.GetPosts(ctx, window(t, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, []inquiry.ID{first}, ids(l))

	l, err = db.GetPosts(ctx, window(t, 5, 2))
	require.NoError(t, err)
	assert.Empty(t, l)

	for _, w := range []pagination.Window{window(t, math.MaxInt/2+1, 2), window(t, math.MaxInt, 1)} {
		l, err = db.GetPosts(ctx, w)
		require.NoError(t, err)
		assert.Empty(t, l, "window %+v", w)
		l, err = db.SearchPosts(ctx, inquiry.Search{Field: inquiry.SearchTitle}, w)
		require.NoError(t, err)
		assert.Empty(t, l, "search window %+v", w)
	}

	require.NoError(t, db.PinPost(ctx, first))
	l, err = db.GetPosts(ctx, window(t, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, []inquiry.ID{third, second, first}, ids(l), "pinned posts share the ordering")

	for pageSize := 1; pageSize <= 4; pageSize++ {
		var all []inquiry.ID
		for pageIndex := 0; pageIndex < 4; pageIndex++ {
			l, err := db.GetPosts(ctx, window(t, pageIndex, pageSize))
			require.NoError(t, err)
			assert.LessOrEqual(t, len(l), pageSize)
			all = append(all, ids(l)...)
		}
		assert.Equal(t, []inquiry.ID{third, second, first}, all, "page size %d", pageSize)
	}
}

func testCount(t *testing.T, db database.Database) {
	ctx := context.Background()
	total, err := db.CountPosts(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		mustAdd(t, db, post(title))
	}
	total, err = db.CountPosts(ctx)
	require.NoError(t, err)
	l, err := db.GetPosts(ctx, window(t, 0, total))
	require.NoError(t, err)
	assert.Len(t, l, total)
	assert.Equal(t, 5, total)
}

func testSearch(t *testing.T, db database.Database) {
	ctx := context.Background()
	hello := post("Hello World")
	hello.Name = "Alice"
	mustAdd(t, db, hello)
	other := post("Goodbye")
	other.Name = "hello kitty"
	mustAdd(t, db, other)
	percent := post("100% sure_thing")
	mustAdd(t, db, percent)
	mustAdd(t, db, post("1000 surely"))

	tests := []struct {
		search inquiry.Search
		want   []string
	}{
		{inquiry.Search{Field: inquiry.SearchTitle, Query: "hello"}, []string{"Hello World"}},
		{inquiry.Search{Field: inquiry.SearchTitle, Query: "WORLD"}, []string{"Hello World"}},
		{inquiry.Search{Field: inquiry.SearchName, Query: "hello"}, []string{"Goodbye"}},
		{inquiry.Search{Field: inquiry.SearchContent, Query: "of good"}, []string{"Goodbye"}},
		{inquiry.Search{Field: inquiry.SearchTitle, Query: "0%"}, []string{"100% sure_thing"}},
		{inquiry.Search{Field: inquiry.SearchTitle, Query: "e_t"}, []string{"100% sure_thing"}},
		{inquiry.Search{Field: inquiry.SearchTitle, Query: "nothing"}, []string{}},
		{inquiry.Search{Field: inquiry.SearchTitle, Query: ""}, []string{"1000 surely", "100% sure_thing", "Goodbye", "Hello World"}},
	}
	for _, tt := range tests {
		l, err := db.SearchPosts(ctx, tt.search, window(t, 0, 10))
		require.NoError(t, err)
		titles := []string{}
		for _, p := range l {
			titles = append(titles, p.Title)
		}
		assert.Equal(t, tt.want, titles, "%s %q", tt.search.Field, tt.search.Query)
		n, err := db.CountSearch(ctx, tt.search)
		require.NoError(t, err)
		assert.Equal(t, len(tt.want), n, "count for %s %q", tt.search.Field, tt.search.Query)
	}

	l, err := db.SearchPosts(ctx, inquiry.Search{Field: inquiry.SearchTitle, Query: "o"}, window(t, 1, 1))
	require.NoError(t, err)
	assert.Len(t, l, 1)

	bad := inquiry.Search{Field: "Email", Query: "x"}
	_, err = db.SearchPosts(ctx, bad, window(t, 0, 10))
	assert.ErrorIs(t, err, inquiry.ErrInvalidArgument)
	_, err = db.CountSearch(ctx, bad)
	assert.ErrorIs(t, err, inquiry.ErrInvalidArgument)
}

func testSearchUnicode(t *testing.T, db database.Database) {
	ctx := context.Background()
	mustAdd(t, db, post("Ébauche du projet"))
	mustAdd(t, db, post("ébauche"))
	mustAdd(t, db, post("Ebauche"))

	for _, query := range []string{"Ébauche", "ébauche", "ÉBAUCHE"} {
		s := inquiry.Search{Field: inquiry.SearchTitle, Query: query}
		l, err := db.SearchPosts(ctx, s, window(t, 0, 10))
		require.NoError(t, err)
		titles := []string{}
		for _, p := range l {
			titles = append(titles, p.Title)
		}
		assert.Equal(t, []string{"ébauche", "Ébauche du projet"}, titles, "query %q", query)
		n, err := db.CountSearch(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 2, n, "count for %q", query)
	}
}

func testDownloadCount(t *testing.T, db database.Database) {
	ctx := context.Background()
	p := post("file")
	p.AttachmentName = "report.pdf"
	id := mustAdd(t, db, p)
	other := mustAdd(t, db, post("no file"))

	require.NoError(t, db.IncrementDownloadCount(ctx, id))
	require.NoError(t, db.IncrementDownloadCount(ctx, id))
	require.NoError(t, db.IncrementDownloadCountByName(ctx, "report.pdf"))
	require.NoError(t, db.IncrementDownloadCountByName(ctx, "absent.pdf"))
	require.NoError(t, db.IncrementDownloadCountByName(ctx, ""))
	assert.ErrorIs(t, db.IncrementDownloadCount(ctx, other+100), inquiry.ErrNotFound)

	got, err := db.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.DownloadCount)
	got, err = db.GetPost(ctx, other)
	require.NoError(t, err)
	assert.Zero(t, got.DownloadCount)
}

func testPin(t *testing.T, db database.Database) {
	ctx := context.Background()
	a := mustAdd(t, db, post("A"))
	b := mustAdd(t, db, post("B"))
	before, err := db.GetPost(ctx, b)
	require.NoError(t, err)

	require.NoError(t, db.PinPost(ctx, a))
	require.NoError(t, db.PinPost(ctx, a))
	got, err := db.GetPost(ctx, a)
	require.NoError(t, err)
	assert.True(t, got.IsPinned)
	after, err := db.GetPost(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.ErrorIs(t, db.PinPost(ctx, b+100), inquiry.ErrNotFound)
}

func testAdjacent(t *testing.T, db database.Database) {
	ctx := context.Background()
	a := mustAdd(t, db, post("A"))
	b := mustAdd(t, db, post("B"))
	c := mustAdd(t, db, post("C"))

	prev, next, err := db.GetAdjacentPosts(ctx, b, nil)
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.NotNil(t, next)
	assert.Equal(t, a, prev.ID)
	assert.Equal(t, c, next.ID)

	prev, next, err = db.GetAdjacentPosts(ctx, a, nil)
	require.NoError(t, err)
	assert.Nil(t, prev)
	assert.Equal(t, b, next.ID)

	_, err = db.DeletePost(ctx, b, "hash")
	require.NoError(t, err)
	prev, next, err = db.GetAdjacentPosts(ctx, c, nil)
	require.NoError(t, err)
	assert.Equal(t, a, prev.ID)
	assert.Nil(t, next)

	_, _, err = db.GetAdjacentPosts(ctx, b, nil)
	assert.ErrorIs(t, err, inquiry.ErrNotFound)

	apple := mustAdd(t, db, post("apple"))
	banana := mustAdd(t, db, post("banana"))
	apricot := mustAdd(t, db, post("Apricot"))
	s := &inquiry.Search{Field: inquiry.SearchTitle, Query: "ap"}

	prev, next, err = db.GetAdjacentPosts(ctx, apricot, s)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, apple, prev.ID, "non-matching posts are skipped")
	assert.Nil(t, next)

	prev, next, err = db.GetAdjacentPosts(ctx, banana, s)
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.NotNil(t, next)
	assert.Equal(t, apple, prev.ID)
	assert.Equal(t, apricot, next.ID)

	prev, _, err = db.GetAdjacentPosts(ctx, apple, s)
	require.NoError(t, err)
	assert.Nil(t, prev)

	_, _, err = db.GetAdjacentPosts(ctx, apple, &inquiry.Search{Field: "Email", Query: "x"})
	assert.ErrorIs(t, err, inquiry.ErrInvalidArgument)
}

func testRecent(t *testing.T, db database.Database) {
	ctx := context.Background()
	var photos []inquiry.ID
	for i, name := range []string{"a.png", "", "b.JPG", "c.zip", "d.gif"} {
		p := post(name)
		p.AttachmentName = name
		if i%2 == 0 {
			p.Category = "qna"
		}
		id := mustAdd(t, db, p)
		if inquiry.IsPhoto(name) {
			photos = append([]inquiry.ID{id}, photos...)
		}
	}

	l, err := db.RecentPosts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, l, 2)
	assert.Greater(t, l[0].ID, l[1].ID)

	l, err = db.RecentPhotos(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, photos, ids(l))

	l, err = db.CategorySummary(ctx, "qna", 2)
	require.NoError(t, err)
	require.Len(t, l, 2)
	for _, p := range l {
		assert.Equal(t, "qna", p.Category)
	}
	l, err = db.CategorySummary(ctx, "missing", 2)
	require.NoError(t, err)
	assert.Empty(t, l)

	_, err = db.RecentPosts(ctx, 0)
	assert.ErrorIs(t, err, inquiry.ErrInvalidArgument)
	_, err = db.RecentComments(ctx, -1)
	assert.ErrorIs(t, err, inquiry.ErrInvalidArgument)
}

func testCommentCounter(t *testing.T, db database.Database) {
	ctx := context.Background()
	id := mustAdd(t, db, post("A"))
	other := mustAdd(t, db, post("B"))

	c := &inquiry.Comment{BoardID: id, Name: "bob", Opinion: "nice", Password: "secret"}
	cid, err := db.AddComment(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, cid, c.ID)
	assert.Equal(t, 1, commentCount(t, db, id))
	assert.Equal(t, 0, commentCount(t, db, other))

	_, err = db.AddComment(ctx, &inquiry.Comment{BoardID: other + 100, Name: "x", Opinion: "y"})
	assert.ErrorIs(t, err, inquiry.ErrNotFound)

	n, err := db.CountMatchingComments(ctx, id, cid, "secret")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = db.CountMatchingComments(ctx, other, cid, "secret")
	require.NoError(t, err)
	assert.Zero(t, n)

	removed, err := db.DeleteComment(ctx, id, cid, "wrong")
	require.NoError(t, err)
	assert.Zero(t, removed)
	removed, err = db.DeleteComment(ctx, other, cid, "secret")
	require.NoError(t, err)
	assert.Zero(t, removed, "a comment id is scoped to its board")
	assert.Equal(t, 1, commentCount(t, db, id))

	removed, err = db.DeleteComment(ctx, id, cid, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 0, commentCount(t, db, id))

	removed, err = db.DeleteComment(ctx, id, cid, "secret")
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, 0, commentCount(t, db, id))
}

func testConcurrentCommentDelete(t *testing.T, db database.Database) {
	ctx := context.Background()
	id := mustAdd(t, db, post("A"))
	keep := &inquiry.Comment{BoardID: id, Name: "a", Opinion: "keep", Password: "p"}
	_, err := db.AddComment(ctx, keep)
	require.NoError(t, err)
	target := &inquiry.Comment{BoardID: id, Name: "b", Opinion: "drop", Password: "p"}
	_, err = db.AddComment(ctx, target)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := db.DeleteComment(ctx, id, target.ID, "p")
			if err != nil {
				t.Error(err)
				return
			}
			results <- n
		}()
	}
	wg.Wait()
	close(results)
	var total int64
	for n := range results {
		total += n
	}
	assert.Equal(t, int64(1), total)
	assert.Equal(t, 1, commentCount(t, db, id))
}

func testCommentOrdering(t *testing.T, db database.Database) {
	ctx := context.Background()
	a := mustAdd(t, db, post("A"))
	b := mustAdd(t, db, post("B"))
	var onA []inquiry.ID
	var all []inquiry.ID
	for i, board := range []inquiry.ID{a, b, a, a, b} {
		c := &inquiry.Comment{BoardID: board, Name: "n", Opinion: string(rune('a' + i)), Password: "p"}
		cid, err := db.AddComment(ctx, c)
		require.NoError(t, err)
		if board == a {
			onA = append(onA, cid)
		}
		all = append([]inquiry.ID{cid}, all...)
	}

	l, err := db.GetComments(ctx, a)
	require.NoError(t, err)
	got := []inquiry.ID{}
	for _, c := range l {
		got = append(got, c.ID)
		assert.Equal(t, a, c.BoardID)
	}
	assert.Equal(t, onA, got)
	assert.Equal(t, 3, commentCount(t, db, a))

	recent, err := db.RecentComments(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, all[:2], []inquiry.ID{recent[0].ID, recent[1].ID})

	none, err := db.GetComments(ctx, b+100)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// assertAborted accepts either way a store reports a write it did not make.
func assertAborted(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, context.Canceled) && !errors.Is(err, inquiry.ErrStorageUnavailable) {
		t.Errorf("expected a cancelled or unavailable store, got %v", err)
	}
}

func testCancelledWrites(t *testing.T, db database.Database) {
	id := mustAdd(t, db, post("A"))
	c := &inquiry.Comment{BoardID: id, Name: "n", Opinion: "o", Password: "p"}
	cid, err := db.AddComment(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = db.AddComment(ctx, &inquiry.Comment{BoardID: id, Name: "n", Opinion: "late", Password: "p"})
	assertAborted(t, err)
	n, err := db.DeleteComment(ctx, id, cid, "p")
	assertAborted(t, err)
	assert.Zero(t, n)
	_, err = db.DeletePost(ctx, id, "hash")
	assertAborted(t, err)

	assert.Equal(t, 1, commentCount(t, db, id))
	comments, err := db.GetComments(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, cid, comments[0].ID)
}
