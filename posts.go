package inquiryboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/aquilax/inquiryboard/pagination"
)

// Listing is one page of the board with pinned posts pulled out.
type Listing struct {
	Pager  pagination.Pager
	Pinned inquiry.List
	Posts  inquiry.List
}

// preparePost validates a submission whose Password holds the plaintext and
// returns a copy carrying the hash instead.
func (b *Board) preparePost(p *inquiry.Inquiry) (*inquiry.Inquiry, error) {
	n := *p
	if err := validatePost(&n); err != nil {
		return nil, err
	}
	n.Password = b.hasher.Hash(n.Password)
	return &n, nil
}

// Add stores a new top-level post. p.Password is the plaintext secret; the
// assigned ID is written back to p.
func (b *Board) Add(ctx context.Context, p *inquiry.Inquiry) (inquiry.ID, error) {
	n, err := b.preparePost(p)
	if err != nil {
		return 0, err
	}
	if !b.guard.CanPost(n.PostIP) {
		return 0, ErrPostTooFrequent
	}
	id, err := b.db.AddPost(ctx, n)
	if err != nil {
		b.guard.Forget(n.PostIP)
		return 0, err
	}
	p.ID, p.ParentID = id, inquiry.RootID
	b.logger.Debug("post added", slog.Int64("id", id))
	return id, nil
}

// Reply stores p as an answer to p.ParentID.
func (b *Board) Reply(ctx context.Context, p *inquiry.Inquiry) (inquiry.ID, error) {
	if p.ParentID <= inquiry.RootID {
		return 0, fmt.Errorf("%w: reply needs a parent", inquiry.ErrInvalidArgument)
	}
	n, err := b.preparePost(p)
	if err != nil {
		return 0, err
	}
	if !b.guard.CanPost(n.PostIP) {
		return 0, ErrPostTooFrequent
	}
	id, err := b.db.ReplyPost(ctx, n)
	if err != nil {
		b.guard.Forget(n.PostIP)
		return 0, err
	}
	p.ID, p.ParentID = id, n.ParentID
	b.logger.Debug("reply added", slog.Int64("id", id), slog.Int64("parent", n.ParentID))
	return id, nil
}

// Update rewrites post p.ID when p.Password matches. It reports the rows
// changed: 0 means a wrong password or a missing post.
func (b *Board) Update(ctx context.Context, p *inquiry.Inquiry) (int64, error) {
	n, err := b.preparePost(p)
	if err != nil {
		return 0, err
	}
	rows, err := b.db.UpdatePost(ctx, n)
	if err != nil {
		return 0, err
	}
	b.logger.Debug("post updated", slog.Int64("id", n.ID), slog.Int64("rows", rows))
	return rows, nil
}

// Delete removes the post, its comments and its attachment when the
// password matches. The file is removed on a best effort basis.
func (b *Board) Delete(ctx context.Context, id inquiry.ID, password string) (int64, error) {
	if password == "" {
		return 0, nil
	}
	hash := b.hasher.Hash(password)
	return b.delete(ctx, id, func() (int64, error) {
		return b.db.DeletePost(ctx, id, hash)
	})
}

// DeleteByAdmin removes a post without its password, as Pin changes one.
func (b *Board) DeleteByAdmin(ctx context.Context, id inquiry.ID) (int64, error) {
	rows, err := b.delete(ctx, id, func() (int64, error) {
		return b.db.DeletePostByAdmin(ctx, id)
	})
	if err == nil && rows == 1 {
		b.logger.Info("post deleted by admin", slog.Int64("id", id))
	}
	return rows, err
}

func (b *Board) delete(ctx context.Context, id inquiry.ID, del func() (int64, error)) (int64, error) {
	name, err := b.db.GetAttachmentName(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	rows, err := del()
	if err != nil {
		return 0, err
	}
	if rows == 1 && name != "" && b.files != nil {
		if err := b.files.Remove(name); err != nil {
			b.logger.Warn("attachment not removed", slog.String("name", name), slog.String("error", err.Error()))
		}
	}
	b.logger.Debug("post deleted", slog.Int64("id", id), slog.Int64("rows", rows))
	return rows, nil
}

func (b *Board) Get(ctx context.Context, id inquiry.ID) (*inquiry.Inquiry, error) {
	return b.db.GetPost(ctx, id)
}

func (b *Board) GetPage(ctx context.Context, pageIndex, pageSize int) (inquiry.List, error) {
	w, err := pagination.NewWindow(pageIndex, pageSize)
	if err != nil {
		return nil, err
	}
	return b.db.GetPosts(ctx, w)
}

func search(field, query string) (inquiry.Search, error) {
	f, err := inquiry.ParseSearchField(field)
	if err != nil {
		return inquiry.Search{}, err
	}
	return inquiry.Search{Field: f, Query: query}, nil
}

func (b *Board) GetSearchPage(ctx context.Context, pageIndex, pageSize int, field, query string) (inquiry.List, error) {
	s, err := search(field, query)
	if err != nil {
		return nil, err
	}
	w, err := pagination.NewWindow(pageIndex, pageSize)
	if err != nil {
		return nil, err
	}
	return b.db.SearchPosts(ctx, s, w)
}

func (b *Board) CountAll(ctx context.Context) (int, error) {
	return b.db.CountPosts(ctx)
}

func (b *Board) CountBySearch(ctx context.Context, field, query string) (int, error) {
	s, err := search(field, query)
	if err != nil {
		return 0, err
	}
	return b.db.CountSearch(ctx, s)
}

// List returns page pageIndex of the board, filtered by s when it is not
// nil. The total and the page come from the same predicate.
func (b *Board) List(ctx context.Context, pageIndex int, s *inquiry.Search) (*Listing, error) {
	var (
		total int
		err   error
	)
	if s != nil {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		total, err = b.db.CountSearch(ctx, *s)
	} else {
		total, err = b.db.CountPosts(ctx)
	}
	if err != nil {
		return nil, err
	}
	pager, err := pagination.NewPager(pageIndex, b.pageSize, total)
	if err != nil {
		return nil, err
	}
	listing := &Listing{Pager: pager, Pinned: inquiry.List{}, Posts: inquiry.List{}}
	if !pager.InRange {
		return listing, nil
	}
	var posts inquiry.List
	if s != nil {
		posts, err = b.db.SearchPosts(ctx, *s, pager.Window())
	} else {
		posts, err = b.db.GetPosts(ctx, pager.Window())
	}
	if err != nil {
		return nil, err
	}
	listing.Pinned, listing.Posts = posts.Split()
	return listing, nil
}

// Pin promotes a post to a notice. There is no unpin.
func (b *Board) Pin(ctx context.Context, id inquiry.ID) error {
	if err := b.db.PinPost(ctx, id); err != nil {
		return err
	}
	b.logger.Info("post pinned", slog.Int64("id", id))
	return nil
}

// Download counts one download of the post's attachment and returns its
// name. Posts without an attachment are reported as not found.
func (b *Board) Download(ctx context.Context, id inquiry.ID) (string, error) {
	name, err := b.db.GetAttachmentName(ctx, id)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("attachment of %d: %w", id, inquiry.ErrNotFound)
	}
	if err := b.db.IncrementDownloadCount(ctx, id); err != nil {
		return "", err
	}
	return name, nil
}

func (b *Board) DownloadByName(ctx context.Context, name string) error {
	return b.db.IncrementDownloadCountByName(ctx, name)
}

func (b *Board) AttachmentName(ctx context.Context, id inquiry.ID) (string, error) {
	return b.db.GetAttachmentName(ctx, id)
}

// Adjacent returns the neighbours of id, limited to posts matching s when s
// is not nil.
func (b *Board) Adjacent(ctx context.Context, id inquiry.ID, s *inquiry.Search) (prev, next *inquiry.Inquiry, err error) {
	return b.db.GetAdjacentPosts(ctx, id, s)
}

// StoreAttachment saves an upload and returns the name and size to record
// on the post.
func (b *Board) StoreAttachment(ctx context.Context, name string, r io.Reader) (inquiry.Attachment, error) {
	if b.files == nil {
		return inquiry.Attachment{}, ErrAttachmentsDisabled
	}
	return b.files.Save(ctx, name, r)
}

func (b *Board) OpenAttachment(name string) (io.ReadCloser, error) {
	if b.files == nil {
		return nil, ErrAttachmentsDisabled
	}
	return b.files.Open(name)
}

// ReplyDraft prefills a reply to parentID.
func (b *Board) ReplyDraft(ctx context.Context, parentID inquiry.ID) (inquiry.Inquiry, error) {
	parent, err := b.db.GetPost(ctx, parentID)
	if err != nil {
		return inquiry.Inquiry{}, err
	}
	return inquiry.NewReplyDraft(parent), nil
}

func (b *Board) RecentPosts(ctx context.Context) (inquiry.List, error) {
	return b.db.RecentPosts(ctx, b.limits.RecentPosts)
}

func (b *Board) RecentPostsNoCache(ctx context.Context) (inquiry.List, error) {
	return b.db.RecentPostsNoCache(ctx, b.limits.RecentPosts)
}

func (b *Board) RecentPhotos(ctx context.Context) (inquiry.List, error) {
	return b.db.RecentPhotos(ctx, b.limits.RecentPhotos)
}

func (b *Board) RecentPhotosNoCache(ctx context.Context) (inquiry.List, error) {
	return b.db.RecentPhotosNoCache(ctx, b.limits.RecentPhotos)
}

func (b *Board) CategorySummary(ctx context.Context, category string) (inquiry.List, error) {
	return b.db.CategorySummary(ctx, category, b.limits.CategorySummary)
}

func (b *Board) CategorySummaryNoCache(ctx context.Context, category string) (inquiry.List, error) {
	return b.db.CategorySummaryNoCache(ctx, category, b.limits.CategorySummary)
}
