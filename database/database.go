package database

import (
	"context"

	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/aquilax/inquiryboard/pagination"
)

// PostStore owns inquiry rows. Passwords passed in are hashes; stores never
// see plaintext.
type PostStore interface {
	// AddPost persists a new top-level post and returns its identity.
	// Counters and the pinned flag always start at zero.
	AddPost(ctx context.Context, p *inquiry.Inquiry) (inquiry.ID, error)
	// ReplyPost persists a reply to p.ParentID, failing with inquiry.ErrNotFound
	// when the parent does not exist. A reply to a reply joins the thread root.
	ReplyPost(ctx context.Context, p *inquiry.Inquiry) (inquiry.ID, error)
	// UpdatePost rewrites p when p.Password matches the stored hash and returns
	// the number of rows changed.
	UpdatePost(ctx context.Context, p *inquiry.Inquiry) (int64, error)
	// DeletePost removes the post and its comments when the hash matches and
	// returns the number of posts removed.
	DeletePost(ctx context.Context, id inquiry.ID, password string) (int64, error)
	// DeletePostByAdmin removes the post and its comments without a password.
	DeletePostByAdmin(ctx context.Context, id inquiry.ID) (int64, error)
	GetPost(ctx context.Context, id inquiry.ID) (*inquiry.Inquiry, error)
	GetPosts(ctx context.Context, w pagination.Window) (inquiry.List, error)
	SearchPosts(ctx context.Context, s inquiry.Search, w pagination.Window) (inquiry.List, error)
	CountPosts(ctx context.Context) (int, error)
	CountSearch(ctx context.Context, s inquiry.Search) (int, error)
	GetAttachmentName(ctx context.Context, id inquiry.ID) (string, error)
	IncrementDownloadCount(ctx context.Context, id inquiry.ID) error
	IncrementDownloadCountByName(ctx context.Context, name string) error
	PinPost(ctx context.Context, id inquiry.ID) error
	// GetAdjacentPosts returns the posts right before and after id in identity
	// order, skipping posts that do not match search when it is not nil.
	// Either may be nil.
	GetAdjacentPosts(ctx context.Context, id inquiry.ID, search *inquiry.Search) (prev, next *inquiry.Inquiry, err error)
	RecentPosts(ctx context.Context, limit int) (inquiry.List, error)
	RecentPhotos(ctx context.Context, limit int) (inquiry.List, error)
	CategorySummary(ctx context.Context, category string, limit int) (inquiry.List, error)
}

// CommentStore owns comment rows and keeps the parent CommentCount in step
// with them.
type CommentStore interface {
	AddComment(ctx context.Context, c *inquiry.Comment) (inquiry.ID, error)
	// DeleteComment removes the comment only when boardID, id and the password
	// hash all match, and returns the number of comments removed.
	DeleteComment(ctx context.Context, boardID, id inquiry.ID, password string) (int64, error)
	CountMatchingComments(ctx context.Context, boardID, id inquiry.ID, password string) (int, error)
	// GetComments lists the comments of one post in insertion order.
	GetComments(ctx context.Context, boardID inquiry.ID) (inquiry.CommentList, error)
	RecentComments(ctx context.Context, limit int) (inquiry.CommentList, error)
}

type Database interface {
	PostStore
	CommentStore
	Close() error
}
