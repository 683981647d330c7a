package inquiryboard

import (
	"context"
	"log/slog"

	"github.com/aquilax/inquiryboard/inquiry"
)

// AddComment attaches c to post c.BoardID and bumps its comment count in the
// same transaction. c.Password is the plaintext secret.
func (b *Board) AddComment(ctx context.Context, c *inquiry.Comment) (inquiry.ID, error) {
	n := *c
	if err := validateComment(&n); err != nil {
		return 0, err
	}
	n.Password = b.hasher.Hash(n.Password)
	id, err := b.db.AddComment(ctx, &n)
	if err != nil {
		return 0, err
	}
	c.ID = id
	b.logger.Debug("comment added", slog.Int64("id", id), slog.Int64("board", n.BoardID))
	return id, nil
}

// DeleteComment removes the comment when boardID, id and password all match.
// Of several concurrent calls for one comment at most one reports 1.
func (b *Board) DeleteComment(ctx context.Context, boardID, id inquiry.ID, password string) (int64, error) {
	if password == "" {
		return 0, nil
	}
	rows, err := b.db.DeleteComment(ctx, boardID, id, b.hasher.Hash(password))
	if err != nil {
		return 0, err
	}
	b.logger.Debug("comment deleted", slog.Int64("id", id), slog.Int64("board", boardID), slog.Int64("rows", rows))
	return rows, nil
}

// CountMatchingComments reports 1 when the password opens the comment.
func (b *Board) CountMatchingComments(ctx context.Context, boardID, id inquiry.ID, password string) (int, error) {
	if password == "" {
		return 0, nil
	}
	return b.db.CountMatchingComments(ctx, boardID, id, b.hasher.Hash(password))
}

// Comments lists the comments of one post, oldest first.
func (b *Board) Comments(ctx context.Context, boardID inquiry.ID) (inquiry.CommentList, error) {
	return b.db.GetComments(ctx, boardID)
}

func (b *Board) RecentComments(ctx context.Context) (inquiry.CommentList, error) {
	return b.db.RecentComments(ctx, b.limits.RecentComments)
}

func (b *Board) RecentCommentsNoCache(ctx context.Context) (inquiry.CommentList, error) {
	return b.db.RecentCommentsNoCache(ctx, b.limits.RecentComments)
}
