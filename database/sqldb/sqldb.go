// Package sqldb implements database.Database on top of sqlx. Queries are
// written with '?' placeholders and rebound for the connected driver, so the
// sqlite and postgres backends share every statement.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/aquilax/inquiryboard/pagination"
	"github.com/jmoiron/sqlx"
)

const postColumns = `id, parent_id, category, name, email, homepage, title, content, encoding,
	password, post_ip, modify_ip, file_name, file_size, download_count, comment_count,
	is_pinned, created_at, modified_at`

const commentColumns = `id, board_id, name, opinion, password, created_at`

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type Store struct {
	db    *sqlx.DB
	now   func() time.Time
	lower string
}

type Option func(*Store)

// WithLower names the SQL function that folds case for search. It must fold
// the same way on both sides of the LIKE; the default is the built-in LOWER.
func WithLower(fn string) Option {
	return func(s *Store) {
		s.lower = fn
	}
}

func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now, lower: "LOWER"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, inquiry.ErrNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, inquiry.ErrStorageUnavailable, err)
}

func checkLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive", inquiry.ErrInvalidArgument)
	}
	return nil
}

// inTx runs fn in one transaction. Rollback after a successful Commit is a
// no-op.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap(op, err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return wrap(op, tx.Commit())
}

func (s *Store) insertPost(ctx context.Context, tx *sqlx.Tx, p *inquiry.Inquiry, parent inquiry.ID) (inquiry.ID, error) {
	created := p.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	var id inquiry.ID
	err := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO inquiries (
			parent_id, category, name, email, homepage, title, content, encoding,
			password, post_ip, modify_ip, file_name, file_size,
			download_count, comment_count, is_pinned, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, FALSE, ?)
		RETURNING id`),
		parent, p.Category, p.Name, p.Email, p.Homepage, p.Title, p.Content, string(p.Encoding),
		p.Password, p.PostIP, p.ModifyIP, p.AttachmentName, p.AttachmentSize,
		created.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, wrap("insert post", err)
	}
	p.ID = id
	p.ParentID = parent
	return id, nil
}

func (s *Store) AddPost(ctx context.Context, p *inquiry.Inquiry) (inquiry.ID, error) {
	var id inquiry.ID
	err := s.inTx(ctx, "add post", func(tx *sqlx.Tx) error {
		var err error
		id, err = s.insertPost(ctx, tx, p, inquiry.RootID)
		return err
	})
	return id, err
}

func (s *Store) ReplyPost(ctx context.Context, p *inquiry.Inquiry) (inquiry.ID, error) {
	var id inquiry.ID
	err := s.inTx(ctx, "reply post", func(tx *sqlx.Tx) error {
		var grand inquiry.ID
		err := tx.GetContext(ctx, &grand, tx.Rebind(`SELECT parent_id FROM inquiries WHERE id = ?`), p.ParentID)
		if err != nil {
			return wrap(fmt.Sprintf("parent %d", p.ParentID), err)
		}
		parent := p.ParentID
		if grand != inquiry.RootID {
			parent = grand
		}
		id, err = s.insertPost(ctx, tx, p, parent)
		return err
	})
	return id, err
}

func (s *Store) UpdatePost(ctx context.Context, p *inquiry.Inquiry) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE inquiries SET
			name = ?, email = ?, homepage = ?, title = ?, content = ?, encoding = ?,
			category = ?, file_name = ?, file_size = ?, modify_ip = ?, modified_at = ?
		WHERE id = ? AND password = ?`),
		p.Name, p.Email, p.Homepage, p.Title, p.Content, string(p.Encoding),
		p.Category, p.AttachmentName, p.AttachmentSize, p.ModifyIP, s.now().UTC(),
		p.ID, p.Password,
	)
	if err != nil {
		return 0, wrap("update post", err)
	}
	n, err := res.RowsAffected()
	return n, wrap("update post", err)
}

func (s *Store) DeletePost(ctx context.Context, id inquiry.ID, password string) (int64, error) {
	return s.deletePost(ctx, `DELETE FROM inquiries WHERE id = ? AND password = ?`, id, password)
}

func (s *Store) DeletePostByAdmin(ctx context.Context, id inquiry.ID) (int64, error) {
	return s.deletePost(ctx, `DELETE FROM inquiries WHERE id = ?`, id)
}

// deletePost runs the post delete q and, when it removed the row, deletes
// the post's comments in the same transaction. args[0] is the post id.
func (s *Store) deletePost(ctx context.Context, q string, args ...interface{}) (int64, error) {
	var n int64
	err := s.inTx(ctx, "delete post", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
		if err != nil {
			return wrap("delete post", err)
		}
		if n, err = res.RowsAffected(); err != nil || n != 1 {
			return wrap("delete post", err)
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM inquiry_comments WHERE board_id = ?`), args[0])
		return wrap("delete comments", err)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) GetPost(ctx context.Context, id inquiry.ID) (*inquiry.Inquiry, error) {
	var p inquiry.Inquiry
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`SELECT `+postColumns+` FROM inquiries WHERE id = ?`), id)
	if err != nil {
		return nil, wrap(fmt.Sprintf("post %d", id), err)
	}
	return &p, nil
}

func (s *Store) selectPosts(ctx context.Context, op string, where string, args []interface{}, w pagination.Window) (inquiry.List, error) {
	l := inquiry.List{}
	q := `SELECT ` + postColumns + ` FROM inquiries` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, w.Limit, w.Offset)
	if err := s.db.SelectContext(ctx, &l, s.db.Rebind(q), args...); err != nil {
		return nil, wrap(op, err)
	}
	return l, nil
}

func (s *Store) count(ctx context.Context, op string, where string, args []interface{}) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, s.db.Rebind(`SELECT COUNT(*) FROM inquiries`+where), args...)
	return total, wrap(op, err)
}

func (s *Store) GetPosts(ctx context.Context, w pagination.Window) (inquiry.List, error) {
	return s.selectPosts(ctx, "get posts", "", nil, w)
}

func (s *Store) SearchPosts(ctx context.Context, search inquiry.Search, w pagination.Window) (inquiry.List, error) {
	where, args, err := searchPredicate(search, s.lower)
	if err != nil {
		return nil, err
	}
	return s.selectPosts(ctx, "search posts", where, args, w)
}

func (s *Store) CountPosts(ctx context.Context) (int, error) {
	return s.count(ctx, "count posts", "", nil)
}

func (s *Store) CountSearch(ctx context.Context, search inquiry.Search) (int, error) {
	where, args, err := searchPredicate(search, s.lower)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, "count search", where, args)
}

func (s *Store) GetAttachmentName(ctx context.Context, id inquiry.ID) (string, error) {
	var name string
	err := s.db.GetContext(ctx, &name, s.db.Rebind(`SELECT file_name FROM inquiries WHERE id = ?`), id)
	return name, wrap(fmt.Sprintf("attachment of %d", id), err)
}

func (s *Store) IncrementDownloadCount(ctx context.Context, id inquiry.ID) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE inquiries SET download_count = download_count + 1 WHERE id = ?`), id)
	return s.mustAffect(res, err, fmt.Sprintf("download %d", id))
}

func (s *Store) IncrementDownloadCountByName(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE inquiries SET download_count = download_count + 1 WHERE file_name = ?`), name)
	return wrap("download "+name, err)
}

func (s *Store) PinPost(ctx context.Context, id inquiry.ID) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE inquiries SET is_pinned = TRUE WHERE id = ?`), id)
	return s.mustAffect(res, err, fmt.Sprintf("pin %d", id))
}

// mustAffect reports ErrNotFound when an update touched no rows.
func (s *Store) mustAffect(res sql.Result, err error, op string) error {
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, inquiry.ErrNotFound)
	}
	return nil
}

func (s *Store) neighbour(ctx context.Context, q string, args []interface{}) (*inquiry.Inquiry, error) {
	var p inquiry.Inquiry
	err := s.db.GetContext(ctx, &p, s.db.Rebind(q), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("adjacent posts", err)
	}
	return &p, nil
}

// GetAdjacentPosts looks for neighbours among the posts matching search, or
// among all posts when search is nil.
func (s *Store) GetAdjacentPosts(ctx context.Context, id inquiry.ID, search *inquiry.Search) (prev, next *inquiry.Inquiry, err error) {
	where, args := " WHERE", []interface{}{}
	if search != nil {
		if where, args, err = searchPredicate(*search, s.lower); err != nil {
			return nil, nil, err
		}
		where += " AND"
	}
	if _, err = s.GetPost(ctx, id); err != nil {
		return nil, nil, err
	}
	args = append(args, id)
	prev, err = s.neighbour(ctx, `SELECT `+postColumns+` FROM inquiries`+where+` id < ? ORDER BY id DESC LIMIT 1`, args)
	if err != nil {
		return nil, nil, err
	}
	next, err = s.neighbour(ctx, `SELECT `+postColumns+` FROM inquiries`+where+` id > ? ORDER BY id ASC LIMIT 1`, args)
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

func (s *Store) RecentPosts(ctx context.Context, limit int) (inquiry.List, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	return s.selectPosts(ctx, "recent posts", "", nil, pagination.Window{Limit: limit})
}

func (s *Store) RecentPhotos(ctx context.Context, limit int) (inquiry.List, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	where, args := photoPredicate()
	return s.selectPosts(ctx, "recent photos", where, args, pagination.Window{Limit: limit})
}

func (s *Store) CategorySummary(ctx context.Context, category string, limit int) (inquiry.List, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	return s.selectPosts(ctx, "category summary", ` WHERE category = ?`, []interface{}{category}, pagination.Window{Limit: limit})
}

func (s *Store) AddComment(ctx context.Context, c *inquiry.Comment) (inquiry.ID, error) {
	created := c.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	var id inquiry.ID
	err := s.inTx(ctx, "add comment", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE inquiries SET comment_count = comment_count + 1 WHERE id = ?`), c.BoardID)
		if err := s.mustAffect(res, err, fmt.Sprintf("board %d", c.BoardID)); err != nil {
			return err
		}
		err = tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO inquiry_comments (board_id, name, opinion, password, created_at)
			VALUES (?, ?, ?, ?, ?) RETURNING id`),
			c.BoardID, c.Name, c.Opinion, c.Password, created.UTC(),
		).Scan(&id)
		return wrap("insert comment", err)
	})
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

func (s *Store) DeleteComment(ctx context.Context, boardID, id inquiry.ID, password string) (int64, error) {
	var n int64
	err := s.inTx(ctx, "delete comment", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM inquiry_comments WHERE board_id = ? AND id = ? AND password = ?`),
			boardID, id, password)
		if err != nil {
			return wrap("delete comment", err)
		}
		if n, err = res.RowsAffected(); err != nil || n != 1 {
			return wrap("delete comment", err)
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE inquiries SET comment_count = comment_count - 1 WHERE id = ?`), boardID)
		return wrap("decrement comments", err)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) CountMatchingComments(ctx context.Context, boardID, id inquiry.ID, password string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM inquiry_comments WHERE board_id = ? AND id = ? AND password = ?`),
		boardID, id, password)
	return n, wrap("count comments", err)
}

func (s *Store) GetComments(ctx context.Context, boardID inquiry.ID) (inquiry.CommentList, error) {
	l := inquiry.CommentList{}
	err := s.db.SelectContext(ctx, &l, s.db.Rebind(`SELECT `+commentColumns+` FROM inquiry_comments WHERE board_id = ? ORDER BY id ASC`), boardID)
	if err != nil {
		return nil, wrap("get comments", err)
	}
	return l, nil
}

func (s *Store) RecentComments(ctx context.Context, limit int) (inquiry.CommentList, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	l := inquiry.CommentList{}
	err := s.db.SelectContext(ctx, &l, s.db.Rebind(`SELECT `+commentColumns+` FROM inquiry_comments ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, wrap("recent comments", err)
	}
	return l, nil
}

var searchColumns = map[inquiry.SearchField]string{
	inquiry.SearchName:    "name",
	inquiry.SearchTitle:   "title",
	inquiry.SearchContent: "content",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchPredicate builds the WHERE clause shared by the count and page queries.
// The column comes from a fixed whitelist and the query is always bound. Both
// sides are folded by the same SQL function, lower.
func searchPredicate(s inquiry.Search, lower string) (string, []interface{}, error) {
	col, ok := searchColumns[s.Field]
	if !ok {
		return "", nil, s.Validate()
	}
	pattern := "%" + likeEscaper.Replace(s.Query) + "%"
	return ` WHERE ` + lower + `(` + col + `) LIKE ` + lower + `(?) ESCAPE '\'`, []interface{}{pattern}, nil
}

func photoPredicate() (string, []interface{}) {
	parts := make([]string, len(inquiry.PhotoExtensions))
	args := make([]interface{}, len(inquiry.PhotoExtensions))
	for i, ext := range inquiry.PhotoExtensions {
		parts[i] = `LOWER(file_name) LIKE ?`
		args[i] = "%" + ext
	}
	return ` WHERE (` + strings.Join(parts, " OR ") + `)`, args
}
