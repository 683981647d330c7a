// Package memory is a process-local store used by tests and the "memory"
// driver. One lock guards posts and comments so counter updates are atomic.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/aquilax/inquiryboard/pagination"
)

type Memory struct {
	mu          sync.RWMutex
	posts       inquiry.List // ascending ID
	comments    inquiry.CommentList
	lastPost    inquiry.ID
	lastComment inquiry.ID

	// Now is the clock used for CreatedAt and ModifiedAt.
	Now func() time.Time
}

func New() *Memory {
	return &Memory{Now: time.Now}
}

func find(l inquiry.List, filter func(i *inquiry.Inquiry) bool) inquiry.List {
	result := inquiry.List{}
	for i := len(l) - 1; i >= 0; i-- {
		if filter(&l[i]) {
			result = append(result, l[i])
		}
	}
	return result
}

func page(l inquiry.List, w pagination.Window) inquiry.List {
	start, end := w.Bounds(len(l))
	result := make(inquiry.List, end-start)
	copy(result, l[start:end])
	return result
}

func checkLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive", inquiry.ErrInvalidArgument)
	}
	return nil
}

func (m *Memory) index(id inquiry.ID) int {
	i := sort.Search(len(m.posts), func(i int) bool { return m.posts[i].ID >= id })
	if i < len(m.posts) && m.posts[i].ID == id {
		return i
	}
	return -1
}

func (m *Memory) insert(p *inquiry.Inquiry, parent inquiry.ID) inquiry.ID {
	m.lastPost++
	n := *p
	n.ID = m.lastPost
	n.ParentID = parent
	n.CommentCount = 0
	n.DownloadCount = 0
	n.IsPinned = false
	n.ModifiedAt = nil
	if n.CreatedAt.IsZero() {
		n.CreatedAt = m.Now()
	}
	m.posts = append(m.posts, n)
	p.ID = n.ID
	p.ParentID = parent
	return n.ID
}

func (m *Memory) AddPost(ctx context.Context, p *inquiry.Inquiry) (inquiry.ID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(p, inquiry.RootID), nil
}

func (m *Memory) ReplyPost(ctx context.Context, p *inquiry.Inquiry) (inquiry.ID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(p.ParentID)
	if i < 0 {
		return 0, fmt.Errorf("parent %d: %w", p.ParentID, inquiry.ErrNotFound)
	}
	parent := m.posts[i].ID
	if m.posts[i].IsReply() {
		parent = m.posts[i].ParentID
	}
	return m.insert(p, parent), nil
}

func (m *Memory) UpdatePost(ctx context.Context, p *inquiry.Inquiry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(p.ID)
	if i < 0 || m.posts[i].Password != p.Password {
		return 0, nil
	}
	now := m.Now()
	t := &m.posts[i]
	t.Name = p.Name
	t.Email = p.Email
	t.Homepage = p.Homepage
	t.Title = p.Title
	t.Content = p.Content
	t.Encoding = p.Encoding
	t.Category = p.Category
	t.AttachmentName = p.AttachmentName
	t.AttachmentSize = p.AttachmentSize
	t.ModifyIP = p.ModifyIP
	t.ModifiedAt = &now
	return 1, nil
}

func (m *Memory) DeletePost(ctx context.Context, id inquiry.ID, password string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 || m.posts[i].Password != password {
		return 0, nil
	}
	m.remove(i)
	return 1, nil
}

func (m *Memory) DeletePostByAdmin(ctx context.Context, id inquiry.ID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return 0, nil
	}
	m.remove(i)
	return 1, nil
}

// remove drops post i and its comments. The caller holds the write lock.
func (m *Memory) remove(i int) {
	id := m.posts[i].ID
	m.posts = append(m.posts[:i], m.posts[i+1:]...)
	kept := m.comments[:0]
	for _, c := range m.comments {
		if c.BoardID != id {
			kept = append(kept, c)
		}
	}
	m.comments = kept
}

func (m *Memory) GetPost(ctx context.Context, id inquiry.ID) (*inquiry.Inquiry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.index(id)
	if i < 0 {
		return nil, fmt.Errorf("post %d: %w", id, inquiry.ErrNotFound)
	}
	p := m.posts[i]
	return &p, nil
}

func (m *Memory) GetPosts(ctx context.Context, w pagination.Window) (inquiry.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return page(find(m.posts, func(*inquiry.Inquiry) bool { return true }), w), nil
}

func (m *Memory) SearchPosts(ctx context.Context, s inquiry.Search, w pagination.Window) (inquiry.List, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return page(find(m.posts, s.Match), w), nil
}

func (m *Memory) CountPosts(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.posts), nil
}

func (m *Memory) CountSearch(ctx context.Context, s inquiry.Search) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(find(m.posts, s.Match)), nil
}

func (m *Memory) GetAttachmentName(ctx context.Context, id inquiry.ID) (string, error) {
	p, err := m.GetPost(ctx, id)
	if err != nil {
		return "", err
	}
	return p.AttachmentName, nil
}

func (m *Memory) IncrementDownloadCount(ctx context.Context, id inquiry.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("post %d: %w", id, inquiry.ErrNotFound)
	}
	m.posts[i].DownloadCount++
	return nil
}

func (m *Memory) IncrementDownloadCountByName(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].AttachmentName == name {
			m.posts[i].DownloadCount++
		}
	}
	return nil
}

func (m *Memory) PinPost(ctx context.Context, id inquiry.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("post %d: %w", id, inquiry.ErrNotFound)
	}
	m.posts[i].IsPinned = true
	return nil
}

func (m *Memory) GetAdjacentPosts(ctx context.Context, id inquiry.ID, search *inquiry.Search) (prev, next *inquiry.Inquiry, err error) {
	match := func(*inquiry.Inquiry) bool { return true }
	if search != nil {
		if err := search.Validate(); err != nil {
			return nil, nil, err
		}
		match = search.Match
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.index(id)
	if i < 0 {
		return nil, nil, fmt.Errorf("post %d: %w", id, inquiry.ErrNotFound)
	}
	for j := i - 1; j >= 0; j-- {
		if match(&m.posts[j]) {
			p := m.posts[j]
			prev = &p
			break
		}
	}
	for j := i + 1; j < len(m.posts); j++ {
		if match(&m.posts[j]) {
			n := m.posts[j]
			next = &n
			break
		}
	}
	return prev, next, nil
}

func (m *Memory) recent(ctx context.Context, limit int, filter func(*inquiry.Inquiry) bool) (inquiry.List, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return page(find(m.posts, filter), pagination.Window{Limit: limit}), nil
}

func (m *Memory) RecentPosts(ctx context.Context, limit int) (inquiry.List, error) {
	return m.recent(ctx, limit, func(*inquiry.Inquiry) bool { return true })
}

func (m *Memory) RecentPhotos(ctx context.Context, limit int) (inquiry.List, error) {
	return m.recent(ctx, limit, (*inquiry.Inquiry).HasPhoto)
}

func (m *Memory) CategorySummary(ctx context.Context, category string, limit int) (inquiry.List, error) {
	return m.recent(ctx, limit, func(i *inquiry.Inquiry) bool { return i.Category == category })
}

func (m *Memory) AddComment(ctx context.Context, c *inquiry.Comment) (inquiry.ID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(c.BoardID)
	if i < 0 {
		return 0, fmt.Errorf("board %d: %w", c.BoardID, inquiry.ErrNotFound)
	}
	m.lastComment++
	n := *c
	n.ID = m.lastComment
	if n.CreatedAt.IsZero() {
		n.CreatedAt = m.Now()
	}
	m.comments = append(m.comments, n)
	m.posts[i].CommentCount++
	c.ID = n.ID
	return n.ID, nil
}

func (m *Memory) DeleteComment(ctx context.Context, boardID, id inquiry.ID, password string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for j, c := range m.comments {
		if c.BoardID == boardID && c.ID == id && c.Password == password {
			m.comments = append(m.comments[:j], m.comments[j+1:]...)
			if i := m.index(boardID); i >= 0 {
				m.posts[i].CommentCount--
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (m *Memory) CountMatchingComments(ctx context.Context, boardID, id inquiry.ID, password string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.comments {
		if c.BoardID == boardID && c.ID == id && c.Password == password {
			n++
		}
	}
	return n, nil
}

func (m *Memory) GetComments(ctx context.Context, boardID inquiry.ID) (inquiry.CommentList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := inquiry.CommentList{}
	for _, c := range m.comments {
		if c.BoardID == boardID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *Memory) RecentComments(ctx context.Context, limit int) (inquiry.CommentList, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := inquiry.CommentList{}
	for j := len(m.comments) - 1; j >= 0 && len(result) < limit; j-- {
		result = append(result, m.comments[j])
	}
	return result, nil
}

func (m *Memory) Close() error {
	return nil
}
