// Package cached puts the recency cache in front of the "recent" and summary
// reads of a database.Database. Every other call, including all writes,
// passes straight through; cached reads go stale for at most the ttl.
package cached

import (
	"context"
	"fmt"
	"time"

	"github.com/aquilax/inquiryboard/cache"
	"github.com/aquilax/inquiryboard/database"
	"github.com/aquilax/inquiryboard/inquiry"
)

const DefaultTTL = 60 * time.Second

type Cached struct {
	database.Database
	cache *cache.Cache
	ttl   time.Duration
}

func New(db database.Database, c *cache.Cache, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cached{Database: db, cache: c, ttl: ttl}
}

func (m *Cached) RecentPosts(ctx context.Context, limit int) (inquiry.List, error) {
	key := fmt.Sprintf("recent-posts|%d", limit)
	return cache.GetOrCompute(ctx, m.cache, key, m.ttl, func(ctx context.Context) (inquiry.List, error) {
		return m.Database.RecentPosts(ctx, limit)
	})
}

func (m *Cached) RecentPostsNoCache(ctx context.Context, limit int) (inquiry.List, error) {
	return m.Database.RecentPosts(ctx, limit)
}

func (m *Cached) RecentPhotos(ctx context.Context, limit int) (inquiry.List, error) {
	key := fmt.Sprintf("recent-photos|%d", limit)
	return cache.GetOrCompute(ctx, m.cache, key, m.ttl, func(ctx context.Context) (inquiry.List, error) {
		return m.Database.RecentPhotos(ctx, limit)
	})
}

func (m *Cached) RecentPhotosNoCache(ctx context.Context, limit int) (inquiry.List, error) {
	return m.Database.RecentPhotos(ctx, limit)
}

func (m *Cached) RecentComments(ctx context.Context, limit int) (inquiry.CommentList, error) {
	key := fmt.Sprintf("recent-comments|%d", limit)
	return cache.GetOrCompute(ctx, m.cache, key, m.ttl, func(ctx context.Context) (inquiry.CommentList, error) {
		return m.Database.RecentComments(ctx, limit)
	})
}

func (m *Cached) RecentCommentsNoCache(ctx context.Context, limit int) (inquiry.CommentList, error) {
	return m.Database.RecentComments(ctx, limit)
}

// CategorySummary keys on the quoted category so names containing the key
// separator cannot collide.
func (m *Cached) CategorySummary(ctx context.Context, category string, limit int) (inquiry.List, error) {
	key := fmt.Sprintf("category|%q|%d", category, limit)
	return cache.GetOrCompute(ctx, m.cache, key, m.ttl, func(ctx context.Context) (inquiry.List, error) {
		return m.Database.CategorySummary(ctx, category, limit)
	})
}

func (m *Cached) CategorySummaryNoCache(ctx context.Context, category string, limit int) (inquiry.List, error) {
	return m.Database.CategorySummary(ctx, category, limit)
}
