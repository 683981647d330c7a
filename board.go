// Package inquiryboard is the data-access core of a threaded question board.
//
// A Board hashes passwords, validates input and throttles posters before
// handing work to a database.Database. The "recent" and summary reads go
// through a TTL cache and have NoCache twins for callers that need fresh data.
package inquiryboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aquilax/inquiryboard/attachment"
	"github.com/aquilax/inquiryboard/cache"
	cachememory "github.com/aquilax/inquiryboard/cache/memory"
	cacheredis "github.com/aquilax/inquiryboard/cache/redis"
	"github.com/aquilax/inquiryboard/config"
	"github.com/aquilax/inquiryboard/database"
	"github.com/aquilax/inquiryboard/database/cached"
	"github.com/aquilax/inquiryboard/database/memory"
	"github.com/aquilax/inquiryboard/database/postgres"
	"github.com/aquilax/inquiryboard/database/sqlite"
	"github.com/aquilax/inquiryboard/secret"
	"github.com/aquilax/inquiryboard/syndication"
)

// Limits caps the "recent" reads.
type Limits struct {
	RecentPosts     int
	RecentPhotos    int
	RecentComments  int
	CategorySummary int
}

var DefaultLimits = Limits{RecentPosts: 3, RecentPhotos: 4, RecentComments: 2, CategorySummary: 3}

const DefaultPageSize = 10

type Options struct {
	Hasher        secret.Hasher      // Hasher defaults to secret.Tripcode.
	Attachments   attachment.Storage // Attachments may be nil when uploads are disabled.
	Cache         *cache.Cache       // Cache nil disables caching.
	CacheTTL      time.Duration
	PageSize      int
	Limits        Limits
	FloodInterval time.Duration // FloodInterval 0 disables the flood guard.
	Site          syndication.Site
	Logger        *slog.Logger
}

type Board struct {
	db       *cached.Cached
	hasher   secret.Hasher
	files    attachment.Storage
	guard    *FloodGuard
	limits   Limits
	pageSize int
	site     syndication.Site
	logger   *slog.Logger
	closers  []io.Closer
}

func New(db database.Database, opts Options) *Board {
	if opts.Hasher == nil {
		opts.Hasher = secret.Tripcode{}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits
	}
	if opts.Logger == nil {
		opts.Logger = defaultLogger()
	}
	return &Board{
		db:       cached.New(db, opts.Cache, opts.CacheTTL),
		hasher:   opts.Hasher,
		files:    opts.Attachments,
		guard:    NewFloodGuard(opts.FloodInterval),
		limits:   opts.Limits,
		pageSize: opts.PageSize,
		site:     opts.Site,
		logger:   opts.Logger,
		closers:  []io.Closer{db},
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelInfo,
		}))
}

// Open builds a Board from configuration: it connects the store, migrates
// the schema and picks the cache, hasher and attachment storage.
func Open(ctx context.Context, conf *config.Config, logger *slog.Logger) (*Board, error) {
	if logger == nil {
		logger = defaultLogger()
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	db, err := openDatabase(ctx, conf.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("database ready", slog.String("driver", conf.Database.Driver))

	opts := Options{
		CacheTTL:      conf.Cache.TTL,
		PageSize:      conf.Board.PageSize,
		FloodInterval: conf.Board.FloodInterval,
		Limits: Limits{
			RecentPosts:     conf.Board.RecentPosts,
			RecentPhotos:    conf.Board.RecentPhotos,
			RecentComments:  conf.Board.RecentComments,
			CategorySummary: conf.Board.CategorySummary,
		},
		Site: syndication.Site{
			Title:       conf.Board.Title,
			Description: conf.Board.Description,
			BaseURL:     conf.Board.BaseURL,
		},
		Logger: logger,
	}
	var closers []io.Closer
	switch conf.Cache.Backend {
	case "memory":
		backend, err := cachememory.New(conf.Cache.Size)
		if err != nil {
			db.Close()
			return nil, err
		}
		opts.Cache = cache.New(backend, logger)
	case "redis":
		backend := cacheredis.New(conf.Cache.RedisAddr, conf.Cache.RedisPassword, conf.Cache.RedisDB)
		if err := backend.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, reads will hit the store", slog.String("error", err.Error()))
		}
		opts.Cache = cache.New(backend, logger)
		closers = append(closers, backend)
	}
	switch conf.Board.Hasher {
	case "hmac":
		opts.Hasher = secret.NewHMAC(conf.Board.HasherKey)
	default:
		opts.Hasher = secret.Tripcode{}
	}
	if conf.Attachments.Dir != "" {
		disk, err := attachment.NewDisk(conf.Attachments.Dir)
		if err != nil {
			db.Close()
			return nil, err
		}
		opts.Attachments = disk
	}
	logger.Info("board ready", slog.String("cache", conf.Cache.Backend), slog.String("hasher", conf.Board.Hasher))

	b := New(db, opts)
	b.closers = append(b.closers, closers...)
	return b, nil
}

func openDatabase(ctx context.Context, conf config.Database) (database.Database, error) {
	if conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conf.Timeout)
		defer cancel()
	}
	switch conf.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.Open(ctx, conf.DSN)
	case "postgres":
		return postgres.Open(ctx, conf.DSN)
	}
	return nil, fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, conf.Driver)
}

func (b *Board) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteFeed writes the newest page of posts as RSS or Atom.
func (b *Board) WriteFeed(ctx context.Context, w io.Writer, format syndication.Format) error {
	posts, err := b.GetPage(ctx, 0, b.pageSize)
	if err != nil {
		return err
	}
	return syndication.WriteFeed(w, format, b.site, posts)
}

const sitemapPageSize = 1000

// Sitemap lists up to the newest thousand top-level posts.
func (b *Board) Sitemap(ctx context.Context) ([]byte, error) {
	posts, err := b.GetPage(ctx, 0, sitemapPageSize)
	if err != nil {
		return nil, err
	}
	return syndication.Sitemap(b.site.BaseURL, posts)
}
