// Command inquiryboard runs administrative tasks against a board store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/aquilax/inquiryboard"
	"github.com/aquilax/inquiryboard/config"
	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/aquilax/inquiryboard/syndication"
)

const usage = `usage: inquiryboard [-config path] [-v] <command> [args]

commands:
  migrate           connect and bring the schema up to date
  pin <id>          pin a post
  delete <id>       delete a post and its comments without its password
  feed [rss|atom]   write a feed of the newest posts to stdout
  sitemap           write the sitemap to stdout
  recent            print the recent posts, photos and comments
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inquiryboard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "YAML, TOML, JSON or dotenv configuration file")
	verbose := fs.Bool("v", false, "log debug messages")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	conf, err := config.New(*configPath)
	if err != nil {
		return err
	}
	board, err := inquiryboard.Open(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer board.Close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "migrate":
		logger.Info("schema is up to date")
		return nil
	case "pin":
		id, err := postID(cmd, rest)
		if err != nil {
			return err
		}
		return board.Pin(ctx, id)
	case "delete":
		id, err := postID(cmd, rest)
		if err != nil {
			return err
		}
		n, err := board.DeleteByAdmin(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("post %d: %w", id, inquiry.ErrNotFound)
		}
		fmt.Fprintf(stdout, "deleted post %d\n", id)
		return nil
	case "feed":
		format := syndication.FormatRSS
		if len(rest) > 0 {
			format = syndication.Format(rest[0])
		}
		return board.WriteFeed(ctx, stdout, format)
	case "sitemap":
		xml, err := board.Sitemap(ctx)
		if err != nil {
			return err
		}
		_, err = stdout.Write(xml)
		return err
	case "recent":
		return printRecent(ctx, board, stdout)
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func postID(cmd string, args []string) (inquiry.ID, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s needs exactly one post id", cmd)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid post id %q: %w", args[0], err)
	}
	return id, nil
}

func printRecent(ctx context.Context, board *inquiryboard.Board, w io.Writer) error {
	posts, err := board.RecentPostsNoCache(ctx)
	if err != nil {
		return err
	}
	photos, err := board.RecentPhotosNoCache(ctx)
	if err != nil {
		return err
	}
	comments, err := board.RecentCommentsNoCache(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "posts:")
	for _, p := range posts {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%d comments\n", p.ID, p.CreatedAt.Format("01.02.2006 15:04"), p.Title, p.CommentCount)
	}
	fmt.Fprintln(w, "photos:")
	for _, p := range photos {
		fmt.Fprintf(w, "  %d\t%s\t%d downloads\n", p.ID, p.AttachmentName, p.DownloadCount)
	}
	fmt.Fprintln(w, "comments:")
	for _, c := range comments {
		fmt.Fprintf(w, "  %d\ton %d\t%s\n", c.ID, c.BoardID, c.Name)
	}
	return nil
}
