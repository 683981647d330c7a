// Package syndication publishes posts as RSS/Atom feeds and sitemaps.
package syndication

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/gorilla/feeds"
	"github.com/gosimple/slug"
	"github.com/sourcegraph/sitemap"
)

type Format string

const (
	FormatRSS  Format = "rss"
	FormatAtom Format = "atom"
)

type Site struct {
	Title       string
	Description string
	BaseURL     string
	AuthorName  string
	AuthorEmail string
}

// URL links a top-level post to its own page and a reply to an anchor on
// its thread.
func URL(baseURL string, p *inquiry.Inquiry) string {
	id := strconv.FormatInt(p.ID, 10)
	if p.IsReply() {
		return baseURL + "/inquiry/" + strconv.FormatInt(p.ParentID, 10) + "/item#I" + id
	}
	return baseURL + "/inquiry/" + id + "/" + slug.Make(p.Title) + ".html"
}

func Feed(site Site, posts inquiry.List, now time.Time) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       site.Title,
		Link:        &feeds.Link{Href: site.BaseURL},
		Description: site.Description,
		Author:      &feeds.Author{Name: site.AuthorName, Email: site.AuthorEmail},
		Created:     now,
	}
	for i := range posts {
		p := &posts[i]
		link := URL(site.BaseURL, p)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          link,
			Title:       p.Title,
			Link:        &feeds.Link{Href: link},
			Author:      &feeds.Author{Name: p.Name},
			Description: string(p.Rendered()),
			Created:     p.CreatedAt,
		})
	}
	return feed
}

func WriteFeed(w io.Writer, format Format, site Site, posts inquiry.List) error {
	feed := Feed(site, posts, time.Now())
	switch format {
	case FormatRSS, "":
		return feed.WriteRss(w)
	case FormatAtom:
		return feed.WriteAtom(w)
	}
	return fmt.Errorf("%w: unknown feed format %q", inquiry.ErrInvalidArgument, format)
}

// Sitemap lists the top-level posts; replies live on their thread's page.
func Sitemap(baseURL string, posts inquiry.List) ([]byte, error) {
	var urlSet sitemap.URLSet
	for i := range posts {
		p := &posts[i]
		if p.IsReply() {
			continue
		}
		lastMod := p.CreatedAt
		if p.ModifiedAt != nil {
			lastMod = *p.ModifiedAt
		}
		urlSet.URLs = append(urlSet.URLs, sitemap.URL{
			Loc:        URL(baseURL, p),
			LastMod:    &lastMod,
			ChangeFreq: sitemap.Daily,
			Priority:   0.7,
		})
	}
	return sitemap.Marshal(&urlSet)
}
