package inquiry

import (
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// Encoding tells how Content is rendered. It does not change how it is stored.
type Encoding string

const (
	EncodingText  Encoding = "Text"
	EncodingHTML  Encoding = "Html"
	EncodingMixed Encoding = "Mixed"
)

func (e Encoding) String() string {
	return string(e)
}

// ParseEncoding maps an empty value to EncodingText.
func ParseEncoding(s string) (Encoding, error) {
	if s == "" {
		return EncodingText, nil
	}
	for _, e := range []Encoding{EncodingText, EncodingHTML, EncodingMixed} {
		if strings.EqualFold(s, string(e)) {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: unknown encoding %q", ErrInvalidArgument, s)
}

const markdownExtensions = blackfriday.NoIntraEmphasis |
	blackfriday.Tables |
	blackfriday.FencedCode |
	blackfriday.Autolink |
	blackfriday.Strikethrough |
	blackfriday.SpaceHeadings |
	blackfriday.HardLineBreak |
	blackfriday.HeadingIDs

const markdownFlags = blackfriday.UseXHTML |
	blackfriday.Smartypants |
	blackfriday.SmartypantsFractions |
	blackfriday.SmartypantsLatexDashes

var ugcPolicy = bluemonday.UGCPolicy()

// Render turns content into safe HTML according to the encoding.
func Render(e Encoding, content string) template.HTML {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	switch e {
	case EncodingHTML:
		return template.HTML(ugcPolicy.Sanitize(content))
	case EncodingMixed:
		renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: markdownFlags})
		unsafe := blackfriday.Run([]byte(content),
			blackfriday.WithExtensions(markdownExtensions),
			blackfriday.WithRenderer(renderer))
		return template.HTML(ugcPolicy.SanitizeBytes(unsafe))
	default:
		escaped := html.EscapeString(content)
		return template.HTML(strings.ReplaceAll(escaped, "\n", "<br />\n"))
	}
}

func (i *Inquiry) Rendered() template.HTML {
	return Render(i.Encoding, i.Content)
}
