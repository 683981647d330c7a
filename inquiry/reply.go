package inquiry

import (
	"strings"
	"time"
)

const replyTitlePrefix = "Re : "

// NewReplyDraft prefills a reply form from the parent post: the title gets a
// "Re : " prefix and the parent body is quoted line by line.
func NewReplyDraft(parent *Inquiry) Inquiry {
	title := parent.Title
	if !strings.HasPrefix(title, replyTitlePrefix) {
		title = replyTitlePrefix + title
	}
	body := strings.ReplaceAll(parent.Content, "\r\n", "\n")
	var b strings.Builder
	b.WriteString("\n\nOn ")
	b.WriteString(parent.CreatedAt.Format(time.DateTime))
	b.WriteString(", '")
	b.WriteString(parent.Name)
	b.WriteString("' wrote:\n----------\n>")
	b.WriteString(strings.ReplaceAll(body, "\n", "\n>"))
	b.WriteString("\n---------")
	return Inquiry{
		ParentID: parent.ID,
		Category: parent.Category,
		Title:    title,
		Content:  b.String(),
		Encoding: parent.Encoding,
	}
}
