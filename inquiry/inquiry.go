package inquiry

import (
	"path/filepath"
	"strings"
	"time"
)

type ID = int64

// RootID is the ParentID of a top-level post.
const RootID ID = 0

type Inquiry struct {
	ID             ID         `db:"id" json:"id"`
	ParentID       ID         `db:"parent_id" json:"parentId"`
	Category       string     `db:"category" json:"category"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	Homepage       string     `db:"homepage" json:"homepage"`
	Title          string     `db:"title" json:"title"`
	Content        string     `db:"content" json:"content"`
	Encoding       Encoding   `db:"encoding" json:"encoding"`
	Password       string     `db:"password" json:"-"`
	PostIP         string     `db:"post_ip" json:"postIp"`
	ModifyIP       string     `db:"modify_ip" json:"modifyIp"`
	AttachmentName string     `db:"file_name" json:"attachmentName"`
	AttachmentSize int64      `db:"file_size" json:"attachmentSize"`
	DownloadCount  int64      `db:"download_count" json:"downloadCount"`
	CommentCount   int        `db:"comment_count" json:"commentCount"`
	IsPinned       bool       `db:"is_pinned" json:"isPinned"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	ModifiedAt     *time.Time `db:"modified_at" json:"modifiedAt,omitempty"`
}

type List []Inquiry

// IsReply reports whether the post answers another post.
func (i *Inquiry) IsReply() bool {
	return i.ParentID != RootID
}

func (i *Inquiry) HasAttachment() bool {
	return i.AttachmentName != ""
}

// HasPhoto reports whether the attachment looks like an image.
func (i *Inquiry) HasPhoto() bool {
	return IsPhoto(i.AttachmentName)
}

// Split separates pinned posts from the rest, keeping the relative order.
func (l List) Split() (pinned, regular List) {
	pinned, regular = List{}, List{}
	for _, i := range l {
		if i.IsPinned {
			pinned = append(pinned, i)
		} else {
			regular = append(regular, i)
		}
	}
	return pinned, regular
}

type Comment struct {
	ID        ID        `db:"id" json:"id"`
	BoardID   ID        `db:"board_id" json:"boardId"`
	Name      string    `db:"name" json:"name"`
	Opinion   string    `db:"opinion" json:"opinion"`
	Password  string    `db:"password" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CommentList []Comment

// Attachment is what the storage collaborator reports after a successful upload.
type Attachment struct {
	Name string
	Size int64
}

// PhotoExtensions are the attachment extensions treated as images.
var PhotoExtensions = []string{".gif", ".jpg", ".jpeg", ".png"}

func IsPhoto(name string) bool {
	if name == "" {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range PhotoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
