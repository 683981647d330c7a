// Package attachment stores uploaded files. Stores only report the final
// name and size; posts record those once Save succeeds.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const maxNumbering = 10000

type Storage interface {
	// Save writes r under a name derived from name, numbering it when the
	// name is taken.
	Save(ctx context.Context, name string, r io.Reader) (inquiry.Attachment, error)
	Open(name string) (io.ReadCloser, error)
	Remove(name string) error
}

// Disk keeps attachments as files in one directory.
type Disk struct {
	dir string
}

func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("attachment dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// CleanName slugs the stem and lowercases the extension of an uploaded name.
func CleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := filepath.Ext(name)
	stem := slug.Make(strings.TrimSuffix(name, ext))
	if stem == "" {
		stem = "file"
	}
	if ext = slug.Make(strings.TrimPrefix(ext, ".")); ext != "" {
		ext = "." + ext
	}
	return stem + ext
}

// Numbered returns the n-th alternative for name: report.pdf, report(1).pdf,
// report(2).pdf and so on.
func Numbered(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s(%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func (d *Disk) Save(ctx context.Context, name string, r io.Reader) (inquiry.Attachment, error) {
	tmp, err := os.OpenFile(filepath.Join(d.dir, ".upload-"+uuid.NewString()), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return inquiry.Attachment{}, fmt.Errorf("create upload: %w", err)
	}
	defer os.Remove(tmp.Name())
	size, err := io.Copy(tmp, ctxReader{ctx, r})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return inquiry.Attachment{}, fmt.Errorf("write upload: %w", err)
	}

	final, err := d.reserve(CleanName(name))
	if err != nil {
		return inquiry.Attachment{}, err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, final)); err != nil {
		os.Remove(filepath.Join(d.dir, final))
		return inquiry.Attachment{}, fmt.Errorf("store upload: %w", err)
	}
	return inquiry.Attachment{Name: final, Size: size}, nil
}

// reserve claims the first free numbered variant of name by creating it
// exclusively, so two concurrent uploads never get the same name.
func (d *Disk) reserve(name string) (string, error) {
	for n := 0; n < maxNumbering; n++ {
		candidate := Numbered(name, n)
		f, err := os.OpenFile(filepath.Join(d.dir, candidate), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reserve %s: %w", candidate, err)
		}
		return candidate, f.Close()
	}
	return "", fmt.Errorf("reserve %s: no free name", name)
}

func (d *Disk) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: attachment name %q", inquiry.ErrInvalidArgument, name)
	}
	return filepath.Join(d.dir, name), nil
}

func (d *Disk) Open(name string) (io.ReadCloser, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("attachment %s: %w", name, inquiry.ErrNotFound)
	}
	return f, err
}

// Remove deletes name. A missing file is not an error.
func (d *Disk) Remove(name string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
