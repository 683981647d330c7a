package inquiryboard

import (
	"strings"

	"github.com/aquilax/inquiryboard/inquiry"
)

// ValidationErrors lists every problem found in one submission.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return "invalid input: " + strings.Join(v, "; ")
}

func (v ValidationErrors) Unwrap() error {
	return inquiry.ErrInvalidArgument
}

func (v ValidationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// validatePost trims the text fields of p in place and normalizes its
// encoding.
func validatePost(p *inquiry.Inquiry) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Title = strings.TrimSpace(p.Title)
	p.Email = strings.TrimSpace(p.Email)
	p.Homepage = strings.TrimSpace(p.Homepage)
	p.Category = strings.TrimSpace(p.Category)
	errors := ValidationErrors{}
	if p.Name == "" {
		errors = append(errors, "name is required")
	}
	if p.Title == "" {
		errors = append(errors, "title is required")
	}
	if strings.TrimSpace(p.Content) == "" {
		errors = append(errors, "please, write something")
	}
	if p.Password == "" {
		errors = append(errors, "password is required")
	}
	if e, err := inquiry.ParseEncoding(string(p.Encoding)); err != nil {
		errors = append(errors, "unknown encoding "+string(p.Encoding))
	} else {
		p.Encoding = e
	}
	return errors.err()
}

func validateComment(c *inquiry.Comment) error {
	c.Name = strings.TrimSpace(c.Name)
	errors := ValidationErrors{}
	if c.BoardID <= inquiry.RootID {
		errors = append(errors, "comment must belong to a post")
	}
	if c.Name == "" {
		errors = append(errors, "name is required")
	}
	if strings.TrimSpace(c.Opinion) == "" {
		errors = append(errors, "please, write something")
	}
	if c.Password == "" {
		errors = append(errors, "password is required")
	}
	return errors.err()
}
