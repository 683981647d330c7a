package inquiry

import (
	"fmt"
	"strings"
)

// SearchField names the single post field a search query is matched against.
type SearchField string

const (
	SearchName    SearchField = "Name"
	SearchTitle   SearchField = "Title"
	SearchContent SearchField = "Content"
)

func (f SearchField) String() string {
	return string(f)
}

func (f SearchField) Valid() bool {
	switch f {
	case SearchName, SearchTitle, SearchContent:
		return true
	}
	return false
}

// ParseSearchField accepts the field name in any letter case.
func ParseSearchField(s string) (SearchField, error) {
	for _, f := range []SearchField{SearchName, SearchTitle, SearchContent} {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown search field %q", ErrInvalidArgument, s)
}

type Search struct {
	Field SearchField
	Query string
}

func (s Search) Validate() error {
	if !s.Field.Valid() {
		return fmt.Errorf("%w: unknown search field %q", ErrInvalidArgument, s.Field)
	}
	return nil
}

// Value returns the searched field of i.
func (s Search) Value(i *Inquiry) string {
	switch s.Field {
	case SearchName:
		return i.Name
	case SearchTitle:
		return i.Title
	case SearchContent:
		return i.Content
	}
	return ""
}

// Match is the case-insensitive substring predicate used by in-process stores.
func (s Search) Match(i *Inquiry) bool {
	return strings.Contains(strings.ToLower(s.Value(i)), strings.ToLower(s.Query))
}
