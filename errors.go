package inquiryboard

import (
	"errors"

	"github.com/aquilax/inquiryboard/inquiry"
)

// Store outcomes, re-exported so callers need not import inquiry.
var (
	ErrNotFound           = inquiry.ErrNotFound
	ErrInvalidArgument    = inquiry.ErrInvalidArgument
	ErrStorageUnavailable = inquiry.ErrStorageUnavailable
)

var (
	ErrPostTooFrequent     = errors.New("please wait before posting again")
	ErrInvalidConfig       = errors.New("invalid config")
	ErrAttachmentsDisabled = errors.New("attachment storage is not configured")
)

func isNotFound(err error) bool {
	return errors.Is(err, inquiry.ErrNotFound)
}
