package inquiry

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
