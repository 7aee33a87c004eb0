package dedup

import "errors"

// Error kinds. Returned errors wrap one of these along with the cause, so
// callers can use errors.Is for both.
var (
	ErrConfig  = errors.New("invalid configuration")
	ErrInput   = errors.New("input error")
	ErrStorage = errors.New("storage error")
	ErrOutput  = errors.New("output error")
)
