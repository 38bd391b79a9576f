package domain

import "errors"

var (
	ErrBadSignature     = errors.New("bad signature")
	ErrOrderNotFound    = errors.New("order not found")
	ErrStoreUnavailable = errors.New("order store unavailable")
	ErrMalformedPayload = errors.New("malformed payment payload")
	ErrNotifyFailed     = errors.New("notification failed")
)
