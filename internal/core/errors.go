package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidTarget     = "invalid_target"
	ErrCodeTargetNotFound    = "target_not_found"
	ErrCodeAlreadyFriends    = "already_friends"
	ErrCodeAlreadyRequested  = "already_requested"
	ErrCodeInconsistentState = "inconsistent_state"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeBadRequest        = "bad_request"
	ErrCodeContentTooLarge   = "content_too_large"
	ErrCodeRateLimited       = "rate_limited"
)

// ErrAlreadyRequested is returned by the ledger when an identical pending
// (requester, recipient) pair already exists. Soft validation error, not a
// system fault.
var ErrAlreadyRequested = errors.New("friend request already sent")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewCoreError builds a CoreError for wire-level error payloads.
func NewCoreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
