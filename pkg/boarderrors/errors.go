// Package boarderrors centralizes the wire error taxonomy (spec §6) and the
// LLM transport error classification used by the AI orchestrator (spec §4.K,
// §4.L), following the same classifier-family shape used elsewhere in this
// codebase's dependency family for wire/transport error taxonomies.
package boarderrors

import (
	"errors"
	"fmt"
	"strings"
)

// Code is one of the wire error codes enumerated in spec §6.
type Code string

const (
	CodeBadFrame           Code = "E_BAD_FRAME"
	CodeUnknownSyscall     Code = "E_UNKNOWN_SYSCALL"
	CodeNotJoined          Code = "E_NOT_JOINED"
	CodeBoardNotFound      Code = "E_BOARD_NOT_FOUND"
	CodeForbidden          Code = "E_FORBIDDEN"
	CodeStaleUpdate        Code = "E_STALE_UPDATE"
	CodeObjectNotFound     Code = "E_OBJECT_NOT_FOUND"
	CodeValidation         Code = "E_VALIDATION"
	CodeLLM                Code = "E_LLM"
	CodeToolLoopExceeded   Code = "E_TOOL_LOOP_EXCEEDED"
	CodeDatabase           Code = "E_DATABASE"
)

// Error is a wire-surfaced error: a code plus a human-readable message, and
// optionally structured extra data (e.g. the current object on a stale
// update) that the caller can merge into the error frame's data document.
type Error struct {
	ErrCode Code
	Message string
	Extra   map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

// New builds a plain wire error.
func New(code Code, message string) *Error {
	return &Error{ErrCode: code, Message: message}
}

// WithExtra attaches structured extra data and returns the error for chaining.
func (e *Error) WithExtra(extra map[string]any) *Error {
	e.Extra = extra
	return e
}

// As reports whether err is (or wraps) a *Error, following errors.As.
func As(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// CodeOf returns the wire code for err, defaulting to E_DATABASE for
// anything that isn't a recognized *Error (an unexpected internal failure
// is still surfaced to the client rather than dropped, per spec §7).
func CodeOf(err error) Code {
	if be, ok := As(err); ok {
		return be.ErrCode
	}
	return CodeDatabase
}

// ContainsAnyPattern checks if the lowercased error message contains any of
// the given substrings.
func ContainsAnyPattern(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsRateLimitError classifies a provider error as a rate limit (429) error.
func IsRateLimitError(err error) bool {
	return ContainsAnyPattern(err, []string{
		"rate_limit_exceeded", "429", "resource_exhausted", "quota exceeded", "usage limit",
	})
}

// IsAuthError classifies a provider error as an authentication failure.
func IsAuthError(err error) bool {
	return ContainsAnyPattern(err, []string{
		"invalid api key", "invalid_api_key", "incorrect api key", "invalid token",
		"unauthorized", "forbidden", "access denied", "401", "403",
	})
}

// IsOverloadedError classifies a provider error as transient overload.
func IsOverloadedError(err error) bool {
	return ContainsAnyPattern(err, []string{"overloaded_error", "overloaded", "service unavailable", "503"})
}

// IsTimeoutError classifies a provider error as a transport timeout.
func IsTimeoutError(err error) bool {
	return ContainsAnyPattern(err, []string{
		"timeout", "timed out", "deadline exceeded", "context deadline exceeded", "408", "504",
	})
}

// IsContextLengthError classifies a provider error as context-window overflow.
func IsContextLengthError(err error) bool {
	return ContainsAnyPattern(err, []string{
		"context length", "context_length", "prompt is too long", "maximum context length",
	})
}

// IsRetryable reports whether the LLM adapter should retry the call
// transparently a small bounded number of times (spec §7 "Retries").
func IsRetryable(err error) bool {
	return IsOverloadedError(err) || IsTimeoutError(err) ||
		ContainsAnyPattern(err, []string{"econnreset", "connection reset", "502", "500"})
}

// FormatUserFacing turns a provider/transport error into a short message
// suitable for an E_LLM error frame.
func FormatUserFacing(err error) string {
	if err == nil {
		return "something went wrong"
	}
	switch {
	case IsRateLimitError(err):
		return "the model provider is rate-limiting requests; try again shortly"
	case IsAuthError(err):
		return "the model provider rejected the configured credentials"
	case IsOverloadedError(err):
		return "the model provider is overloaded; try again shortly"
	case IsTimeoutError(err):
		return "the model provider timed out"
	case IsContextLengthError(err):
		return "the conversation is too long for this model"
	default:
		msg := err.Error()
		if len(msg) > 400 {
			msg = msg[:400] + "..."
		}
		return msg
	}
}
