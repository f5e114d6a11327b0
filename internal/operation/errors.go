// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package operation

import (
	"errors"
	"fmt"
)

// Error kinds. Every rejection produced by an operation wraps exactly one of these.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// Error is a classified rejection. Reason is the message shown to callers.
type Error struct {
	Op     string
	Reason string
	kind   error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.kind
}

// Unauthorized rejects because the acting user lacks the required rights.
func Unauthorized(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...), kind: ErrUnauthorized}
}

// NotFound rejects because a required entity does not exist.
func NotFound(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...), kind: ErrNotFound}
}

// Invalid rejects malformed input.
func Invalid(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...), kind: ErrInvalid}
}

// Conflict rejects a uniqueness violation.
func Conflict(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...), kind: ErrConflict}
}

// KindOf returns a short label for err's classification, or "internal" when
// err is not a classified rejection.
func KindOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

// Reason returns the caller-facing message of a classified error.
func Reason(err error) string {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Reason
	}
	return err.Error()
}
