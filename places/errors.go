// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown place IDs.
	ErrNotFound = errors.New("place not found")
	// ErrConflict is returned when a place with the same name and address
	// already exists.
	ErrConflict = errors.New("place already exists")
)

// ValidationError reports an invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError

	return errors.As(err, &ve)
}
