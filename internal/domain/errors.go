// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists indicates the entity is already registered (e.g. a second
// webhook for the same Crowdin project).
var ErrAlreadyExists = errors.New("already exists")

// ErrUnauthorized indicates the acting user lacks the role required for the operation.
var ErrUnauthorized = errors.New("not authorized")

// ErrValidation indicates malformed input.
var ErrValidation = errors.New("validation failed")

// ErrConflict indicates a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource was modified by another request")
