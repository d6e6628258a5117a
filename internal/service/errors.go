package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrAuthRequired is returned when an operation needs a signed-in user.
	ErrAuthRequired = errors.New("login required")
	// ErrForbidden is returned when the actor does not own the post.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for unknown post ids.
	ErrNotFound = errors.New("post not found")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError lists the fields that failed validation and why.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ConflictError is returned when a unique value is already taken.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
