// Package id mints process handles.
package id

import "github.com/google/uuid"

// New returns a random UUID string. Handles are never reused.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s has the shape of a handle returned by New.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
