// Package repository persists principals and catalog documents in MongoDB.
// Sentinel errors let handlers distinguish failure scenarios without
// inspecting driver errors: ErrNotFound maps to 404, ErrInvalidID to 400,
// and the duplicate sentinels to conflict responses.
package repository

import "errors"

var (
	// ErrNotFound is returned when no document matches the identifier.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned when an identifier is not a valid ObjectID.
	ErrInvalidID = errors.New("invalid id")

	// ErrEmailExists and ErrUsernameExists signal an identity collision
	// within one principal realm.
	ErrEmailExists    = errors.New("email already registered")
	ErrUsernameExists = errors.New("username already taken")

	// ErrDuplicateName is returned when a sweet with the same name exists.
	ErrDuplicateName = errors.New("sweet name already exists")
)
