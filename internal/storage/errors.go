package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the entity (or a referenced one) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists means a unique field or pair is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// EntityError tells which entity and key a storage error is about.
type EntityError struct {
	Entity string
	Key    any
	Err    error
}

func (e *EntityError) Error() string {
	if s, ok := e.Key.(string); ok {
		return fmt.Sprintf("%s %q %s", e.Entity, s, e.Err)
	}
	return fmt.Sprintf("%s %v %s", e.Entity, e.Key, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// NotFound builds an ErrNotFound for entity/key.
func NotFound(entity string, key any) error {
	return &EntityError{Entity: entity, Key: key, Err: ErrNotFound}
}

// Exists builds an ErrAlreadyExists for entity/key.
func Exists(entity string, key any) error {
	return &EntityError{Entity: entity, Key: key, Err: ErrAlreadyExists}
}
