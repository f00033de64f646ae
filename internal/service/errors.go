package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"filmrate/backend/internal/ranking"
	"filmrate/backend/internal/relation"
	"filmrate/backend/internal/storage"
	"filmrate/backend/pkg/logctx"
)

// Error kinds. The transport maps them to status codes.
var (
	// ErrValidation: the input is malformed or violates a domain rule. HTTP 400.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: the operation clashes with existing state. HTTP 409.
	ErrConflict = errors.New("conflict")
	// ErrNotFound: an entity, like or relationship does not exist. HTTP 404.
	ErrNotFound = errors.New("not found")
	// ErrInternal: anything else. HTTP 500.
	ErrInternal = errors.New("internal error")
)

// Error carries a kind, a message that is safe to show to clients and the cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

// classify turns lower layer errors into *Error.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	msg := err.Error()
	var entityErr *storage.EntityError
	if errors.As(err, &entityErr) {
		msg = entityErr.Error()
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &Error{Kind: ErrNotFound, Msg: msg, Err: err}
	case errors.Is(err, relation.ErrNoRelation):
		return &Error{Kind: ErrNotFound, Msg: relation.ErrNoRelation.Error(), Err: err}
	case errors.Is(err, storage.ErrAlreadyExists):
		return &Error{Kind: ErrConflict, Msg: msg, Err: err}
	case errors.Is(err, relation.ErrAlreadyFriends):
		return &Error{Kind: ErrConflict, Msg: relation.ErrAlreadyFriends.Error(), Err: err}
	case errors.Is(err, relation.ErrAlreadyRequested):
		return &Error{Kind: ErrConflict, Msg: relation.ErrAlreadyRequested.Error(), Err: err}
	case errors.Is(err, ranking.ErrInvalidCount):
		return &Error{Kind: ErrValidation, Msg: ranking.ErrInvalidCount.Error(), Err: err}
	}
	return &Error{Kind: ErrInternal, Msg: ErrInternal.Error(), Err: err}
}

// fail classifies err, logs it with the operation name and returns it.
func fail(ctx context.Context, op string, err error) error {
	e := classify(err)
	log := logctx.From(ctx).With(slog.String("op", op))
	if e.Kind == ErrInternal {
		log.Error("operation failed", slog.String("err", err.Error()))
	} else {
		log.Warn("request rejected", slog.String("kind", e.Kind.Error()), slog.String("err", e.Msg))
	}
	return e
}
