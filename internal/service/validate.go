package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"filmrate/backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// newValidator registers the domain tags. now is read on every call.
func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New()

	// Date fields are validated as time.Time.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(models.Date); ok {
			return d.Time
		}
		return nil
	}, models.Date{})

	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "nowhitespace", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), unicode.IsSpace) < 0
	})
	mustRegister(v, "releasedate", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !t.IsZero() && t.After(models.CinemaBirthday.Time)
	})
	mustRegister(v, "notfuture", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok || t.IsZero() {
			return true
		}
		return !models.DateOf(t).After(models.DateOf(now()).Time)
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

// check validates a model and turns the first failures into one readable message.
func (s *Service) check(model any) error {
	err := s.validate.Struct(model)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe))
	}
	return &Error{Kind: ErrValidation, Msg: strings.Join(msgs, "; "), Err: err}
}

func message(fe validator.FieldError) string {
	field := snake(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return field + " must not be blank"
	case "email":
		return field + " must be a valid email"
	case "nowhitespace":
		return field + " must not contain whitespace"
	case "notfuture":
		return field + " must not be in the future"
	case "releasedate":
		return field + " must be after " + models.CinemaBirthday.String()
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return field + " must be positive"
	}
	return field + " is invalid"
}

// snake converts a Go field name to the snake_case used on the wire.
func snake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
