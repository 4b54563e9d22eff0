package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/go-playground/validator/v10"
)

const (
	maxPasswordBytes = 72 // bcrypt ignores everything past this
	DefaultPageLimit = 100
	MaxPageLimit     = 100
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			if name := strings.Split(f.Tag.Get(tag), ",")[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordPolicy(fl.Field().String()) == ""
	})
	return v
}

// passwordPolicy returns the first rule the password breaks, or ""
func passwordPolicy(p string) string {
	if len([]rune(p)) < 8 {
		return "must be at least 8 characters long"
	}
	if len(p) > maxPasswordBytes {
		return fmt.Sprintf("must be at most %d bytes long", maxPasswordBytes)
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return "must contain at least one uppercase letter"
	case !lower:
		return "must contain at least one lowercase letter"
	case !digit:
		return "must contain at least one digit"
	}
	return ""
}

// validateStruct runs tag validation and converts failures to field-level errors
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apperr.Validation("validation failed", fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "password":
		return "password " + passwordPolicy(fe.Value().(string))
	default:
		return "is invalid"
	}
}
