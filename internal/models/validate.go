package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("bookingdate", layoutValidator(datePattern, DateLayout))
		_ = validate.RegisterValidation("bookingtime", layoutValidator(timePattern, TimeLayout))
	})
	return validate
}

// layoutValidator accepts strings that match the fixed-width pattern and parse with layout.
func layoutValidator(pattern *regexp.Regexp, layout string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !pattern.MatchString(s) {
			return false
		}
		_, err := time.Parse(layout, s)
		return err == nil
	}
}

// Validate runs struct tag validation on v and returns an error wrapping ErrValidation
// that lists every failed field by its JSON name.
func Validate(v interface{}) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// InvalidFields returns the JSON names of the fields of v that fail validation, in
// declaration order. It returns nil when v is valid.
func InvalidFields(v interface{}) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(validatorInstance().Struct(v), &fieldErrs) {
		return nil
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, jsonFieldName(fe.Field()))
	}
	return fields
}

func describeFieldError(fe validator.FieldError) string {
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "bookingdate":
		return field + " must be YYYY-MM-DD"
	case "bookingtime":
		return field + " must be HH:MM (24-hour)"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func jsonFieldName(goName string) string {
	switch goName {
	case "SessionID":
		return "session_id"
	default:
		return strings.ToLower(goName)
	}
}
