package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, ValidationErrorToString(err)
	}
	return value, nil
}

func ValidateValue(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return ValidationErrorToString(err)
	}
	return nil
}

// ValidationErrorToString renders one line per failed field.
func ValidationErrorToString(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	lines := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			lines = append(lines, fmt.Sprintf("veld '%s': regel '%s=%s' niet voldaan, ontvangen '%v'", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		lines = append(lines, fmt.Sprintf("veld '%s': regel '%s' niet voldaan", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(lines, "; "))
}
