package account

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/congo-pay/abank/internal/apperror"
)

// PhonePattern is the only accepted phone shape: +C (DDD) DDD-DD-DD.
var PhonePattern = regexp.MustCompile(`^\+\d \(\d{3}\) \d{3}-\d{2}-\d{2}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("bankphone", func(fl validator.FieldLevel) bool {
		return PhonePattern.MatchString(fl.Field().String())
	})
	return v
}

// validationError converts validator output into a single ValidationError
// naming every offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation("invalid input: %v", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describeField(fe))
	}
	return apperror.Validation("%s", strings.Join(parts, "; "))
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid e-mail address"
	case "bankphone":
		return field + " must look like +7 (999) 123-45-67"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
