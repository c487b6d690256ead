package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const minPasswordLen = 8

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("username", isUsername)
	_ = v.RegisterValidation("password", isStrongPassword)
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// jsonFieldName reports fields by their JSON key so messages match the payload.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func isUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

// isStrongPassword requires upper, lower, digit and special characters and
// rejects any whitespace.
func isStrongPassword(fl validator.FieldLevel) bool {
	return PasswordStrong(fl.Field().String())
}

// PasswordStrong reports whether pw satisfies the password policy.
func PasswordStrong(pw string) bool {
	if len([]rune(pw)) < minPasswordLen || len(pw) > MaxPasswordBytes {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsSpace(r):
			return false
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

// Validate checks s against its validate tags. The returned error names the
// first offending field in client terms.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return errors.New(describe(verrs[0]))
	}
	return err
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "username":
		return fmt.Sprintf("%s may only contain letters, digits and underscores", field)
	case "password":
		return fmt.Sprintf("%s must be %d characters to %d bytes long, include upper and lower case letters, a digit and a special character, and contain no spaces", field, minPasswordLen, MaxPasswordBytes)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
