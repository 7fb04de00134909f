package courier

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Syntactic check only: something@something.something, no whitespace or
// extra '@'. Deliverability is not our concern.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// Sanitize entity-escapes & < > " ' and trims surrounding whitespace.
// Every user-supplied value goes through it before landing in an email body.
func Sanitize(s string) string {
	return strings.TrimSpace(htmlEscaper.Replace(s))
}

// ValidationError is a rejected submission; Message is shown to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// FormMessages holds the user-facing text for each kind of rule failure.
type FormMessages struct {
	Missing      string
	InvalidEmail string
	TooShort     string
	TooLong      string
}

var (
	contactMessages = FormMessages{
		Missing:      "Please fill in all required fields.",
		InvalidEmail: "Please enter a valid email address.",
		TooShort:     "Message is too short. Please provide more details.",
		TooLong:      "Message is too long. Please keep it under 5000 characters.",
	}
	subscribeMessages = FormMessages{
		Missing:      "Please enter your email address.",
		InvalidEmail: "Please enter a valid email address.",
	}
)

// tag precedence: a missing field is reported before a bad email, and so on
var tagOrder = []string{"required", "simpleemail", "min", "max"}

type formValidator struct {
	v *validator.Validate
}

func newFormValidator() *formValidator {
	v := validator.New()
	// cannot fail: the tag name is valid and the func is non-nil
	_ = v.RegisterValidation("simpleemail", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	return &formValidator{v: v}
}

// Check runs the struct tags of form and maps the highest-precedence failure
// to a ValidationError. Any other validator error is returned as is.
func (fv *formValidator) Check(form any, msgs FormMessages) error {
	err := fv.v.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	best := len(tagOrder)
	for _, fe := range verrs {
		for i, tag := range tagOrder {
			if fe.Tag() == tag && i < best {
				best = i
			}
		}
	}

	switch best {
	case 0:
		return &ValidationError{Message: msgs.Missing}
	case 1:
		return &ValidationError{Message: msgs.InvalidEmail}
	case 2:
		return &ValidationError{Message: msgs.TooShort}
	case 3:
		return &ValidationError{Message: msgs.TooLong}
	default:
		return &ValidationError{Message: msgs.Missing}
	}
}
