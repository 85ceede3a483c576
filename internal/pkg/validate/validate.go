package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
)

const UsernameRule = "required,min=2,max=20,username"

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var (
	std      = newValidator()
	initOnce sync.Once
)

func newValidator() *validator.Validate {
	v := validator.New()
	configure(v)
	return v
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// RegisterBinding installs the custom rules on gin's binding validator.
func RegisterBinding() {
	initOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			configure(v)
		}
	})
}

// Username validates a bare username, e.g. from a query string.
func Username(username string) error {
	if err := std.Var(username, UsernameRule); err != nil {
		return FromBinding(err, "username")
	}
	return nil
}

// FromBinding turns a bind/validation failure into a field level ValidationError.
// fallbackField names the field for errors that carry none (a bare Var check).
func FromBinding(err error, fallbackField string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErr.WithMessage(appErr.ErrInvalid, "Invalid request body")
	}
	out := &appErr.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = fallbackField
		}
		if _, exists := out.Fields[field]; exists {
			continue
		}
		out.Fields[field] = describe(field, fe)
	}
	return out
}

func describe(field string, fe validator.FieldError) string {
	label := "Value"
	if field != "" {
		label = strings.ToUpper(field[:1]) + field[1:]
	}
	switch field {
	case "username":
		switch fe.Tag() {
		case "min":
			return "Username must be at least 2 characters"
		case "max":
			return "Username must be no more than 20 characters"
		case "username":
			return "Username must not contain special characters"
		}
	case "email":
		if fe.Tag() == "email" {
			return "Invalid email address"
		}
	case "password":
		switch fe.Tag() {
		case "min":
			return fmt.Sprintf("Password must be at least %s characters", fe.Param())
		case "max":
			return fmt.Sprintf("Password must be no more than %s characters", fe.Param())
		}
	case "code":
		if fe.Tag() == "len" || fe.Tag() == "numeric" {
			return "Verification code must be 6 digits"
		}
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be no longer than %s characters", label, fe.Param())
	}
	return "Invalid " + field
}
