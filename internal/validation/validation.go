// Package validation wraps go-playground/validator so request structs and
// service inputs share one set of rules and one error shape.
package validation

import (
    "errors"
    "fmt"
    "reflect"
    "strings"
    "sync"

    "github.com/go-playground/validator/v10"

    "github.com/miraifest/ticket-booking/internal/domain"
)

// Validator implements echo.Validator.
type Validator struct {
    v *validator.Validate
}

var (
    defaultOnce sync.Once
    defaultV    *Validator
)

// New returns a Validator that reports fields by their json names.
func New() *Validator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        if name == "" {
            return f.Name
        }
        return name
    })
    return &Validator{v: v}
}

// Default returns the shared Validator.
func Default() *Validator {
    defaultOnce.Do(func() { defaultV = New() })
    return defaultV
}

// Struct validates s with the shared Validator.
func Struct(s any) error { return Default().Validate(s) }

// Validate checks s and converts failures into a domain.ValidationError.
func (cv *Validator) Validate(s any) error {
    err := cv.v.Struct(s)
    if err == nil {
        return nil
    }
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return domain.ValidationError{Msg: err.Error()}
    }
    fields := make(map[string]string, len(verrs))
    for _, fe := range verrs {
        if _, seen := fields[fe.Field()]; seen {
            continue
        }
        fields[fe.Field()] = message(fe)
    }
    return domain.ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return "is required"
    case "email":
        return "must be a valid email address"
    case "min":
        if fe.Kind() == reflect.String {
            return fmt.Sprintf("must be at least %s characters", fe.Param())
        }
        return fmt.Sprintf("must be at least %s", fe.Param())
    case "max":
        if fe.Kind() == reflect.String {
            return fmt.Sprintf("must be at most %s characters", fe.Param())
        }
        return fmt.Sprintf("must be at most %s", fe.Param())
    case "gt":
        return fmt.Sprintf("must be greater than %s", fe.Param())
    case "gte":
        return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
    case "oneof":
        return fmt.Sprintf("must be one of: %s", fe.Param())
    case "numeric":
        return "must contain digits only"
    default:
        return fmt.Sprintf("failed %s validation", fe.Tag())
    }
}
