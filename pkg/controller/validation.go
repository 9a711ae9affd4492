package controller

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nimburion/taskboard/pkg/server/router"
)

// messages maps validation tags to friendly messages. Entries with two
// placeholders receive the tag parameter.
var messages = map[string]string{
	"required": "The field '%s' is required.",
	"email":    "The field '%s' must be a valid email address.",
	"min":      "The field '%s' must be at least %s.",
	"max":      "The field '%s' must be at most %s.",
	"alphanum": "The field '%s' must contain only letters and digits.",
	"gte":      "The field '%s' must be greater than or equal to %s.",
	"lte":      "The field '%s' must be less than or equal to %s.",
	"oneof":    "The field '%s' must be one of [%s].",
}

// Validator checks request DTOs against their validate tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator returns a Validator that reports fields by their JSON names.
func NewValidator() *Validator {
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
	return &Validator{validate: v}
}

// ValidateDTO validates dto and returns a validation AppError listing every
// failing field.
func (v *Validator) ValidateDTO(dto interface{}) error {
	err := v.validate.Struct(dto)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("request body is invalid", nil)
	}
	fields := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fieldPath(fe)] = friendlyMessage(fe)
	}
	return NewValidationError("validation failed", map[string]interface{}{"fields": fields})
}

// Bind decodes the JSON body into dto and validates it.
func (v *Validator) Bind(c router.Context, dto interface{}) error {
	if err := c.Bind(dto); err != nil {
		if tooLarge := (*http.MaxBytesError)(nil); errors.As(err, &tooLarge) {
			return NewPayloadTooLargeError(tooLarge.Limit)
		}
		if errors.Is(err, router.ErrUnsupportedMediaType) {
			return &AppError{Code: "request.unsupported_media_type", Message: "content type must be application/json", HTTPStatus: http.StatusUnsupportedMediaType}
		}
		return NewValidationError("request body is invalid", map[string]interface{}{"cause": err.Error()})
	}
	return v.ValidateDTO(dto)
}

// fieldPath drops the struct name from the namespace: "CreateUserRequest.roles[0]" becomes "roles[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func friendlyMessage(fe validator.FieldError) string {
	name := fe.Field()
	msg, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("The field '%s' is invalid: %s.", name, fe.Tag())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, name, fe.Param())
	}
	return fmt.Sprintf(msg, name)
}
