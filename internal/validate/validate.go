// Package validate wraps struct tag validation for request payloads.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/deliverpoint/pos/internal/domain"
)

// FieldError describes one failed field.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e FieldError) String() string {
	if e.Param != "" {
		return fmt.Sprintf("%s failed %s=%s", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s failed %s", e.Field, e.Tag)
}

var validate = validator.New()

func init() {
	validate.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return domain.PaymentMethod(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("discount_kind", func(fl validator.FieldLevel) bool {
		return domain.DiscountKind(fl.Field().String()).Valid()
	})
}

// Struct validates data against its struct tags and returns the failed
// fields, nil when everything passes.
func Struct(data interface{}) []FieldError {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var fields []FieldError
	for _, ve := range err.(validator.ValidationErrors) {
		fields = append(fields, FieldError{
			Field: ve.StructNamespace(),
			Tag:   ve.Tag(),
			Param: ve.Param(),
		})
	}
	return fields
}

// StructError validates data and folds any failures into a single
// EINVALID domain error suitable for a response body.
func StructError(op string, data interface{}) error {
	fields := Struct(data)
	if len(fields) == 0 {
		return nil
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	return domain.Invalid(op, "validation failed: "+strings.Join(parts, "; "))
}
