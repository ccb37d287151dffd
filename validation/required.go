package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Required checks struct fields tagged `validate:"required"` and reports
// the json names of the ones left empty.
type Required struct {
	validate *validator.Validate
}

func NewRequired() *Required {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return &Required{validate: v}
}

// Missing returns the names of empty required fields in s, in declaration order.
func (r *Required) Missing(s any) []string {
	err := r.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{"-"}
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		missing = append(missing, fe.Field())
	}
	return missing
}
