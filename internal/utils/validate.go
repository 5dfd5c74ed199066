package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	return v
}

// Validate checks s against its `validate` tags and describes the first
// failing field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	fe := ve[0]
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required", "required_without_all":
		return fmt.Errorf("%s is required", field)
	case "email":
		return fmt.Errorf("%s must be a valid email address", field)
	case "phone":
		return fmt.Errorf("%s must be an 11-digit mobile number", field)
	case "len":
		return fmt.Errorf("%s must be exactly %s characters", field, param)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Errorf("%s must be at least %s characters", field, param)
		}
		return fmt.Errorf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Errorf("%s must be at most %s characters", field, param)
		}
		return fmt.Errorf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s]", field, param)
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}
