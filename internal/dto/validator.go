package dto

import (
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the project's custom rules registered:
//
//	future  the time.Time value lies strictly after now
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("future", isFuture)
	return v
}

func isFuture(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}
	t, ok := field.Interface().(time.Time)
	if !ok {
		return false
	}
	return t.After(time.Now())
}
