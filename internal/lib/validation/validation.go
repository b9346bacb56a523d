// Package validation настраивает валидатор входящих JSON-структур:
// имена полей в ошибках берутся из json-тегов, добавлен тег youtube.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/materials-api/internal/lib/video"
	"github.com/magabrotheeeer/materials-api/internal/models"
)

// New возвращает валидатор с зарегистрированными правилами проекта.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("youtube", func(fl validator.FieldLevel) bool {
		return video.IsAllowed(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Struct проверяет структуру и возвращает *models.ValidationError с сообщениями по полям.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	verr := &models.ValidationError{}
	for _, fe := range errs {
		verr.Add(fe.Field(), message(fe))
	}
	return verr
}

func message(fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "youtube":
		return video.ErrMessage
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	default:
		return "Invalid value."
	}
}
