package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		// step5: integer multiple of five.
		v.RegisterValidation("step5", func(fl validator.FieldLevel) bool {
			switch fl.Field().Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				return fl.Field().Int()%5 == 0
			}
			return false
		})
		validate = v
	})
	return validate
}

// validateInput runs struct validation and converts failures into a
// VALIDATION_FAILED error with one detail per field.
func validateInput(in any) error {
	err := validatorInstance().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	details := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperr.FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return apperr.Validation(details...)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "step5":
		return "must be a multiple of 5"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "uuid":
		return "must be a valid UUID"
	case "timezone":
		return "must be an IANA time zone"
	case "numeric":
		return "must contain only digits"
	case "url":
		return "must be a valid URL"
	}
	return "is invalid"
}

func validateDate(field, date string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return apperr.Field(field, "must be a date in YYYY-MM-DD format")
	}
	return nil
}

func validateUUID(field, id string) error {
	if err := uuid.Validate(id); err != nil {
		return apperr.Field(field, "must be a valid UUID")
	}
	return nil
}
