package server

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"resumelens/internal/ai"
	appErrors "resumelens/internal/errors"

	"github.com/go-playground/validator/v10"
)

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cover_letter_style", func(fl validator.FieldLevel) bool {
		return slices.Contains(ai.CoverLetterStyles, fl.Field().String())
	})
	return v
}

// validateRequest checks req against its struct tags
func (s *Server) validateRequest(req any) error {
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, describeFieldError(fieldErrs[0]), err)
		}
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "Invalid request", err)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s exceeds the maximum of %s", field, fe.Param())
	case "cover_letter_style":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(ai.CoverLetterStyles, ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
