package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// FormatValidationErrors turns validator errors into one readable message per field.
func FormatValidationErrors(err error) []string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return []string{"Invalid request payload"}
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		field := lowerFirst(e.Field())
		switch e.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "email":
			messages = append(messages, field+" must be a valid email address")
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", field, e.Tag()))
		}
	}
	return messages
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// BindAndValidate binds the request (JSON, form or multipart, by content type)
// and validates it. On failure it sends the validation envelope and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBind(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ValidationFailed(c, FormatValidationErrors(verrs))
		} else {
			ValidationFailed(c, []string{"Invalid request payload"})
		}
		return false
	}
	return true
}
