// Package response writes the JSON error body shared by handlers and
// middleware.
package response

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const msgValidationFailed = "Validation failed"

// Error is the body of every non-2xx response.
type Error struct {
	Timestamp        time.Time         `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

// Err aborts the request with status and message.
func Err(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, newError(c, status, message))
}

// ValidationErr aborts with 400 and, when err comes from the validator, a
// per-field message map.
func ValidationErr(c *gin.Context, err error) {
	body := newError(c, http.StatusBadRequest, msgValidationFailed)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.ValidationErrors = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			body.ValidationErrors[jsonField(fe)] = fieldMessage(fe)
		}
	} else {
		body.Message = "Malformed request body"
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

func newError(c *gin.Context, status int, message string) Error {
	return Error{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      c.Request.URL.Path,
	}
}

// jsonField lower-cases the first letter of the struct field, which matches
// the camelCase request tags used by handlers.
func jsonField(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
