package errors

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

type ValidationError struct {
	fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := e.keys()
	parts := make([]string, len(keys))
	for i, field := range keys {
		parts[i] = fmt.Sprintf("%s %s", field, e.fields[field])
	}
	return "validation errors: " + strings.Join(parts, "; ")
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{fields}
}

func (e *ValidationError) Fields() map[string]string {
	return e.fields
}

func (e *ValidationError) keys() []string {
	keys := make([]string, 0, len(e.fields))
	for field := range e.fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	return keys
}

func (e *ValidationError) ProblemDetails() *huma.ErrorModel {
	errors := make([]*huma.ErrorDetail, 0, len(e.fields))
	for _, field := range e.keys() {
		errors = append(errors, &huma.ErrorDetail{
			Message:  e.fields[field],
			Location: field,
		})
	}
	return &huma.ErrorModel{
		Title:  http.StatusText(http.StatusBadRequest),
		Status: http.StatusBadRequest,
		Detail: "Validation failed",
		Errors: errors,
	}
}

type InternalError struct {
	message string
	values  []any
}

func (e *InternalError) Error() string {
	if len(e.values) == 0 {
		return e.message
	}
	return fmt.Sprintf(e.message, e.values...)
}

func NewInternalError(message string, values ...any) *InternalError {
	return &InternalError{message, values}
}
