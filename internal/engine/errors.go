package engine

import (
	"fmt"
	"strings"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

// NotFoundError is returned both when the id does not exist and when it
// belongs to another tenant. The two cases are indistinguishable on the
// wire so tenants cannot probe each other's record ids.
func NotFoundError(entity, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

func ValidationError(details []ErrorDetail) *AppError {
	msgs := make([]string, len(details))
	for i, d := range details {
		msgs[i] = d.Message
	}
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  400,
		Message: strings.Join(msgs, "; "),
		Details: details,
	}
}

// FieldValidationError joins custom-field error messages into one 400.
func FieldValidationError(errs []string) *AppError {
	details := make([]ErrorDetail, len(errs))
	for i, msg := range errs {
		details[i] = ErrorDetail{Rule: "custom_field", Message: msg}
	}
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  400,
		Message: strings.Join(errs, "; "),
		Details: details,
	}
}

func UnsupportedObjectTypeError(name string) *AppError {
	return &AppError{
		Code:    "UNSUPPORTED_OBJECT_TYPE",
		Status:  400,
		Message: fmt.Sprintf("Unsupported object type: %s", name),
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}
