package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NotFoundError means a referenced entity does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError means required input is missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConflictReason identifies which state guard rejected the request.
type ConflictReason string

const (
	ConflictOrderAlreadyPaid      ConflictReason = "ORDER_ALREADY_PAID"
	ConflictDuplicateTransaction  ConflictReason = "DUPLICATE_TRANSACTION"
	ConflictTransactionTerminated ConflictReason = "TRANSACTION_TERMINAL"
)

// ConflictError means a state-machine guard was violated.
type ConflictError struct {
	Reason  ConflictReason
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(reason ConflictReason, message string) error {
	return &ConflictError{Reason: reason, Message: message}
}

// StatusFor maps a domain error to its HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	var notFound *NotFoundError
	var validation *ValidationError
	var conflict *ConflictError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusExpectationFailed
	case errors.As(err, &conflict):
		switch conflict.Reason {
		case ConflictDuplicateTransaction:
			return http.StatusForbidden
		case ConflictOrderAlreadyPaid, ConflictTransactionTerminated:
			return http.StatusExpectationFailed
		}
		return http.StatusExpectationFailed
	}
	return http.StatusInternalServerError
}

// SendDomainError logs err with the operation name and writes the matching error envelope.
// Unexpected errors are answered with a generic message.
func SendDomainError(c echo.Context, logger *zap.Logger, operation string, err error) error {
	status := StatusFor(err)

	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("operation", operation),
			zap.String("request_id", RequestID(c)),
			zap.Error(err),
		)
		return SendServerError(c, SecureErrorMessage(operation, err).Error())
	}

	logger.Info("request rejected",
		zap.String("operation", operation),
		zap.String("request_id", RequestID(c)),
		zap.Int("status", status),
		zap.Error(err),
	)

	var conflict *ConflictError
	switch {
	case status == http.StatusNotFound:
		return c.JSON(status, CreateErrorResponse("NOT_FOUND", err.Error(), nil))
	case errors.As(err, &conflict):
		return c.JSON(status, CreateErrorResponse(string(conflict.Reason), conflict.Message, nil))
	default:
		var validation *ValidationError
		var details map[string]string
		if errors.As(err, &validation) && validation.Field != "" {
			details = map[string]string{validation.Field: validation.Message}
		}
		return c.JSON(status, CreateErrorResponse("VALIDATION_ERROR", err.Error(), details))
	}
}
