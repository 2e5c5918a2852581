package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/summa/internal/api/shared"
	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/store"
)

const unexpectedErrorMessage = "An unexpected error occurred"

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the errors themselves to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDocID),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, domain.ErrTextUnavailable):
		return http.StatusUnprocessableEntity

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that does not
// leak internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return unexpectedErrorMessage
	}

	switch {
	case errors.Is(err, domain.ErrInvalidDocID):
		return "Invalid document ID"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"

	case errors.Is(err, store.ErrSummaryNotFound):
		return "Summary not found"

	case errors.Is(err, store.ErrDocumentNotFound):
		return "Document not found"

	case errors.Is(err, store.ErrJobNotFound):
		return "Job not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrActiveJobExists):
		return "A summary is already being generated for this document"

	case errors.Is(err, domain.ErrTextUnavailable):
		return "Document text is not available"

	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out"

	default:
		return unexpectedErrorMessage
	}
}

// SanitizeValidationError turns a validator error into a short message that
// names the offending field.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example: "Key: 'TriggerQuery.ConnectionID' Error:Field validation for 'ConnectionID' failed on the 'max' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "max":
		return "too long"
	case "printascii", "excludesall":
		return "contains invalid characters"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. defaultMsg replaces the
// generic message for errors that have no specific one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if message == unexpectedErrorMessage && defaultMsg != "" {
		message = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
