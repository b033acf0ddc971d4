package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/snapcount/internal/export"
	"github.com/smallbiznis/snapcount/internal/intake"
	ledgerdomain "github.com/smallbiznis/snapcount/internal/ledger/domain"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	profiledomain "github.com/smallbiznis/snapcount/internal/profile/domain"
	sessiondomain "github.com/smallbiznis/snapcount/internal/session/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, sessiondomain.ErrEstimationInFlight),
		errors.Is(err, sessiondomain.ErrWrongView):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isPreconditionError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "precondition_failed",
			Message: err.Error(),
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, export.ErrNoProfile):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, nutritiondomain.ErrTransport):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: nutritiondomain.MessageTransportFailure,
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the response type and error code for request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if err != nil && payload.Type != "internal_error" {
		code = err.Error()
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, nutritiondomain.ErrInvalidRequest),
		errors.Is(err, sessiondomain.ErrEmptyDescription),
		errors.Is(err, ledgerdomain.ErrInvalidDraft):
		return true
	case profiledomain.IsValidationError(err),
		isIntakeError(err):
		return true
	default:
		return false
	}
}

func isIntakeError(err error) bool {
	return errors.Is(err, intake.ErrEmptyImage) ||
		errors.Is(err, intake.ErrUnsupportedType) ||
		errors.Is(err, intake.ErrImageTooLarge)
}

func isPreconditionError(err error) bool {
	return errors.Is(err, sessiondomain.ErrNoProfile) ||
		errors.Is(err, sessiondomain.ErrNoDraft) ||
		errors.Is(err, sessiondomain.ErrNoImage)
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, nutritiondomain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, sessiondomain.ErrEmptyDescription):
		return sessiondomain.ErrEmptyDescription.Error()
	case isIntakeError(err):
		for _, target := range []error{intake.ErrEmptyImage, intake.ErrUnsupportedType, intake.ErrImageTooLarge} {
			if errors.Is(err, target) {
				return target.Error()
			}
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	switch {
	case code == "invalid_request":
		return "request"
	case code == "invalid_draft":
		return "draft"
	case strings.HasPrefix(code, "invalid_"):
		return strings.TrimPrefix(code, "invalid_")
	case strings.HasPrefix(code, "image_"):
		return "image"
	case code == "empty_description":
		return "description"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "image_empty":
		return "image is empty"
	case "image_type_unsupported":
		return "Please select an image file"
	case "image_too_large":
		return "image exceeds the maximum upload size"
	case "empty_description":
		return "description is required"
	default:
		return "invalid value"
	}
}
