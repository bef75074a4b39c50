// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/inventara/inventara/app/dto"
	businessflow "github.com/inventara/inventara/business_flow"
)

// statusForCode maps business error codes onto HTTP status codes. Codes
// absent from the map are treated as internal failures.
var statusForCode = map[string]int{
	"VALIDATION_ERROR":          fiber.StatusBadRequest,
	"ID_FORMAT_INVALID":         fiber.StatusBadRequest,
	"GENERATED_ID_TOO_LONG":     fiber.StatusBadRequest,
	"INCORRECT_PASSWORD":        fiber.StatusUnauthorized,
	"REFRESH_FAILED":            fiber.StatusUnauthorized,
	"ACCOUNT_BLOCKED":           fiber.StatusForbidden,
	"INVENTORY_ACCESS_DENIED":   fiber.StatusForbidden,
	"OWNER_NOT_ASSIGNABLE":      fiber.StatusForbidden,
	"DISCUSSION_DELETE_DENIED":  fiber.StatusForbidden,
	"USER_NOT_FOUND":            fiber.StatusNotFound,
	"INVENTORY_NOT_FOUND":       fiber.StatusNotFound,
	"ITEM_NOT_FOUND":            fiber.StatusNotFound,
	"DISCUSSION_POST_NOT_FOUND": fiber.StatusNotFound,
	"GRANT_NOT_FOUND":           fiber.StatusNotFound,
	"CATEGORY_NOT_FOUND":        fiber.StatusNotFound,
	"EMAIL_ALREADY_EXISTS":      fiber.StatusConflict,
	"VERSION_CONFLICT":          fiber.StatusConflict,
}

func errorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func successResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// businessErrorResponse translates a flow error into an API response. Business
// errors carry their own code and message; anything else is reported as an
// opaque internal failure.
func businessErrorResponse(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	var bizErr *businessflow.BusinessError
	if errors.As(err, &bizErr) {
		status, ok := statusForCode[bizErr.Code]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		return errorResponse(c, status, bizErr.Message, bizErr.Code, nil)
	}
	return errorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

func validationErrorResponse(c fiber.Ctx, err error) error {
	var validationErrors []string
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		for _, fieldErr := range fieldErrors {
			validationErrors = append(validationErrors, getValidationErrorMessage(fieldErr))
		}
	} else {
		validationErrors = append(validationErrors, err.Error())
	}
	return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "uuid4":
		return err.Field() + " must be a valid UUID"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// requestContext creates a context with a request timeout and request-scoped
// values for observability
func requestContext(c fiber.Ctx, endpoint string) context.Context {
	return requestContextWithTimeout(c, endpoint, 30*time.Second)
}

func requestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "timeout", timeout)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}

// clientMetadata assembles per-request client information for audit logging
func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if requestID := c.Get("X-Request-ID"); requestID != "" {
		metadata.SetRequestID(requestID)
	}
	return metadata
}
