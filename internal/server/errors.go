package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	cartdomain "github.com/smallbiznis/vendora/internal/cart/domain"
	checkoutdomain "github.com/smallbiznis/vendora/internal/checkout/domain"
	customerdomain "github.com/smallbiznis/vendora/internal/customer/domain"
	identitydomain "github.com/smallbiznis/vendora/internal/identity/domain"
	ledgerdomain "github.com/smallbiznis/vendora/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	productdomain "github.com/smallbiznis/vendora/internal/product/domain"
	storefrontdomain "github.com/smallbiznis/vendora/internal/storefront/domain"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	"github.com/smallbiznis/vendora/internal/authorization"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
	"gorm.io/gorm"
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
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
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
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isInvalidStateError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_state",
			Message: err.Error(),
		}
	case errors.Is(err, ledgerdomain.ErrInsufficientFunds):
		// The message carries the computed balance to aid the caller.
		return http.StatusBadRequest, errorPayload{
			Type:    "insufficient_funds",
			Message: err.Error(),
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identitydomain.ErrInvalidCredentials),
		errors.Is(err, identitydomain.ErrInvalidSession),
		errors.Is(err, identitydomain.ErrSessionExpired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, identitydomain.ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidVendor):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
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
		errors.Is(err, identitydomain.ErrInvalidEmail),
		errors.Is(err, identitydomain.ErrInvalidPassword),
		errors.Is(err, vendordomain.ErrInvalidCompanyName),
		errors.Is(err, vendordomain.ErrInvalidUser),
		errors.Is(err, vendordomain.ErrInvalidStatus),
		errors.Is(err, storefrontdomain.ErrInvalidHostname),
		errors.Is(err, productdomain.ErrInvalidName),
		errors.Is(err, productdomain.ErrInvalidPrice),
		errors.Is(err, cartdomain.ErrInvalidQuantity),
		errors.Is(err, checkoutdomain.ErrInvalidEmail),
		errors.Is(err, checkoutdomain.ErrMissingPaymentMethod),
		errors.Is(err, orderdomain.ErrInvalidStatus),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidGranularity),
		errors.Is(err, subscriptiondomain.ErrInvalidName),
		errors.Is(err, subscriptiondomain.ErrInvalidPrice),
		errors.Is(err, subscriptiondomain.ErrInvalidInterval):
		return true
	default:
		return false
	}
}

func isInvalidStateError(err error) bool {
	switch {
	case errors.Is(err, checkoutdomain.ErrEmptyCart),
		errors.Is(err, checkoutdomain.ErrAlreadyPaid),
		errors.Is(err, ledgerdomain.ErrOverRefund),
		errors.Is(err, ledgerdomain.ErrPayoutNotPending),
		errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, subscriptiondomain.ErrNoPlanAssigned):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, identitydomain.ErrUserExists),
		errors.Is(err, vendordomain.ErrVendorExists),
		errors.Is(err, storefrontdomain.ErrDomainExists),
		errors.Is(err, subscriptiondomain.ErrPlanExists),
		errors.Is(err, ledgerdomain.ErrPayoutConflict):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, identitydomain.ErrUserNotFound),
		errors.Is(err, vendordomain.ErrNotFound),
		errors.Is(err, storefrontdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, cartdomain.ErrCartNotFound),
		errors.Is(err, cartdomain.ErrItemNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrTransactionMissing),
		errors.Is(err, ledgerdomain.ErrPayoutMissing),
		errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasPrefix(code, "missing_") {
		return strings.TrimPrefix(code, "missing_")
	}
	return ""
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal", payload.Type
	}
	return "client", payload.Type
}
