package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rateshoplabs/rateshop/internal/freeship"
	quotedomain "github.com/rateshoplabs/rateshop/internal/quote/domain"
	"github.com/rateshoplabs/rateshop/internal/shipfile"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	"github.com/rateshoplabs/rateshop/internal/whitelist"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
)

type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func invalidRequestError() *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body or query could not be parsed",
	}
}

// AbortWithError maps domain errors onto the HTTP error envelope. All
// pricing errors are caller-recoverable, so they surface as 4xx with
// their taxonomy code intact.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	var report *shipfile.ValidationReport
	if errors.As(err, &report) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{
			"code":    "validation_error",
			"message": "import validation failed",
			"details": report.Errors,
		}})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, templatedomain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, quotedomain.ErrNoRateForCountry),
		errors.Is(err, quotedomain.ErrNoRateForZone),
		errors.Is(err, quotedomain.ErrNoRateForWeight),
		errors.Is(err, zonedomain.ErrNoZoneMapping):
		status, code = http.StatusNotFound, unwrapCode(err)
	case errors.Is(err, quotedomain.ErrInvalidWeight),
		errors.Is(err, shipfile.ErrMissingZoneMapping),
		isTemplateValidationError(err),
		isZoneValidationError(err),
		errors.Is(err, freeship.ErrInvalidCountryCode),
		errors.Is(err, whitelist.ErrInvalidCountryCode):
		status, code = http.StatusBadRequest, unwrapCode(err)
	}

	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
			"code":    code,
			"message": "internal error",
		}})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
		"code":    code,
		"message": err.Error(),
	}})
}

// unwrapCode walks to the sentinel so wrapped context ("no_rate_for_weight:
// US at 3.000 kg") still yields a stable machine code.
func unwrapCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func isTemplateValidationError(err error) bool {
	switch {
	case errors.Is(err, templatedomain.ErrInvalidMode),
		errors.Is(err, templatedomain.ErrInvalidCountryCode),
		errors.Is(err, templatedomain.ErrInvalidCarrier),
		errors.Is(err, templatedomain.ErrInvalidZone),
		errors.Is(err, templatedomain.ErrInvalidCurrency),
		errors.Is(err, templatedomain.ErrInvalidBracket),
		errors.Is(err, templatedomain.ErrDuplicateBracketKg),
		errors.Is(err, templatedomain.ErrOverlappingBands),
		errors.Is(err, templatedomain.ErrInvalidSurcharge):
		return true
	default:
		return false
	}
}

func isZoneValidationError(err error) bool {
	switch {
	case errors.Is(err, zonedomain.ErrInvalidCarrier),
		errors.Is(err, zonedomain.ErrInvalidMapping):
		return true
	default:
		return false
	}
}
