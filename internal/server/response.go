package server

import (
	"errors"
	"net/http"
	"strconv"

	entitlementdomain "github.com/accordhq/accord/internal/entitlement/domain"
	invoicedomain "github.com/accordhq/accord/internal/invoice/domain"
	moderationdomain "github.com/accordhq/accord/internal/moderation/domain"
	"github.com/accordhq/accord/internal/pricing"
	"github.com/gin-gonic/gin"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// AbortWithError maps domain sentinels to HTTP statuses. Anything not in
// the map is an internal error; its message never reaches the caller.
func AbortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pricing.ErrPlanUnknown),
		errors.Is(err, invoicedomain.ErrInvalidToken),
		errors.Is(err, invoicedomain.ErrGroupRequired),
		errors.Is(err, invoicedomain.ErrOwnerMismatch),
		errors.Is(err, invoicedomain.ErrAmountMismatch),
		errors.Is(err, moderationdomain.ErrInvalidThresholds):
		status = http.StatusBadRequest
	case errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, entitlementdomain.ErrGroupNotFound),
		errors.Is(err, entitlementdomain.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, invoicedomain.ErrInvoiceAlreadySettled),
		errors.Is(err, invoicedomain.ErrInvoiceNotPending):
		status = http.StatusConflict
	case errors.Is(err, invoicedomain.ErrInvoiceExpired):
		status = http.StatusGone
	case errors.Is(err, ErrRateLimited):
		status = http.StatusTooManyRequests
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal_error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func atoiQuery(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ErrInvalidRequest
	}
	return n, nil
}
