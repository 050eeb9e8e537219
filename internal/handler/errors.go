package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bouquet-checkout/internal/domain/address"
	"github.com/xenking/bouquet-checkout/internal/domain/auth"
	"github.com/xenking/bouquet-checkout/internal/domain/catalog"
	"github.com/xenking/bouquet-checkout/internal/domain/checkout"
	"github.com/xenking/bouquet-checkout/internal/domain/coupon"
	"github.com/xenking/bouquet-checkout/internal/domain/delivery"
)

// statusOf maps domain errors to HTTP status codes. Unknown errors are 500.
func statusOf(err error) int {
	var (
		reqErr  *requestError
		dateErr *delivery.InvalidDateError
	)
	switch {
	case errors.As(err, &reqErr),
		errors.As(err, &dateErr),
		errors.Is(err, delivery.ErrUnknownSlot):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrConfirmationRequired),
		errors.Is(err, checkout.ErrOrderPlaced),
		errors.Is(err, address.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponUsageLimitReached),
		errors.Is(err, delivery.ErrSameDayCutoff),
		errors.Is(err, delivery.ErrDateInPast),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrAddressRequired),
		errors.Is(err, address.ErrLocationUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a {"code", "message"} body. Internal errors are logged
// and their details hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	if status == http.StatusUnauthorized {
		msg = "unauthorized"
	}

	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}
