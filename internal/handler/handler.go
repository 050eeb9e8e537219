// Package handler implements the checkout HTTP API.
package handler

import (
	"net/http"

	"github.com/xenking/bouquet-checkout/internal/domain/auth"
	"github.com/xenking/bouquet-checkout/internal/domain/catalog"
	"github.com/xenking/bouquet-checkout/internal/domain/checkout"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	ImageBaseURL string
	// Instrument wraps every route, e.g. with tracing. Optional.
	Instrument func(route string, h http.Handler) http.Handler
}

// Handler serves products and checkout sessions.
type Handler struct {
	catalog  *catalog.Lookup
	checkout *checkout.Service
	auth     *auth.Authenticator

	imageBaseURL string
	instrument   func(route string, h http.Handler) http.Handler
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products *catalog.Lookup,
	svc *checkout.Service,
	authenticator *auth.Authenticator,
) *Handler {
	h := &Handler{
		catalog:      products,
		checkout:     svc,
		auth:         authenticator,
		imageBaseURL: cfg.ImageBaseURL,
		instrument:   cfg.Instrument,
	}
	if h.instrument == nil {
		h.instrument = func(_ string, next http.Handler) http.Handler { return next }
	}
	return h
}

// Register adds all API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		fn      http.HandlerFunc
	}{
		{"GET /api/products", h.ListProducts},
		{"GET /api/products/{id}", h.GetProduct},

		{"POST /api/sessions", h.CreateSession},
		{"GET /api/sessions/{id}", h.GetSession},
		{"POST /api/sessions/{id}/items", h.AddItem},
		{"PUT /api/sessions/{id}/items/{itemId}", h.SetQuantity},
		{"PUT /api/sessions/{id}/coupon", h.ApplyCoupon},
		{"DELETE /api/sessions/{id}/coupon", h.RemoveCoupon},

		{"GET /api/sessions/{id}/calendar", h.GetCalendar},
		{"POST /api/sessions/{id}/calendar/next", h.NextMonth},
		{"POST /api/sessions/{id}/calendar/prev", h.PrevMonth},
		{"PUT /api/sessions/{id}/delivery/date", h.SelectDate},
		{"PUT /api/sessions/{id}/delivery/slot", h.SelectSlot},
		{"POST /api/sessions/{id}/delivery/same-day", h.ToggleSameDay},

		{"PUT /api/sessions/{id}/address", h.SetAddress},
		{"POST /api/sessions/{id}/location", h.UseCurrentLocation},

		{"POST /api/sessions/{id}/order", h.requireAPIKey(auth.ScopePlaceOrder, h.PlaceOrder)},
	}
	for _, r := range routes {
		mux.Handle(r.pattern, h.instrument(r.pattern, r.fn))
	}
}
