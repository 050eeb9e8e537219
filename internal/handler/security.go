package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// HeaderAPIKey carries the client's API key.
const HeaderAPIKey = "api_key"

// requireAPIKey rejects requests whose api_key header does not grant scope.
func (h *Handler) requireAPIKey(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := h.auth.Authenticate(r.Context(), r.Header.Get(HeaderAPIKey), scope)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := zctx.With(r.Context(), zap.String("api_key_id", info.ID))
		next(w, r.WithContext(ctx))
	}
}
