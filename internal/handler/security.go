package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// HeaderAPIKey carries the administrator key.
const HeaderAPIKey = "api_key"

// requireAPIKey rejects requests whose api_key header does not verify.
func (h *Handler) requireAPIKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.keys.Verify(r.Header.Get(HeaderAPIKey)); err != nil {
			zctx.From(r.Context()).Warn("Admin request rejected",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			writeError(w, r, err)
			return
		}
		next(w, r)
	})
}
