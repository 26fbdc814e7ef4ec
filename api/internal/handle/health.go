package handle

import (
	"context"
	"net/http"
	"time"
)

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "db: " + err.Error()})
			return
		}
	}
	_, _ = w.Write([]byte("ok"))
}
