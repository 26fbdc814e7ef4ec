package handle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"math-bot/api/internal/util"
)

type RecognizeRequest struct {
	ImageB64 string `json:"image_b64"`
	Mime     string `json:"mime,omitempty"`
}

type RecognizeResponse struct {
	Equation string `json:"equation"`
	Found    bool   `json:"found"`
}

func (h *Handle) Recognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if h.recognizer == nil {
		http.Error(w, "recognition is not configured", http.StatusNotImplemented)
		return
	}
	var req RecognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	img, hint, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
	if err != nil || len(img) == 0 {
		http.Error(w, "bad image_b64", http.StatusBadRequest)
		return
	}
	if mime := util.PickMIME(req.Mime, hint, img); !strings.HasPrefix(mime, "image/") {
		http.Error(w, "unsupported mime "+mime, http.StatusUnsupportedMediaType)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	eq, err := h.recognizer.Recognize(ctx, img)
	if err != nil {
		slog.Error("recognize failed", "bytes", len(img), "error", err)
		http.Error(w, "recognize error: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, RecognizeResponse{Equation: eq, Found: eq != ""})
}
