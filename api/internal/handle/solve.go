package handle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"math-bot/api/internal/llm"
	"math-bot/api/internal/solver"
	"math-bot/api/internal/util"
)

type SolveRequest struct {
	Problem  string `json:"problem"`
	Provider string `json:"provider"`
}

type SolveResponse struct {
	*solver.Result
	Provider string `json:"provider"`
	Text     string `json:"text"`
}

func (h *Handle) Solve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	problem := util.StripDollars(req.Problem)
	if problem == "" {
		http.Error(w, "problem is required", http.StatusBadRequest)
		return
	}

	p := h.providers.Default()
	if name := strings.TrimSpace(req.Provider); name != "" {
		var ok bool
		if p, ok = h.providers.Lookup(name); !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown provider " + name})
			return
		}
	}
	strategy, err := solver.ForProvider(p, h.rec)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := strategy.Solve(ctx, problem)
	if err != nil {
		kind := llm.KindOf(err)
		code := http.StatusBadGateway
		if kind == llm.KindTimeout {
			code = http.StatusGatewayTimeout
		}
		slog.Error("solve failed", "provider", p.Name, "kind", kind.String(), "error", err)
		writeJSON(w, code, errorResponse{Error: err.Error(), Kind: kind.String()})
		return
	}
	writeJSON(w, http.StatusOK, SolveResponse{Result: res, Provider: p.Name, Text: res.Text()})
}
