// Package handle содержит HTTP API бота: решение уравнения, распознавание
// фото и проверку живости.
package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"math-bot/api/internal/llm"
	"math-bot/api/internal/ocr"
	"math-bot/api/internal/solver"
)

// Pinger: то, чем проверяется база (*sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handle struct {
	providers  *llm.Manager
	recognizer ocr.Recognizer
	rec        solver.Recorder
	db         Pinger
	timeout    time.Duration
}

type Option func(*Handle)

func WithRecognizer(r ocr.Recognizer) Option { return func(h *Handle) { h.recognizer = r } }
func WithRecorder(r solver.Recorder) Option  { return func(h *Handle) { h.rec = r } }
func WithDB(db Pinger) Option                { return func(h *Handle) { h.db = db } }
func WithTimeout(d time.Duration) Option     { return func(h *Handle) { h.timeout = d } }

func New(providers *llm.Manager, opts ...Option) *Handle {
	h := &Handle{providers: providers, timeout: 3 * time.Minute}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes регистрирует обработчики на mux.
func (h *Handle) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/solve", h.Solve)
	mux.HandleFunc("/v1/recognize", h.Recognize)
	mux.HandleFunc("/healthz", h.Healthz)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
