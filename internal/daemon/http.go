package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/zing-audio/zing/internal/notemap"
	"github.com/zing-audio/zing/internal/protocol"
)

// DefaultChordDuration is the time base used when a play request names none.
const DefaultChordDuration = 100 * time.Millisecond

const maxRequestBytes = 1 << 20

type PlayRequest struct {
	Notemap       string `json:"notemap"`
	ChordDuration string `json:"chord_duration,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

type httpHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewHTTPHandler exposes the transport commands and the session status over
// HTTP. Browser requests are only served for the listed origins; requests
// without an Origin header (curl, scripts) are always served.
func NewHTTPHandler(d Dispatcher, origins []string, logger *slog.Logger) http.Handler {
	h := &httpHandler{dispatcher: d, logger: logger}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/play", h.handlePlay).Methods(http.MethodPost)
	router.HandleFunc("/stop", h.command(protocol.Stop())).Methods(http.MethodPost)
	router.HandleFunc("/pause", h.command(protocol.Pause())).Methods(http.MethodPost)
	router.HandleFunc("/resume", h.command(protocol.Resume())).Methods(http.MethodPost)
	router.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)

	guarded := h.checkOrigin(origins, router)
	if len(origins) == 0 {
		return guarded
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(guarded)
}

// checkOrigin rejects any request whose Origin header is not in origins.
func (h *httpHandler) checkOrigin(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && !allowed[origin] {
			h.writeError(w, http.StatusForbidden, fmt.Errorf("origin %q not allowed", origin))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *httpHandler) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("could not decode request body: %w", err))
		return
	}

	chordDuration := DefaultChordDuration
	if req.ChordDuration != "" {
		d, err := time.ParseDuration(req.ChordDuration)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid chord_duration: %w", err))
			return
		}
		chordDuration = d
	}

	chords, err := notemap.Compile(req.Notemap, chordDuration)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := protocol.NewPlayData(chordDuration, chords)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	h.dispatcher.HandleCommand(protocol.Play(data))
	h.writeJSON(w, http.StatusAccepted, h.dispatcher.Status())
}

func (h *httpHandler) command(cmd protocol.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.dispatcher.HandleCommand(cmd)
		h.writeJSON(w, http.StatusAccepted, h.dispatcher.Status())
	}
}

func (h *httpHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.dispatcher.Status())
}

func (h *httpHandler) writeError(w http.ResponseWriter, code int, err error) {
	h.logger.Debug("rejected http request", "status", code, "err", err)
	h.writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func (h *httpHandler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("could not write response", "err", err)
	}
}
