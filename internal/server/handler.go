// internal/server/handler.go
package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/signalnine/vintel/internal/protocol"
)

const (
	defaultMessages = 50
	maxMessages     = 1000
	maxKOSBody      = 64 << 10
)

// State is the read side of the intel tracker
type State interface {
	Snapshot(all bool) protocol.Snapshot
	Messages(limit int) []*protocol.Message
}

// AvatarStore returns cached portraits
type AvatarStore interface {
	GetAvatar(name string) ([]byte, bool, error)
}

// KOSSubmitter queues KOS checks
type KOSSubmitter interface {
	Submit(names []string, requestType string, onlyKOS bool) string
}

// Handler serves the status API
type Handler struct {
	state   State
	avatars AvatarStore
	kos     KOSSubmitter
	apiKey  string
	mux     *http.ServeMux
}

// NewHandler creates the API handler. avatars and kos may be nil; the
// matching routes then answer 404 and 503.
func NewHandler(state State, avatars AvatarStore, kos KOSSubmitter, apiKey string) *Handler {
	h := &Handler{
		state:   state,
		avatars: avatars,
		kos:     kos,
		apiKey:  apiKey,
		mux:     http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	h.mux.HandleFunc("GET /systems", h.authed(h.systems))
	h.mux.HandleFunc("GET /messages", h.authed(h.messages))
	h.mux.HandleFunc("GET /avatars/{name}", h.authed(h.avatar))
	h.mux.HandleFunc("POST /kos", h.authed(h.kosCheck))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.apiKey != "" {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != h.apiKey {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (h *Handler) systems(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") != ""
	writeJSON(w, h.state.Snapshot(all))
}

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	limit := defaultMessages
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > maxMessages {
		limit = maxMessages
	}
	writeJSON(w, h.state.Messages(limit))
}

func (h *Handler) avatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		http.NotFound(w, r)
		return
	}
	data, ok, err := h.avatars.GetAvatar(r.PathValue("name"))
	if err != nil {
		log.Printf("Avatar read error: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}

func (h *Handler) kosCheck(w http.ResponseWriter, r *http.Request) {
	if h.kos == nil {
		http.Error(w, "KOS checks disabled", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxKOSBody+1))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxKOSBody {
		http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
		return
	}

	var req struct {
		Names   []string `json:"names"`
		OnlyKOS bool     `json:"only_kos"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	var names []string
	for _, n := range req.Names {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		http.Error(w, "No names", http.StatusBadRequest)
		return
	}

	id := h.kos.Submit(names, "clipboard", req.OnlyKOS)
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "queued", "id": id})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encode response: %v", err)
	}
}
