// Package admin exposes the engine's administrative surface over
// HTTP: aggregate stats, the full user list with block flags, the
// message log, block/unblock, system broadcast and full reset. Access
// is gated by the admin code, exchanged for a short-lived token.
package admin

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/calcvault/core/internal/engine"
	"github.com/calcvault/core/pkg/logger"
)

const tokenTTL = 24 * time.Hour

type Handler struct {
	engine    *engine.Engine
	adminCode string
	jwtSecret []byte
}

func NewHandler(e *engine.Engine, adminCode, jwtSecret string) *Handler {
	return &Handler{
		engine:    e,
		adminCode: adminCode,
		jwtSecret: []byte(jwtSecret),
	}
}

// Routes mounts the admin API under /api/v1/admin.
func (h *Handler) Routes(r *mux.Router) {
	api := r.PathPrefix("/api/v1/admin").Subrouter()
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(h.auth)
	protected.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
	protected.HandleFunc("/users", h.Users).Methods(http.MethodGet)
	protected.HandleFunc("/messages", h.Messages).Methods(http.MethodGet)
	protected.HandleFunc("/users/{name}/block", h.Block).Methods(http.MethodPost)
	protected.HandleFunc("/users/{name}/unblock", h.Unblock).Methods(http.MethodPost)
	protected.HandleFunc("/broadcast", h.Broadcast).Methods(http.MethodPost)
	protected.HandleFunc("/reset", h.Reset).Methods(http.MethodPost)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(input.Code), []byte(h.adminCode)) != 1 {
		writeError(w, http.StatusUnauthorized, "INVALID_CODE", "Invalid admin code")
		return
	}

	claims := jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(tokenTTL).Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		logger.Error().Err(err).Msg("admin: signing token")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Stats())
}

func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users := h.engine.AllUsers()
	if users == nil {
		users = []engine.AdminUser{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.AllMessages())
}

func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "Username is required")
		return
	}
	h.engine.Block(name)
	writeJSON(w, http.StatusOK, map[string]bool{"blocked": true})
}

func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "Username is required")
		return
	}
	h.engine.Unblock(name)
	writeJSON(w, http.StatusOK, map[string]bool{"blocked": false})
}

func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if input.Message == "" {
		writeError(w, http.StatusBadRequest, "MISSING_MESSAGE", "Message is required")
		return
	}

	msg := h.engine.SystemBroadcast(input.Message)
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reset(); err != nil {
		logger.Error().Err(err).Msg("admin: reset failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("admin: encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
