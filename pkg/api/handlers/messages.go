package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chatrelay/pkg/auth"
	"chatrelay/pkg/ingest"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
	"chatrelay/pkg/utils"
	"chatrelay/pkg/validation"
)

// RegisterMessages registers the message write and history read endpoints.
func RegisterMessages(r *mux.Router, pipe *ingest.Pipeline) {
	h := &messageHandlers{pipe: pipe}
	r.HandleFunc("/messages", h.createMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages/{username}", h.listHistory).Methods(http.MethodGet)
}

type messageHandlers struct {
	pipe *ingest.Pipeline
}

type sendRequest struct {
	Content  string `json:"content"`
	Receiver string `json:"receiver"`
}

// maxBodyBytes caps the message envelope; content length limits are enforced
// separately by validation.
const maxBodyBytes = 1 << 20

// createMessage persists one message and attempts live delivery. The response
// reflects persistence only; recipient connectivity never changes the status.
func (h *messageHandlers) createMessage(w http.ResponseWriter, r *http.Request) {
	sender := auth.Identity(r)
	if sender == "" {
		utils.JSONError(w, http.StatusUnauthorized, "identity header required")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			utils.JSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	m, err := h.pipe.Ingest(r.Context(), sender, req.Receiver, req.Content)
	if err != nil {
		var ve *validation.Error
		if errors.As(err, &ve) {
			utils.JSONError(w, http.StatusBadRequest, ve.Error())
			return
		}
		var pe *ingest.PersistenceError
		if errors.As(err, &pe) {
			logger.Error("message_persist_failed", "sender", sender, "error", err)
			utils.JSONError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	logger.Info("message_created", "id", m.ID, "sender", m.Sender, "receiver", m.Receiver)
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}

// listHistory returns persisted messages involving {username}, newest first.
// ?with= narrows to one conversation, ?limit= caps the result.
func (h *messageHandlers) listHistory(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	counterpart := r.URL.Query().Get("with")

	limit := 0
	if limStr := r.URL.Query().Get("limit"); limStr != "" {
		n, err := strconv.Atoi(limStr)
		if err != nil || n < 0 {
			utils.JSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	msgs, err := store.ListHistory(username, counterpart, limit)
	if err != nil {
		logger.Error("history_read_failed", "actor", username, "error", err)
		utils.JSONError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Messages []models.Message `json:"messages"`
	}{Messages: msgs})
}
