package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
	"chatrelay/pkg/utils"
)

// RegisterChats registers the conversation-list endpoint.
func RegisterChats(r *mux.Router) {
	r.HandleFunc("/chats/{username}", listChats).Methods(http.MethodGet)
}

// listChats returns one summary per counterpart the actor has exchanged
// messages with, most recently active conversation first.
func listChats(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	msgs, err := store.ListHistory(username, "", 0)
	if err != nil {
		logger.Error("chats_read_failed", "actor", username, "error", err)
		utils.JSONError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	// msgs come newest-first, so the first sighting of a counterpart is
	// that conversation's latest message
	seen := make(map[string]struct{})
	chats := make([]models.ChatSummary, 0)
	for _, m := range msgs {
		other := m.Receiver
		if other == username {
			other = m.Sender
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		chats = append(chats, models.ChatSummary{
			User:        other,
			LastMessage: m.Content,
			Timestamp:   m.Timestamp,
		})
	}
	_ = utils.JSONWrite(w, http.StatusOK, chats)
}
