package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatrelay/pkg/registry"
	"chatrelay/pkg/utils"
)

// RegisterUsers registers the presence read endpoint.
func RegisterUsers(r *mux.Router, reg *registry.Registry) {
	r.HandleFunc("/users/online", func(w http.ResponseWriter, _ *http.Request) {
		_ = utils.JSONWrite(w, http.StatusOK, struct {
			Users []string `json:"users"`
		}{Users: reg.Snapshot()})
	}).Methods(http.MethodGet)
}
