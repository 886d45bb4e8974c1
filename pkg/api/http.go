// Package api assembles the JSON read/write surface under /v1.
package api

import (
	"github.com/gorilla/mux"

	"chatrelay/pkg/api/handlers"
	"chatrelay/pkg/ingest"
	"chatrelay/pkg/registry"
)

// Register mounts the v1 endpoints onto r (expected to be the /v1 subrouter).
func Register(r *mux.Router, reg *registry.Registry, pipe *ingest.Pipeline) {
	handlers.RegisterMessages(r, pipe)
	handlers.RegisterUsers(r, reg)
	handlers.RegisterChats(r)
}
