package api

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/api/recovery"
	"github.com/devshelf/devshelf/internal/facade"
)

// NewRouter mounts every route of the service. The actor RPC surface lives
// at the root; listing, search and user routes sit alongside it.
func NewRouter(f *facade.Facade, partition string, log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()

	router.Use(recovery.Middleware)
	router.Use(RequestID(log))

	resources := NewResourceHandler(f, partition)
	users := NewUserHandler(f)
	health := NewHealthHandler()

	router.HandleFunc("/health", health.CheckHealth).Methods("GET")

	// Actor RPC surface
	router.HandleFunc("/submit", resources.Submit).Methods("POST")
	router.HandleFunc("/refresh", resources.Refresh).Methods("POST")
	router.HandleFunc("/details", resources.GetDetails).Methods("GET")
	router.HandleFunc("/view", resources.View).Methods("PUT")
	router.HandleFunc("/bookmark", resources.Bookmark).Methods("PUT")
	router.HandleFunc("/bookmark", resources.Unbookmark).Methods("DELETE")
	router.HandleFunc("/backup", resources.Backup).Methods("POST")
	router.HandleFunc("/restore", resources.Restore).Methods("POST")

	// Listing and search
	router.HandleFunc("/resources", resources.List).Methods("GET")
	router.HandleFunc("/search", resources.Search).Methods("GET")

	// Users
	router.HandleFunc("/users", users.List).Methods("GET")
	router.HandleFunc("/users/{userId}", users.Get).Methods("GET")
	router.HandleFunc("/users/{userId}/backup", users.Backup).Methods("POST")
	router.HandleFunc("/users/{userId}/restore", users.Restore).Methods("POST")

	return router
}
