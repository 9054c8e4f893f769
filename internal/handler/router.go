package handler

import (
	"net/http"

	"pdf-signer/internal/domain"
	"pdf-signer/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Handlers groups the route handlers. Blob may be nil when blobs are not served
// by this process.
type Handlers struct {
	Session   *SessionHandler
	Document  *DocumentHandler
	Signature *SignatureHandler
	Blob      *BlobHandler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(sessions *service.SessionService, h Handlers, limiter *RateLimiter, allowedOrigins []string, logger domain.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(RequestLogger(logger))

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "pdf-signer"})
	}).Methods("GET")

	// API prefix
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(limiter.Middleware)

	if h.Blob != nil {
		api.HandleFunc("/blobs/{bucket}/{name}", h.Blob.GetBlob).Methods("GET")
	}

	api.HandleFunc("/sessions", h.Session.CreateSession).Methods("POST")

	// Session-scoped routes
	scoped := api.PathPrefix("/sessions/{sid}").Subrouter()
	scoped.Use(SessionMiddleware(sessions))

	scoped.HandleFunc("", h.Session.GetSession).Methods("GET")
	scoped.HandleFunc("", h.Session.DeleteSession).Methods("DELETE")
	scoped.HandleFunc("/events", h.Session.Events).Methods("GET")

	scoped.HandleFunc("/document", h.Document.UploadDocument).Methods("POST")
	scoped.HandleFunc("/pages/{page:[0-9]+}/render", h.Document.RenderPage).Methods("GET")
	scoped.HandleFunc("/sign", h.Document.SignDocument).Methods("POST")

	scoped.HandleFunc("/signatures", h.Signature.ListSignatures).Methods("GET")
	scoped.HandleFunc("/signatures", h.Signature.UploadSignature).Methods("POST")
	scoped.HandleFunc("/signatures/drawn", h.Signature.AddDrawnSignature).Methods("POST")
	scoped.HandleFunc("/signatures/{id}", h.Signature.MoveSignature).Methods("PATCH")
	scoped.HandleFunc("/signatures/{id}", h.Signature.DeleteSignature).Methods("DELETE")
	scoped.HandleFunc("/signatures/{id}/place", h.Signature.PlaceSignature).Methods("POST")
	scoped.HandleFunc("/signatures/{id}/drag/start", h.Signature.StartDrag).Methods("POST")
	scoped.HandleFunc("/signatures/{id}/drag/move", h.Signature.DragMove).Methods("POST")
	scoped.HandleFunc("/signatures/{id}/drag/end", h.Signature.EndDrag).Methods("POST")
	scoped.HandleFunc("/signatures/{id}/reorder", h.Signature.ReorderSignature).Methods("POST")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"X-Page-Width",
			"X-Page-Height",
			"X-Render-Scale",
		},
		MaxAge: 300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
