package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ithaca/internal/game"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *game.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Journal.
	r.Route("/entries", func(r chi.Router) {
		r.Get("/", h.ListEntries)
		r.Post("/", h.CreateEntry)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEntry)
			r.Get("/html", h.ReadEntry)
			r.Put("/", h.UpdateEntry)
			r.Delete("/", h.DeleteEntry)
			r.Post("/confirm", h.ConfirmEntry)
			r.Post("/trash", h.TrashEntry)
			r.Post("/restore", h.RestoreEntry)
			r.Post("/notebooks/{notebook}", h.ToggleNotebook)
		})
	})
	r.Get("/trash", h.ListTrash)
	r.Delete("/trash", h.EmptyTrash)
	r.Get("/search", h.Search)

	// Progress and story.
	r.Get("/progress", h.Progress)
	r.Post("/day/advance", h.AdvanceDay)
	r.Post("/intro/complete", h.CompleteIntro)
	r.Post("/bookshelf/open", h.OpenBookshelf)
	r.Put("/replies/{day}", h.Reply)
	r.Get("/dialogue", h.Dialogue)
	r.Post("/dialogue/advance", h.AdvanceDialogue)
	r.Post("/dialogue/start", h.StartDialogue)
	r.Get("/notifications", h.Notifications)
	r.Post("/notifications/dismiss", h.DismissNotification)

	// Library.
	r.Get("/books", h.ListBooks)
	r.Get("/books/{id}", h.GetBook)
	r.Get("/books/{id}/html", h.ReadBook)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
