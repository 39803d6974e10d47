package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ithaca/internal/parser"
	"github.com/starford/ithaca/internal/render"
)

// ReadEntry handles GET /api/entries/{id}/html.
//
//	@Summary		Render an entry as an HTML page
//	@Tags			entries
//	@Produce		html
//	@Param			id	path	string	true	"Entry id"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/html [get]
func (h *Handler) ReadEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "read entry", err)
		return
	}
	body, err := render.HTML(e.Content)
	if err != nil {
		writeError(w, "read entry", err)
		return
	}
	writeHTML(w, http.StatusOK, render.Page(parser.Title(e.Content), body))
}

// ReadBook handles GET /api/books/{id}/html.
//
//	@Summary		Render a shelved book as an HTML page
//	@Tags			books
//	@Produce		html
//	@Param			id	path	string	true	"Book id"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/{id}/html [get]
func (h *Handler) ReadBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Book(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "read book", err)
		return
	}
	body, err := render.HTML(b.Content)
	if err != nil {
		writeError(w, "read book", err)
		return
	}
	writeHTML(w, http.StatusOK, render.Page(b.Title, body))
}
