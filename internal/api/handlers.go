package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ithaca/internal/game"
)

// Handler holds API route handlers.
type Handler struct {
	svc *game.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *game.Service) *Handler {
	return &Handler{svc: svc}
}

// ListEntries handles GET /api/entries.
//
//	@Summary		List active journal entries, newest first
//	@Tags			entries
//	@Produce		json
//	@Param			tag	query		string	false	"Filter by tag"
//	@Success		200	{object}	EntryListResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.ListEntries(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		writeError(w, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: newEntryList(entries), Total: len(entries)})
}

// CreateEntry handles POST /api/entries.
//
//	@Summary		Start a new entry for the current day
//	@Tags			entries
//	@Produce		json
//	@Success		201	{object}	EntryDetail
//	@Security		BearerAuth
//	@Router			/entries [post]
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.CreateEntry(r.Context())
	if err != nil {
		writeError(w, "create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, newEntryDetail(e))
}

// GetEntry handles GET /api/entries/{id}.
//
//	@Summary		Get a single entry, trashed or not
//	@Tags			entries
//	@Produce		json
//	@Param			id	path		string	true	"Entry id"
//	@Success		200	{object}	EntryDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get entry", err)
		return
	}
	d := newEntryDetail(e)
	w.Header().Set("ETag", `"`+d.Checksum+`"`)
	writeJSON(w, http.StatusOK, d)
}

// UpdateEntry handles PUT /api/entries/{id}.
//
//	@Summary		Replace an entry's text with optimistic concurrency
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string				true	"Entry id"
//	@Param			If-Match	header	string				false	"Checksum from the last read"
//	@Param			body		body	UpdateEntryRequest	true	"New text"
//	@Success		200	{object}	EntryDetail
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [put]
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	e, err := h.svc.UpdateEntry(r.Context(), chi.URLParam(r, "id"), req.Content, ifMatch)
	if err != nil {
		writeError(w, "update entry", err)
		return
	}
	d := newEntryDetail(e)
	w.Header().Set("ETag", `"`+d.Checksum+`"`)
	writeJSON(w, http.StatusOK, d)
}

// ConfirmEntry handles POST /api/entries/{id}/confirm.
//
//	@Summary		Confirm an entry so its words count toward progress
//	@Tags			entries
//	@Produce		json
//	@Param			id	path		string	true	"Entry id"
//	@Success		200	{object}	ConfirmResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/confirm [post]
func (h *Handler) ConfirmEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	changed, err := h.svc.ConfirmEntry(r.Context(), id)
	if err != nil {
		writeError(w, "confirm entry", err)
		return
	}
	e, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		writeError(w, "confirm entry", err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{Confirmed: changed, Entry: newEntryDetail(e)})
}

// TrashEntry handles POST /api/entries/{id}/trash.
//
//	@Summary		Move an entry to the trash
//	@Tags			entries
//	@Param			id	path	string	true	"Entry id"
//	@Success		204	"Entry trashed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/trash [post]
func (h *Handler) TrashEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.TrashEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "trash entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreEntry handles POST /api/entries/{id}/restore.
//
//	@Summary		Restore an entry from the trash
//	@Tags			entries
//	@Param			id	path	string	true	"Entry id"
//	@Success		204	"Entry restored"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/restore [post]
func (h *Handler) RestoreEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RestoreEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "restore entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteEntry handles DELETE /api/entries/{id}.
//
//	@Summary		Delete an entry permanently
//	@Tags			entries
//	@Param			id	path	string	true	"Entry id"
//	@Success		204	"Entry deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.PurgeEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleNotebook handles POST /api/entries/{id}/notebooks/{notebook}.
//
//	@Summary		File an entry under a notebook, or take it out
//	@Tags			entries
//	@Produce		json
//	@Param			id			path		string	true	"Entry id"
//	@Param			notebook	path		string	true	"Notebook id"
//	@Success		200	{object}	EntryDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/notebooks/{notebook} [post]
func (h *Handler) ToggleNotebook(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.ToggleNotebook(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "notebook"))
	if err != nil {
		writeError(w, "toggle notebook", err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryDetail(e))
}

// ListTrash handles GET /api/trash.
//
//	@Summary		List trashed entries, most recently deleted first
//	@Tags			trash
//	@Produce		json
//	@Success		200	{object}	EntryListResponse
//	@Security		BearerAuth
//	@Router			/trash [get]
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.ListTrash(r.Context())
	if err != nil {
		writeError(w, "list trash", err)
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: newEntryList(entries), Total: len(entries)})
}

// EmptyTrash handles DELETE /api/trash.
//
//	@Summary		Delete every trashed entry permanently
//	@Tags			trash
//	@Produce		json
//	@Success		200	{object}	EmptyTrashResponse
//	@Security		BearerAuth
//	@Router			/trash [delete]
func (h *Handler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.EmptyTrash(r.Context())
	if err != nil {
		writeError(w, "empty trash", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, EmptyTrashResponse{Deleted: ids})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across active entries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
