package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ithaca/internal/apperr"
)

// Progress handles GET /api/progress.
//
//	@Summary		Get the player's progress
//	@Tags			story
//	@Produce		json
//	@Success		200	{object}	models.UserState
//	@Security		BearerAuth
//	@Router			/progress [get]
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Progress(r.Context())
	if err != nil {
		writeError(w, "progress", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AdvanceDay handles POST /api/day/advance.
//
//	@Summary		Move to the next day and run its story event
//	@Tags			story
//	@Produce		json
//	@Success		200	{object}	DayResponse
//	@Security		BearerAuth
//	@Router			/day/advance [post]
func (h *Handler) AdvanceDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.svc.AdvanceDay(r.Context())
	if err != nil {
		writeError(w, "advance day", err)
		return
	}
	d, err := h.svc.Dialogue(r.Context())
	if err != nil {
		writeError(w, "advance day", err)
		return
	}
	writeJSON(w, http.StatusOK, DayResponse{Day: day, Dialogue: d})
}

// CompleteIntro handles POST /api/intro/complete.
//
//	@Summary		Mark the intro as watched
//	@Tags			story
//	@Success		204
//	@Security		BearerAuth
//	@Router			/intro/complete [post]
func (h *Handler) CompleteIntro(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CompleteIntro(r.Context()); err != nil {
		writeError(w, "complete intro", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenBookshelf handles POST /api/bookshelf/open.
//
//	@Summary		Open the bookshelf, playing its discovery scene once
//	@Tags			story
//	@Produce		json
//	@Success		200	{object}	StartedResponse
//	@Security		BearerAuth
//	@Router			/bookshelf/open [post]
func (h *Handler) OpenBookshelf(w http.ResponseWriter, r *http.Request) {
	started, err := h.svc.OpenBookshelf(r.Context())
	h.writeStarted(w, r, "open bookshelf", started, err)
}

// Reply handles PUT /api/replies/{day}.
//
//	@Summary		Answer the letter of a given day
//	@Tags			story
//	@Accept			json
//	@Produce		json
//	@Param			day		path	int				true	"Story day"
//	@Param			body	body	ReplyRequest	true	"Reply text"
//	@Success		200	{object}	StartedResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/replies/{day} [put]
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, "reply", apperr.ErrInvalidInput)
		return
	}
	var req ReplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	started, err := h.svc.Reply(r.Context(), day, req.Text)
	h.writeStarted(w, r, "reply", started, err)
}

func (h *Handler) writeStarted(w http.ResponseWriter, r *http.Request, op string, started bool, err error) {
	if err != nil {
		writeError(w, op, err)
		return
	}
	d, err := h.svc.Dialogue(r.Context())
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, StartedResponse{Started: started, Dialogue: d})
}

// Dialogue handles GET /api/dialogue.
//
//	@Summary		Get the dialogue in progress
//	@Tags			dialogue
//	@Produce		json
//	@Success		200	{object}	game.DialogueState
//	@Security		BearerAuth
//	@Router			/dialogue [get]
func (h *Handler) Dialogue(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dialogue(r.Context())
	if err != nil {
		writeError(w, "dialogue", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// AdvanceDialogue handles POST /api/dialogue/advance.
//
//	@Summary		Show the next dialogue line
//	@Tags			dialogue
//	@Produce		json
//	@Success		200	{object}	game.DialogueState
//	@Security		BearerAuth
//	@Router			/dialogue/advance [post]
func (h *Handler) AdvanceDialogue(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.AdvanceDialogue(r.Context())
	if err != nil {
		writeError(w, "advance dialogue", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// StartDialogue handles POST /api/dialogue/start.
//
//	@Summary		Play a dialogue script by name
//	@Tags			dialogue
//	@Accept			json
//	@Produce		json
//	@Param			body	body	StartDialogueRequest	true	"Script to play"
//	@Success		200	{object}	game.DialogueState
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dialogue/start [post]
func (h *Handler) StartDialogue(w http.ResponseWriter, r *http.Request) {
	var req StartDialogueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	d, err := h.svc.StartDialogue(r.Context(), req.Script)
	if err != nil {
		writeError(w, "start dialogue", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Notifications handles GET /api/notifications.
//
//	@Summary		Get the notification on screen and the queue length
//	@Tags			notifications
//	@Produce		json
//	@Success		200	{object}	game.NotificationState
//	@Security		BearerAuth
//	@Router			/notifications [get]
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notification(r.Context())
	if err != nil {
		writeError(w, "notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// DismissNotification handles POST /api/notifications/dismiss.
//
//	@Summary		Dismiss the current notification
//	@Tags			notifications
//	@Produce		json
//	@Success		200	{object}	game.NotificationState
//	@Security		BearerAuth
//	@Router			/notifications/dismiss [post]
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.DismissNotification(r.Context())
	if err != nil {
		writeError(w, "dismiss notification", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// ListBooks handles GET /api/books.
//
//	@Summary		List books on the shelf
//	@Tags			books
//	@Produce		json
//	@Success		200	{object}	BookListResponse
//	@Security		BearerAuth
//	@Router			/books [get]
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.Books(r.Context())
	if err != nil {
		writeError(w, "list books", err)
		return
	}
	writeJSON(w, http.StatusOK, BookListResponse{Books: books})
}

// GetBook handles GET /api/books/{id}.
//
//	@Summary		Get a single book
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"Book id"
//	@Success		200	{object}	models.Book
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/{id} [get]
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Book(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get book", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
