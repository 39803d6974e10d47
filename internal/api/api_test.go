package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/ithaca/internal/catalog"
	"github.com/starford/ithaca/internal/game"
	"github.com/starford/ithaca/internal/testutil"
)

// testEnv sets up a temp save dir, SQLite index, game service and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) http.Handler {
	t.Helper()

	_, store := testutil.TestSaveDir(t)
	db := testutil.TestDB(t)

	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	svc := game.New(store, catalog.NewHolder(c), testutil.Logger(), game.WithIndex(db))
	t.Cleanup(svc.Close)

	return NewRouter(svc, authEnabled, token, sseHandler)
}

func do(t *testing.T, router http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createEntry(t *testing.T, router http.Handler) EntryDetail {
	t.Helper()
	w := do(t, router, http.MethodPost, "/entries", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var e EntryDetail
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	return e
}

func TestCreateAndGetEntry(t *testing.T) {
	router := testEnv(t, "")
	created := createEntry(t, router)
	if created.ID == "" || created.Day != 1 || created.IsConfirmed {
		t.Fatalf("created = %+v", created)
	}

	w := do(t, router, http.MethodGet, "/entries/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag header")
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	router := testEnv(t, "")
	created := createEntry(t, router)
	path := "/entries/" + created.ID

	w := do(t, router, http.MethodPut, path, UpdateEntryRequest{Content: "# Harbour\nv1"}, "If-Match", `"`+created.Checksum+`"`)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}
	var updated EntryDetail
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Title != "Harbour" {
		t.Errorf("title = %q", updated.Title)
	}

	// The first checksum is stale now.
	w = do(t, router, http.MethodPut, path, UpdateEntryRequest{Content: "v2"}, "If-Match", created.Checksum)
	if w.Code != http.StatusConflict {
		t.Errorf("stale checksum = %d, want 409", w.Code)
	}

	// No If-Match means last write wins.
	w = do(t, router, http.MethodPut, path, UpdateEntryRequest{Content: "v3"})
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d", w.Code)
	}
}

func TestConfirmCountsWords(t *testing.T) {
	router := testEnv(t, "")
	e := createEntry(t, router)
	path := "/entries/" + e.ID

	_ = do(t, router, http.MethodPut, path, UpdateEntryRequest{Content: "hello world"})

	w := do(t, router, http.MethodGet, "/progress", nil)
	var p struct {
		TotalWords int `json:"totalWords"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if p.TotalWords != 0 {
		t.Fatalf("unconfirmed text counted: %d", p.TotalWords)
	}

	w = do(t, router, http.MethodPost, path+"/confirm", nil)
	var cr ConfirmResponse
	_ = json.Unmarshal(w.Body.Bytes(), &cr)
	if w.Code != http.StatusOK || !cr.Confirmed || cr.Entry.SavedWordCount != 10 {
		t.Fatalf("confirm = %d %+v", w.Code, cr)
	}

	w = do(t, router, http.MethodPost, path+"/confirm", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &cr)
	if cr.Confirmed {
		t.Error("second confirm should report false")
	}

	w = do(t, router, http.MethodGet, "/progress", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if p.TotalWords != 10 {
		t.Errorf("total = %d, want 10", p.TotalWords)
	}
}

func TestTrashRestoreAndDelete(t *testing.T) {
	router := testEnv(t, "")
	e := createEntry(t, router)
	path := "/entries/" + e.ID

	if w := do(t, router, http.MethodPost, path+"/trash", nil); w.Code != http.StatusNoContent {
		t.Fatalf("trash = %d", w.Code)
	}
	var list EntryListResponse
	w := do(t, router, http.MethodGet, "/trash", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 {
		t.Errorf("trash total = %d", list.Total)
	}

	if w := do(t, router, http.MethodPost, path+"/restore", nil); w.Code != http.StatusNoContent {
		t.Fatalf("restore = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/entries", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 {
		t.Errorf("active total = %d", list.Total)
	}

	if w := do(t, router, http.MethodDelete, path, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestEmptyTrash(t *testing.T) {
	router := testEnv(t, "")
	a := createEntry(t, router)
	_ = createEntry(t, router)
	_ = do(t, router, http.MethodPost, "/entries/"+a.ID+"/trash", nil)

	w := do(t, router, http.MethodDelete, "/trash", nil)
	var resp EmptyTrashResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || len(resp.Deleted) != 1 || resp.Deleted[0] != a.ID {
		t.Errorf("empty trash = %d %+v", w.Code, resp)
	}
}

func TestToggleNotebook(t *testing.T) {
	router := testEnv(t, "")
	e := createEntry(t, router)

	w := do(t, router, http.MethodPost, "/entries/"+e.ID+"/notebooks/travel", nil)
	var got EntryDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if w.Code != http.StatusOK || len(got.NotebookIDs) != 1 || got.NotebookIDs[0] != "travel" {
		t.Errorf("toggle = %d %+v", w.Code, got.NotebookIDs)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")
	e := createEntry(t, router)
	_ = do(t, router, http.MethodPut, "/entries/"+e.ID, UpdateEntryRequest{Content: "searchable lighthouse text"})

	w := do(t, router, http.MethodGet, "/search?q=lighthouse", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].ID != e.ID {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestNotFoundMapping(t *testing.T) {
	router := testEnv(t, "")
	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/entries/ghost", nil},
		{http.MethodPut, "/entries/ghost", UpdateEntryRequest{Content: "x"}},
		{http.MethodPost, "/entries/ghost/confirm", nil},
		{http.MethodPost, "/entries/ghost/trash", nil},
		{http.MethodDelete, "/entries/ghost", nil},
		{http.MethodGet, "/books/ghost", nil},
		{http.MethodPost, "/dialogue/start", StartDialogueRequest{Script: "ghost"}},
	}
	for _, tc := range cases {
		if w := do(t, router, tc.method, tc.path, tc.body); w.Code != http.StatusNotFound {
			t.Errorf("%s %s = %d, want 404", tc.method, tc.path, w.Code)
		}
	}
}

func TestInvalidBodies(t *testing.T) {
	router := testEnv(t, "")
	e := createEntry(t, router)

	req := httptest.NewRequest(http.MethodPut, "/entries/"+e.ID, strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d", w.Code)
	}

	if w := do(t, router, http.MethodPost, "/dialogue/start", StartDialogueRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty script = %d", w.Code)
	}
	if w := do(t, router, http.MethodPut, "/replies/abc", ReplyRequest{Text: "hi"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad day = %d", w.Code)
	}
	if w := do(t, router, http.MethodPut, "/replies/1", ReplyRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty reply = %d", w.Code)
	}
}

func TestDialogueFlow(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/replies/1", ReplyRequest{Text: "Who are you?"})
	var started StartedResponse
	_ = json.Unmarshal(w.Body.Bytes(), &started)
	if w.Code != http.StatusOK || !started.Started || started.Dialogue.Line == nil {
		t.Fatalf("reply = %d %+v", w.Code, started)
	}
	if started.Dialogue.Line.Script != "mail_reaction_day1" {
		t.Errorf("script = %q", started.Dialogue.Line.Script)
	}

	var d game.DialogueState
	for i := 0; i < 5; i++ {
		w = do(t, router, http.MethodPost, "/dialogue/advance", nil)
		_ = json.Unmarshal(w.Body.Bytes(), &d)
		if !d.Active {
			break
		}
	}
	if d.Active {
		t.Error("dialogue should have finished")
	}
}

func TestBookshelfAndBooks(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/bookshelf/open", nil)
	var started StartedResponse
	_ = json.Unmarshal(w.Body.Bytes(), &started)
	if started.Started {
		t.Fatal("bookshelf must wait for the intro")
	}

	_ = do(t, router, http.MethodPost, "/intro/complete", nil)
	w = do(t, router, http.MethodPost, "/bookshelf/open", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &started)
	if !started.Started {
		t.Fatal("bookshelf story should start after the intro")
	}
	for started.Dialogue.Active {
		w = do(t, router, http.MethodPost, "/dialogue/advance", nil)
		_ = json.Unmarshal(w.Body.Bytes(), &started.Dialogue)
	}

	w = do(t, router, http.MethodGet, "/books", nil)
	var books BookListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &books)
	if len(books.Books) != 1 || books.Books[0].ID != "guide_book_part1" {
		t.Errorf("books = %+v", books.Books)
	}

	w = do(t, router, http.MethodGet, "/books/guide_book_part1/html", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("book html = %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "<article>") {
		t.Errorf("book page = %s", w.Body.String())
	}
	if w = do(t, router, http.MethodGet, "/books/nope/html", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing book html = %d", w.Code)
	}
}

func TestReadEntryHTML(t *testing.T) {
	router := testEnv(t, "")
	created := createEntry(t, router)
	_ = do(t, router, http.MethodPut, "/entries/"+created.ID, UpdateEntryRequest{Content: "# Harbour\nthe **tide** came in"})

	w := do(t, router, http.MethodGet, "/entries/"+created.ID+"/html", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<title>Harbour</title>") || !strings.Contains(body, "<strong>tide</strong>") {
		t.Errorf("page = %s", body)
	}
}

func TestNotificationsDismiss(t *testing.T) {
	router := testEnv(t, "")
	e := createEntry(t, router)
	_ = do(t, router, http.MethodPut, "/entries/"+e.ID, UpdateEntryRequest{Content: strings.Repeat("a", 20)})
	_ = do(t, router, http.MethodPost, "/entries/"+e.ID+"/confirm", nil)

	var n game.NotificationState
	w := do(t, router, http.MethodGet, "/notifications", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &n)
	if n.Current == nil {
		t.Fatal("fragment notification expected")
	}

	w = do(t, router, http.MethodPost, "/notifications/dismiss", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &n)
	if n.Current != nil {
		t.Errorf("notification still showing: %+v", n)
	}
}

func TestAdvanceDay(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/day/advance", nil)
	var resp DayResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Day != 2 || resp.Dialogue.Active {
		t.Errorf("advance = %d %+v", w.Code, resp)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")
	w := do(t, router, http.MethodPost, "/entries", nil, "Authorization", "Bearer secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/entries", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/entries", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/entries", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// stubSSE writes headers and blocks until the request context is done.
var stubSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret", stubSSE)
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok", stubSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
