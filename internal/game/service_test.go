package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/ithaca/internal/apperr"
	"github.com/starford/ithaca/internal/catalog"
	"github.com/starford/ithaca/internal/present"
	"github.com/starford/ithaca/internal/progress"
	"github.com/starford/ithaca/internal/savefile"
	"github.com/starford/ithaca/internal/storage"
	"github.com/starford/ithaca/internal/testutil"
)

const synthesisDelay = 20 * time.Millisecond

type harness struct {
	svc   *Service
	store *storage.Memory
	rec   *present.Recorder
}

func newHarness(t *testing.T, store *storage.Memory, opts ...Option) harness {
	t.Helper()
	if store == nil {
		store = storage.NewMemory()
	}
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	rec := &present.Recorder{}
	opts = append([]Option{WithSink(rec), WithSynthesisDelay(synthesisDelay)}, opts...)
	svc := New(store, catalog.NewHolder(c), testutil.Logger(), opts...)
	t.Cleanup(svc.Close)
	return harness{svc: svc, store: store, rec: rec}
}

func (h harness) write(t *testing.T, text string) string {
	t.Helper()
	ctx := context.Background()
	e, err := h.svc.CreateEntry(ctx)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if _, err := h.svc.UpdateEntry(ctx, e.ID, text, ""); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if ok, err := h.svc.ConfirmEntry(ctx, e.ID); !ok || err != nil {
		t.Fatalf("ConfirmEntry = %v, %v", ok, err)
	}
	return e.ID
}

func TestFirstMilestoneUnlocksFragment(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.write(t, strings.Repeat("a", 20))

	p, _ := h.svc.Progress(ctx)
	if p.TotalWords != 20 {
		t.Errorf("total = %d", p.TotalWords)
	}
	if len(p.UnlockedFragments) != 1 || p.UnlockedFragments[0] != "frag_pineapple_01" {
		t.Errorf("fragments = %v", p.UnlockedFragments)
	}
	n, _ := h.svc.Notification(ctx)
	if n.Current == nil || n.Current.Heading != "Unfinished Diary 1" {
		t.Errorf("notification = %+v", n)
	}
}

func TestSynthesisScenario(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.write(t, strings.Repeat("a", 20))
	h.write(t, strings.Repeat("b", 2000))

	books, _ := h.svc.Books(ctx)
	if len(books) != 1 || books[0].ID != "book_pineapple_diary_complete" {
		t.Fatalf("books = %+v", books)
	}
	if !books[0].IsMystery || !books[0].IsReadOnly {
		t.Errorf("synthesised book flags = %+v", books[0])
	}

	// More writing never duplicates the book.
	h.write(t, strings.Repeat("c", 3000))
	books, _ = h.svc.Books(ctx)
	if len(books) != 1 {
		t.Errorf("books = %d, want 1", len(books))
	}

	// The deferred announcement queues behind the three fragments.
	eventually(t, func() bool {
		n, _ := h.svc.Notification(ctx)
		return n.Pending == 3
	})
	for i := 0; i < 3; i++ {
		_, _ = h.svc.DismissNotification(ctx)
	}
	n, _ := h.svc.Notification(ctx)
	if n.Current == nil || n.Current.Heading != "Diary of the Sugared Pineapple" {
		t.Errorf("notification = %+v", n)
	}
	if got := len(h.rec.OfKind(present.KindBookSynthesized)); got != 1 {
		t.Errorf("synthesis notifications = %d", got)
	}
}

func TestUpdateEntryIfMatch(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	e, _ := h.svc.CreateEntry(ctx)

	updated, err := h.svc.UpdateEntry(ctx, e.ID, "first", ETag(e))
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	_, err = h.svc.UpdateEntry(ctx, e.ID, "second", ETag(e))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale etag err = %v", err)
	}
	got, _ := h.svc.GetEntry(ctx, e.ID)
	if got.Content != "first" {
		t.Errorf("conflict must not write, content = %q", got.Content)
	}
	if _, err := h.svc.UpdateEntry(ctx, e.ID, "second", ETag(updated)); err != nil {
		t.Errorf("fresh etag: %v", err)
	}
}

func TestUnknownEntryIsNotFound(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if _, err := h.svc.UpdateEntry(ctx, "ghost", "x", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update err = %v", err)
	}
	if _, err := h.svc.ConfirmEntry(ctx, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("confirm err = %v", err)
	}
	if err := h.svc.PurgeEntry(ctx, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("purge err = %v", err)
	}
	p, _ := h.svc.Progress(ctx)
	if p.TotalWords != 0 {
		t.Error("unknown ids must not change progress")
	}
}

func TestTrashLifecycle(t *testing.T) {
	var mu sync.Mutex
	var events []string
	h := newHarness(t, nil, WithEntryObserver(func(kind, id string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, kind)
	}))
	ctx := context.Background()

	id := h.write(t, "hello world")
	if err := h.svc.TrashEntry(ctx, id); err != nil {
		t.Fatalf("TrashEntry: %v", err)
	}
	active, _ := h.svc.ListEntries(ctx, "")
	trash, _ := h.svc.ListTrash(ctx)
	if len(active) != 0 || len(trash) != 1 {
		t.Fatalf("active=%d trash=%d", len(active), len(trash))
	}
	p, _ := h.svc.Progress(ctx)
	if p.TotalWords != 10 {
		t.Errorf("trash must keep words, total = %d", p.TotalWords)
	}

	ids, err := h.svc.EmptyTrash(ctx)
	if err != nil || len(ids) != 1 {
		t.Fatalf("EmptyTrash = %v, %v", ids, err)
	}
	p, _ = h.svc.Progress(ctx)
	if p.TotalWords != 0 {
		t.Errorf("purge must refund, total = %d", p.TotalWords)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"created", "updated", "confirmed", "trashed", "deleted"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestSearchWithIndex(t *testing.T) {
	db := testutil.TestDB(t)
	h := newHarness(t, nil, WithIndex(db))
	ctx := context.Background()

	id := h.write(t, "The lighthouse keeper waved #sea")
	other := h.write(t, "a quiet day inland")

	results, err := h.svc.Search(ctx, "lighthouse", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != id {
		t.Errorf("results = %+v", results)
	}

	tagged, _ := h.svc.ListEntries(ctx, "sea")
	if len(tagged) != 1 || tagged[0].ID != id {
		t.Errorf("tagged = %+v", tagged)
	}

	_ = h.svc.TrashEntry(ctx, id)
	results, _ = h.svc.Search(ctx, "lighthouse", 10)
	if len(results) != 0 {
		t.Errorf("trashed entry still found: %+v", results)
	}

	_ = h.svc.PurgeEntry(ctx, other)
	all, _ := db.AllChecksums()
	if _, ok := all[other]; ok {
		t.Error("purged entry still indexed")
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.write(t, "Lighthouse at dusk")
	h.write(t, "nothing here")

	results, err := h.svc.Search(ctx, "lighthouse", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != id || results[0].Title != "Lighthouse at dusk" {
		t.Errorf("results = %+v", results)
	}
}

func TestAdvanceDayStartsPackageEvent(t *testing.T) {
	store := storage.NewMemory()
	_ = store.Save(savefile.KeyUserState, []byte(`{"version":1,"day":6,"totalWords":0}`))
	h := newHarness(t, store)
	ctx := context.Background()

	day, err := h.svc.AdvanceDay(ctx)
	if err != nil || day != 7 {
		t.Fatalf("AdvanceDay = %d, %v", day, err)
	}
	d, _ := h.svc.Dialogue(ctx)
	if !d.Active || d.Line.Script != "package_day_7" {
		t.Fatalf("dialogue = %+v", d)
	}
	for d.Active {
		d, _ = h.svc.AdvanceDialogue(ctx)
	}
	b, err := h.svc.Book(ctx, "guide_book_part2")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if !b.IsReadOnly {
		t.Error("system book should be read-only")
	}

	// The event does not replay once the book is shelved.
	if _, err := h.svc.AdvanceDay(ctx); err != nil {
		t.Fatalf("AdvanceDay: %v", err)
	}
	if d, _ := h.svc.Dialogue(ctx); d.Active {
		t.Errorf("day event replayed: %+v", d)
	}
}

func TestBookshelfStoryRequiresIntro(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if started, _ := h.svc.OpenBookshelf(ctx); started {
		t.Fatal("bookshelf story must wait for the intro")
	}
	_ = h.svc.CompleteIntro(ctx)
	started, err := h.svc.OpenBookshelf(ctx)
	if !started || err != nil {
		t.Fatalf("OpenBookshelf = %v, %v", started, err)
	}
	for d, _ := h.svc.Dialogue(ctx); d.Active; d, _ = h.svc.AdvanceDialogue(ctx) {
	}

	p, _ := h.svc.Progress(ctx)
	if !p.Flags[progress.FlagFoundMysteryEntry] {
		t.Error("flag not set after the story")
	}
	if _, err := h.svc.Book(ctx, "guide_book_part1"); err != nil {
		t.Errorf("guide book missing: %v", err)
	}
	if again, _ := h.svc.OpenBookshelf(ctx); again {
		t.Error("bookshelf story is one-shot")
	}
}

func TestReplyPlaysMailReaction(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	started, err := h.svc.Reply(ctx, 1, "Dear stranger")
	if !started || err != nil {
		t.Fatalf("Reply = %v, %v", started, err)
	}
	p, _ := h.svc.Progress(ctx)
	if p.Replies["1"] != "Dear stranger" {
		t.Errorf("replies = %v", p.Replies)
	}
	if started, _ := h.svc.Reply(ctx, 2, "no script for day two"); started {
		t.Error("day 2 has no reaction script")
	}
	if _, err := h.svc.Reply(ctx, 0, "x"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("day 0 err = %v", err)
	}
}

func TestStartDialogueUnknownScript(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if _, err := h.svc.StartDialogue(ctx, "nope"); !errors.Is(err, apperr.ErrUnknownScript) {
		t.Errorf("err = %v", err)
	}
	if d, _ := h.svc.Dialogue(ctx); d.Active {
		t.Error("unknown script must leave the engine idle")
	}
}

func TestReloadCatalogReevaluatesMilestones(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.write(t, "abcde")

	c, err := catalog.Parse([]byte(`
fragments:
  - {id: early, title: Early bird, body: "five words were enough"}
milestones:
  - {threshold: 5, fragment_id: early}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := h.svc.ReloadCatalog(ctx, c); err != nil {
		t.Fatalf("ReloadCatalog: %v", err)
	}
	p, _ := h.svc.Progress(ctx)
	if len(p.UnlockedFragments) != 1 || p.UnlockedFragments[0] != "early" {
		t.Errorf("fragments = %v", p.UnlockedFragments)
	}
	if h.svc.Catalog() != c {
		t.Error("catalog not swapped")
	}
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	store := storage.NewMemory()
	h := newHarness(t, store)
	id := h.write(t, strings.Repeat("a", 25))
	h.svc.Close()

	again := newHarness(t, store)
	ctx := context.Background()
	e, err := again.svc.GetEntry(ctx, id)
	if err != nil || !e.IsConfirmed || e.SavedWordCount != 25 {
		t.Fatalf("entry = %+v, %v", e, err)
	}
	p, _ := again.svc.Progress(ctx)
	if p.TotalWords != 25 || len(p.UnlockedFragments) != 1 {
		t.Errorf("progress = %+v", p)
	}
}

func TestClosedServiceRejects(t *testing.T) {
	h := newHarness(t, nil)
	h.svc.Close()
	if _, err := h.svc.CreateEntry(context.Background()); !errors.Is(err, apperr.ErrClosed) {
		t.Errorf("err = %v", err)
	}
}

func TestClosedServiceRejectsIndexedSearch(t *testing.T) {
	h := newHarness(t, nil, WithIndex(testutil.TestDB(t)))
	h.write(t, "a journal line")
	h.svc.Close()
	if _, err := h.svc.Search(context.Background(), "journal", 10); !errors.Is(err, apperr.ErrClosed) {
		t.Errorf("err = %v", err)
	}
}

func TestConcurrentWritersSerialise(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := h.svc.CreateEntry(ctx)
			if err != nil {
				return
			}
			_, _ = h.svc.UpdateEntry(ctx, e.ID, "abc", "")
			_, _ = h.svc.ConfirmEntry(ctx, e.ID)
		}()
	}
	wg.Wait()

	p, _ := h.svc.Progress(ctx)
	if p.TotalWords != 60 {
		t.Errorf("total = %d, want 60", p.TotalWords)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
