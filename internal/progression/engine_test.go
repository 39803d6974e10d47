package progression

import (
	"testing"
	"time"

	"github.com/starford/ithaca/internal/catalog"
	"github.com/starford/ithaca/internal/library"
	"github.com/starford/ithaca/internal/present"
	"github.com/starford/ithaca/internal/progress"
	"github.com/starford/ithaca/internal/storage"
	"github.com/starford/ithaca/internal/testutil"
)

type deferred struct {
	delay time.Duration
	fn    func()
}

type testEnv struct {
	engine   *Engine
	state    *progress.State
	shelf    *library.Library
	rec      *present.Recorder
	notifier *present.Notifier
	later    *[]deferred
}

func newEnv(t *testing.T, c *catalog.Catalog) testEnv {
	t.Helper()
	if c == nil {
		var err error
		c, err = catalog.Default()
		if err != nil {
			t.Fatalf("Default: %v", err)
		}
	}
	store := storage.NewMemory()
	logger := testutil.Logger()
	state := progress.Load(store, logger)
	shelf := library.Load(store, logger)
	rec := &present.Recorder{}
	notifier := present.NewNotifier(rec)

	var later []deferred
	e := New(catalog.NewHolder(c), state, shelf, notifier, logger,
		WithSynthesisDelay(time.Second),
		WithScheduler(func(d time.Duration, fn func()) {
			later = append(later, deferred{delay: d, fn: fn})
		}))
	return testEnv{engine: e, state: state, shelf: shelf, rec: rec, notifier: notifier, later: &later}
}

func TestMilestonesUnlockExactlyOnce(t *testing.T) {
	env := newEnv(t, nil)

	for _, total := range []int{20, 200, 2000} {
		_ = env.state.AddWords(total - env.state.TotalWords())
		for i := 0; i < 3; i++ {
			if err := env.engine.CheckMilestones(); err != nil {
				t.Fatalf("CheckMilestones: %v", err)
			}
		}
	}

	got := env.rec.OfKind(present.KindFragmentUnlocked)
	if len(got) != 1 {
		// Only the first is shown; the rest queue behind it.
		t.Fatalf("fragment notifications on screen = %d, want 1", len(got))
	}
	if env.notifier.Pending() != 2 {
		t.Errorf("pending = %d, want 2", env.notifier.Pending())
	}
	if frags := env.state.Fragments(); len(frags) != 3 {
		t.Errorf("fragments = %v", frags)
	}
}

func TestBelowThresholdNothingUnlocks(t *testing.T) {
	env := newEnv(t, nil)
	_ = env.state.AddWords(19)
	_ = env.engine.CheckMilestones()
	if len(env.state.Fragments()) != 0 {
		t.Error("no fragment should unlock below 20 words")
	}
}

func TestFragmentNotificationPreview(t *testing.T) {
	env := newEnv(t, nil)
	_ = env.state.AddWords(20)
	_ = env.engine.CheckMilestones()

	cur, ok := env.notifier.Current()
	if !ok {
		t.Fatal("expected a notification on screen")
	}
	if cur.Heading != "Unfinished Diary 1" {
		t.Errorf("heading = %q", cur.Heading)
	}
	if len([]rune(cur.Body)) != previewRunes+3 {
		t.Errorf("preview = %q", cur.Body)
	}
	if env.shelf.HasBook("book_pineapple_diary_complete") {
		t.Error("book must not exist with only one fragment")
	}
}

func TestSynthesisFiresOnceAndDefers(t *testing.T) {
	env := newEnv(t, nil)
	_ = env.state.AddWords(2000)
	_ = env.engine.CheckMilestones()

	if !env.shelf.HasBook("book_pineapple_diary_complete") {
		t.Fatal("book not synthesised")
	}
	if len(*env.later) != 1 || (*env.later)[0].delay != time.Second {
		t.Fatalf("deferred notifications = %+v", *env.later)
	}
	if len(env.rec.OfKind(present.KindBookSynthesized)) != 0 {
		t.Error("synthesis notification must be deferred")
	}

	for i := 0; i < 3; i++ {
		_ = env.engine.CheckSynthesis()
		_ = env.engine.CheckMilestones()
	}
	if n := len(env.shelf.GetAll()); n != 1 {
		t.Errorf("books = %d, want 1", n)
	}
	if len(*env.later) != 1 {
		t.Errorf("synthesis scheduled %d times", len(*env.later))
	}

	// Fire the deferred announcement, then dismiss the three fragment
	// notifications ahead of it.
	(*env.later)[0].fn()
	for i := 0; i < 3; i++ {
		env.notifier.Dismiss()
	}
	if len(env.rec.OfKind(present.KindBookSynthesized)) != 1 {
		t.Error("synthesis notification should show after fragments are dismissed")
	}
}

func TestUnknownFragmentSkippedSilently(t *testing.T) {
	c, err := catalog.Parse([]byte(`
milestones:
  - {threshold: 1, fragment_id: ghost}
  - {threshold: 2, fragment_id: real}
fragments:
  - {id: real, title: Real}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	env := newEnv(t, c)
	_ = env.state.AddWords(5)
	if err := env.engine.CheckMilestones(); err != nil {
		t.Fatalf("CheckMilestones: %v", err)
	}
	if cur, _ := env.notifier.Current(); cur.Heading != "Real" {
		t.Errorf("current = %+v", cur)
	}
	if env.notifier.Pending() != 0 {
		t.Error("unknown fragment must not notify")
	}
}

func TestPreviewShortBody(t *testing.T) {
	if got := preview("short"); got != "short" {
		t.Errorf("preview = %q", got)
	}
}
