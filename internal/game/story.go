package game

import (
	"context"
	"fmt"

	"github.com/starford/ithaca/internal/apperr"
	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/present"
	"github.com/starford/ithaca/internal/progress"
)

// DialogueState is the dialogue box as the player sees it.
type DialogueState struct {
	Active bool                  `json:"active"`
	Line   *present.DialogueLine `json:"line,omitempty"`
}

// NotificationState is the modal notification on screen, if any.
type NotificationState struct {
	Current *present.Notification `json:"current,omitempty"`
	Pending int                   `json:"pending"`
}

// Progress returns a snapshot of the player's progress.
func (s *Service) Progress(ctx context.Context) (models.UserState, error) {
	var out models.UserState
	err := s.do(ctx, func() error {
		out = s.state.Snapshot()
		return nil
	})
	return out, err
}

// AdvanceDay moves to the next day and starts that day's event if one is
// due. It returns the new day.
func (s *Service) AdvanceDay(ctx context.Context) (int, error) {
	var day int
	err := s.do(ctx, func() error {
		var err error
		day, err = s.state.AdvanceDay()
		if err != nil {
			return err
		}
		_, err = s.director.CheckDailyEvents(day)
		return err
	})
	return day, err
}

// CompleteIntro records that the opening scene was watched, which makes the
// bookshelf story available.
func (s *Service) CompleteIntro(ctx context.Context) error {
	return s.do(ctx, func() error {
		return s.state.SetFlag(progress.FlagWatchedIntro, true)
	})
}

// OpenBookshelf plays the bookshelf discovery if it is still pending. It
// reports whether a script started.
func (s *Service) OpenBookshelf(ctx context.Context) (bool, error) {
	var started bool
	err := s.do(ctx, func() error {
		var err error
		started, err = s.director.TryBookshelfStory()
		return err
	})
	return started, err
}

// Reply stores the player's answer to day's letter and plays their
// reaction when the catalog has one. It reports whether a script started.
func (s *Service) Reply(ctx context.Context, day int, text string) (bool, error) {
	var started bool
	err := s.do(ctx, func() error {
		if day < 1 {
			return fmt.Errorf("game: reply day %d: %w", day, apperr.ErrInvalidInput)
		}
		if err := s.state.SetReply(day, text); err != nil {
			return err
		}
		var err error
		started, err = s.director.TryMailReaction(day, nil)
		return err
	})
	return started, err
}

// Dialogue returns the current dialogue state.
func (s *Service) Dialogue(ctx context.Context) (DialogueState, error) {
	var out DialogueState
	err := s.do(ctx, func() error {
		out = s.dialogueState()
		return nil
	})
	return out, err
}

// AdvanceDialogue moves the dialogue on by one line and returns the new
// state. Advancing while idle is a no-op.
func (s *Service) AdvanceDialogue(ctx context.Context) (DialogueState, error) {
	var out DialogueState
	err := s.do(ctx, func() error {
		s.dialogue.Advance()
		out = s.dialogueState()
		return nil
	})
	return out, err
}

// StartDialogue plays script key, abandoning any session in progress.
func (s *Service) StartDialogue(ctx context.Context, key string) (DialogueState, error) {
	var out DialogueState
	err := s.do(ctx, func() error {
		if err := s.dialogue.Start(key); err != nil {
			return err
		}
		out = s.dialogueState()
		return nil
	})
	return out, err
}

func (s *Service) dialogueState() DialogueState {
	line, ok := s.dialogue.Current()
	if !ok {
		return DialogueState{}
	}
	return DialogueState{Active: true, Line: &line}
}

// Notification returns the modal notification state.
func (s *Service) Notification(ctx context.Context) (NotificationState, error) {
	var out NotificationState
	err := s.do(ctx, func() error {
		out = s.notificationState()
		return nil
	})
	return out, err
}

// DismissNotification closes the notification on screen and shows the next.
func (s *Service) DismissNotification(ctx context.Context) (NotificationState, error) {
	var out NotificationState
	err := s.do(ctx, func() error {
		s.notifier.Dismiss()
		out = s.notificationState()
		return nil
	})
	return out, err
}

func (s *Service) notificationState() NotificationState {
	out := NotificationState{Pending: s.notifier.Pending()}
	if n, ok := s.notifier.Current(); ok {
		out.Current = &n
	}
	return out
}

// Books returns every book on the shelf.
func (s *Service) Books(ctx context.Context) ([]models.Book, error) {
	var out []models.Book
	err := s.do(ctx, func() error {
		out = s.library.GetAll()
		return nil
	})
	return out, err
}

// Book returns one book.
func (s *Service) Book(ctx context.Context, id string) (models.Book, error) {
	var out models.Book
	err := s.do(ctx, func() error {
		b, ok := s.library.Get(id)
		if !ok {
			return fmt.Errorf("game: book %s: %w", id, apperr.ErrNotFound)
		}
		out = b
		return nil
	})
	return out, err
}
