package savefile

import (
	"errors"
	"log/slog"

	"github.com/starford/ithaca/internal/storage"
)

// Load reads key from store and decodes it. A missing document yields
// fallback silently; an unreadable or corrupt one yields fallback with a
// warning. rewrite reports that the caller should persist the value in the
// current shape.
func Load[T any](store storage.Provider, key string, logger *slog.Logger, decode func([]byte) (T, bool, error), fallback T) (value T, rewrite bool) {
	raw, err := store.Load(key)
	if err != nil {
		if !errors.Is(err, storage.ErrMissing) {
			logger.Warn("savefile: load failed, starting empty",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return fallback, false
	}

	v, migrated, err := decode(raw)
	if err != nil {
		logger.Warn("savefile: corrupt document, starting empty",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return fallback, false
	}
	if migrated {
		logger.Info("savefile: migrated document", slog.String("key", key))
	}
	return v, migrated
}
