package index

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/starford/ithaca/internal/checksum"
	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/parser"
)

// Sync brings the index up to date with the journal:
//   - new/changed entries are parsed and upserted
//   - entries no longer in the journal are deleted from the index
func Sync(db EntryIndex, entries []models.Entry, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		live[e.ID] = struct{}{}
		if checksums[e.ID] == Checksum(e) {
			continue
		}
		if err := IndexEntry(db, e); err != nil {
			logger.Warn("sync: index failed", slog.String("id", e.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("id", e.ID))
		}
	}

	for id := range checksums {
		if _, ok := live[id]; ok {
			continue
		}
		if err := db.DeleteEntry(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("id", id))
		}
	}
	return nil
}

// IndexEntry parses e and upserts it.
func IndexEntry(db EntryIndex, e models.Entry) error {
	res := parser.Parse(e.Content)
	row := EntryRow{
		ID:        e.ID,
		Day:       e.Day,
		Title:     res.Title,
		Checksum:  Checksum(e),
		Tags:      res.Tags,
		Confirmed: e.IsConfirmed,
		Deleted:   e.IsDeleted,
		UpdatedAt: e.CreatedAt,
	}
	if e.DeletedAt != nil {
		row.UpdatedAt = *e.DeletedAt
	}
	if err := db.UpsertEntry(row, e.Content); err != nil {
		return fmt.Errorf("index: entry %s: %w", e.ID, err)
	}
	return nil
}

// Checksum fingerprints every field the index stores for e, so state
// changes such as trashing re-index the entry even when the text is the same.
func Checksum(e models.Entry) string {
	return checksum.Fields(
		strconv.Itoa(e.Day),
		strconv.FormatBool(e.IsConfirmed),
		strconv.FormatBool(e.IsDeleted),
		e.Content,
	)
}
