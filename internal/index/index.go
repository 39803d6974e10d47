package index

// EntryIndex is the search side of the journal. The game service depends on
// this interface so tests can run without SQLite.
type EntryIndex interface {
	UpsertEntry(e EntryRow, body string) error
	DeleteEntry(id string) error
	GetChecksum(id string) (string, error)
	AllChecksums() (map[string]string, error)
	ListByTag(tag string, limit int) ([]EntryRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

var _ EntryIndex = (*DB)(nil)
