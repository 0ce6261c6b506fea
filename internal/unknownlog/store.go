// Package unknownlog persists disease labels that had no knowledge-base
// record, for later operator review. The log is a bounded JSON array in a
// local file, truncated to the newest entries on every write.
//
// Writing is strictly best-effort: the diagnosis path must never block or
// fail because this log could not be written, so all write errors are
// swallowed at this boundary (and surfaced only through the store's logger).
package unknownlog

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultMaxEntries caps the log at the most recent 100 cases.
const DefaultMaxEntries = 100

// Entry is a single unknown-case record.
type Entry struct {
	// DiseaseKey is the label exactly as produced by classification.
	DiseaseKey string `json:"disease_key"`

	// NormalizedKey is the canonical lookup form of DiseaseKey.
	NormalizedKey string `json:"normalized_key"`

	// Confidence is the graded score of the winning evidence, when it had
	// one.
	Confidence *float64 `json:"confidence"`

	Timestamp time.Time `json:"timestamp"`
}

// FileStore keeps the unknown-case log in a single JSON array file. Each
// write is a read-modify-write of the whole file under a lock, preserving
// insertion order and dropping the oldest entries beyond the cap. Safe for
// concurrent use.
type FileStore struct {
	mu     sync.Mutex
	path   string
	max    int
	logger *slog.Logger
}

// Option is a functional option for FileStore.
type Option func(*FileStore)

// WithMaxEntries overrides the entry cap. Values below 1 keep the default.
func WithMaxEntries(n int) Option {
	return func(fs *FileStore) {
		if n > 0 {
			fs.max = n
		}
	}
}

// WithLogger sets the logger used to surface swallowed write failures.
func WithLogger(l *slog.Logger) Option {
	return func(fs *FileStore) {
		fs.logger = l
	}
}

// NewFileStore creates a FileStore writing to path. The file is created on
// first write.
func NewFileStore(path string, opts ...Option) *FileStore {
	fs := &FileStore{
		path:   path,
		max:    DefaultMaxEntries,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(fs)
	}
	return fs
}

// Record appends entry to the log and truncates it to the newest max
// entries. Failures are logged and discarded, never returned.
func (fs *FileStore) Record(entry Entry) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries := fs.readLocked()
	entries = append(entries, entry)
	if len(entries) > fs.max {
		entries = entries[len(entries)-fs.max:]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		fs.logger.Warn("unknown-case log marshal failed", "error", err)
		return
	}
	if err := os.WriteFile(fs.path, data, 0o644); err != nil {
		fs.logger.Warn("unknown-case log write failed", "path", fs.path, "error", err)
	}
}

// Recent returns the logged entries, oldest first. A missing or unreadable
// file yields an empty slice.
func (fs *FileStore) Recent() []Entry {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.readLocked()
}

// readLocked loads the current log. Callers must hold fs.mu. A corrupt or
// missing file is treated as empty rather than an error, so one bad write
// can never poison the log forever.
func (fs *FileStore) readLocked() []Entry {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		fs.logger.Warn("unknown-case log corrupt, starting fresh", "path", fs.path, "error", err)
		return []Entry{}
	}
	return entries
}
