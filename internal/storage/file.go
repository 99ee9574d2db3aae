package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	// FilePrefix starts every state file name.
	FilePrefix = "baton-delegation-"

	// FileExt is the state file extension.
	FileExt = ".json"
)

// FileStore implements StateStore with one JSON file per key.
type FileStore struct {
	// Dir holds the state files (default: os.TempDir()).
	Dir string

	mu sync.Mutex
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*FileStore)

// WithDir sets the state directory.
func WithDir(dir string) FileStoreOption {
	return func(fs *FileStore) {
		if dir != "" {
			fs.Dir = dir
		}
	}
}

// NewFileStore creates a new file-based state store.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	fs := &FileStore{Dir: os.TempDir()}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Path returns the state file for key.
func (fs *FileStore) Path(key Key) string {
	return filepath.Join(fs.Dir, FilePrefix+key.String()+FileExt)
}

// Load reads the record for key. Missing, unreadable and corrupt files all
// yield the zero state.
func (fs *FileStore) Load(key Key) DelegationState {
	data, err := os.ReadFile(fs.Path(key))
	if err != nil {
		return DelegationState{}
	}
	var st DelegationState
	if err := json.Unmarshal(data, &st); err != nil {
		return DelegationState{}
	}
	if st.NonDelegateCount < 0 || st.WindowStart < 0 {
		return DelegationState{}
	}
	return st
}

// Save writes the record for key atomically.
func (fs *FileStore) Save(key Key, st DelegationState) error {
	if key.ProjectID == "" {
		return ErrEmptyProjectID
	}
	if st.NonDelegateCount < 0 {
		return ErrNegativeCount
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	return AtomicWrite(fs.Path(key), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(st)
	})
}

// Reset overwrites the record for key with the zero state.
func (fs *FileStore) Reset(key Key) error {
	return fs.Save(key, DelegationState{})
}

// AtomicWrite writes to a temp file in the target directory and renames it
// over path, so readers see either the old or the new content.
func AtomicWrite(path string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	// Create temp file in same directory for atomic rename
	tmpFile, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on error
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath) //nolint:errcheck // cleanup in error path
		}
	}()

	if err := writeFunc(tmpFile); err != nil {
		_ = tmpFile.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("write content: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("sync file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}

	success = true
	return nil
}

// AppendJSONL appends v as one JSON line to path.
func AppendJSONL(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer func() {
		_ = f.Close() //nolint:errcheck // sync already called, close best-effort
	}()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write line: %w", err)
	}

	return f.Sync()
}
