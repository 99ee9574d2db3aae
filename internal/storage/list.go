package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Record is one state file found in the store directory.
type Record struct {
	// Name is the key part of the file name ("<project-id>-<role>").
	Name string `json:"name" yaml:"name"`

	// Path is the absolute file location.
	Path string `json:"path" yaml:"path"`

	// State is the decoded record; zero when the file is corrupt.
	State DelegationState `json:"state" yaml:"state"`

	// Corrupt is set when the file could not be decoded.
	Corrupt bool `json:"corrupt,omitempty" yaml:"corrupt,omitempty"`

	// ModTime is the file's last write.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// List returns every state file in the store directory, newest first.
// Files that are not baton state files are ignored.
func (fs *FileStore) List() ([]Record, error) {
	entries, err := os.ReadDir(fs.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state dir: %w", err)
	}

	var records []Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(fs.Dir, name)
		rec := Record{
			Name:    strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), FileExt),
			Path:    path,
			ModTime: info.ModTime(),
		}
		if data, err := os.ReadFile(path); err != nil || json.Unmarshal(data, &rec.State) != nil {
			rec.State = DelegationState{}
			rec.Corrupt = true
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ModTime.After(records[j].ModTime)
	})
	return records, nil
}

// Prune removes state files last written before cutoff and returns the
// records it removed. Removal errors stop the sweep.
func (fs *FileStore) Prune(cutoff time.Time) ([]Record, error) {
	records, err := fs.List()
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	var removed []Record
	for _, rec := range records {
		if !rec.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", rec.Path, err)
		}
		removed = append(removed, rec)
	}
	return removed, nil
}
