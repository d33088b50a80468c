package persist

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// FileStore reads and writes the tree document at a fixed path.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the given path. The parent directory is
// created on the first save, not here.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (fs *FileStore) Path() string { return fs.path }

// Load reads the document. A missing file yields an empty current-version
// document. A document that cannot be parsed, or that carries an unknown
// version, is logged and discarded in favor of an empty one: starting over
// beats guessing at a migration.
func (fs *FileStore) Load() Document {
	empty := Document{Version: FormatVersion}

	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return empty
	}
	if err != nil {
		log.Printf("persist: read %s: %v", fs.path, err)
		return empty
	}

	doc, err := Decode(data)
	if err != nil {
		log.Printf("persist: %s is corrupt, starting empty: %v", fs.path, err)
		return empty
	}
	if doc.Version != FormatVersion {
		log.Printf("persist: %s has version %d, want %d; starting empty", fs.path, doc.Version, FormatVersion)
		return empty
	}
	return doc
}

// Save writes the document atomically: encode to a temp file in the same
// directory, then rename over the target, so a crash mid-write never leaves
// a truncated document behind.
func (fs *FileStore) Save(doc Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tree-tabs-*.json")
	if err != nil {
		return fmt.Errorf("persist: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persist: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist: rename to %s: %w", fs.path, err)
	}
	return nil
}
