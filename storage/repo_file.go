package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pinerrors "github.com/jrsteele09/go-pin-client/internal/errors"
	"github.com/rs/zerolog/log"
)

const defaultFileName = "session.json"

var _ Repo = (*FileRepo)(nil)

// FileRepo keeps all keys in a single JSON document on disk.
type FileRepo struct {
	path string
	mu   sync.RWMutex
}

// NewFileRepo stores values in <folder>/session.json, creating the folder if needed.
func NewFileRepo(folder string) (*FileRepo, error) {
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, fmt.Errorf("[NewFileRepo] create folder %s: %w", folder, err)
	}
	return &FileRepo{path: filepath.Join(folder, defaultFileName)}, nil
}

func (r *FileRepo) Get(key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	values, err := r.load()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", pinerrors.ErrKeyNotFound
	}
	return v, nil
}

func (r *FileRepo) Set(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return err
	}
	values[key] = value
	return r.save(values)
}

func (r *FileRepo) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return r.save(values)
}

// load reads the document. A missing or corrupt file reads as empty.
func (r *FileRepo) load() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileRepo] read %s: %w", r.path, err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("storage file is corrupt, starting empty")
		return make(map[string]string), nil
	}
	return values, nil
}

func (r *FileRepo) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileRepo] encode: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("[FileRepo] write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("[FileRepo] rename %s: %w", tmp, err)
	}
	return nil
}
