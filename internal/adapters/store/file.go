// Package store persists credentials in the client's storage directory,
// two named slots in one JSON file.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/domain"
)

const credentialsFile = "credentials.json"

type FileStore struct {
	path string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Join(dir, credentialsFile)}, nil
}

// Load returns empty credentials when nothing was ever saved.
func (s *FileStore) Load() (domain.Credentials, error) {
	var creds domain.Credentials
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return creds, nil
		}
		return creds, err
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		// a corrupt file behaves like an absent one
		log.Warn().Err(err).Str("module", "adapters.store").Msg("unreadable credentials file")
		return domain.Credentials{}, nil
	}
	return creds, nil
}

func (s *FileStore) Save(access, refresh string) error {
	creds := domain.Credentials{AccessToken: access, RefreshToken: refresh}
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
