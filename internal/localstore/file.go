package localstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"querydesk/internal/utils"
)

const keySalt = "querydesk-localstore"

// FileStore keeps one file per key under a directory. When a
// passphrase is configured, values are sealed with AES-GCM before they
// reach disk; the token and schema blobs carry credentials.
type FileStore struct {
	dir string
	key []byte // nil means plaintext
}

func NewFileStore(dir, passphrase string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	s := &FileStore{dir: dir}
	if passphrase != "" {
		s.key = utils.DeriveKey(passphrase, keySalt)
	}
	return s, nil
}

func (s *FileStore) path(key string) string {
	// Keys are fixed names chosen by this codebase, but keep the file
	// name safe anyway.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(s.dir, safe+".json")
}

func (s *FileStore) Set(_ context.Context, key string, data []byte) error {
	payload := data
	if s.key != nil {
		sealed, err := utils.Encrypt(data, s.key)
		if err != nil {
			return fmt.Errorf("failed to encrypt value for key %s: %w", key, err)
		}
		payload = sealed
	}

	// Write-then-rename so a crash never leaves a torn file behind.
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, payload, 0600); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	if s.key != nil {
		plain, err := utils.Decrypt(data, s.key)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt value for key %s: %w", key, err)
		}
		return plain, nil
	}
	return data, nil
}

func (s *FileStore) Del(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}
