package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects under a directory on disk
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates the root directory if needed. When baseURL is set, URL
// returns baseURL/key; otherwise objects are served through Open.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put implements Store
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	// O_EXCL keeps an existing upload from being overwritten
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create object %s: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	return f.Close()
}

// URL implements Store
func (s *LocalStore) URL(ctx context.Context, key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if s.baseURL == "" {
		return "", nil
	}
	return s.baseURL + "/" + key, nil
}

// Open implements Store
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete implements Store
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
