package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/noah-isme/vapor-share-api/pkg/config"
)

// LocalStorage persists blobs on disk under a base directory. Download URLs point at the
// service's own /blobs endpoint and carry a signed token.
type LocalStorage struct {
	baseDir string
	signer  *SignedURLSigner
	baseURL string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string, signer *SignedURLSigner, baseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./blobs"
	}
	if signer == nil {
		return nil, fmt.Errorf("local storage requires a url signer")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, signer: signer, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Provider implements BlobStore.
func (s *LocalStorage) Provider() string { return config.BlobProviderLocal }

// Put copies the body into the key path and returns a signed download URL.
func (s *LocalStorage) Put(ctx context.Context, in PutInput) (Object, error) {
	path, err := s.resolve(in.Key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Object{}, fmt.Errorf("prepare blob directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return Object{}, fmt.Errorf("create blob file: %w", err)
	}
	if _, err := io.Copy(file, contextReader{ctx: ctx, r: in.Body}); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return Object{}, fmt.Errorf("write blob stream: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return Object{}, fmt.Errorf("close blob file: %w", err)
	}

	token, _, err := s.signer.Generate(in.Key)
	if err != nil {
		_ = os.Remove(path)
		return Object{}, fmt.Errorf("sign blob url: %w", err)
	}
	return Object{ID: in.Key, URL: s.baseURL + "/" + token}, nil
}

// Open resolves a download token and returns a read-only handle for the blob.
func (s *LocalStorage) Open(token string) (*os.File, error) {
	key, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open blob file: %w", err)
	}
	return file, nil
}

// Delete removes a stored blob if present.
func (s *LocalStorage) Delete(ctx context.Context, objectID string) error {
	path, err := s.resolve(objectID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
