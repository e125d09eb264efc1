package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore keeps raw files in named buckets. Object paths are relative to
// their bucket and use forward slashes.
type ObjectStore interface {
	EnsureBuckets(buckets ...string) error
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader) error
	Download(ctx context.Context, bucket, objectPath string) ([]byte, error)
	Delete(ctx context.Context, bucket, objectPath string) error
}

type diskObjectStore struct {
	root string
}

// NewDiskObjectStore maps every bucket to a directory under root.
func NewDiskObjectStore(root string) ObjectStore {
	return &diskObjectStore{root: root}
}

// CSVObjectPath builds a unique object path under prefix for an uploaded file.
func CSVObjectPath(prefix, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".csv" {
		return "", fmt.Errorf("invalid file extension: %q", ext)
	}
	return path.Join(prefix, uuid.New().String()+ext), nil
}

func (s *diskObjectStore) EnsureBuckets(buckets ...string) error {
	for _, bucket := range buckets {
		dir, err := s.bucketDir(bucket)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (s *diskObjectStore) Upload(ctx context.Context, bucket, objectPath string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(target)
		return fmt.Errorf("failed to write object: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(target)
		return fmt.Errorf("failed to write object: %w", err)
	}

	return nil
}

func (s *diskObjectStore) Download(ctx context.Context, bucket, objectPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, objectPath, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, objectPath, err)
	}

	return data, nil
}

func (s *diskObjectStore) Delete(ctx context.Context, bucket, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s/%s: %w", bucket, objectPath, ErrObjectNotFound)
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *diskObjectStore) bucketDir(bucket string) (string, error) {
	if bucket == "" || bucket == "." || bucket == ".." || strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("invalid bucket name %q", bucket)
	}
	return filepath.Join(s.root, bucket), nil
}

// resolve rejects object paths that would leave the bucket directory.
func (s *diskObjectStore) resolve(bucket, objectPath string) (string, error) {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return "", err
	}

	clean := path.Clean("/" + objectPath)
	if objectPath == "" || path.IsAbs(objectPath) || strings.Contains(objectPath, `\`) || clean == "/" || clean != "/"+objectPath {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}

	return filepath.Join(dir, filepath.FromSlash(clean[1:])), nil
}
