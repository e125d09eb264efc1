package testutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var ErrObjectMissing = errors.New("object missing")

// ObjectStore keeps objects in memory keyed by bucket and path.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// UploadErr, when set, is returned by Upload.
	UploadErr error
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string][]byte)}
}

func objectKey(bucket, objectPath string) string {
	return bucket + "/" + objectPath
}

// Put stores data directly.
func (s *ObjectStore) Put(bucket, objectPath string, data string) {
	s.mu.Lock()
	s.objects[objectKey(bucket, objectPath)] = []byte(data)
	s.mu.Unlock()
}

func (s *ObjectStore) Has(bucket, objectPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[objectKey(bucket, objectPath)]
	return ok
}

// Len counts the objects held in bucket.
func (s *ObjectStore) Len(bucket string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.objects {
		if strings.HasPrefix(key, bucket+"/") {
			n++
		}
	}
	return n
}

func (s *ObjectStore) EnsureBuckets(...string) error { return nil }

func (s *ObjectStore) Upload(_ context.Context, bucket, objectPath string, r io.Reader) error {
	if s.UploadErr != nil {
		return s.UploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[objectKey(bucket, objectPath)] = data
	s.mu.Unlock()
	return nil
}

func (s *ObjectStore) Download(_ context.Context, bucket, objectPath string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[objectKey(bucket, objectPath)]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, objectPath, ErrObjectMissing)
	}
	return append([]byte(nil), data...), nil
}

func (s *ObjectStore) Delete(_ context.Context, bucket, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := objectKey(bucket, objectPath)
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%s/%s: %w", bucket, objectPath, ErrObjectMissing)
	}
	delete(s.objects, key)
	return nil
}
