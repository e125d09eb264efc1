package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskObjectStore_RoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewDiskObjectStore(root)
	ctx := context.Background()

	require.NoError(t, store.EnsureBuckets("submissions", "answer-keys"))
	assert.DirExists(t, filepath.Join(root, "submissions"))
	assert.DirExists(t, filepath.Join(root, "answer-keys"))

	require.NoError(t, store.Upload(ctx, "submissions", "comp/a.csv", strings.NewReader("id,label\n1,cat\n")))

	data, err := store.Download(ctx, "submissions", "comp/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "id,label\n1,cat\n", string(data))

	require.NoError(t, store.Delete(ctx, "submissions", "comp/a.csv"))
	_, err = store.Download(ctx, "submissions", "comp/a.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestDiskObjectStore_Missing(t *testing.T) {
	store := NewDiskObjectStore(t.TempDir())
	ctx := context.Background()

	_, err := store.Download(ctx, "submissions", "nope.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	err = store.Delete(ctx, "submissions", "nope.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestDiskObjectStore_RejectsEscapingPaths(t *testing.T) {
	root := t.TempDir()
	store := NewDiskObjectStore(filepath.Join(root, "store"))
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.csv"), []byte("x"), 0644))

	for _, objectPath := range []string{
		"",
		"../secret.csv",
		"../../secret.csv",
		"a/../../secret.csv",
		"/etc/passwd",
		`a\b.csv`,
		"./a.csv",
		"a//b.csv",
	} {
		t.Run(objectPath, func(t *testing.T) {
			_, err := store.Download(ctx, "submissions", objectPath)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrObjectNotFound)
			assert.Contains(t, err.Error(), "invalid object path")
		})
	}

	for _, bucket := range []string{"", ".", "..", "a/b"} {
		_, err := store.Download(ctx, bucket, "a.csv")
		assert.ErrorContains(t, err, "invalid bucket name")
	}
}

func TestDiskObjectStore_CancelledContext(t *testing.T) {
	store := NewDiskObjectStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Upload(ctx, "submissions", "a.csv", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVObjectPath(t *testing.T) {
	p, err := CSVObjectPath("comp-1", "Predictions.CSV")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "comp-1/"))
	assert.True(t, strings.HasSuffix(p, ".csv"))

	other, err := CSVObjectPath("comp-1", "predictions.csv")
	require.NoError(t, err)
	assert.NotEqual(t, p, other)

	_, err = CSVObjectPath("comp-1", "predictions.xlsx")
	assert.Error(t, err)

	_, err = CSVObjectPath("comp-1", "predictions")
	assert.Error(t, err)
}
