package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorePutGetOverwrite(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	ctx := context.Background()
	key := "qrcodes/CERT-1.png"

	require.NoError(t, store.Put(ctx, key, strings.NewReader("first")))

	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	// Overwrite replaces the prior blob under the same key.
	require.NoError(t, store.Put(ctx, key, strings.NewReader("second")))

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	assert.Equal(t, "http://localhost:8080/uploads/qrcodes/CERT-1.png", store.URL(key))
}

func TestFileStoreMissingArtifact(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	require.NoError(t, err)

	ctx := context.Background()

	ok, err := store.Exists(ctx, "pdfs/NOPE.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, "pdfs/NOPE.pdf")
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	// Deleting a missing blob is not an error.
	assert.NoError(t, store.Delete(ctx, "pdfs/NOPE.pdf"))
}

func TestFileStoreRejectsKeyEscapingBaseDir(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "uploads")
	store, err := NewFileStore(base, "")
	require.NoError(t, err)

	ctx := context.Background()

	for _, key := range []string{
		"qrcodes/../../ESCAPE.png",
		"../ESCAPE.png",
		"..",
		`..\ESCAPE.png`,
	} {
		assert.Error(t, store.Put(ctx, key, strings.NewReader("x")), "Put %q", key)
		_, err := store.Get(ctx, key)
		assert.Error(t, err, "Get %q", key)
		_, err = store.Exists(ctx, key)
		assert.Error(t, err, "Exists %q", key)
		assert.Error(t, store.Delete(ctx, key), "Delete %q", key)
	}

	// Nothing may land above the base directory.
	_, err = os.Stat(filepath.Join(root, "ESCAPE.png"))
	assert.True(t, os.IsNotExist(err))

	// Dot segments that stay inside the store remain usable.
	require.NoError(t, store.Put(ctx, "qrcodes/../pdfs/SAFE.pdf", strings.NewReader("ok")))
	ok, err := store.Exists(ctx, "pdfs/SAFE.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
}
