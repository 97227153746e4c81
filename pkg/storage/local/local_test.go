package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luzifer/filegate/pkg/storage"
)

func TestStoreAndGetFile(t *testing.T) {
	var (
		ctx = context.Background()
		s   = New(t.TempDir())
	)

	require.NoError(t, s.StoreFile(ctx, "albums/2024/photo_1.jpg", &storage.Meta{ContentType: "image/jpeg"}, strings.NewReader("jpegdata")))

	r, meta, err := s.GetFile(ctx, "albums/2024/photo_1.jpg")
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(body))
	assert.Equal(t, "image/jpeg", meta.ContentType)
	assert.Equal(t, int64(8), meta.Size)
	assert.False(t, meta.LastModified.IsZero())
}

func TestGetFileWithoutMeta(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, objectsDir), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, objectsDir, "plain.png"), []byte("png"), 0o600))

	r, meta, err := New(dir).GetFile(context.Background(), "plain.png")
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	assert.Empty(t, meta.ContentType)
	assert.Equal(t, int64(3), meta.Size)
}

func TestGetFileMissing(t *testing.T) {
	s := New(t.TempDir())

	_, _, err := s.GetFile(context.Background(), "nope.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, s.StoreFile(context.Background(), "dir/file.txt", &storage.Meta{}, strings.NewReader("x")))
	_, _, err = s.GetFile(context.Background(), "dir")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestKeysStayBelowBasePath(t *testing.T) {
	var (
		root = t.TempDir()
		base = filepath.Join(root, "data")
		s    = New(base)
	)

	err := s.StoreFile(context.Background(), "../../escape.txt", &storage.Meta{}, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(base)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNonCanonicalKeys(t *testing.T) {
	var (
		ctx = context.Background()
		s   = New(t.TempDir())
	)

	require.NoError(t, s.StoreFile(ctx, "a/b.txt", &storage.Meta{}, strings.NewReader("x")))

	for _, key := range []string{"", "a/b.txt/", "a//b.txt", "/a/b.txt", "a/./b.txt", "a/../a/b.txt"} {
		_, _, err := s.GetFile(ctx, key)
		assert.ErrorIs(t, err, os.ErrNotExist, key)

		err = s.StoreFile(ctx, key, &storage.Meta{}, strings.NewReader("y"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}

	// The canonical object stays untouched
	r, _, err := s.GetFile(ctx, "a/b.txt")
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "x", string(body))
}

func TestKeysBelowRegularFile(t *testing.T) {
	var (
		ctx = context.Background()
		s   = New(t.TempDir())
	)

	require.NoError(t, s.StoreFile(ctx, "photo.jpg", &storage.Meta{}, strings.NewReader("x")))

	_, _, err := s.GetFile(ctx, "photo.jpg/other.png")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, s.DeleteFile(ctx, "photo.jpg/other.png"), os.ErrNotExist)
}

func TestMetadataNotAddressable(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
		s   = New(dir)
	)

	require.NoError(t, s.StoreFile(ctx, "photo.jpg", &storage.Meta{ContentType: "image/jpeg"}, strings.NewReader("x")))

	_, err := os.Stat(filepath.Join(dir, metaDir, "photo.jpg"+metaSuffix))
	require.NoError(t, err)

	for _, key := range []string{"photo.jpg.meta", "photo.jpg.json", "../meta/photo.jpg.json", "meta/photo.jpg.json"} {
		_, _, err := s.GetFile(ctx, key)
		assert.ErrorIs(t, err, os.ErrNotExist, key)
	}
}

func TestDeleteFile(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
		s   = New(dir)
	)

	require.NoError(t, s.StoreFile(ctx, "gone.txt", &storage.Meta{ContentType: "text/plain"}, strings.NewReader("x")))
	require.NoError(t, s.DeleteFile(ctx, "gone.txt"))

	_, err := os.Stat(filepath.Join(dir, metaDir, "gone.txt"+metaSuffix))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = s.GetFile(ctx, "gone.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, s.DeleteFile(ctx, "gone.txt"), os.ErrNotExist)
}
