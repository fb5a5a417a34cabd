package media

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalObjectStore {
	t.Helper()
	store, err := NewLocalObjectStore(t.TempDir(), "http://localhost:8080", []byte("signing-secret"))
	require.NoError(t, err)
	return store
}

func TestPutAndOpen(t *testing.T) {
	store := newTestStore(t)

	storageURL, err := store.Put("alice/photo.jpg", []byte("bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/alice/photo.jpg", storageURL)

	f, info, err := store.Open("alice/photo.jpg")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(5), info.Size())
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), data)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Put("k.jpg", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	require.NoError(t, store.Delete("k.jpg"))
	// deleting a missing key is not an error
	require.NoError(t, store.Delete("k.jpg"))

	_, _, err = store.Open("k.jpg")
	assert.Error(t, err)
}

func TestPutRefusesPathEscape(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Put("../outside.jpg", []byte("x"), "image/jpeg")
	assert.Error(t, err)
	_, err = store.Put("", []byte("x"), "image/jpeg")
	assert.Error(t, err)

	// a key resolving to the base directory itself is not an object; the
	// prefix check compares against base plus separator, so near-miss paths
	// like a sibling "base-x" directory can never pass either
	_, err = store.Put(".", []byte("x"), "image/jpeg")
	assert.Error(t, err)
}

func TestSignedURLVerifies(t *testing.T) {
	store := newTestStore(t)

	signed, err := store.SignedURL("alice/photo.jpg", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	key := strings.TrimPrefix(u.Path, "/media/")
	assert.Equal(t, "alice/photo.jpg", key)

	assert.True(t, store.VerifySignature(key, u.Query().Get("expires"), u.Query().Get("sig")))
}

func TestSignedURLRejectsTampering(t *testing.T) {
	store := newTestStore(t)

	signed, err := store.SignedURL("alice/photo.jpg", time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)
	expires := u.Query().Get("expires")
	sig := u.Query().Get("sig")

	// different key
	assert.False(t, store.VerifySignature("bob/photo.jpg", expires, sig))
	// forged signature
	assert.False(t, store.VerifySignature("alice/photo.jpg", expires, "deadbeef"))
	// shifted expiry
	assert.False(t, store.VerifySignature("alice/photo.jpg", fmt.Sprint(time.Now().Add(48*time.Hour).Unix()), sig))
}

func TestSignedURLExpires(t *testing.T) {
	store := newTestStore(t)

	signed, err := store.SignedURL("alice/photo.jpg", -time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)

	assert.False(t, store.VerifySignature("alice/photo.jpg", u.Query().Get("expires"), u.Query().Get("sig")))
}

func TestSignedUploadURL(t *testing.T) {
	store := newTestStore(t)

	uploadURL, key, err := store.SignedUploadURL(time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "uploads/"))

	u, err := url.Parse(uploadURL)
	require.NoError(t, err)
	assert.True(t, store.VerifySignature(key, u.Query().Get("expires"), u.Query().Get("sig")))
}

func TestKeyFromURL(t *testing.T) {
	store := newTestStore(t)

	key, err := store.KeyFromURL("http://localhost:8080/media/alice/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "alice/photo.jpg", key)

	key, err = store.KeyFromURL("http://localhost:8080/media/alice/photo.jpg?expires=1&sig=x")
	require.NoError(t, err)
	assert.Equal(t, "alice/photo.jpg", key)

	_, err = store.KeyFromURL("http://localhost:8080/other/path.jpg")
	assert.Error(t, err)
}
