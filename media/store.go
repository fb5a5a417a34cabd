package media

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore is the object storage contract consumed by the import workers:
// keyed blobs plus time-limited read URLs. Keys use forward slashes.
type ObjectStore interface {
	// Put writes an object and returns its canonical URL
	Put(key string, data []byte, contentType string) (string, error)
	// Delete removes an object; deleting a missing key is not an error
	Delete(key string) error
	// SignedURL returns a time-limited read URL for an object
	SignedURL(key string, ttl time.Duration) (string, error)
	// KeyFromURL extracts the object key from a canonical URL
	KeyFromURL(rawURL string) (string, error)
}

const mediaURLPrefix = "/media/"

// LocalObjectStore implements ObjectStore on the local filesystem, issuing
// HMAC-signed expiring URLs that the media handler verifies.
type LocalObjectStore struct {
	basePath      string
	publicBaseURL string
	secret        []byte
}

// NewLocalObjectStore creates a store rooted at basePath
func NewLocalObjectStore(basePath, publicBaseURL string, signingSecret []byte) (*LocalObjectStore, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}
	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}

	log.Printf("media.store: Initialized LocalObjectStore at %s", absBasePath)
	return &LocalObjectStore{
		basePath:      absBasePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		secret:        signingSecret,
	}, nil
}

// resolve maps a key to an absolute path, refusing keys that escape the base
func (s *LocalObjectStore) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	full := filepath.Clean(filepath.Join(s.basePath, filepath.FromSlash(key)))
	// the separator keeps sibling directories like basePath+"-x" from passing
	if !strings.HasPrefix(full, s.basePath+string(os.PathSeparator)) {
		return "", fmt.Errorf("object key %q resolves outside base path", key)
	}
	return full, nil
}

// Put writes an object and returns its canonical URL
func (s *LocalObjectStore) Put(key string, data []byte, contentType string) (string, error) {
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}
	return s.publicBaseURL + mediaURLPrefix + key, nil
}

// Delete removes an object
func (s *LocalObjectStore) Delete(key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// Open returns a reader for an object, used by the media handler
func (s *LocalObjectStore) Open(key string) (io.ReadCloser, os.FileInfo, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, info, nil
}

// sign computes the URL signature for a key and expiry timestamp
func (s *LocalObjectStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedURL returns a time-limited read URL for an object
func (s *LocalObjectStore) SignedURL(key string, ttl time.Duration) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s%s%s?expires=%d&sig=%s",
		s.publicBaseURL, mediaURLPrefix, key, expires, s.sign(key, expires)), nil
}

// SignedUploadURL issues a time-limited write URL together with the key the
// upload will land on. Used by the direct (non-pipeline) upload path.
func (s *LocalObjectStore) SignedUploadURL(ttl time.Duration) (string, string, error) {
	key := "uploads/" + uuid.NewString()
	expires := time.Now().Add(ttl).Unix()
	u := fmt.Sprintf("%s%s%s?expires=%d&sig=%s",
		s.publicBaseURL, mediaURLPrefix, key, expires, s.sign(key, expires))
	return u, key, nil
}

// VerifySignature checks an expires/sig pair produced by SignedURL
func (s *LocalObjectStore) VerifySignature(key, expiresStr, sig string) bool {
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil || time.Now().Unix() > expires {
		return false
	}
	expected := s.sign(key, expires)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// KeyFromURL extracts the object key from a canonical or signed URL
func (s *LocalObjectStore) KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid object URL %q: %w", rawURL, err)
	}
	key := strings.TrimPrefix(u.Path, mediaURLPrefix)
	if key == "" || key == u.Path {
		return "", fmt.Errorf("URL %q does not reference an object", rawURL)
	}
	return key, nil
}
