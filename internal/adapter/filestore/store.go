// Package filestore is a local-disk object store. Handles are signed URLs
// in the S3 presign style: the catalog never proxies bytes, it hands the
// caller a URL whose HMAC token a byte-serving frontend can verify.
package filestore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mediagrid/timestore/internal/config"
	"github.com/mediagrid/timestore/internal/domain"
)

// Store issues signed handles for and deletes locally stored objects.
type Store struct {
	root    string
	baseURL string
	secret  []byte
	clock   clockwork.Clock
}

// New creates a Store rooted at cfg.RootDir, creating the directory if
// needed.
func New(cfg config.ObjectStoreConfig, clock clockwork.Clock) (*Store, error) {
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create object store root: %w", err)
	}
	return &Store{
		root:    cfg.RootDir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  []byte(cfg.Secret),
		clock:   clock,
	}, nil
}

// IssueUploadHandle returns a signed PUT URL for writing the object's bytes.
// Upload handles are valid for one hour.
func (s *Store) IssueUploadHandle(_ context.Context, objectKey string) (string, error) {
	if err := validateKey(objectKey); err != nil {
		return "", err
	}
	return s.signedURL("PUT", objectKey, time.Hour), nil
}

// IssueDownloadHandle returns a signed GET URL valid for ttl.
func (s *Store) IssueDownloadHandle(_ context.Context, objectKey string, ttl time.Duration) (string, error) {
	if err := validateKey(objectKey); err != nil {
		return "", err
	}
	return s.signedURL("GET", objectKey, ttl), nil
}

// Delete removes the object's bytes. Missing files are not an error: the
// catalog may reclaim an object whose bytes were never uploaded.
func (s *Store) Delete(_ context.Context, objectKey string) error {
	if err := validateKey(objectKey); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(objectKey)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object %s: %w", objectKey, err)
	}
	return nil
}

func (s *Store) signedURL(method, objectKey string, ttl time.Duration) string {
	expires := s.clock.Now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("token", s.token(method, objectKey, expires))
	return fmt.Sprintf("%s/%s?%s", s.baseURL, urlEscapeKey(objectKey), q.Encode())
}

// Verify checks a token issued by signedURL. The byte-serving frontend calls
// this before streaming a file.
func (s *Store) Verify(method, objectKey string, expires int64, token string) bool {
	if s.clock.Now().Unix() > expires {
		return false
	}
	return hmac.Equal([]byte(token), []byte(s.token(method, objectKey, expires)))
}

func (s *Store) token(method, objectKey string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", method, objectKey, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// validateKey rejects keys that would escape the store root.
func validateKey(key string) error {
	if key == "" {
		return domain.NewValidationError("object_id", "required")
	}
	clean := path.Clean(key)
	if strings.HasPrefix(clean, "../") || clean == ".." || path.IsAbs(clean) {
		return domain.NewValidationError("object_id", "must not traverse outside the store")
	}
	return nil
}

func urlEscapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
