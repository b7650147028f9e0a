// Package storage provides the blob store behind uploaded company documents
// and generated reports.
//
// Two backends implement BlobStore:
// - LocalStorage: filesystem storage for development, served under /files/
// - SupabaseStorage: Supabase Storage through its S3-compatible endpoint
//
// The backend is chosen once at startup from STORAGE_PROVIDER.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore is the storage abstraction used by services and jobs.
//
// All methods are context-aware for timeout and cancellation support.
type BlobStore interface {
	// Put stores data at key. It fails with ErrKeyExists unless
	// opts.Overwrite is set, and with ErrTooLarge when opts.MaxSize is exceeded.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get returns the object body (caller closes) and its metadata.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a download URL. A zero expiry asks for a permanent public
	// URL where the backend has one; otherwise a signed URL is returned.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is detected from the key extension when empty.
	ContentType string

	// MaxSize in bytes; 0 means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	BasePath string

	// BaseURL is the public URL prefix, e.g. "http://localhost:8080/files".
	BaseURL string
}

// SupabaseConfig holds configuration for Supabase Storage.
type SupabaseConfig struct {
	// ProjectRef is the project subdomain in https://<ref>.supabase.co.
	ProjectRef string

	// Region must match the project's region for SigV4 signing.
	Region string

	AccessKeyID     string
	SecretAccessKey string
	Bucket          string

	// PublicURL overrides the public object URL prefix. When empty and the
	// bucket is public, https://<ref>.supabase.co/storage/v1/object/public/<bucket>
	// is used; otherwise signed URLs are issued.
	PublicURL string

	// PublicBucket reports whether objects can be fetched without signing.
	PublicBucket bool

	// Endpoint overrides the S3 endpoint (tests, self-hosted Supabase).
	Endpoint string
}

const (
	ProviderLocal    = "local"
	ProviderSupabase = "supabase"
)

// New constructs the configured backend.
func New(provider string, local LocalConfig, supabase SupabaseConfig, logger *slog.Logger) (BlobStore, error) {
	switch provider {
	case ProviderLocal:
		return NewLocalStorage(local, logger)
	case ProviderSupabase:
		return NewSupabaseStorage(supabase, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", provider)
	}
}

// DocumentKey generates a key for an uploaded project document.
// Format: users/{userID}/projects/{projectID}/source{ext}
func DocumentKey(userID, projectID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("users/%s/projects/%s/source%s", userID, projectID, ext)
}

// ReportKey generates a key for a generated PDF report.
// Format: users/{userID}/projects/{projectID}/reports/{reportID}.pdf
func ReportKey(userID, projectID, reportID uuid.UUID) string {
	return fmt.Sprintf("users/%s/projects/%s/reports/%s.pdf", userID, projectID, reportID)
}

// validateKey rejects empty keys and path traversal.
func validateKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	return nil
}
