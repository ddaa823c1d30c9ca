package railinspect

import (
	"context"
	"io"
)

// FileStorage holds published report documents. Keys are slash-separated
// paths such as the ones built by ReportDocumentKey.
type FileStorage interface {
	// Upload stores reader under key, replacing any previous object, and
	// returns the object's URL.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (url string, err error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// GetURL returns where clients fetch key. It does not check existence.
	GetURL(key string) string

	Exists(ctx context.Context, key string) (bool, error)
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	// Provider is "local", "s3" or "minio".
	Provider string

	// local: files under LocalPath, served from LocalURL
	LocalPath string
	LocalURL  string

	// s3: credentials come from the default AWS chain
	S3Bucket  string
	S3Region  string
	S3BaseURL string

	// minio: any S3-compatible endpoint with static keys
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioBaseURL   string
}

// Content types of generated report documents.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// ReportDocumentKey returns the storage key of a report's generated document.
// A report has at most one document per extension; regenerating replaces it.
func ReportDocumentKey(reportID string, ext string) string {
	return "reports/" + reportID + "/trip-report." + ext
}
