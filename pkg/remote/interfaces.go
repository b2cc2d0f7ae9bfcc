package remote

import (
	"context"
	"io"

	"github.com/walteh/keeper/pkg/catalog"
)

// Catalog lists the artifacts a backup must contain
type Catalog interface {
	// ListCatalog returns every valid artifact, deduplicated by id, following
	// pagination until the catalog is exhausted. Invalid records are dropped.
	ListCatalog(ctx context.Context) ([]catalog.ArtifactRecord, error)
}

// ChecksumSource reports the checksum the server expects a current snapshot to have
type ChecksumSource interface {
	// ServerChecksum is best effort: ok is false whenever the value is unknown
	ServerChecksum(ctx context.Context) (ServerChecksum, bool)
}

// Reporter tells the server a backup has been committed
type Reporter interface {
	// ReportBackup posts the completed snapshot summary
	ReportBackup(ctx context.Context, report BackupReport) error
}

// Fetcher streams the body of a file URL into w
type Fetcher interface {
	// Fetch returns the number of bytes written. Failures carry apperr.ErrTransientFetch.
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)
}

// ServerChecksum is the server's view of the current snapshot checksum
type ServerChecksum struct {
	FormatVersion int    `json:"format_version"`
	Checksum      string `json:"checksum"`
}

// BackupReport is the body posted once a backup is committed
type BackupReport struct {
	FormatVersion int    `json:"format_version"`
	KeeperID      string `json:"keeper_id"`
	Checksum      string `json:"checksum"`
	Size          int64  `json:"size"`
	Email         string `json:"email,omitempty"`
}
