package operation

import (
	"context"

	"github.com/jonboulle/clockwork"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/remote"
	"github.com/walteh/keeper/pkg/snapshot"
)

// DefaultConcurrency is how many artifacts sync at once when Options leaves it unset.
const DefaultConcurrency = 8

// 🎯 Operator defines the backup operations the CLI drives
type Operator interface {
	// Sync runs one full backup: resolve base, reconcile, repackage, report
	Sync(ctx context.Context) (*Summary, error)
	// Status is a read-only look at the archive and the server checksum
	Status(ctx context.Context) (*StatusReport, error)
}

// 🔧 Options contains configuration for the engine
type Options struct {
	// KeeperID identifies this keeper to the server
	KeeperID string
	// KeeperEmail is optional and omitted from the manifest when empty
	KeeperEmail string
	// ArchivePath is the snapshot zip to update
	ArchivePath string
	// WorkDir is where the private working tree is created, the system temp dir when empty
	WorkDir string
	// Concurrency caps in-flight artifacts
	Concurrency int

	Catalog   remote.Catalog
	Checksums remote.ChecksumSource
	Reporter  remote.Reporter
	Fetcher   remote.Fetcher

	// Observer receives best-effort progress events, may be nil
	Observer Observer
	// Clock stamps manifests and moved-aside archives, real time when nil
	Clock clockwork.Clock
}

// Engine runs backups. One Engine must not run two Syncs at once against
// the same archive.
type Engine struct {
	opts  Options
	clock clockwork.Clock
}

var _ Operator = (*Engine)(nil)

// 🏭 New creates a new engine with the given options
func New(opts Options) (*Engine, error) {
	if opts.KeeperID == "" {
		return nil, errors.Errorf("keeper id is required")
	}
	if opts.ArchivePath == "" {
		return nil, errors.Errorf("archive path is required")
	}
	if opts.Catalog == nil {
		return nil, errors.Errorf("catalog is required")
	}
	if opts.Checksums == nil {
		return nil, errors.Errorf("checksum source is required")
	}
	if opts.Reporter == nil {
		return nil, errors.Errorf("reporter is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.Errorf("fetcher is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Engine{opts: opts, clock: clock}, nil
}

// Summary is the outcome of one Sync.
type Summary struct {
	State   State
	Skipped bool

	Checksum  string
	TotalSize int64
	Manifest  *snapshot.Manifest

	Artifacts           int
	ArtifactsUpdated    int
	ArtifactsRelocated  int
	ArtifactsFailed     int
	ArtifactsIncomplete int
	FilesFetched        int
	FilesFailed         int
	PrunedPaths         int

	// ArchiveMovedAside is set when an unreadable archive was renamed out of the way.
	ArchiveMovedAside string
	Reported          bool
}

func (s *Summary) add(o outcome) {
	s.FilesFetched += o.result.FilesFetched
	s.FilesFailed += o.result.FilesFailed
	s.PrunedPaths += len(o.pruned)
	if o.relocated {
		s.ArtifactsRelocated++
	}
	if o.err != nil {
		s.ArtifactsFailed++
		return
	}
	s.TotalSize += o.result.BytesOnDisk
	if o.updated() {
		s.ArtifactsUpdated++
	}
	if o.result.Incomplete() {
		s.ArtifactsIncomplete++
	}
}
