package status

import (
	"fmt"

	"github.com/walteh/keeper/pkg/operation"
)

// ArtifactFormatter defines how artifact outcomes and progress are rendered
type ArtifactFormatter interface {
	// FormatArtifact formats the outcome of one artifact
	FormatArtifact(report operation.ArtifactReport) string

	// FormatProgress formats a progress message
	FormatProgress(current, total int) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultArtifactFormatter provides a default implementation of ArtifactFormatter
type DefaultArtifactFormatter struct{}

// NewDefaultArtifactFormatter creates a new DefaultArtifactFormatter
func NewDefaultArtifactFormatter() *DefaultArtifactFormatter {
	return &DefaultArtifactFormatter{}
}

// FormatArtifact formats an artifact outcome with emojis
func (f *DefaultArtifactFormatter) FormatArtifact(report operation.ArtifactReport) string {
	switch {
	case report.Err != nil:
		return fmt.Sprintf("❌ Failed %s: %v", report.DirName, report.Err)
	case report.Relocated:
		return fmt.Sprintf("🚚 Relocated %s", report.DirName)
	case report.FilesFailed > 0:
		return fmt.Sprintf("⚠️  Incomplete %s (%d files missing)", report.DirName, report.FilesFailed)
	case report.FilesFetched > 0:
		return fmt.Sprintf("✨ Fetched %d files for %s", report.FilesFetched, report.DirName)
	case report.Updated:
		return fmt.Sprintf("📝 Updated %s", report.DirName)
	default:
		return fmt.Sprintf("👍 Unchanged %s", report.DirName)
	}
}

// FormatProgress formats a progress message with percentage
func (f *DefaultArtifactFormatter) FormatProgress(current, total int) string {
	var percentage float64
	if total == 0 {
		percentage = 0
		if current > 0 {
			percentage = 100
		}
	} else {
		percentage = float64(current) / float64(total) * 100
	}

	if current >= total {
		return fmt.Sprintf("✅ Progress: %d/%d (%.0f%%)", current, total, percentage)
	}
	return fmt.Sprintf("⏳ Progress: %d/%d (%.0f%%)", current, total, percentage)
}

// FormatError formats an error message with emoji
func (f *DefaultArtifactFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
