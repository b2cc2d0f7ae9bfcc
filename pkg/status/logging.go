// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package status

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/walteh/keeper/pkg/operation"
)

// 🎨 Display configuration
const (
	lineIndent   = 4  // spaces to indent artifact entries
	nameWidth    = 35 // Base width for the directory name
	outcomeWidth = 12 // Width for the outcome word
)

// 🎯 FormatArtifactLine formats an artifact outcome as an aligned, colored row
func FormatArtifactLine(report operation.ArtifactReport) string {
	var prefix, outcome, detail string
	switch {
	case report.Err != nil:
		prefix, outcome, detail = color.RedString("✗"), "failed", report.Err.Error()
	case report.Relocated:
		prefix, outcome = color.CyanString("→"), "relocated"
	case report.FilesFailed > 0:
		prefix, outcome = color.YellowString("!"), "incomplete"
		detail = fmt.Sprintf("%d missing", report.FilesFailed)
	case report.FilesFetched > 0:
		prefix, outcome = color.GreenString("✓"), "fetched"
		detail = fmt.Sprintf("%d files", report.FilesFetched)
	case report.Updated:
		prefix, outcome = color.YellowString("⟳"), "updated"
	default:
		prefix, outcome = color.HiBlackString("-"), "unchanged"
	}

	namePart := fmt.Sprintf("%-*s", nameWidth, report.DirName)
	outcomePart := fmt.Sprintf("%-*s", outcomeWidth, outcome)

	return strings.TrimRight(fmt.Sprintf("%s%s %s %s %s",
		strings.Repeat(" ", lineIndent),
		prefix,
		namePart,
		outcomePart,
		detail,
	), " ")
}

// 📋 FormatSummary renders the counters of a finished run, one line each
func FormatSummary(sum *operation.Summary) []string {
	if sum == nil {
		return nil
	}
	if sum.Skipped {
		return []string{fmt.Sprintf("archive already current (checksum %s)", short(sum.Checksum))}
	}

	lines := []string{
		fmt.Sprintf("artifacts:  %d total, %d updated, %d relocated", sum.Artifacts, sum.ArtifactsUpdated, sum.ArtifactsRelocated),
		fmt.Sprintf("files:      %d fetched, %d failed", sum.FilesFetched, sum.FilesFailed),
		fmt.Sprintf("pruned:     %d paths", sum.PrunedPaths),
		fmt.Sprintf("size:       %s", HumanBytes(sum.TotalSize)),
		fmt.Sprintf("checksum:   %s", sum.Checksum),
	}
	if sum.ArtifactsFailed > 0 || sum.ArtifactsIncomplete > 0 {
		lines = append(lines, fmt.Sprintf("problems:   %d failed, %d incomplete", sum.ArtifactsFailed, sum.ArtifactsIncomplete))
	}
	if sum.ArchiveMovedAside != "" {
		lines = append(lines, fmt.Sprintf("moved aside: %s", sum.ArchiveMovedAside))
	}
	return lines
}

// HumanBytes formats n using binary units.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func short(checksum string) string {
	if len(checksum) > 12 {
		return checksum[:12]
	}
	return checksum
}
