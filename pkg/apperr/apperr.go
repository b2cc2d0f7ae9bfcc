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

// Package apperr holds the error kinds shared across the keeper packages.
// Callers match them with errors.Is.
package apperr

import "gitlab.com/tozd/go/errors"

var (
	// ErrNotFound means a local file or archive does not exist.
	ErrNotFound = errors.Base("not found")

	// ErrConflict means a path exists but has the wrong kind, such as a
	// regular file where an artifact directory is expected.
	ErrConflict = errors.Base("conflict")

	// ErrTransientFetch is a network or upstream failure that a later run may not see.
	ErrTransientFetch = errors.Base("transient fetch failure")

	// ErrCorruptContainer means the archive is not a readable zip container.
	ErrCorruptContainer = errors.Base("corrupt container")

	// ErrUnsafe means a destructive operation would escape the working root.
	ErrUnsafe = errors.Base("unsafe path")

	// ErrReporting is a failure to notify the upstream service of a backup.
	ErrReporting = errors.Base("reporting failure")

	// ErrValidation means a catalog record, manifest or config failed validation.
	ErrValidation = errors.Base("validation failed")

	// ErrCancelled means the run stopped because its context was cancelled.
	// The context error stays in the chain.
	ErrCancelled = errors.Base("cancelled")
)
