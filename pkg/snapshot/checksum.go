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

package snapshot

import (
	"sort"

	"github.com/walteh/keeper/pkg/canonical"
	"github.com/walteh/keeper/pkg/catalog"
)

// AggregateChecksum is the sha256 of the canonical encoding of metadata
// sorted by id. Input order never affects the result and metadata is not
// modified.
func AggregateChecksum(metadata []catalog.Metadata) (string, error) {
	sorted := make([]catalog.Metadata, len(metadata))
	copy(sorted, metadata)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	return canonical.Digest(sorted)
}
