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

// Package catalog models the artifact records published by the remote
// catalog and the metadata that keeper persists for each of them.
package catalog

import (
	"net/url"
	"path"
	"strings"
)

// MetadataFileName is the per-artifact metadata file. No catalog file may
// occupy this name inside an artifact directory.
const MetadataFileName = "metadata.json"

// Link is a related external resource.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FileEntry is one downloadable file of an artifact.
type FileEntry struct {
	Name          string  `json:"name"`
	Filename      string  `json:"filename"`
	MediaType     *string `json:"media_type"`
	Hash          string  `json:"hash"`
	HashAlgorithm string  `json:"hash_algorithm"`
	URL           string  `json:"url"`
	Lang          *string `json:"lang"`
	Hidden        bool    `json:"hidden"`

	// SanitizedName is the on-disk name, derived from Filename at decode time.
	SanitizedName string `json:"-"`
}

// ArtifactRecord is a single catalog item as received for one run.
type ArtifactRecord struct {
	ID          string      `json:"id"`
	URL         string      `json:"url"`
	URLAliases  []string    `json:"url_aliases"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	Description *string     `json:"description"`
	Files       []FileEntry `json:"files"`
	Links       []Link      `json:"links"`
	People      []string    `json:"people"`
	Identities  []string    `json:"identities"`
	FromYear    int         `json:"from_year"`
	ToYear      *int        `json:"to_year"`
	Decades     []int       `json:"decades"`
	Collections []string    `json:"collections"`
}

// Metadata is the persisted form of an ArtifactRecord. It carries every
// catalog field except url_aliases, which only matter while resolving
// renames and would otherwise churn the snapshot checksum.
type Metadata struct {
	ID          string      `json:"id"`
	URL         string      `json:"url"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	Description *string     `json:"description"`
	Files       []FileEntry `json:"files"`
	Links       []Link      `json:"links"`
	People      []string    `json:"people"`
	Identities  []string    `json:"identities"`
	FromYear    int         `json:"from_year"`
	ToYear      *int        `json:"to_year"`
	Decades     []int       `json:"decades"`
	Collections []string    `json:"collections"`
}

// DirName is the artifact directory name: the last path segment of the
// canonical URL.
func (r ArtifactRecord) DirName() string {
	return lastSegment(r.URL)
}

// AliasDirNames lists the directory names implied by prior URLs, skipping
// any that equal the current DirName or are unusable as a directory name.
func (r ArtifactRecord) AliasDirNames() []string {
	current := r.DirName()
	seen := map[string]struct{}{current: {}}
	out := make([]string, 0, len(r.URLAliases))
	for _, alias := range r.URLAliases {
		name := lastSegment(alias)
		if !ValidDirName(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Metadata returns the persisted view of r. Nil lists become empty so the
// encoding is stable whether or not the catalog sent them.
func (r ArtifactRecord) Metadata() Metadata {
	return Metadata{
		ID:          r.ID,
		URL:         r.URL,
		Title:       r.Title,
		Summary:     r.Summary,
		Description: r.Description,
		Files:       orEmpty(r.Files),
		Links:       orEmpty(r.Links),
		People:      orEmpty(r.People),
		Identities:  orEmpty(r.Identities),
		FromYear:    r.FromYear,
		ToYear:      r.ToYear,
		Decades:     orEmpty(r.Decades),
		Collections: orEmpty(r.Collections),
	}
}

// ValidDirName reports whether name can be used as a single directory
// component under the artifacts root.
func ValidDirName(name string) bool {
	switch name {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

func lastSegment(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
