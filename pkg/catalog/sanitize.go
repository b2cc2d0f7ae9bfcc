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

package catalog

import (
	"strings"
	"unicode/utf8"
)

// MaxFilenameBytes is the longest name most filesystems accept.
const MaxFilenameBytes = 255

const invalidFilenameChars = `"*/:<>?\|`

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "CLOCK$": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SanitizeFilename maps a catalog filename to a name that is safe on every
// platform keeper runs on. Separators and other reserved characters are
// dropped, trailing dots and spaces are trimmed, device names get a "_"
// suffix and the result is capped at MaxFilenameBytes. The result is never
// empty, never "." or "..", and never contains a path separator.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f || r == utf8.RuneError || strings.ContainsRune(invalidFilenameChars, r) {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimRight(b.String(), " .")
	out = truncate(out, MaxFilenameBytes)
	out = strings.TrimRight(out, " .")

	if out == "" {
		return "_"
	}

	stem := out
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if _, ok := reservedNames[strings.ToUpper(stem)]; ok {
		out = truncate(out, MaxFilenameBytes-1) + "_"
	}

	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut]
}
