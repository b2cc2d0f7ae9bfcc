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

// Package canonical produces RFC 8785 (JCS) encodings, the byte form every
// keeper and the server agree on when comparing metadata.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"
	"gitlab.com/tozd/go/errors"
)

// Marshal encodes v as canonical JSON: sorted keys, no insignificant
// whitespace, ECMAScript number formatting.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Errorf("encoding json: %w", err)
	}

	out, err := jcs.Transform(bytes.TrimSpace(buf.Bytes()))
	if err != nil {
		return nil, errors.Errorf("canonicalizing json: %w", err)
	}
	return out, nil
}

// Digest is the lowercase hex sha256 of Marshal(v).
func Digest(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
