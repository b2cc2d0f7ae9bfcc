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

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
	"github.com/walteh/keeper/pkg/catalog"
)

const (
	// DefaultPageSize is the catalog page size requested per call.
	DefaultPageSize = 100

	// FetchChunkSize is the buffer used while streaming file bodies.
	FetchChunkSize = 128 * 1024

	// ReportFormatVersion is the backups API body version.
	ReportFormatVersion = 1
)

// Options configures a Client.
type Options struct {
	CatalogURL  string
	ChecksumURL string
	BackupsURL  string
	PageSize    int
	HTTPClient  *http.Client
}

// Client talks to the artifact catalog, checksum and backups endpoints.
type Client struct {
	opts Options
	http *http.Client
}

type catalogPage struct {
	Items      []json.RawMessage `json:"items"`
	NextCursor *string           `json:"next_cursor"`
}

// 🏭 NewClient validates the endpoint URLs and returns a Client.
func NewClient(opts Options) (*Client, error) {
	for name, raw := range map[string]string{
		"catalog":  opts.CatalogURL,
		"checksum": opts.ChecksumURL,
		"backups":  opts.BackupsURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.Errorf("invalid %s url %q: %w", name, raw, apperr.ErrValidation)
		}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Client{opts: opts, http: hc}, nil
}

// 📚 ListCatalog pages through the catalog until next_cursor is null.
func (c *Client) ListCatalog(ctx context.Context) ([]catalog.ArtifactRecord, error) {
	logger := zerolog.Ctx(ctx)

	var (
		records []catalog.ArtifactRecord
		seenIDs = map[string]struct{}{}
		cursors = map[string]struct{}{}
		cursor  string
		page    int
	)

	for {
		page++
		body, err := c.getCatalogPage(ctx, cursor)
		if err != nil {
			return nil, errors.Errorf("listing catalog page %d: %w", page, err)
		}

		for _, raw := range body.Items {
			rec, err := catalog.Decode(raw)
			if err != nil {
				logger.Warn().Err(err).Int("page", page).Msg("dropping invalid catalog record")
				continue
			}
			if _, ok := seenIDs[rec.ID]; ok {
				logger.Debug().Str("id", rec.ID).Msg("skipping duplicate catalog record")
				continue
			}
			seenIDs[rec.ID] = struct{}{}
			records = append(records, rec)
		}

		if body.NextCursor == nil || *body.NextCursor == "" {
			break
		}
		if _, ok := cursors[*body.NextCursor]; ok {
			return nil, errors.Errorf("catalog repeated cursor %q: %w", *body.NextCursor, apperr.ErrTransientFetch)
		}
		cursors[*body.NextCursor] = struct{}{}
		cursor = *body.NextCursor
	}

	logger.Info().Int("artifacts", len(records)).Int("pages", page).Msg("catalog listed")
	return records, nil
}

func (c *Client) getCatalogPage(ctx context.Context, cursor string) (*catalogPage, error) {
	u, err := url.Parse(strings.TrimRight(c.opts.CatalogURL, "/") + "/artifacts/")
	if err != nil {
		return nil, errors.Errorf("building catalog url: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.opts.PageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u.RawQuery = q.Encode()

	var page catalogPage
	if err := c.getJSON(ctx, u.String(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// 🔍 ServerChecksum asks the server for the current snapshot checksum.
// Every failure is logged and reported as absent.
func (c *Client) ServerChecksum(ctx context.Context) (ServerChecksum, bool) {
	logger := zerolog.Ctx(ctx)

	var out ServerChecksum
	if err := c.getJSON(ctx, c.opts.ChecksumURL, &out); err != nil {
		logger.Warn().Err(err).Msg("server checksum unavailable")
		return ServerChecksum{}, false
	}
	if out.Checksum == "" || out.FormatVersion <= 0 {
		logger.Warn().Int("format_version", out.FormatVersion).Msg("server checksum response incomplete")
		return ServerChecksum{}, false
	}
	return out, true
}

// 📣 ReportBackup posts the backup summary to the backups endpoint.
func (c *Client) ReportBackup(ctx context.Context, report BackupReport) error {
	if report.FormatVersion == 0 {
		report.FormatVersion = ReportFormatVersion
	}

	body, err := json.Marshal(report)
	if err != nil {
		return errors.Errorf("encoding report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BackupsURL, bytes.NewReader(body))
	if err != nil {
		return errors.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Errorf("posting backup report: %w: %w", apperr.ErrReporting, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("posting backup report: unexpected status code %d: %w", resp.StatusCode, apperr.ErrReporting)
	}
	return nil
}

// ⬇️ Fetch streams url into w in FetchChunkSize pieces.
func (c *Client) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.CopyBuffer(w, resp.Body, make([]byte, FetchChunkSize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return n, errors.WithStack(ctxErr)
		}
		return n, errors.Errorf("streaming %s: %w: %w", url, apperr.ErrTransientFetch, err)
	}
	return n, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Errorf("decoding response from %s: %w: %w", url, apperr.ErrTransientFetch, err)
	}
	return nil
}

// get returns a response with a 200 status or an error. The caller closes the body.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.WithStack(ctxErr)
		}
		return nil, errors.Errorf("requesting %s: %w: %w", url, apperr.ErrTransientFetch, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("requesting %s: unexpected status code %d: %w", url, resp.StatusCode, apperr.ErrTransientFetch)
	}

	return resp, nil
}
