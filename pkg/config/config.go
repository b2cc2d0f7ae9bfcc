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

package config

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/keeper/pkg/apperr"
)

const (
	// DefaultPath is where the CLI looks for its config when none is given.
	DefaultPath = "~/.config/keeper/keeper.yaml"

	DefaultCatalogURL  = "https://api.acearchive.lgbt/v0"
	DefaultChecksumURL = DefaultCatalogURL + "/checksum"
	DefaultBackupsURL  = DefaultCatalogURL + "/backups"
	DefaultZipFile     = "~/keeper/acearchive.zip"

	DefaultConcurrency = 8
	MaxConcurrency     = 256
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔑 Keeper identifies this installation to the archive service
type Keeper struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// 📦 Backup controls where the snapshot and logs go
type Backup struct {
	ZipFile     string `json:"zip_file" yaml:"zip_file"`
	LogFile     string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	LogVerbose  bool   `json:"log_verbose,omitempty" yaml:"log_verbose,omitempty"`
	Concurrency int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

// 🌐 API holds the service endpoints
type API struct {
	CatalogURL  string `json:"catalog_url,omitempty" yaml:"catalog_url,omitempty"`
	ChecksumURL string `json:"checksum_url,omitempty" yaml:"checksum_url,omitempty"`
	BackupsURL  string `json:"backups_url,omitempty" yaml:"backups_url,omitempty"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Keeper Keeper `json:"keeper" yaml:"keeper"`
	Backup Backup `json:"backup" yaml:"backup"`
	API    API    `json:"api,omitempty" yaml:"api,omitempty"`
}

// 🆕 Empty returns a config for keeperID with every default filled in.
func Empty(keeperID string) *Config {
	cfg := &Config{Keeper: Keeper{ID: keeperID}}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset optional fields.
func (cfg *Config) ApplyDefaults() {
	if cfg.Backup.ZipFile == "" {
		cfg.Backup.ZipFile = DefaultZipFile
	}
	if cfg.Backup.Concurrency == 0 {
		cfg.Backup.Concurrency = DefaultConcurrency
	}
	if cfg.API.CatalogURL == "" {
		cfg.API.CatalogURL = DefaultCatalogURL
	}
	if cfg.API.ChecksumURL == "" {
		cfg.API.ChecksumURL = DefaultChecksumURL
	}
	if cfg.API.BackupsURL == "" {
		cfg.API.BackupsURL = DefaultBackupsURL
	}
}

// 🌱 ApplyEnv overrides fields from KEEPER_* variables found by lookup.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for name, field := range map[string]*string{
		"KEEPER_ID":           &cfg.Keeper.ID,
		"KEEPER_EMAIL":        &cfg.Keeper.Email,
		"KEEPER_ZIP_FILE":     &cfg.Backup.ZipFile,
		"KEEPER_LOG_FILE":     &cfg.Backup.LogFile,
		"KEEPER_CATALOG_URL":  &cfg.API.CatalogURL,
		"KEEPER_CHECKSUM_URL": &cfg.API.ChecksumURL,
		"KEEPER_BACKUPS_URL":  &cfg.API.BackupsURL,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*field = v
		}
	}
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	err := validation.ValidateStruct(cfg,
		validation.Field(&cfg.Keeper),
		validation.Field(&cfg.Backup),
		validation.Field(&cfg.API),
	)
	if err != nil {
		return errors.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	return nil
}

// Validate implements validation.Validatable.
func (k Keeper) Validate() error {
	return validation.ValidateStruct(&k,
		validation.Field(&k.ID, validation.Required, validation.By(keeperID)),
		validation.Field(&k.Email, is.EmailFormat),
	)
}

// Validate implements validation.Validatable.
func (b Backup) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.ZipFile, validation.Required),
		validation.Field(&b.Concurrency, validation.Min(1), validation.Max(MaxConcurrency)),
	)
}

// Validate implements validation.Validatable.
func (a API) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.CatalogURL, validation.Required, validation.By(httpURL)),
		validation.Field(&a.ChecksumURL, validation.Required, validation.By(httpURL)),
		validation.Field(&a.BackupsURL, validation.Required, validation.By(httpURL)),
	)
}

func keeperID(v interface{}) error {
	s, _ := v.(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return errors.New("must be a UUID")
	}
	if id == uuid.Nil {
		return errors.New("must not be the nil UUID")
	}
	return nil
}

func httpURL(v interface{}) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

// 🏠 ExpandPaths resolves a leading ~ in the file paths.
func (cfg *Config) ExpandPaths() error {
	for _, p := range []*string{&cfg.Backup.ZipFile, &cfg.Backup.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return errors.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	path, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Errorf("expanding config path: %w", err)
	}
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Errorf("reading config file %s: %w", path, apperr.ErrNotFound)
		}
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s: %w", path, apperr.ErrValidation)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 💾 Write validates cfg and stores it at path in the format its extension
// names (YAML unless .json or .hcl), creating parent directories as needed.
func Write(ctx context.Context, path string, cfg *Config) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return errors.Errorf("expanding config path: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return errors.Errorf("validating config: %w", err)
	}

	data, err := encode(path, cfg)
	if err != nil {
		return errors.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Errorf("writing config file: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("path", path).Str("keeper_id", cfg.Keeper.ID).Msg("configuration written")
	return nil
}

func encode(path string, cfg *Config) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case ".hcl":
		return encodeHCL(cfg), nil
	default:
		return yaml.Marshal(cfg)
	}
}
