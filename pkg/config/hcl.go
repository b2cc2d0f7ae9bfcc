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
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/keeper/pkg/apperr"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// hclConfig is the HCL schema:
//
//	keeper { id = "..." }
//	backup { zip_file = "..." }
//	api { catalog_url = "..." }
type hclConfig struct {
	Keeper hclKeeper  `hcl:"keeper,block"`
	Backup *hclBackup `hcl:"backup,block"`
	API    *hclAPI    `hcl:"api,block"`
}

type hclKeeper struct {
	ID    string `hcl:"id"`
	Email string `hcl:"email,optional"`
}

type hclBackup struct {
	ZipFile     string `hcl:"zip_file,optional"`
	LogFile     string `hcl:"log_file,optional"`
	LogVerbose  bool   `hcl:"log_verbose,optional"`
	Concurrency int    `hcl:"concurrency,optional"`
}

type hclAPI struct {
	CatalogURL  string `hcl:"catalog_url,optional"`
	ChecksumURL string `hcl:"checksum_url,optional"`
	BackupsURL  string `hcl:"backups_url,optional"`
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "keeper.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s: %w", diags.Error(), apperr.ErrValidation)
	}

	// Environment values are exposed as env.NAME
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(),
		},
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s: %w", diags.Error(), apperr.ErrValidation)
	}

	cfg := &Config{
		Keeper: Keeper{ID: hclCfg.Keeper.ID, Email: hclCfg.Keeper.Email},
	}
	if b := hclCfg.Backup; b != nil {
		cfg.Backup = Backup{
			ZipFile:     b.ZipFile,
			LogFile:     b.LogFile,
			LogVerbose:  b.LogVerbose,
			Concurrency: b.Concurrency,
		}
	}
	if a := hclCfg.API; a != nil {
		cfg.API = API{
			CatalogURL:  a.CatalogURL,
			ChecksumURL: a.ChecksumURL,
			BackupsURL:  a.BackupsURL,
		}
	}

	return cfg, nil
}

// encodeHCL renders cfg in the same schema Parse reads.
func encodeHCL(cfg *Config) []byte {
	hclCfg := hclConfig{
		Keeper: hclKeeper{ID: cfg.Keeper.ID, Email: cfg.Keeper.Email},
		Backup: &hclBackup{
			ZipFile:     cfg.Backup.ZipFile,
			LogFile:     cfg.Backup.LogFile,
			LogVerbose:  cfg.Backup.LogVerbose,
			Concurrency: cfg.Backup.Concurrency,
		},
		API: &hclAPI{
			CatalogURL:  cfg.API.CatalogURL,
			ChecksumURL: cfg.API.ChecksumURL,
			BackupsURL:  cfg.API.BackupsURL,
		},
	}

	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(&hclCfg, f.Body())
	return f.Bytes()
}

// envObject exposes the process environment to HCL expressions.
func envObject() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(name) {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}
