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

package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/walteh/keeper/cmd/keeper/opts"
	"github.com/walteh/keeper/pkg/snapshot"
)

// VersionInfo represents the version information of the binary
type VersionInfo struct {
	Version        string `json:"version"`
	ManifestFormat int    `json:"manifest_format"`
	GoVersion      string `json:"go_version"`
	Platform       string `json:"platform"`
	Revision       string `json:"revision,omitempty"`
	Time           string `json:"time,omitempty"`
	Modified       bool   `json:"modified,omitempty"`
}

// GetVersionInfo reads the version from the embedded build info
func GetVersionInfo() *VersionInfo {
	info := &VersionInfo{
		Version:        "dev",
		ManifestFormat: snapshot.FormatVersion,
		GoVersion:      runtime.Version(),
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if v := buildInfo.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.time":
			info.Time = setting.Value
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	return info
}

// String renders the info for a terminal
func (v *VersionInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 keeper %s\n", v.Version)
	if v.Revision != "" {
		modified := ""
		if v.Modified {
			modified = " (modified)"
		}
		fmt.Fprintf(&b, "Revision:  %s%s\n", v.Revision, modified)
	}
	if v.Time != "" {
		fmt.Fprintf(&b, "Built:     %s\n", v.Time)
	}
	fmt.Fprintf(&b, "Manifest:  format %d\n", v.ManifestFormat)
	fmt.Fprintf(&b, "Go:        %s\n", v.GoVersion)
	fmt.Fprintf(&b, "Platform:  %s\n", v.Platform)
	return b.String()
}

func newVersionCmd(o *opts.RootOpts) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := GetVersionInfo()
			if asJSON {
				enc := json.NewEncoder(o.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			_, err := fmt.Fprint(o.Out, info.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}
