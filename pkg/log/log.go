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

package log

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Options controls where the process logger writes and how much.
type Options struct {
	// Verbosity 0 logs errors, 1 warnings, 2 info and 3 or more debug.
	Verbosity int

	// LogFile is appended to when set. A leading ~ is expanded.
	LogFile string

	// Quiet drops the console writer. The log file, if any, still receives
	// every event at the chosen level.
	Quiet bool

	// Console overrides stderr as the console destination.
	Console io.Writer
}

// 🎚️ Level maps a verbosity count to a zerolog level.
func Level(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.ErrorLevel
	case verbosity == 1:
		return zerolog.WarnLevel
	case verbosity == 2:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// 🏭 New builds the process logger. The returned closer releases the log
// file and is safe to call when no file was opened.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }

	var writers []io.Writer
	if !opts.Quiet {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	}

	var closer io.Closer = nopCloser{}
	if opts.LogFile != "" {
		path, err := homedir.Expand(opts.LogFile)
		if err != nil {
			return zerolog.Nop(), nil, errors.Errorf("expanding log file path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return zerolog.Nop(), nil, errors.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, errors.Errorf("opening log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(Level(opts.Verbosity)).
		With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
