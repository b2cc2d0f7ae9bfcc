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
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// 🎯 Console prints the short human summary of a run. Structured events go
// through zerolog; this is only for what a person should read at the end.
type Console struct {
	out io.Writer
	mu  sync.Mutex
}

// 🏭 NewConsole creates a console printer writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// 📝 Header prints a header line
func (c *Console) Header(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keeperText := color.New(color.Bold, color.FgCyan).Sprint("keeper")
	fmt.Fprintf(c.out, "\n%s %s\n\n", keeperText, color.New(color.Faint).Sprint("• "+msg))
}

// 📝 Line prints an already formatted line as is
func (c *Console) Line(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, msg)
}

// 📝 Success prints a success message
func (c *Console) Success(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
}

// 📝 Warning prints a warning message
func (c *Console) Warning(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
}

// 📝 Error prints an error message
func (c *Console) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
}

// 📝 Info prints an info message
func (c *Console) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
}

// 📝 Infof prints a formatted info message
func (c *Console) Infof(format string, args ...interface{}) {
	c.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf prints a formatted warning message
func (c *Console) Warningf(format string, args ...interface{}) {
	c.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf prints a formatted error message
func (c *Console) Errorf(format string, args ...interface{}) {
	c.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf prints a formatted success message
func (c *Console) Successf(format string, args ...interface{}) {
	c.Success(fmt.Sprintf(format, args...))
}
