// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package file

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/NVIDIA/sysopt/pkg/defaults"
)

// Option configures a Parser.
type Option func(*Parser)

// Parser reads configuration files with customizable settings.
type Parser struct {
	maxSize      int
	skipComments bool
	kvDelimiter  string
	vTrimChars   string
}

// Pair is one key/value entry in file order.
type Pair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// WithMaxSize sets the maximum size (in bytes) of the file to be parsed.
// Default is defaults.MaxConfigFileSize.
func WithMaxSize(size int) Option {
	return func(p *Parser) {
		p.maxSize = size
	}
}

// WithSkipComments sets whether lines starting with '#' or ';' are ignored.
// Default is true.
func WithSkipComments(skip bool) Option {
	return func(p *Parser) {
		p.skipComments = skip
	}
}

// WithVTrimChars sets characters trimmed from both ends of values.
func WithVTrimChars(trimChars string) Option {
	return func(p *Parser) {
		p.vTrimChars = trimChars
	}
}

// NewParser creates a parser with the provided options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		maxSize:      defaults.MaxConfigFileSize,
		skipComments: true,
		kvDelimiter:  "=",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetLines reads path and returns its non-empty, trimmed lines.
func (p *Parser) GetLines(path string) ([]string, error) {
	b, err := p.read(path)
	if err != nil {
		return nil, err
	}
	return p.ParseLines(string(b)), nil
}

// ParseLines splits content into non-empty, trimmed lines, dropping
// comments when configured.
func (p *Parser) ParseLines(content string) []string {
	parts := strings.Split(content, "\n")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		line := strings.TrimSpace(part)
		if line == "" {
			continue
		}
		if p.skipComments && (strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";")) {
			continue
		}
		result = append(result, line)
	}
	return result
}

// GetPairs reads path and returns its key/value entries in file order.
// Lines without the delimiter are skipped. Repeated keys are all returned.
func (p *Parser) GetPairs(path string) ([]Pair, error) {
	b, err := p.read(path)
	if err != nil {
		return nil, err
	}
	return p.ParsePairs(string(b)), nil
}

// ParsePairs is GetPairs over in-memory content.
func (p *Parser) ParsePairs(content string) []Pair {
	lines := p.ParseLines(content)
	pairs := make([]Pair, 0, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, p.kvDelimiter)
		if !ok {
			slog.Debug("skipping line without delimiter", "line", line, "delimiter", p.kvDelimiter)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if p.vTrimChars != "" {
			value = strings.Trim(value, p.vTrimChars)
		}
		if key == "" {
			continue
		}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}
	return pairs
}

// GetMap reads path into a map. For repeated keys the last value wins,
// matching how sysctl and grub resolve duplicates.
func (p *Parser) GetMap(path string) (map[string]string, error) {
	pairs, err := p.GetPairs(path)
	if err != nil {
		return nil, err
	}
	return ToMap(pairs), nil
}

// ToMap folds pairs into a map, last value wins.
func ToMap(pairs []Pair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		m[kv.Key] = kv.Value
	}
	return m
}

func (p *Parser) read(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	if len(b) > p.maxSize {
		return nil, fmt.Errorf("file %q exceeds maximum size of %d bytes", path, p.maxSize)
	}

	if !utf8.Valid(b) {
		return nil, fmt.Errorf("content of file %q is not valid UTF-8", path)
	}

	return b, nil
}
