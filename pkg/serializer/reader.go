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

package serializer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatFromPath picks the format from the file extension: .json is JSON,
// .table and .txt are table, everything else (including no extension) is
// YAML. Matching is case-insensitive.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".table", ".txt":
		return FormatTable
	case ".yaml", ".yml":
		return FormatYAML
	default:
		slog.Debug("no known file extension, reading as YAML", "path", path)
		return FormatYAML
	}
}

// Decode reads one document from in into v. Unknown fields are an error;
// empty input leaves v untouched.
func Decode(format Format, in io.Reader, v any) error {
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(in)
		dec.DisallowUnknownFields()
		err = dec.Decode(v)
	case FormatYAML:
		dec := yaml.NewDecoder(in)
		dec.KnownFields(true)
		err = dec.Decode(v)
	case FormatTable:
		return fmt.Errorf("table format does not support deserialization")
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s: %w", format, err)
	}
	return nil
}

// IntoFile decodes path into v, keeping fields the file does not set. The
// format comes from FormatFromPath.
func IntoFile(path string, v any) error {
	format := FormatFromPath(path)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "path", path, "error", closeErr)
		}
	}()

	if err := Decode(format, f, v); err != nil {
		return fmt.Errorf("failed to deserialize object from %q: %w", path, err)
	}

	slog.Debug("loaded object from file", "path", path, "format", format)
	return nil
}
