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

// Package serializer renders run reports and backup listings.
//
// # Supported Formats
//
// JSON:
//   - Indented, machine-parseable
//   - Standard encoding/json package
//
// YAML:
//   - Human-readable, also used for the configuration file
//   - gopkg.in/yaml.v3 package
//
// Table:
//   - Column output for terminals
//   - Values implementing Tabular choose their own columns; anything else
//     is flattened into FIELD/VALUE rows
//   - Write-only
//
// # Usage - Encoding
//
//	w, err := serializer.NewFileWriterOrStdout(serializer.FormatYAML, path)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	if err := w.Serialize(ctx, report); err != nil {
//	    return err
//	}
//
// # Usage - Decoding
//
//	cfg := config.Default()
//	err := serializer.IntoFile("/etc/sysopt/config.yaml", cfg)
//
// Decoding rejects unknown fields so that typos in configuration files are
// reported instead of silently ignored.
//
// # Format Detection
//
// File extension-based detection:
//   - .json → JSON
//   - .yaml, .yml → YAML
//   - .table, .txt → Table
//   - Other, including no extension → YAML
package serializer
