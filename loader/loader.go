/*
 * Copyright 2024 The Go-Spring Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package loader decodes configuration files (TOML, YAML, Java-style
// properties) into a flatdoc.Document. It is the bulk-write path
// barky's Storage was originally built to feed: decode a whole file
// to a nested map[string]any, flatten it to dotted leaf paths,
// validate the whole batch for structural conflicts before writing
// any of it, then write each top-level entry of the decoded tree into
// the document.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"github.com/go-spring/spring-flatdoc/flatdoc"
	"github.com/go-spring/spring-flatdoc/util"
	toml "github.com/pelletier/go-toml"
	"github.com/magiconair/properties"
	"github.com/spf13/cast"
	yaml "gopkg.in/yaml.v2"
)

// Format names a supported configuration file format.
type Format string

const (
	FormatTOML       Format = "toml"
	FormatYAML       Format = "yaml"
	FormatProperties Format = "properties"
)

// FormatFromExt guesses a Format from a file extension such as
// ".toml", ".yml", ".properties". Returns an error for anything else.
func FormatFromExt(ext string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "properties":
		return FormatProperties, nil
	default:
		return "", fmt.Errorf("loader: unsupported file extension %q", ext)
	}
}

// Load decodes the file at path (format inferred from its extension)
// and writes every leaf value into doc. It validates the decoded tree
// for structural conflicts — the same key addressed as both a map
// field and a list index, or as both a container and a scalar — before
// writing anything, so a bad file never leaves the document partially
// updated.
func Load(doc *flatdoc.Document, path string) error {
	format, err := FormatFromExt(filepath.Ext(path))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return util.FormatError(err, "loader: read %s", path)
	}
	return LoadBytes(doc, format, data, path)
}

// LoadBytes decodes data in the given format and writes every leaf
// value into doc. source is used only for log/error messages.
func LoadBytes(doc *flatdoc.Document, format Format, data []byte, source string) error {
	tree, err := decode(format, data)
	if err != nil {
		return util.FormatError(err, "loader: decode %s", source)
	}

	leaves := make(map[string]any)
	flattenLeaves("", tree, leaves)

	conflicts := flatdoc.NewConflictSet()
	for key := range leaves {
		if err := conflicts.Add(key); err != nil {
			return util.FormatError(err, "loader: %s", source)
		}
	}

	slog.Default().Info("loader: writing decoded file", "source", source, "format", format, "keys", len(leaves))
	for key, val := range tree {
		if err := doc.Set(key, val); err != nil {
			return util.FormatError(err, "loader: %s: set %s", source, key)
		}
	}
	if err := doc.Commit(); err != nil {
		return util.FormatError(err, "loader: %s: commit", source)
	}
	return nil
}

func decode(format Format, data []byte) (map[string]any, error) {
	switch format {
	case FormatTOML:
		return decodeTOML(data)
	case FormatYAML:
		return decodeYAML(data)
	case FormatProperties:
		return decodeProperties(data)
	default:
		return nil, fmt.Errorf("loader: unsupported format %q", format)
	}
}

func decodeTOML(data []byte) (map[string]any, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	normalized := normalizeTree(tree.ToMap())
	m, ok := normalized.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("loader: TOML document is not a mapping at the top level")
	}
	return m, nil
}

func decodeYAML(data []byte) (map[string]any, error) {
	var raw map[any]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	normalized := normalizeTree(raw)
	m, ok := normalized.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("loader: YAML document is not a mapping at the top level")
	}
	return m, nil
}

func decodeProperties(data []byte) (map[string]any, error) {
	props, err := properties.LoadString(string(data))
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, props.Len())
	for _, key := range props.Keys() {
		v, _ := props.Get(key)
		out[key] = v
	}
	// properties files are already flat dotted keys (e.g. "db.host");
	// unflatten them into the same nested map[string]any shape TOML/
	// YAML decode to, so the rest of the pipeline (conflict checking,
	// Set) is format-agnostic.
	return unflattenDotted(out)
}

// normalizeTree walks the result of a YAML/TOML decode and coerces it
// onto the closed {nil, bool, int64, float64, string, map[string]any,
// []any} shape flatdoc.Document.Set expects: map[any]any -> map[string]any
// (yaml.v2 decodes mapping keys as any), and numeric types through
// cast so flatdoc.DefaultCodec never has to reject a format-specific
// integer width.
func normalizeTree(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[cast.ToString(k)] = normalizeTree(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeTree(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeTree(val)
		}
		return out
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToInt64(t)
	case float32:
		return cast.ToFloat64(t)
	default:
		return t
	}
}

// flattenLeaves walks a decoded tree and records every scalar leaf
// under its dotted path, the mirror image of flatdoc's flatten.go.
func flattenLeaves(prefix string, v any, out map[string]any) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 && prefix != "" {
			out[prefix] = t
			return
		}
		for k, val := range t {
			flattenLeaves(joinLeafKey(prefix, k), val, out)
		}
	case []any:
		if len(t) == 0 && prefix != "" {
			out[prefix] = t
			return
		}
		for i, val := range t {
			flattenLeaves(fmt.Sprintf("%s[%d]", prefix, i), val, out)
		}
	default:
		out[prefix] = t
	}
}

func joinLeafKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// unflattenDotted reverses a properties file's "a.b.c=1" dotted keys
// into a nested map[string]any tree.
func unflattenDotted(flat map[string]any) (map[string]any, error) {
	root := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		cur := root
		for i, part := range parts {
			if i == len(parts)-1 {
				cur[part] = value
				break
			}
			next, ok := cur[part]
			if !ok {
				nextMap := make(map[string]any)
				cur[part] = nextMap
				cur = nextMap
				continue
			}
			nextMap, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("loader: key %q conflicts with scalar at %q", key, part)
			}
			cur = nextMap
		}
	}
	return root, nil
}
