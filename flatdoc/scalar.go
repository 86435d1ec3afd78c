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

package flatdoc

import (
	"github.com/spf13/cast"
)

// ScalarCodec coerces arbitrary Go values onto the closed JSON-scalar
// domain {nil, bool, int64, float64, string} that flatdoc stores at a
// value-type key, per spec §6. Round-trip fidelity is required for
// values already in canonical form; IsScalar decides whether a value
// belongs on this domain at all (as opposed to being a map or slice,
// which are containers, not scalars).
type ScalarCodec interface {
	// IsScalar reports whether v is a JSON scalar (as opposed to a
	// map or slice container).
	IsScalar(v any) bool

	// Normalize coerces v onto the canonical scalar domain. It
	// returns ErrValueRejected if v is not a scalar.
	Normalize(v any) (any, error)
}

// DefaultCodec is the ScalarCodec used by Document when none is
// supplied. It normalizes integers to int64, floats to float64, and
// leaves bool/string/nil untouched, using cast for coercion of
// non-canonical numeric types (int8/16/32, float32, etc.) — the same
// library the teacher's flattener uses for primitive coercion.
var DefaultCodec ScalarCodec = defaultCodec{}

type defaultCodec struct{}

func (defaultCodec) IsScalar(v any) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

func (defaultCodec) Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case string:
		return t, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToInt64(v), nil
	case float32, float64:
		return cast.ToFloat64(v), nil
	case map[string]any, []any:
		return nil, ErrValueRejected
	default:
		return nil, ErrValueRejected
	}
}
