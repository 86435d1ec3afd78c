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
	"fmt"

	"github.com/spf13/cast"
)

// Dump renders the whole document as a flat map[string]string of
// dotted path -> cast.ToString(value), for diagnostics, logging, and
// golden-file style test assertions. It walks the live view tree
// (honouring any uncommitted buffered writes), not the raw store
// keyspace, and follows the same textual conventions as barky's
// FlattenMap/FlattenValue: an empty mapping renders as "{}", an empty
// sequence as "[]", and nil as "<nil>".
func Dump(d *Document) (map[string]string, error) {
	out := make(map[string]string)
	if d.Len() == 0 {
		return out, nil
	}
	var outerErr error
	d.Iter()(func(key string) bool {
		val, err := d.Get(key)
		if err != nil {
			outerErr = err
			return false
		}
		if err := flattenInto(key, val, out); err != nil {
			outerErr = err
			return false
		}
		return true
	})
	return out, outerErr
}

// flattenInto recursively renders val under key into out, mirroring
// barky.FlattenValue's textual conventions but walking *Mapping /
// *Sequence overlays (and, for completeness, bare *FlatMappingView /
// *FlatSequenceView) instead of reflect.Value over a Go map/slice.
func flattenInto(key string, val any, out map[string]string) error {
	switch t := val.(type) {
	case nil:
		out[key] = "<nil>"
		return nil
	case *Mapping:
		if t.Len() == 0 {
			out[key] = "{}"
			return nil
		}
		var outerErr error
		t.Iter()(func(k string) bool {
			child, err := t.Get(k)
			if err != nil {
				outerErr = err
				return false
			}
			if err := flattenInto(key+"."+k, child, out); err != nil {
				outerErr = err
				return false
			}
			return true
		})
		return outerErr
	case *Sequence:
		if t.Len() == 0 {
			out[key] = "[]"
			return nil
		}
		for i := 0; i < t.Len(); i++ {
			child, err := t.Get(i)
			if err != nil {
				return err
			}
			if err := flattenInto(indexKey(key, i), child, out); err != nil {
				return err
			}
		}
		return nil
	case *FlatMappingView:
		cp, err := t.ShallowCopy()
		if err != nil {
			return err
		}
		if len(cp) == 0 {
			out[key] = "{}"
			return nil
		}
		for k, v := range cp {
			if err := flattenInto(key+"."+k, v, out); err != nil {
				return err
			}
		}
		return nil
	case *FlatSequenceView:
		if t.Len() == 0 {
			out[key] = "[]"
			return nil
		}
		i := 0
		var outerErr error
		t.Iter()(func(v any) bool {
			if err := flattenInto(indexKey(key, i), v, out); err != nil {
				outerErr = err
				return false
			}
			i++
			return true
		})
		return outerErr
	default:
		out[key] = cast.ToString(t)
		return nil
	}
}

func indexKey(key string, i int) string {
	return fmt.Sprintf("%s[%d]", key, i)
}
