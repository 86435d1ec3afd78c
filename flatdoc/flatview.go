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
	"strings"
)

// asciiTop is the byte every descendant key of a prefix sorts below,
// used to skip an entire subtree during ordered iteration/purge
// (spec §3 invariant 5).
const asciiTop = "\xff"

// FlatMappingView presents a nested JSON mapping over a flat keyspace
// rooted at a dict-prefix path, per spec §4.3. The root mapping view
// has empty prefix. Multiple views over the same prefix are
// equivalent and may coexist: all state lives in the store.
type FlatMappingView struct {
	store   FlatStore
	ordered OrderedStore
	prefix  EncodedPath
	codec   ScalarCodec
}

// FlatSequenceView presents a nested JSON sequence over a flat
// keyspace rooted at a list-prefix path.
type FlatSequenceView struct {
	store   FlatStore
	ordered OrderedStore
	prefix  EncodedPath
	codec   ScalarCodec
}

// newFlatMappingView wraps store with a mapping view at prefix,
// detecting the OrderedStore capability once.
func newFlatMappingView(store FlatStore, prefix EncodedPath, codec ScalarCodec) *FlatMappingView {
	ordered, _ := store.(OrderedStore)
	return &FlatMappingView{store: store, ordered: ordered, prefix: prefix, codec: codec}
}

func newFlatSequenceView(store FlatStore, prefix EncodedPath, codec ScalarCodec) *FlatSequenceView {
	ordered, _ := store.(OrderedStore)
	return &FlatSequenceView{store: store, ordered: ordered, prefix: prefix, codec: codec}
}

// Prefix returns the encoded dict-prefix path this view is rooted at.
func (v *FlatMappingView) Prefix() EncodedPath { return v.prefix }

// Prefix returns the encoded list-prefix path this view is rooted at.
func (v *FlatSequenceView) Prefix() EncodedPath { return v.prefix }

// resolveChild inspects the three possible type markers at c and
// returns the scalar, a *FlatMappingView, or a *FlatSequenceView.
// missing is the error to return when none of the markers exist.
func resolveChild(store FlatStore, ordered OrderedStore, codec ScalarCodec, c EncodedPath, missing error) (any, error) {
	valueKey, err := c.Value()
	if err != nil {
		return nil, err
	}
	dictKey, err := c.ChildDict()
	if err != nil {
		return nil, err
	}
	listKey, err := c.ChildList()
	if err != nil {
		return nil, err
	}

	hasValue := store.Contains(string(valueKey))
	hasDict := store.Contains(string(dictKey))
	hasList := store.Contains(string(listKey))

	count := 0
	for _, b := range []bool{hasValue, hasDict, hasList} {
		if b {
			count++
		}
	}
	if count > 1 {
		return nil, &CorruptStoreError{Path: string(c), Detail: "more than one type marker present"}
	}

	switch {
	case hasValue:
		v, _ := store.Get(string(valueKey))
		return v, nil
	case hasDict:
		return newFlatMappingView(store, c, codec), nil
	case hasList:
		return newFlatSequenceView(store, c, codec), nil
	default:
		return nil, missing
	}
}

// Get returns the value stored at key: a scalar, a *FlatMappingView,
// or a *FlatSequenceView. Returns ErrKeyMissing if absent.
func (v *FlatMappingView) Get(key string) (any, error) {
	dictMarker, err := v.prefix.ChildDict()
	if err != nil {
		return nil, err
	}
	c, err := dictMarker.Lookup(key)
	if err != nil {
		return nil, err
	}
	return resolveChild(v.store, v.ordered, v.codec, c, ErrKeyMissing)
}

// Contains reports whether key is present.
func (v *FlatMappingView) Contains(key string) bool {
	_, err := v.Get(key)
	return err == nil
}

// Len returns the cached cardinality of the mapping, defaulting to 0
// when the length key is absent.
func (v *FlatMappingView) Len() int {
	return readLength(v.store, v.prefix)
}

func readLength(store FlatStore, prefix EncodedPath) int {
	lengthKey, err := prefix.Length()
	if err != nil {
		return 0
	}
	raw, ok := store.Get(string(lengthKey))
	if !ok {
		return 0
	}
	n, _ := raw.(int)
	return n
}

func writeLength(store FlatStore, prefix EncodedPath, n int) error {
	lengthKey, err := prefix.Length()
	if err != nil {
		return err
	}
	store.Put(string(lengthKey), n)
	return nil
}

// Set stages key -> value. Scalars are normalized through the view's
// codec; map[string]any and []any values (and *FlatMappingView /
// *FlatSequenceView values) are deep-copied so the caller's structure
// never aliases the store. Assigning a view back to the same position
// it was read from (d[k] = d[k]) is a no-op.
func (v *FlatMappingView) Set(key string, value any) error {
	dictMarker, err := v.prefix.ChildDict()
	if err != nil {
		return err
	}
	c, err := dictMarker.Lookup(key)
	if err != nil {
		return err
	}
	if isSelfAssignment(v.store, c, value) {
		return nil
	}
	existed := v.Contains(key)
	if err := writeChild(v.store, v.ordered, v.codec, c, value); err != nil {
		return err
	}
	if !existed {
		if err := writeLength(v.store, v.prefix, v.Len()+1); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes key. Returns ErrKeyMissing if absent.
func (v *FlatMappingView) Delete(key string) error {
	if !v.Contains(key) {
		return ErrKeyMissing
	}
	dictMarker, err := v.prefix.ChildDict()
	if err != nil {
		return err
	}
	c, err := dictMarker.Lookup(key)
	if err != nil {
		return err
	}
	purgeSubtree(v.store, v.ordered, string(c))
	return writeLength(v.store, v.prefix, v.Len()-1)
}

// Iter yields the mapping's direct keys. When the store exposes
// OrderedStore it walks lexicographically in O(children) successor
// hops (spec §4.3 "Ordered iteration"); otherwise it scans every
// stored key, which is O(total keys).
func (v *FlatMappingView) Iter() func(yield func(key string) bool) {
	prefix := v.prefix
	store := v.store
	ordered := v.ordered
	return func(yield func(key string) bool) {
		if ordered != nil {
			orderedMappingIter(ordered, prefix, yield)
			return
		}
		unorderedMappingIter(store, prefix, yield)
	}
}

// ShallowCopy materializes the mapping's immediate children into a
// plain Go map; nested containers remain views, not recursively
// copied. Adapted from jsdb's JsonFlatteningDict.copy().
func (v *FlatMappingView) ShallowCopy() (map[string]any, error) {
	out := make(map[string]any)
	var outerErr error
	v.Iter()(func(key string) bool {
		val, err := v.Get(key)
		if err != nil {
			outerErr = err
			return false
		}
		out[key] = val
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return out, nil
}

func orderedMappingIter(ordered OrderedStore, prefix EncodedPath, yield func(string) bool) {
	start, err := prefix.ChildDict()
	if err != nil {
		return
	}
	k, ok := ordered.KeyAfter(string(start))
	for {
		if !ok || !strings.HasPrefix(k, string(start)) {
			return
		}
		childPrefix := EncodedPath(k).Prefix()
		keyStr, err := childPrefix.KeyString()
		if err != nil {
			return
		}
		if !yield(keyStr) {
			return
		}
		k, ok = ordered.KeyAfter(string(childPrefix) + asciiTop)
	}
}

func unorderedMappingIter(store FlatStore, prefix EncodedPath, yield func(string) bool) {
	seen := make(map[string]bool)
	var stop bool
	store.IterKeys()(func(k string) bool {
		childPrefix := EncodedPath(k).Prefix()
		parent, err := childPrefix.Parent()
		if err != nil || parent != prefix {
			return true
		}
		keyStr, err := childPrefix.KeyString()
		if err != nil || seen[keyStr] {
			return true
		}
		seen[keyStr] = true
		if !yield(keyStr) {
			stop = true
			return false
		}
		return true
	})
	_ = stop
}

// --- FlatSequenceView ---

func (v *FlatSequenceView) Len() int {
	return readLength(v.store, v.prefix)
}

func (v *FlatSequenceView) normalizeIndex(i int) (int, error) {
	n := v.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, ErrIndexOutOfRange
	}
	return i, nil
}

// Get returns the element at index i (supporting negative indices).
func (v *FlatSequenceView) Get(i int) (any, error) {
	idx, err := v.normalizeIndex(i)
	if err != nil {
		return nil, err
	}
	listMarker, err := v.prefix.ChildList()
	if err != nil {
		return nil, err
	}
	c, err := listMarker.Index(idx)
	if err != nil {
		return nil, err
	}
	return resolveChild(v.store, v.ordered, v.codec, c, ErrIndexOutOfRange)
}

// Set replaces the element at index i. Does not change length.
func (v *FlatSequenceView) Set(i int, value any) error {
	idx, err := v.normalizeIndex(i)
	if err != nil {
		return err
	}
	return v.setItem(idx, value)
}

func (v *FlatSequenceView) setItem(idx int, value any) error {
	listMarker, err := v.prefix.ChildList()
	if err != nil {
		return err
	}
	c, err := listMarker.Index(idx)
	if err != nil {
		return err
	}
	if isSelfAssignment(v.store, c, value) {
		return nil
	}
	return writeChild(v.store, v.ordered, v.codec, c, value)
}

// Delete removes the element at index i, shifting subsequent elements
// down by one and decrementing the length.
func (v *FlatSequenceView) Delete(i int) error {
	idx, err := v.normalizeIndex(i)
	if err != nil {
		return err
	}
	n := v.Len()
	for j := idx; j < n-1; j++ {
		next, err := v.Get(j + 1)
		if err != nil {
			return err
		}
		if err := v.setItem(j, next); err != nil {
			return err
		}
	}
	listMarker, err := v.prefix.ChildList()
	if err != nil {
		return err
	}
	last, err := listMarker.Index(n - 1)
	if err != nil {
		return err
	}
	purgeSubtree(v.store, v.ordered, string(last))
	return writeLength(v.store, v.prefix, n-1)
}

// Insert inserts value at pos, shifting elements at pos and beyond up
// by one. Elements are copied upward (highest index first) to avoid
// clobbering a value before it has been read.
func (v *FlatSequenceView) Insert(pos int, value any) error {
	n := v.Len()
	if pos < 0 || pos > n {
		return ErrIndexOutOfRange
	}
	if err := writeLength(v.store, v.prefix, n+1); err != nil {
		return err
	}
	for j := n; j > pos; j-- {
		prev, err := v.Get(j - 1)
		if err != nil {
			return err
		}
		if err := v.setItem(j, prev); err != nil {
			return err
		}
	}
	return v.setItem(pos, value)
}

// Pop removes and returns the last element. Fails with
// ErrIndexOutOfRange if the sequence is empty.
func (v *FlatSequenceView) Pop() (any, error) {
	n := v.Len()
	if n == 0 {
		return nil, ErrIndexOutOfRange
	}
	val, err := v.Get(n - 1)
	if err != nil {
		return nil, err
	}
	if err := v.Delete(n - 1); err != nil {
		return nil, err
	}
	return val, nil
}

// SetAll replaces the entire sequence with the elements of values,
// corresponding to the spec's "set slice [:]" operation. Any other
// slice assignment is explicitly unsupported (spec §9 open question).
func (v *FlatSequenceView) SetAll(values []any) error {
	listMarker, err := v.prefix.ChildList()
	if err != nil {
		return err
	}
	purgeSubtree(v.store, v.ordered, string(listMarker))
	v.store.Put(string(listMarker), true)
	if err := writeLength(v.store, v.prefix, 0); err != nil {
		return err
	}
	for i, val := range values {
		if err := v.Insert(i, val); err != nil {
			return err
		}
	}
	return nil
}

// Iter yields the sequence's elements self[0] .. self[n-1].
func (v *FlatSequenceView) Iter() func(yield func(value any) bool) {
	return func(yield func(any) bool) {
		n := v.Len()
		for i := 0; i < n; i++ {
			val, err := v.Get(i)
			if err != nil {
				return
			}
			if !yield(val) {
				return
			}
		}
	}
}

// --- shared helpers ---

// isSelfAssignment detects d[k] = d[k]: value is a view over the same
// store at exactly the destination path c.
func isSelfAssignment(store FlatStore, c EncodedPath, value any) bool {
	switch t := value.(type) {
	case *FlatMappingView:
		return t.store == store && t.prefix == c
	case *FlatSequenceView:
		return t.store == store && t.prefix == c
	default:
		return false
	}
}

// writeChild purges any pre-existing subtree at c, deep-copies
// container values, and writes value at c according to its kind.
func writeChild(store FlatStore, ordered OrderedStore, codec ScalarCodec, c EncodedPath, value any) error {
	// materialize reads value (which may itself be a view rooted at a
	// descendant of c) before purgeSubtree deletes anything under c, so
	// assigning a child of the destination back onto it still deep-copies
	// instead of reading its own purged source.
	native, err := materialize(value)
	if err != nil {
		return err
	}

	purgeSubtree(store, ordered, string(c))

	switch t := native.(type) {
	case map[string]any:
		dictKey, err := c.ChildDict()
		if err != nil {
			return err
		}
		store.Put(string(dictKey), true)
		if err := writeLength(store, c, 0); err != nil {
			return err
		}
		dst := newFlatMappingView(store, c, codec)
		for k, v := range t {
			if err := dst.Set(k, v); err != nil {
				return err
			}
		}
		return nil
	case []any:
		listKey, err := c.ChildList()
		if err != nil {
			return err
		}
		store.Put(string(listKey), true)
		if err := writeLength(store, c, 0); err != nil {
			return err
		}
		dst := newFlatSequenceView(store, c, codec)
		for i, v := range t {
			if err := dst.Insert(i, v); err != nil {
				return err
			}
		}
		return nil
	default:
		if !codec.IsScalar(native) {
			return ErrValueRejected
		}
		normalized, err := codec.Normalize(native)
		if err != nil {
			return err
		}
		valueKey, err := c.Value()
		if err != nil {
			return err
		}
		store.Put(string(valueKey), normalized)
		return nil
	}
}

// materialize deep-copies value onto plain map[string]any / []any /
// scalar form, reading through *FlatMappingView / *FlatSequenceView
// so that assigning a node from elsewhere in the same (or another)
// document never aliases the store it was read from.
func materialize(value any) (any, error) {
	switch t := value.(type) {
	case *FlatMappingView:
		out := make(map[string]any)
		var outerErr error
		t.Iter()(func(key string) bool {
			child, err := t.Get(key)
			if err != nil {
				outerErr = err
				return false
			}
			m, err := materialize(child)
			if err != nil {
				outerErr = err
				return false
			}
			out[key] = m
			return true
		})
		if outerErr != nil {
			return nil, outerErr
		}
		return out, nil
	case *FlatSequenceView:
		out := make([]any, 0, t.Len())
		var outerErr error
		t.Iter()(func(v any) bool {
			m, err := materialize(v)
			if err != nil {
				outerErr = err
				return false
			}
			out = append(out, m)
			return true
		})
		if outerErr != nil {
			return nil, outerErr
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			m, err := materialize(v)
			if err != nil {
				return nil, err
			}
			out[k] = m
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			m, err := materialize(v)
			if err != nil {
				return nil, err
			}
			out[i] = m
		}
		return out, nil
	default:
		return t, nil
	}
}

// purgeSubtree removes every stored key that begins with prefix, per
// spec §4.3 "Purge subtree". It does not touch the length key of
// prefix's parent container; callers adjust that themselves.
func purgeSubtree(store FlatStore, ordered OrderedStore, prefix string) {
	if ordered != nil {
		keyAfterPurge(ordered, prefix)
		return
	}
	scanPurge(store, prefix)
}

func keyAfterPurge(ordered OrderedStore, prefix string) {
	if ordered.Contains(prefix) {
		ordered.Delete(prefix)
	}
	for {
		k, ok := ordered.KeyAfter(prefix)
		if !ok || !strings.HasPrefix(k, prefix) {
			return
		}
		ordered.Delete(k)
	}
}

func scanPurge(store FlatStore, prefix string) {
	var toDelete []string
	store.IterKeys()(func(k string) bool {
		if strings.HasPrefix(k, prefix) {
			toDelete = append(toDelete, k)
		}
		return true
	})
	for _, k := range toDelete {
		store.Delete(k)
	}
}
