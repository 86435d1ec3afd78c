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
	"sort"
	"testing"

	"github.com/go-spring/gs-assert/assert"
)

// unorderedStore is a minimal FlatStore test double that does NOT
// implement OrderedStore, exercising the O(total keys) fallback
// iteration/purge paths alongside an ordered store's O(log n) ones.
type unorderedStore struct {
	values map[string]any
}

func newUnorderedStore() *unorderedStore {
	return &unorderedStore{values: make(map[string]any)}
}

func (s *unorderedStore) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *unorderedStore) Put(key string, value any) { s.values[key] = value }

func (s *unorderedStore) Delete(key string) { delete(s.values, key) }

func (s *unorderedStore) Contains(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *unorderedStore) IterKeys() func(yield func(string) bool) {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return func(yield func(string) bool) {
		for _, k := range keys {
			if !yield(k) {
				return
			}
		}
	}
}

func (s *unorderedStore) Close() error { return nil }

// orderedTestStore is a tiny ordered FlatStore test double, independent
// of package memstore, so flatdoc's own tests have no import-cycle risk.
type orderedTestStore struct {
	values map[string]any
	keys   []string
}

func newOrderedTestStore() *orderedTestStore {
	return &orderedTestStore{values: make(map[string]any)}
}

func (s *orderedTestStore) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *orderedTestStore) Put(key string, value any) {
	if _, exists := s.values[key]; !exists {
		i := sort.SearchStrings(s.keys, key)
		s.keys = append(s.keys, "")
		copy(s.keys[i+1:], s.keys[i:])
		s.keys[i] = key
	}
	s.values[key] = value
}

func (s *orderedTestStore) Delete(key string) {
	if _, exists := s.values[key]; !exists {
		return
	}
	delete(s.values, key)
	i := sort.SearchStrings(s.keys, key)
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
}

func (s *orderedTestStore) Contains(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *orderedTestStore) IterKeys() func(yield func(string) bool) {
	keys := append([]string(nil), s.keys...)
	return func(yield func(string) bool) {
		for _, k := range keys {
			if !yield(k) {
				return
			}
		}
	}
}

func (s *orderedTestStore) Close() error { return nil }

func (s *orderedTestStore) KeyAfter(key string) (string, bool) {
	i := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] > key })
	if i == len(s.keys) {
		return "", false
	}
	return s.keys[i], true
}

func bothStores() map[string]FlatStore {
	return map[string]FlatStore{
		"ordered":   newOrderedTestStore(),
		"unordered": newUnorderedStore(),
	}
}

func TestFlatMappingViewSetGetDelete(t *testing.T) {
	for name, store := range bothStores() {
		t.Run(name, func(t *testing.T) {
			view := newFlatMappingView(store, "", DefaultCodec)

			assert.ThatError(t, view.Set("name", "alice")).Nil()
			assert.ThatError(t, view.Set("age", 30)).Nil()
			assert.That(t, view.Len()).Equal(2)
			assert.That(t, view.Contains("name")).Equal(true)

			v, err := view.Get("name")
			assert.ThatError(t, err).Nil()
			assert.That(t, v).Equal("alice")

			assert.ThatError(t, view.Delete("name")).Nil()
			assert.That(t, view.Contains("name")).Equal(false)
			assert.That(t, view.Len()).Equal(1)

			_, err = view.Get("name")
			assert.ThatError(t, err).Is(ErrKeyMissing)
		})
	}
}

func TestFlatMappingViewNestedContainers(t *testing.T) {
	for name, store := range bothStores() {
		t.Run(name, func(t *testing.T) {
			view := newFlatMappingView(store, "", DefaultCodec)
			assert.ThatError(t, view.Set("server", map[string]any{
				"port":  8080,
				"hosts": []any{"a", "b", "c"},
			})).Nil()

			child, err := view.Get("server")
			assert.ThatError(t, err).Nil()
			nested, ok := child.(*FlatMappingView)
			assert.That(t, ok).Equal(true)

			port, err := nested.Get("port")
			assert.ThatError(t, err).Nil()
			assert.That(t, port).Equal(int64(8080))

			hostsRaw, err := nested.Get("hosts")
			assert.ThatError(t, err).Nil()
			hosts, ok := hostsRaw.(*FlatSequenceView)
			assert.That(t, ok).Equal(true)
			assert.That(t, hosts.Len()).Equal(3)

			first, err := hosts.Get(0)
			assert.ThatError(t, err).Nil()
			assert.That(t, first).Equal("a")

			last, err := hosts.Get(-1)
			assert.ThatError(t, err).Nil()
			assert.That(t, last).Equal("c")
		})
	}
}

func TestFlatMappingViewIterOrderedMatchesUnordered(t *testing.T) {
	orderedStore := newOrderedTestStore()
	unordered := newUnorderedStore()

	keys := []string{"zeta", "alpha", "mid", "beta"}
	for _, s := range []FlatStore{orderedStore, unordered} {
		view := newFlatMappingView(s, "", DefaultCodec)
		for i, k := range keys {
			assert.ThatError(t, view.Set(k, i)).Nil()
		}
	}

	var orderedKeys, unorderedKeys []string
	newFlatMappingView(orderedStore, "", DefaultCodec).Iter()(func(k string) bool {
		orderedKeys = append(orderedKeys, k)
		return true
	})
	newFlatMappingView(unordered, "", DefaultCodec).Iter()(func(k string) bool {
		unorderedKeys = append(unorderedKeys, k)
		return true
	})

	sort.Strings(unorderedKeys)
	assert.That(t, orderedKeys).Equal([]string{"alpha", "beta", "mid", "zeta"})
	assert.That(t, unorderedKeys).Equal([]string{"alpha", "beta", "mid", "zeta"})
}

func TestFlatSequenceViewInsertDeletePopSetAll(t *testing.T) {
	for name, store := range bothStores() {
		t.Run(name, func(t *testing.T) {
			view := newFlatMappingView(store, "", DefaultCodec)
			assert.ThatError(t, view.Set("list", []any{})).Nil()
			seqRaw, err := view.Get("list")
			assert.ThatError(t, err).Nil()
			seq := seqRaw.(*FlatSequenceView)

			assert.ThatError(t, seq.Insert(0, "x")).Nil()
			assert.ThatError(t, seq.Insert(1, "z")).Nil()
			assert.ThatError(t, seq.Insert(1, "y")).Nil()
			assert.That(t, seq.Len()).Equal(3)

			v1, _ := seq.Get(1)
			assert.That(t, v1).Equal("y")

			assert.ThatError(t, seq.Delete(0)).Nil()
			assert.That(t, seq.Len()).Equal(2)
			v0, _ := seq.Get(0)
			assert.That(t, v0).Equal("y")

			popped, err := seq.Pop()
			assert.ThatError(t, err).Nil()
			assert.That(t, popped).Equal("z")
			assert.That(t, seq.Len()).Equal(1)

			assert.ThatError(t, seq.SetAll([]any{"a", "b", "c", "d"})).Nil()
			assert.That(t, seq.Len()).Equal(4)
			v3, _ := seq.Get(3)
			assert.That(t, v3).Equal("d")
		})
	}
}

func TestFlatSequenceViewOutOfRange(t *testing.T) {
	store := newOrderedTestStore()
	view := newFlatMappingView(store, "", DefaultCodec)
	assert.ThatError(t, view.Set("list", []any{"a"})).Nil()
	seqRaw, _ := view.Get("list")
	seq := seqRaw.(*FlatSequenceView)

	_, err := seq.Get(5)
	assert.ThatError(t, err).Is(ErrIndexOutOfRange)

	_, err = seq.Pop()
	assert.ThatError(t, err).Nil()
	_, err = seq.Pop()
	assert.ThatError(t, err).Is(ErrIndexOutOfRange)
}

func TestFlatMappingViewSelfAssignmentNoOp(t *testing.T) {
	store := newOrderedTestStore()
	view := newFlatMappingView(store, "", DefaultCodec)
	assert.ThatError(t, view.Set("a", map[string]any{"b": 1})).Nil()

	child, err := view.Get("a")
	assert.ThatError(t, err).Nil()

	lenBefore := len(store.values)
	assert.ThatError(t, view.Set("a", child)).Nil()
	assert.That(t, len(store.values)).Equal(lenBefore)
}

func TestFlatMappingViewShallowCopy(t *testing.T) {
	store := newOrderedTestStore()
	view := newFlatMappingView(store, "", DefaultCodec)
	assert.ThatError(t, view.Set("a", 1)).Nil()
	assert.ThatError(t, view.Set("b", "two")).Nil()

	cp, err := view.ShallowCopy()
	assert.ThatError(t, err).Nil()
	assert.ThatMap[string, any](t, cp).HasSameKeys(map[string]any{"a": nil, "b": nil})
}
