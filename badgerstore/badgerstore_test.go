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

package badgerstore_test

import (
	"testing"

	"github.com/go-spring/gs-assert/assert"
	"github.com/go-spring/spring-flatdoc/badgerstore"
)

func openTestStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	s, err := badgerstore.Open(t.TempDir(), badgerstore.WithInMemory())
	assert.ThatError(t, err).Nil()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePutGetRoundtripsEveryEncodableShape(t *testing.T) {
	s := openTestStore(t)

	cases := map[string]any{
		"nilkey":    nil,
		"boolkey":   true,
		"intkey":    int(7),
		"int64key":  int64(-42),
		"floatkey":  3.5,
		"stringkey": "hello",
	}
	for k, v := range cases {
		s.Put(k, v)
	}
	for k, want := range cases {
		got, ok := s.Get(k)
		assert.That(t, ok).Equal(true)
		assert.That(t, got).Equal(want)
	}
}

func TestStoreContainsAndDelete(t *testing.T) {
	s := openTestStore(t)

	assert.That(t, s.Contains("a")).Equal(false)
	s.Put("a", int64(1))
	assert.That(t, s.Contains("a")).Equal(true)

	s.Delete("a")
	assert.That(t, s.Contains("a")).Equal(false)
	_, ok := s.Get("a")
	assert.That(t, ok).Equal(false)
}

func TestStoreKeyAfterOrdering(t *testing.T) {
	s := openTestStore(t)
	for _, k := range []string{"c", "a", "e", "b"} {
		s.Put(k, true)
	}

	next, ok := s.KeyAfter("a")
	assert.That(t, ok).Equal(true)
	assert.That(t, next).Equal("b")

	_, ok = s.KeyAfter("e")
	assert.That(t, ok).Equal(false)
}

func TestStoreIterKeysYieldsSortedOrder(t *testing.T) {
	s := openTestStore(t)
	for _, k := range []string{"c", "a", "e", "b"} {
		s.Put(k, true)
	}

	var got []string
	s.IterKeys()(func(k string) bool {
		got = append(got, k)
		return true
	})
	assert.ThatSlice[string](t, got).Equal([]string{"a", "b", "c", "e"})
}
