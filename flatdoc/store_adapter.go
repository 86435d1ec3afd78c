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

// FlatStore is the narrow capability the flattening view consumes
// from an underlying ordered key-value store, per spec §4.2/§6. Keys
// are encoded path strings (EncodedPath, including their terminator);
// values are whatever ScalarCodec.Normalize produces, or the sentinel
// true for a dict/list type marker.
type FlatStore interface {
	Get(key string) (value any, ok bool)
	Put(key string, value any)
	Delete(key string)
	Contains(key string) bool
	IterKeys() func(yield func(key string) bool)
	Close() error
}

// OrderedStore is the optional capability a FlatStore may additionally
// implement: strict lexicographic successor lookup. FlatMappingView
// and FlatSequenceView detect this once per view (via a type
// assertion) and switch to the O(log n)-per-step ordered algorithms
// of spec §4.3 when it is available, falling back to the O(total
// keys) scan otherwise.
type OrderedStore interface {
	FlatStore

	// KeyAfter returns the strict lexicographic successor of key
	// among the currently stored keys, or ok=false if none exists.
	KeyAfter(key string) (next string, ok bool)
}
