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

// Package flatdoc stores a nested JSON-like document (mappings,
// sequences, and scalar leaves) inside a flat, lexicographically
// ordered key-value keyspace, and layers a mutable, transactional
// view on top of it.
//
// Three things compose to make this work:
//
//   - An encoded path grammar (path.go) maps every position in a
//     nested document to a unique string key, using typed terminator
//     characters (".", "[", "=", "#") so a key always sorts before the
//     keys of its own subtree. This is what lets a range scan over the
//     keyspace reconstruct containment without ever walking the whole
//     tree.
//
//   - A flattening view (flatview.go) presents that keyspace as
//     ordinary Get/Set/Delete/Len/Iter operations on mappings and
//     sequences, against a narrow FlatStore interface. Any ordered
//     key-value store — an in-memory sorted map (package memstore), an
//     embedded LSM tree (package badgerstore) — can back it; the view
//     only ever needs successor lookups and prefix-bounded deletes.
//
//   - A copy-on-write rollback overlay (rollback.go) sits on top of
//     the flattening view and buffers every write until Document.Commit
//     is called, so a caller can stage a batch of changes and discard
//     them wholesale with Document.Rollback instead of hand-writing
//     compensating deletes.
//
// A typical user only ever touches the last layer, through Document:
//
//	doc := flatdoc.Open(memstore.New())
//	doc.Set("server", map[string]any{"port": 8080, "hosts": []any{"a", "b"}})
//	doc.Commit()
//	port, _ := doc.GetPath("server.port")
//
// Nested reads return *Mapping / *Sequence, which expose the same
// family of operations as Document itself; only the root may commit or
// roll back, so Commit/Rollback on a nested *Mapping return
// ErrNotTopLevel. Scalar reads return a value normalized onto
// flatdoc's closed scalar domain: committed values by the document's
// ScalarCodec, values still buffered in the overlay by DefaultCodec.
package flatdoc
