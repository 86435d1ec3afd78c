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
	"log/slog"
	"sync"
)

// Document is the handle a caller opens against a FlatStore. It wraps
// the store's root mapping position (empty prefix) in a root *Mapping
// overlay, giving the whole tree copy-on-write staging and two-phase
// commit/rollback (spec §4.4), and adds the dotted-path convenience
// API (GetPath/SetPath) on top of the encoded-path core.
type Document struct {
	store         FlatStore
	root          *Mapping
	log           *slog.Logger
	codecOverride ScalarCodec
	once          sync.Once
	closed        bool
	mu            sync.Mutex
}

// Option configures Open.
type Option func(*Document)

// WithCodec overrides the scalar codec used to normalize values
// written into the document. Defaults to DefaultCodec.
func WithCodec(codec ScalarCodec) Option {
	return func(d *Document) { d.codecOverride = codec }
}

// WithLogger attaches a structured logger; defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) { d.log = logger }
}

// Open wraps store in a Document rooted at the empty prefix.
func Open(store FlatStore, opts ...Option) *Document {
	d := &Document{store: store, log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	codec := d.codecOverride
	if codec == nil {
		codec = DefaultCodec
	}
	root := newFlatMappingView(store, "", codec)
	d.root = newMapping(nil, root)
	return d
}

func (d *Document) requireOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDbClosed
	}
	return nil
}

// Get returns the value at key: a scalar, a *Mapping, or a *Sequence.
func (d *Document) Get(key string) (any, error) {
	if err := d.requireOpen(); err != nil {
		return nil, err
	}
	return d.root.Get(key)
}

// Set stages key -> value at the document root.
func (d *Document) Set(key string, value any) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	return d.root.Set(key, value)
}

// Delete stages key for removal at the document root.
func (d *Document) Delete(key string) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	return d.root.Delete(key)
}

// Contains reports whether key resolves to a value at the root.
func (d *Document) Contains(key string) bool {
	if err := d.requireOpen(); err != nil {
		return false
	}
	return d.root.Contains(key)
}

// Len reports the document's top-level key count.
func (d *Document) Len() int {
	if err := d.requireOpen(); err != nil {
		return 0
	}
	return d.root.Len()
}

// Iter yields the document's top-level keys.
func (d *Document) Iter() func(yield func(key string) bool) {
	if err := d.requireOpen(); err != nil {
		return func(func(string) bool) {}
	}
	return d.root.Iter()
}

// Commit flushes every buffered write in the document to the
// underlying store, per spec §4.4.
func (d *Document) Commit() error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	return d.root.Commit()
}

// Rollback discards every buffered write in the document.
func (d *Document) Rollback() error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	return d.root.Rollback()
}

// Close releases the underlying store. Subsequent operations return
// ErrDbClosed. Close is idempotent.
func (d *Document) Close() error {
	var err error
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		err = d.store.Close()
		if err != nil {
			d.log.Error("flatdoc: error closing store", "error", err)
		}
	})
	return err
}

// GetPath resolves a dotted/bracketed path such as "server.addrs[0]"
// against the document, walking through nested *Mapping/*Sequence
// values a step at a time.
func (d *Document) GetPath(path string) (any, error) {
	steps, err := splitDotPath(path)
	if err != nil {
		return nil, err
	}
	var cur any = d
	for _, step := range steps {
		cur, err = getStep(cur, step)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// SetPath stages value at a dotted/bracketed path, walking through
// (and, for a missing leaf step, creating) intermediate containers.
func (d *Document) SetPath(path string, value any) error {
	steps, err := splitDotPath(path)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return &PathCorruptError{Path: path}
	}
	var cur any = d
	for _, step := range steps[:len(steps)-1] {
		cur, err = getStep(cur, step)
		if err != nil {
			return err
		}
	}
	return setStep(cur, steps[len(steps)-1], value)
}

func getStep(cur any, step pathStep) (any, error) {
	switch step.kind {
	case stepKey:
		switch c := cur.(type) {
		case *Document:
			return c.Get(step.elem)
		case *Mapping:
			return c.Get(step.elem)
		default:
			return nil, &IncorrectTypeError{Path: step.elem, Got: ValueType, Want: DictType}
		}
	case stepIndex:
		seq, ok := cur.(*Sequence)
		if !ok {
			return nil, &IncorrectTypeError{Path: step.elem, Got: ValueType, Want: ListType}
		}
		idx, err := dotIndexValue(step.elem)
		if err != nil {
			return nil, err
		}
		return seq.Get(idx)
	default:
		return nil, &PathCorruptError{Path: step.elem}
	}
}

func setStep(cur any, step pathStep, value any) error {
	switch step.kind {
	case stepKey:
		switch c := cur.(type) {
		case *Document:
			return c.Set(step.elem, value)
		case *Mapping:
			return c.Set(step.elem, value)
		default:
			return &IncorrectTypeError{Path: step.elem, Got: ValueType, Want: DictType}
		}
	case stepIndex:
		seq, ok := cur.(*Sequence)
		if !ok {
			return &IncorrectTypeError{Path: step.elem, Got: ValueType, Want: ListType}
		}
		idx, err := dotIndexValue(step.elem)
		if err != nil {
			return err
		}
		return seq.Set(idx, value)
	default:
		return &PathCorruptError{Path: step.elem}
	}
}

func dotIndexValue(s string) (int, error) {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, &PathCorruptError{Path: s}
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
