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

// This file implements the copy-on-write rollback overlay of spec
// §4.4: a recursive proxy tree that buffers mutations against an
// underlying mapping or sequence, propagates dirty state to the root,
// and performs a depth-first commit. It is a direct port of
// _examples/original_source/jsdb/rollback.py's RollbackDict/RollbackList
// onto flatdoc's store-backed views: the same buffering, the same
// "notify parent, then buffer" write path, and the same two-phase
// commit (the dirty-descendant fast path plus the always-correct
// recursive per-node walk — both are carried over from the original,
// which relies on both even though the recursive walk alone would
// suffice; see DESIGN.md).

// deletedMarker is the tombstone value stored in Mapping.updates for
// a key staged for deletion.
type deletedMarker struct{}

var deleted = deletedMarker{}

// overlayNode is the common shape of *Mapping and *Sequence as seen
// by their parent during commit/rollback.
type overlayNode interface {
	commit() error
	rollback()
	rawUnderlying() any
}

// dirtyRecorder receives upward notification that some descendant
// overlay now has buffered changes.
type dirtyRecorder interface {
	recordChanged(node overlayNode)
}

// mappingUnderlying is the shape Mapping needs from whatever it
// wraps: either a *FlatMappingView (a live position in the flat
// store) or a nativeMap (a plain Go map, for a container value
// assigned by the caller that has no store position yet).
type mappingUnderlying interface {
	Get(key string) (any, error)
	Set(key string, value any) error
	Delete(key string) error
	Contains(key string) bool
	Len() int
	Iter() func(yield func(key string) bool)
}

// sequenceUnderlying is the analogous shape for Sequence.
type sequenceUnderlying interface {
	Get(i int) (any, error)
	Set(i int, value any) error
	Delete(i int) error
	Insert(pos int, value any) error
	Pop() (any, error)
	Len() int
	Iter() func(yield func(value any) bool)
}

// nativeMap adapts a plain map[string]any to mappingUnderlying. It is
// used as the underlying of a Mapping overlay created by assigning a
// brand-new nested dict value that has no position in the flat store
// yet; like a Python dict, mutations through this adapter are visible
// to every other reference to the same backing map.
type nativeMap map[string]any

func (n nativeMap) Get(key string) (any, error) {
	v, ok := n[key]
	if !ok {
		return nil, ErrKeyMissing
	}
	return v, nil
}

func (n nativeMap) Set(key string, value any) error {
	n[key] = value
	return nil
}

func (n nativeMap) Delete(key string) error {
	if _, ok := n[key]; !ok {
		return ErrKeyMissing
	}
	delete(n, key)
	return nil
}

func (n nativeMap) Contains(key string) bool {
	_, ok := n[key]
	return ok
}

func (n nativeMap) Len() int { return len(n) }

func (n nativeMap) Iter() func(yield func(string) bool) {
	return func(yield func(string) bool) {
		for k := range n {
			if !yield(k) {
				return
			}
		}
	}
}

// nativeSlice adapts a plain []any to sequenceUnderlying via a
// pointer so insert/delete (which may reallocate) remain visible to
// every overlay sharing this underlying.
type nativeSlice struct {
	items []any
}

func (s *nativeSlice) Get(i int) (any, error) {
	if i < 0 || i >= len(s.items) {
		return nil, ErrIndexOutOfRange
	}
	return s.items[i], nil
}

func (s *nativeSlice) Set(i int, value any) error {
	if i < 0 || i >= len(s.items) {
		return ErrIndexOutOfRange
	}
	s.items[i] = value
	return nil
}

func (s *nativeSlice) Delete(i int) error {
	if i < 0 || i >= len(s.items) {
		return ErrIndexOutOfRange
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *nativeSlice) Insert(pos int, value any) error {
	if pos < 0 || pos > len(s.items) {
		return ErrIndexOutOfRange
	}
	s.items = append(s.items, nil)
	copy(s.items[pos+1:], s.items[pos:])
	s.items[pos] = value
	return nil
}

func (s *nativeSlice) Pop() (any, error) {
	if len(s.items) == 0 {
		return nil, ErrIndexOutOfRange
	}
	v := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return v, nil
}

func (s *nativeSlice) Len() int { return len(s.items) }

func (s *nativeSlice) Iter() func(yield func(any) bool) {
	return func(yield func(any) bool) {
		for _, v := range s.items {
			if !yield(v) {
				return
			}
		}
	}
}

// Mapping is a copy-on-write proxy over a mapping node (either a live
// FlatMappingView rooted in the flat store, or a plain Go map staged
// in memory pending commit). It is what Document.Get returns for a
// nested JSON object, and what the Document itself embeds as its
// root. Only the root (parent == nil) exposes a working Commit/
// Rollback; calling either on a non-root Mapping returns
// ErrNotTopLevel.
type Mapping struct {
	parent     dirtyRecorder
	underlying mappingUnderlying
	updates    map[string]any
	dirty      []overlayNode // populated only at the root
}

func newMapping(parent dirtyRecorder, underlying mappingUnderlying) *Mapping {
	return &Mapping{parent: parent, underlying: underlying, updates: make(map[string]any)}
}

// rawUnderlying returns what the parent's commit should hand to
// FlatMappingView.Set: the live view itself when this node wraps one,
// or a plain map[string]any when it wraps a nativeMap — writeChild's
// type switch only recognizes the latter, not the named adapter type.
func (m *Mapping) rawUnderlying() any {
	if nm, ok := m.underlying.(nativeMap); ok {
		return map[string]any(nm)
	}
	return m.underlying
}

func (m *Mapping) recordChanged(node overlayNode) {
	if m.parent != nil {
		m.parent.recordChanged(node)
		return
	}
	m.dirty = append(m.dirty, node)
}

func (m *Mapping) notifyParent() {
	if m.parent != nil {
		m.parent.recordChanged(m)
	}
}

// wrap turns a raw value read from underlying (a scalar, a
// *FlatMappingView/*FlatSequenceView, or a plain map[string]any/[]any)
// into what Get should hand back to the caller: a scalar normalized by
// DefaultCodec (as-is if DefaultCodec rejects it), or a freshly minted
// child overlay.
func (m *Mapping) wrap(raw any) any {
	switch t := raw.(type) {
	case *Mapping, *Sequence:
		return t
	case *FlatMappingView:
		return newMapping(m, t)
	case *FlatSequenceView:
		return newSequence(m, t)
	case map[string]any:
		return newMapping(m, nativeMap(t))
	case []any:
		return newSequence(m, &nativeSlice{items: t})
	default:
		if n, err := DefaultCodec.Normalize(t); err == nil {
			return n
		}
		return t
	}
}

// Get returns the value at key: a scalar, a *Mapping, or a *Sequence.
// Reading the same key twice returns the same child overlay instance.
func (m *Mapping) Get(key string) (any, error) {
	if v, ok := m.updates[key]; ok {
		if _, isDeleted := v.(deletedMarker); isDeleted {
			return nil, ErrKeyMissing
		}
		return v, nil
	}
	raw, err := m.underlying.Get(key)
	if err != nil {
		return nil, err
	}
	wrapped := m.wrap(raw)
	if _, ok := wrapped.(overlayNode); ok {
		m.updates[key] = wrapped
	}
	return wrapped, nil
}

// Contains reports whether key currently resolves to a value.
func (m *Mapping) Contains(key string) bool {
	if v, ok := m.updates[key]; ok {
		_, isDeleted := v.(deletedMarker)
		return !isDeleted
	}
	return m.underlying.Contains(key)
}

// Len reports the mapping's current size, accounting for buffered
// additions and deletions.
func (m *Mapping) Len() int {
	additions, deletions := 0, 0
	for k, v := range m.updates {
		_, isDeleted := v.(deletedMarker)
		if isDeleted {
			if m.underlying.Contains(k) {
				deletions++
			}
			continue
		}
		if !m.underlying.Contains(k) {
			additions++
		}
	}
	return m.underlying.Len() + additions - deletions
}

// Set stages key -> value. A foreign container (a plain Go map/slice,
// or a view/overlay from elsewhere) is deep-copied first so the
// caller's later mutation of the original can't leak into the store;
// assigning a view back to the exact key it was read from (d[k]=d[k])
// is detected and made a no-op.
func (m *Mapping) Set(key string, value any) error {
	if existing, ok := m.updates[key]; ok {
		if node, isNode := value.(overlayNode); isNode && any(node) == existing {
			return nil
		}
	}
	m.notifyParent()
	copied, err := deepCopyOverlayValue(value)
	if err != nil {
		return err
	}
	m.updates[key] = m.wrap(copied)
	return nil
}

// Delete stages key for removal. Fails with ErrKeyMissing if key is
// not currently present.
func (m *Mapping) Delete(key string) error {
	if !m.Contains(key) {
		return ErrKeyMissing
	}
	m.updates[key] = deleted
	return nil
}

// Iter yields keys from updates (skipping deletions) first, then
// underlying keys not shadowed by updates.
func (m *Mapping) Iter() func(yield func(key string) bool) {
	return func(yield func(string) bool) {
		for k, v := range m.updates {
			if _, isDeleted := v.(deletedMarker); isDeleted {
				continue
			}
			if !yield(k) {
				return
			}
		}
		var stop bool
		m.underlying.Iter()(func(k string) bool {
			if _, shadowed := m.updates[k]; shadowed {
				return true
			}
			if !yield(k) {
				stop = true
				return false
			}
			return true
		})
		_ = stop
	}
}

// Commit flushes this overlay's (and every descendant's) buffered
// writes into the underlying store. Fails with ErrNotTopLevel unless
// called on the document root.
func (m *Mapping) Commit() error {
	if m.parent != nil {
		return ErrNotTopLevel
	}
	for _, d := range m.dirty {
		if err := d.commit(); err != nil {
			return err
		}
	}
	m.dirty = nil
	return m.commit()
}

// Rollback discards every buffered write in this overlay and its
// descendants. Fails with ErrNotTopLevel unless called on the
// document root.
func (m *Mapping) Rollback() error {
	if m.parent != nil {
		return ErrNotTopLevel
	}
	for _, d := range m.dirty {
		d.rollback()
	}
	m.dirty = nil
	m.rollback()
	return nil
}

// commit applies this node's own buffered updates to its underlying,
// recursing into any buffered value that is itself an overlay. This
// is what makes flushing correct regardless of which nodes ended up
// on the root's dirty list: every ancestor on the path to a changed
// descendant also re-applies its (possibly no-op) cached entries.
func (m *Mapping) commit() error {
	for k, v := range m.updates {
		if _, isDeleted := v.(deletedMarker); isDeleted {
			continue
		}
		if node, ok := v.(overlayNode); ok {
			if err := node.commit(); err != nil {
				return err
			}
			if err := m.underlying.Set(k, node.rawUnderlying()); err != nil {
				return err
			}
			continue
		}
		if err := m.underlying.Set(k, v); err != nil {
			return err
		}
	}
	for k, v := range m.updates {
		if _, isDeleted := v.(deletedMarker); isDeleted {
			if err := m.underlying.Delete(k); err != nil {
				return err
			}
		}
	}
	m.updates = make(map[string]any)
	return nil
}

func (m *Mapping) rollback() {
	for _, v := range m.updates {
		if node, ok := v.(overlayNode); ok {
			node.rollback()
		}
	}
	m.updates = make(map[string]any)
}

// Sequence is a copy-on-write proxy over a sequence node. On first
// mutation it copies the underlying into an in-memory buffer; every
// subsequent read and write operates on that buffer.
type Sequence struct {
	parent     dirtyRecorder
	underlying sequenceUnderlying
	buf        []any // nil until the first mutation
}

func newSequence(parent dirtyRecorder, underlying sequenceUnderlying) *Sequence {
	return &Sequence{parent: parent, underlying: underlying}
}

// rawUnderlying mirrors Mapping.rawUnderlying for the sequence case:
// unwrap a nativeSlice to a plain []any so writeChild's type switch
// recognizes it as a list value rather than falling through to the
// scalar branch.
func (s *Sequence) rawUnderlying() any {
	if ns, ok := s.underlying.(*nativeSlice); ok {
		return ns.items
	}
	return s.underlying
}

func (s *Sequence) recordChanged(node overlayNode) {
	if s.parent != nil {
		s.parent.recordChanged(node)
	}
}

func (s *Sequence) isCopied() bool { return s.buf != nil }

func (s *Sequence) ensureCopied() error {
	if s.isCopied() {
		return nil
	}
	n := s.underlying.Len()
	buf := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := s.underlying.Get(i)
		if err != nil {
			return err
		}
		buf[i] = v
	}
	s.buf = buf
	return nil
}

func (s *Sequence) wrap(raw any) any {
	switch t := raw.(type) {
	case *Mapping, *Sequence:
		return t
	case *FlatMappingView:
		return newMapping(s, t)
	case *FlatSequenceView:
		return newSequence(s, t)
	case map[string]any:
		return newMapping(s, nativeMap(t))
	case []any:
		return newSequence(s, &nativeSlice{items: t})
	default:
		if n, err := DefaultCodec.Normalize(t); err == nil {
			return n
		}
		return t
	}
}

// Len reports the sequence's current length.
func (s *Sequence) Len() int {
	if s.isCopied() {
		return len(s.buf)
	}
	return s.underlying.Len()
}

func (s *Sequence) normalize(i int) (int, error) {
	n := s.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, ErrIndexOutOfRange
	}
	return i, nil
}

// Get returns the element at index i (supporting negative indices),
// wrapping containers and memoizing the wrapped form in the buffer so
// repeated reads return the same overlay instance.
func (s *Sequence) Get(i int) (any, error) {
	if err := s.ensureCopied(); err != nil {
		return nil, err
	}
	idx, err := s.normalize(i)
	if err != nil {
		return nil, err
	}
	val := s.buf[idx]
	wrapped := s.wrap(val)
	if wrapped != val {
		s.buf[idx] = wrapped
	}
	return wrapped, nil
}

// Set replaces the element at index i. d[i] = d[i] is a no-op.
func (s *Sequence) Set(i int, value any) error {
	if err := s.ensureCopied(); err != nil {
		return err
	}
	idx, err := s.normalize(i)
	if err != nil {
		return err
	}
	if node, ok := value.(overlayNode); ok && any(node) == s.buf[idx] {
		return nil
	}
	s.recordChanged(s)
	copied, err := deepCopyOverlayValue(value)
	if err != nil {
		return err
	}
	s.buf[idx] = s.wrap(copied)
	return nil
}

// Delete removes the element at index i.
func (s *Sequence) Delete(i int) error {
	if err := s.ensureCopied(); err != nil {
		return err
	}
	idx, err := s.normalize(i)
	if err != nil {
		return err
	}
	s.recordChanged(s)
	s.buf = append(s.buf[:idx], s.buf[idx+1:]...)
	return nil
}

// Insert inserts value at pos.
func (s *Sequence) Insert(pos int, value any) error {
	if err := s.ensureCopied(); err != nil {
		return err
	}
	if pos < 0 || pos > len(s.buf) {
		return ErrIndexOutOfRange
	}
	s.recordChanged(s)
	copied, err := deepCopyOverlayValue(value)
	if err != nil {
		return err
	}
	s.buf = append(s.buf, nil)
	copy(s.buf[pos+1:], s.buf[pos:])
	s.buf[pos] = s.wrap(copied)
	return nil
}

// Pop removes and returns the last element.
func (s *Sequence) Pop() (any, error) {
	n := s.Len()
	if n == 0 {
		return nil, ErrIndexOutOfRange
	}
	v, err := s.Get(n - 1)
	if err != nil {
		return nil, err
	}
	if err := s.Delete(n - 1); err != nil {
		return nil, err
	}
	return v, nil
}

// Iter yields the sequence's elements in order.
func (s *Sequence) Iter() func(yield func(value any) bool) {
	return func(yield func(any) bool) {
		if s.isCopied() {
			for _, v := range s.buf {
				if !yield(v) {
					return
				}
			}
			return
		}
		s.underlying.Iter()(yield)
	}
}

func (s *Sequence) commit() error {
	if !s.isCopied() {
		return nil
	}
	resolved := make([]any, len(s.buf))
	for i, v := range s.buf {
		if node, ok := v.(overlayNode); ok {
			if err := node.commit(); err != nil {
				return err
			}
			resolved[i] = node.rawUnderlying()
			continue
		}
		resolved[i] = v
	}
	if err := replaceSequence(s.underlying, resolved); err != nil {
		return err
	}
	s.buf = nil
	return nil
}

func (s *Sequence) rollback() {
	for _, v := range s.buf {
		if node, ok := v.(overlayNode); ok {
			node.rollback()
		}
	}
	s.buf = nil
}

// replaceSequence overwrites underlying's entire contents with
// values, using the most specific operation the concrete type offers
// (FlatSequenceView.SetAll for the store-backed case).
func replaceSequence(underlying sequenceUnderlying, values []any) error {
	if flat, ok := underlying.(*FlatSequenceView); ok {
		return flat.SetAll(values)
	}
	if native, ok := underlying.(*nativeSlice); ok {
		native.items = values
		return nil
	}
	n := underlying.Len()
	for n > 0 {
		if _, err := underlying.Pop(); err != nil {
			return err
		}
		n--
	}
	for i, v := range values {
		if err := underlying.Insert(i, v); err != nil {
			return err
		}
	}
	return nil
}

// deepCopyOverlayValue resolves value (which may be an overlay, a
// live flat view, a plain map/slice, or a scalar) into a fresh,
// unaliased value suitable for staging in an updates/buf slot.
// Overlays and views are read through (honouring any of their own
// still-buffered edits), not through their raw underlying, so
// assigning a partially-edited uncommitted node copies what the
// caller currently observes.
func deepCopyOverlayValue(value any) (any, error) {
	switch t := value.(type) {
	case *Mapping:
		out := make(map[string]any)
		var outerErr error
		t.Iter()(func(key string) bool {
			v, err := t.Get(key)
			if err != nil {
				outerErr = err
				return false
			}
			cp, err := deepCopyOverlayValue(v)
			if err != nil {
				outerErr = err
				return false
			}
			out[key] = cp
			return true
		})
		if outerErr != nil {
			return nil, outerErr
		}
		return out, nil
	case *Sequence:
		out := make([]any, 0, t.Len())
		var outerErr error
		t.Iter()(func(v any) bool {
			cp, err := deepCopyOverlayValue(v)
			if err != nil {
				outerErr = err
				return false
			}
			out = append(out, cp)
			return true
		})
		if outerErr != nil {
			return nil, outerErr
		}
		return out, nil
	default:
		return materialize(t)
	}
}
