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
	"cmp"
	"fmt"
	"slices"
)

// conflictKind records whether a tree position is being used as a map
// key or a list index, so a later use of the same position the other
// way can be reported as a conflict before any store write happens.
type conflictKind int8

const (
	conflictKey conflictKind = iota
	conflictIndex
)

// conflictNode mirrors barky's treeNode: an internal node of the tree
// of dotted paths seen so far, used only to detect the same position
// being addressed as both a map field and a list index (or as both a
// container and a scalar leaf).
type conflictNode struct {
	kind conflictKind
	data map[string]*conflictNode
}

// ConflictSet accumulates dotted paths (as produced by loader.Load)
// and reports a structural conflict as soon as one is introduced,
// instead of letting it surface midway through a bulk write. It is
// the pre-flight validator barky.Storage performs inline while
// building its tree; flatdoc splits it out so loader can validate an
// entire decoded document before touching the Document at all.
type ConflictSet struct {
	root *conflictNode
}

// NewConflictSet returns an empty ConflictSet.
func NewConflictSet() *ConflictSet {
	return &ConflictSet{}
}

// Add records that path is about to be written as a scalar leaf.
// Returns an error describing the exact sub-path where a structural
// conflict occurs (the same position used as both a map and a list,
// or as both a container and a value).
func (c *ConflictSet) Add(path string) error {
	steps, err := splitDotPath(path)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return &PathCorruptError{Path: path}
	}

	if c.root == nil {
		c.root = &conflictNode{kind: kindOf(steps[0]), data: make(map[string]*conflictNode)}
	}

	n := c.root
	for i, step := range steps {
		if n == nil || kindOf(step) != n.kind {
			return fmt.Errorf("flatdoc: structural conflict at %s", joinDotPath(steps[:i+1]))
		}
		next, ok := n.data[step.elem]
		if !ok {
			if i < len(steps)-1 {
				next = &conflictNode{kind: kindOf(steps[i+1]), data: make(map[string]*conflictNode)}
			}
			n.data[step.elem] = next
		}
		n = next
	}
	if n != nil {
		return fmt.Errorf("flatdoc: structural conflict at %s", path)
	}
	return nil
}

// Keys returns every leaf path recorded so far, in lexicographic
// order.
func (c *ConflictSet) Keys() []string {
	var out []string
	if c.root != nil {
		collectConflictKeys(nil, c.root, &out)
	}
	slices.Sort(out)
	return out
}

func collectConflictKeys(prefix []pathStep, n *conflictNode, out *[]string) {
	for _, elem := range sortedStringKeys(n.data) {
		child := n.data[elem]
		var kind stepType
		if n.kind == conflictIndex {
			kind = stepIndex
		} else {
			kind = stepKey
		}
		steps := append(append([]pathStep{}, prefix...), pathStep{kind: kind, elem: elem})
		if child == nil {
			*out = append(*out, joinDotPath(steps))
			continue
		}
		collectConflictKeys(steps, child, out)
	}
}

func kindOf(step pathStep) conflictKind {
	if step.kind == stepIndex {
		return conflictIndex
	}
	return conflictKey
}

// sortedStringKeys returns the sorted keys of a generic string-keyed
// map, matching barky.OrderedMapKeys's deterministic-ordering role for
// the rest of this package.
func sortedStringKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	r := make([]K, 0, len(m))
	for k := range m {
		r = append(r, k)
	}
	slices.Sort(r)
	return r
}
