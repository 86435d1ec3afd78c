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

package flatdoc_test

import (
	"testing"

	"github.com/go-spring/gs-assert/assert"
	"github.com/go-spring/spring-flatdoc/flatdoc"
)

func TestEncodedPathClassify(t *testing.T) {
	assert.That(t, mustClass(t, "")).Equal(flatdoc.DictPrefix)
	assert.That(t, mustClass(t, `."a"`)).Equal(flatdoc.DictPrefix)
	assert.That(t, mustClass(t, "[0]")).Equal(flatdoc.ListPrefix)
	assert.That(t, mustClass(t, `."a".`)).Equal(flatdoc.DictType)
	assert.That(t, mustClass(t, "[0][")).Equal(flatdoc.ListType)
	assert.That(t, mustClass(t, `."a"=`)).Equal(flatdoc.ValueType)
	assert.That(t, mustClass(t, `."a"#`)).Equal(flatdoc.LengthType)
}

func TestEncodedPathClassifyCorrupt(t *testing.T) {
	_, err := flatdoc.EncodedPath(`."a"!`).Classify()
	assert.ThatError(t, err).NotNil()
}

func TestEncodedPathLookupAndIndex(t *testing.T) {
	dictMarker, err := flatdoc.EncodedPath("").ChildDict()
	assert.ThatError(t, err).Nil()
	child, err := dictMarker.Lookup("name")
	assert.ThatError(t, err).Nil()
	assert.That(t, string(child)).Equal(`."name"`)

	listMarker, err := child.ChildList()
	assert.ThatError(t, err).Nil()
	idx, err := listMarker.Index(2)
	assert.ThatError(t, err).Nil()
	assert.That(t, string(idx)).Equal(`."name"[2]`)
}

func TestEncodedPathKeyStringRoundtrip(t *testing.T) {
	dictMarker, err := flatdoc.EncodedPath("").ChildDict()
	assert.ThatError(t, err).Nil()
	child, err := dictMarker.Lookup(`a"b\c`)
	assert.ThatError(t, err).Nil()

	key, err := child.KeyString()
	assert.ThatError(t, err).Nil()
	assert.That(t, key).Equal(`a"b\c`)
}

func TestEncodedPathParent(t *testing.T) {
	dictMarker, err := flatdoc.EncodedPath("").ChildDict()
	assert.ThatError(t, err).Nil()
	child, err := dictMarker.Lookup("a")
	assert.ThatError(t, err).Nil()

	parent, err := child.Parent()
	assert.ThatError(t, err).Nil()
	assert.That(t, string(parent)).Equal("")

	_, err = parent.Parent()
	assert.ThatError(t, err).Is(flatdoc.ErrRootNode)
}

func TestEncodedPathIndexNumberAndDepth(t *testing.T) {
	listMarker, err := flatdoc.EncodedPath("").ChildList()
	assert.ThatError(t, err).Nil()
	idx, err := listMarker.Index(7)
	assert.ThatError(t, err).Nil()

	n, err := idx.IndexNumber()
	assert.ThatError(t, err).Nil()
	assert.That(t, n).Equal(7)

	depth, err := idx.Depth()
	assert.ThatError(t, err).Nil()
	assert.That(t, depth).Equal(1)
}

func mustClass(t *testing.T, p flatdoc.EncodedPath) flatdoc.PathClass {
	t.Helper()
	c, err := p.Classify()
	assert.ThatError(t, err).Nil()
	return c
}
