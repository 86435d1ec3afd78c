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

package loader_test

import (
	"testing"

	"github.com/go-spring/gs-assert/assert"
	"github.com/go-spring/spring-flatdoc/flatdoc"
	"github.com/go-spring/spring-flatdoc/loader"
	"github.com/go-spring/spring-flatdoc/memstore"
)

func TestFormatFromExt(t *testing.T) {
	f, err := loader.FormatFromExt(".toml")
	assert.ThatError(t, err).Nil()
	assert.That(t, f).Equal(loader.FormatTOML)

	f, err = loader.FormatFromExt("yml")
	assert.ThatError(t, err).Nil()
	assert.That(t, f).Equal(loader.FormatYAML)

	f, err = loader.FormatFromExt(".properties")
	assert.ThatError(t, err).Nil()
	assert.That(t, f).Equal(loader.FormatProperties)

	_, err = loader.FormatFromExt(".ini")
	assert.ThatError(t, err).NotNil()
}

func TestLoadBytesTOML(t *testing.T) {
	doc := flatdoc.Open(memstore.New())
	data := []byte("[server]\nport = 8080\nname = \"primary\"\n")

	assert.ThatError(t, loader.LoadBytes(doc, loader.FormatTOML, data, "test.toml")).Nil()
	assert.ThatError(t, doc.Commit()).Nil()

	port, err := doc.GetPath("server.port")
	assert.ThatError(t, err).Nil()
	assert.That(t, port).Equal(int64(8080))

	name, err := doc.GetPath("server.name")
	assert.ThatError(t, err).Nil()
	assert.That(t, name).Equal("primary")
}

func TestLoadBytesYAML(t *testing.T) {
	doc := flatdoc.Open(memstore.New())
	data := []byte("server:\n  port: 9090\n  hosts:\n    - a\n    - b\n")

	assert.ThatError(t, loader.LoadBytes(doc, loader.FormatYAML, data, "test.yaml")).Nil()
	assert.ThatError(t, doc.Commit()).Nil()

	port, err := doc.GetPath("server.port")
	assert.ThatError(t, err).Nil()
	assert.That(t, port).Equal(int64(9090))

	host, err := doc.GetPath("server.hosts[1]")
	assert.ThatError(t, err).Nil()
	assert.That(t, host).Equal("b")
}

func TestLoadBytesProperties(t *testing.T) {
	doc := flatdoc.Open(memstore.New())
	data := []byte("db.host=localhost\ndb.port=5432\n")

	assert.ThatError(t, loader.LoadBytes(doc, loader.FormatProperties, data, "test.properties")).Nil()
	assert.ThatError(t, doc.Commit()).Nil()

	host, err := doc.GetPath("db.host")
	assert.ThatError(t, err).Nil()
	assert.That(t, host).Equal("localhost")
}

func TestLoadBytesPropagatesDecodeErrorWithoutPartialWrite(t *testing.T) {
	doc := flatdoc.Open(memstore.New())
	// redefining "a" as both a scalar and a table is invalid TOML;
	// nothing from this batch should reach the document.
	data := []byte("a = 1\n\n[a.b]\nc = 2\n")

	err := loader.LoadBytes(doc, loader.FormatTOML, data, "conflict.toml")
	assert.ThatError(t, err).NotNil()
	assert.That(t, doc.Len()).Equal(0)
}

