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
	"strconv"
	"strings"
)

// PathClass classifies an encoded path string by its trailing
// terminator character, per the grammar in spec §3/§4.1.
type PathClass int8

const (
	// DictPrefix names a position whose parent is a mapping (or the
	// root). The empty string is the dict-prefix for the root.
	DictPrefix PathClass = iota
	// ListPrefix names a position whose parent is a sequence.
	ListPrefix
	// DictType marks that the node at the stripped prefix is a mapping.
	DictType
	// ListType marks that the node at the stripped prefix is a sequence.
	ListType
	// ValueType marks the scalar leaf stored at the stripped prefix.
	ValueType
	// LengthType marks the cached cardinality of the stripped prefix.
	LengthType
)

func (c PathClass) String() string {
	switch c {
	case DictPrefix:
		return "dict-prefix"
	case ListPrefix:
		return "list-prefix"
	case DictType:
		return "dict-type"
	case ListType:
		return "list-type"
	case ValueType:
		return "value-type"
	case LengthType:
		return "length-type"
	default:
		return "unknown"
	}
}

// EncodedPath is an encoded path string in the grammar of spec §3:
//
//	path     := ε | path dict_step | path list_step
//	dict_step:= "." quoted_key
//	list_step:= "[" integer "]"
//
// A full stored key is an EncodedPath plus one terminator character
// (".", "[", "=", "#"). EncodedPath is a thin wrapper so the grammar
// operations below can't be called on a bare Go string by accident.
type EncodedPath string

// Classify reports the PathClass of p, or a *PathCorruptError if the
// trailing character is not one of the recognised terminators and p
// is non-empty.
func (p EncodedPath) Classify() (PathClass, error) {
	if p == "" {
		return DictPrefix, nil
	}
	switch p[len(p)-1] {
	case '"':
		return DictPrefix, nil
	case ']':
		return ListPrefix, nil
	case '.':
		return DictType, nil
	case '[':
		return ListType, nil
	case '=':
		return ValueType, nil
	case '#':
		return LengthType, nil
	default:
		return 0, &PathCorruptError{Path: string(p)}
	}
}

func (p EncodedPath) requirePrefix() error {
	class, err := p.Classify()
	if err != nil {
		return err
	}
	if class != DictPrefix && class != ListPrefix {
		return &IncorrectTypeError{Path: string(p), Got: class, Want: DictPrefix}
	}
	return nil
}

// ChildDict requires p to be a prefix path and returns p+".", the
// dict-type marker declaring the node at p is a mapping.
func (p EncodedPath) ChildDict() (EncodedPath, error) {
	if err := p.requirePrefix(); err != nil {
		return "", err
	}
	return p + ".", nil
}

// ChildList requires p to be a prefix path and returns p+"[", the
// list-type marker declaring the node at p is a sequence.
func (p EncodedPath) ChildList() (EncodedPath, error) {
	if err := p.requirePrefix(); err != nil {
		return "", err
	}
	return p + "[", nil
}

// Value requires p to be a prefix path and returns p+"=", the key
// under which the scalar leaf at p is stored.
func (p EncodedPath) Value() (EncodedPath, error) {
	if err := p.requirePrefix(); err != nil {
		return "", err
	}
	return p + "=", nil
}

// Length requires p to be a prefix path and returns p+"#", the key
// under which the cached cardinality of the container at p is stored.
func (p EncodedPath) Length() (EncodedPath, error) {
	if err := p.requirePrefix(); err != nil {
		return "", err
	}
	return p + "#", nil
}

// Lookup requires p to be a dict-type marker (p+".") and returns the
// child path for the given map key, escaping backslash and quote.
func (p EncodedPath) Lookup(key string) (EncodedPath, error) {
	class, err := p.Classify()
	if err != nil {
		return "", err
	}
	if class != DictType {
		return "", &IncorrectTypeError{Path: string(p), Got: class, Want: DictType}
	}
	return p + EncodedPath(quoteKey(key)), nil
}

// Index requires p to be a list-type marker (p+"[") and i >= 0, and
// returns the child path for that index.
func (p EncodedPath) Index(i int) (EncodedPath, error) {
	class, err := p.Classify()
	if err != nil {
		return "", err
	}
	if class != ListType {
		return "", &IncorrectTypeError{Path: string(p), Got: class, Want: ListType}
	}
	if i < 0 {
		return "", &PathCorruptError{Path: string(p) + strconv.Itoa(i) + "]"}
	}
	return p + EncodedPath(strconv.Itoa(i)) + "]", nil
}

// Prefix strips a single trailing terminator (".", "[", "=", "#") if
// present; a path that is already a prefix path is returned unchanged.
func (p EncodedPath) Prefix() EncodedPath {
	class, err := p.Classify()
	if err != nil || class == DictPrefix || class == ListPrefix {
		return p
	}
	return p[:len(p)-1]
}

// Parent strips the final path step. For a dict-prefix it strips the
// trailing quoted key and its preceding ".". For a list-prefix it
// strips "]", the decimal index, and "[". Fails with ErrRootNode on
// the empty path.
func (p EncodedPath) Parent() (EncodedPath, error) {
	class, err := p.Classify()
	if err != nil {
		return "", err
	}
	switch class {
	case ListPrefix:
		rest, ok := strings.CutSuffix(string(p), "]")
		if !ok {
			return "", &PathCorruptError{Path: string(p)}
		}
		i := len(rest)
		for i > 0 && rest[i-1] >= '0' && rest[i-1] <= '9' {
			i--
		}
		rest, ok = strings.CutSuffix(rest[:i], "[")
		if !ok {
			return "", &PathCorruptError{Path: string(p)}
		}
		return EncodedPath(rest), nil
	case DictPrefix:
		if p == "" {
			return "", ErrRootNode
		}
		rest, _, err := stripTrailingQuotedKey(string(p))
		if err != nil {
			return "", err
		}
		rest, ok := strings.CutSuffix(rest, ".")
		if !ok {
			return "", &PathCorruptError{Path: string(p)}
		}
		return EncodedPath(rest), nil
	default:
		return "", &IncorrectTypeError{Path: string(p), Got: class, Want: DictPrefix}
	}
}

// KeyString requires p to be a dict-prefix path and returns the
// unescaped final key segment.
func (p EncodedPath) KeyString() (string, error) {
	class, err := p.Classify()
	if err != nil {
		return "", err
	}
	if class != DictPrefix || p == "" {
		return "", &IncorrectTypeError{Path: string(p), Got: class, Want: DictPrefix}
	}
	_, key, err := stripTrailingQuotedKey(string(p))
	if err != nil {
		return "", err
	}
	return key, nil
}

// IndexNumber requires p to be a list-prefix path and returns the
// final integer.
func (p EncodedPath) IndexNumber() (int, error) {
	class, err := p.Classify()
	if err != nil {
		return 0, err
	}
	if class != ListPrefix {
		return 0, &IncorrectTypeError{Path: string(p), Got: class, Want: ListPrefix}
	}
	rest, ok := strings.CutSuffix(string(p), "]")
	if !ok {
		return 0, &PathCorruptError{Path: string(p)}
	}
	i := len(rest)
	for i > 0 && rest[i-1] >= '0' && rest[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(rest[i:])
	if err != nil {
		return 0, &PathCorruptError{Path: string(p)}
	}
	return n, nil
}

// Depth counts the number of path steps from the root to p.
func (p EncodedPath) Depth() (int, error) {
	depth := 0
	cur := p.Prefix()
	for cur != "" {
		depth++
		parent, err := cur.Parent()
		if err != nil {
			return 0, err
		}
		cur = parent.Prefix()
	}
	return depth, nil
}

// quoteKey escapes backslash and double-quote and wraps the result in
// double quotes, matching the grammar's quoted_key production.
func quoteKey(key string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '\\' || c == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}

// stripTrailingQuotedKey removes a trailing `"...""` quoted segment
// (honouring \\ and \" escapes) from s and returns the remaining
// prefix plus the unescaped key. s must end in an unescaped '"'.
func stripTrailingQuotedKey(s string) (rest string, key string, err error) {
	if len(s) == 0 || s[len(s)-1] != '"' {
		return "", "", &PathCorruptError{Path: s}
	}
	// Scan backward for the matching opening quote, tracking escapes
	// by re-scanning forward once we have a candidate start: walk
	// left past the closing quote, then left again until we find an
	// opening quote that is not itself escaped.
	end := len(s) - 1
	start := end - 1
	for start >= 0 {
		if s[start] == '"' {
			// Count preceding backslashes; an even count (incl. zero)
			// means this quote is not escaped and opens the segment.
			nb := 0
			for j := start - 1; j >= 0 && s[j] == '\\'; j-- {
				nb++
			}
			if nb%2 == 0 {
				break
			}
		}
		start--
	}
	if start < 0 {
		return "", "", &PathCorruptError{Path: s}
	}
	raw := s[start+1 : end]
	return s[:start], unquoteKey(raw), nil
}

func unquoteKey(raw string) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
		}
		sb.WriteByte(raw[i])
	}
	return sb.String()
}
