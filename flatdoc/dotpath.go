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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// stepType distinguishes a dotted-path step that names a map field
// from one that names a list index.
type stepType int8

const (
	stepKey stepType = iota
	stepIndex
)

// pathStep is a single human-facing segment of a dotted path such as
// "foo.bar[0]", used by Document.GetPath/SetPath to drive a walk over
// the view tree. It is distinct from EncodedPath, which is the
// store-level grammar of path.go.
type pathStep struct {
	kind stepType
	elem string
}

// joinDotPath renders a slice of pathStep back into its dotted string
// form. Keys are joined with ".", indices wrapped in "[]".
func joinDotPath(steps []pathStep) string {
	var sb strings.Builder
	for i, s := range steps {
		switch s.kind {
		case stepKey:
			if i > 0 {
				sb.WriteString(".")
			}
			sb.WriteString(s.elem)
		case stepIndex:
			sb.WriteString("[")
			sb.WriteString(s.elem)
			sb.WriteString("]")
		}
	}
	return sb.String()
}

// splitDotPath parses a human-facing key path like "foo.bar[0]" into
// a slice of pathStep. It supports dot notation for map fields and
// bracket notation for list indices, and rejects malformed input
// (consecutive dots, unbalanced brackets, spaces).
func splitDotPath(key string) ([]pathStep, error) {
	if key == "" {
		return nil, fmt.Errorf("flatdoc: invalid dotted path %q", key)
	}
	var (
		steps       []pathStep
		lastPos     int
		lastChar    rune
		openBracket bool
	)
	for i, c := range key {
		switch c {
		case ' ':
			return nil, fmt.Errorf("flatdoc: invalid dotted path %q", key)
		case '.':
			if openBracket || lastChar == '.' {
				return nil, fmt.Errorf("flatdoc: invalid dotted path %q", key)
			}
			if lastChar != ']' {
				steps = appendDotKey(steps, key[lastPos:i])
			}
			lastPos = i + 1
			lastChar = c
		case '[':
			if openBracket || lastChar == '.' {
				return nil, fmt.Errorf("flatdoc: invalid dotted path %q", key)
			}
			if i > 0 && lastChar != ']' {
				steps = appendDotKey(steps, key[lastPos:i])
			}
			openBracket = true
			lastPos = i + 1
			lastChar = c
		case ']':
			if !openBracket {
				return nil, fmt.Errorf("flatdoc: invalid dotted path %q", key)
			}
			var err error
			steps, err = appendDotIndex(steps, key[lastPos:i])
			if err != nil {
				return nil, fmt.Errorf("flatdoc: invalid dotted path %q", key)
			}
			openBracket = false
			lastPos = i + 1
			lastChar = c
		default:
			if lastChar == ']' {
				return nil, fmt.Errorf("flatdoc: invalid dotted path %q", key)
			}
			lastChar = c
		}
	}
	if openBracket || lastChar == '.' {
		return nil, fmt.Errorf("flatdoc: invalid dotted path %q", key)
	}
	if lastChar != ']' {
		steps = appendDotKey(steps, key[lastPos:])
	}
	return steps, nil
}

func appendDotKey(steps []pathStep, s string) []pathStep {
	return append(steps, pathStep{stepKey, s})
}

func appendDotIndex(steps []pathStep, s string) ([]pathStep, error) {
	_, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, errors.New("flatdoc: invalid index")
	}
	return append(steps, pathStep{stepIndex, s}), nil
}
