// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hashtree

import (
	"bytes"
	"encoding/hex"
	"strings"
)

// Path is a sequence of labels leading from the root of a tree
type Path [][]byte

// StringPath builds a path from UTF-8 labels
func StringPath(labels ...string) Path {
	ret := make(Path, 0, len(labels))
	for _, label := range labels {
		ret = append(ret, []byte(label))
	}
	return ret
}

// Append returns a new path with the given labels added to the end
func (p Path) Append(labels ...[]byte) Path {
	ret := make(Path, 0, len(p)+len(labels))
	ret = append(ret, p...)
	return append(ret, labels...)
}

func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, label := range p {
		parts = append(parts, labelString(label))
	}
	return "/" + strings.Join(parts, "/")
}

// LookupStatus describes the outcome of a lookup
type LookupStatus uint8

const (
	// LookupAbsent means the path does not exist in the tree
	LookupAbsent LookupStatus = iota
	// LookupFound means the path ends at a leaf, whose value is returned
	LookupFound
	// LookupSubtree means the path ends at a non-leaf node, which is returned as-is
	LookupSubtree
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupSubtree:
		return "subtree"
	default:
		return "absent"
	}
}

type LookupResult struct {
	Status LookupStatus
	Value  []byte
	Tree   Node
}

// Found reports whether the lookup ended at a leaf
func (r LookupResult) Found() bool {
	return r.Status == LookupFound
}

// LookupPath resolves path within the tree. At the end of the path a leaf
// yields its value and any other node is returned unmodified. When a level
// holds several children with the same label, the first one wins
func LookupPath(path Path, n Node) LookupResult {
	for _, label := range path {
		child, ok := findLabel(label, FlattenForks(n))
		if !ok {
			return LookupResult{Status: LookupAbsent}
		}
		n = child
	}
	if leaf, ok := n.(Leaf); ok {
		return LookupResult{Status: LookupFound, Value: leaf.Value}
	}
	return LookupResult{Status: LookupSubtree, Tree: n}
}

func findLabel(label []byte, nodes []Node) (Node, bool) {
	for _, n := range nodes {
		if labeled, ok := n.(Labeled); ok && bytes.Equal(labeled.Label, label) {
			return labeled.Child, true
		}
	}
	return nil, false
}

// labelString renders printable ASCII labels as text and anything else as hex
func labelString(label []byte) string {
	for _, c := range label {
		if c < 0x20 || c > 0x7e {
			return "0x" + hex.EncodeToString(label)
		}
	}
	return string(label)
}
