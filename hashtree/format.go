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
	"encoding/hex"
	"fmt"
	"strings"
)

// Format renders a tree as indented text for debugging. It never affects hashing or lookup
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n, 0)
	return sb.String()
}

func format(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case Empty:
		sb.WriteString(indent + "empty\n")
	case Fork:
		sb.WriteString(indent + "fork\n")
		format(sb, v.Left, depth+1)
		format(sb, v.Right, depth+1)
	case Labeled:
		sb.WriteString(indent + "label " + labelString(v.Label) + "\n")
		format(sb, v.Child, depth+1)
	case Leaf:
		fmt.Fprintf(sb, "%sleaf (%d bytes) %s\n", indent, len(v.Value), leafPreview(v.Value))
	case Pruned:
		sb.WriteString(indent + "pruned " + hex.EncodeToString(v.Digest[:]) + "\n")
	default:
		fmt.Fprintf(sb, "%sunknown %T\n", indent, n)
	}
}

const leafPreviewBytes = 32

func leafPreview(value []byte) string {
	if len(value) > leafPreviewBytes {
		return hex.EncodeToString(value[:leafPreviewBytes]) + "..."
	}
	return hex.EncodeToString(value)
}

func (n Empty) String() string   { return Format(n) }
func (n Fork) String() string    { return Format(n) }
func (n Labeled) String() string { return Format(n) }
func (n Leaf) String() string    { return Format(n) }
func (n Pruned) String() string  { return Format(n) }
