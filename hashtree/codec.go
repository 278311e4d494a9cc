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
	"errors"
	"fmt"

	"github.com/blinklabs-io/icverify/cbor"
)

// Tree wraps a Node so that it can be embedded in CBOR-encoded structures
type Tree struct {
	Root Node
}

type emptyNode struct {
	cbor.StructAsArray
	Type uint
}

type forkNode struct {
	cbor.StructAsArray
	Type  uint
	Left  Tree
	Right Tree
}

type labeledNode struct {
	cbor.StructAsArray
	Type  uint
	Label []byte
	Child Tree
}

type leafNode struct {
	cbor.StructAsArray
	Type  uint
	Value []byte
}

type prunedNode struct {
	cbor.StructAsArray
	Type   uint
	Digest []byte
}

// Decode parses a CBOR-encoded hash tree
func Decode(data []byte) (Node, error) {
	var t Tree
	if err := cbor.DecodeFull(data, &t); err != nil {
		return nil, err
	}
	return t.Root, nil
}

// Encode produces the CBOR encoding of a hash tree
func Encode(n Node) ([]byte, error) {
	return cbor.Encode(Tree{Root: n})
}

func (t *Tree) UnmarshalCBOR(data []byte) error {
	id, err := cbor.DecodeIdFromList(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNode, err)
	}
	switch NodeType(id) {
	case NodeTypeEmpty:
		var tmp emptyNode
		if _, err := cbor.Decode(data, &tmp); err != nil {
			return err
		}
		t.Root = Empty{}
	case NodeTypeFork:
		var tmp forkNode
		if _, err := cbor.Decode(data, &tmp); err != nil {
			return err
		}
		t.Root = Fork{Left: tmp.Left.Root, Right: tmp.Right.Root}
	case NodeTypeLabeled:
		var tmp labeledNode
		if _, err := cbor.Decode(data, &tmp); err != nil {
			return err
		}
		t.Root = Labeled{Label: tmp.Label, Child: tmp.Child.Root}
	case NodeTypeLeaf:
		var tmp leafNode
		if _, err := cbor.Decode(data, &tmp); err != nil {
			return err
		}
		t.Root = Leaf{Value: tmp.Value}
	case NodeTypePruned:
		var tmp prunedNode
		if _, err := cbor.Decode(data, &tmp); err != nil {
			return err
		}
		if len(tmp.Digest) != HashSize {
			return fmt.Errorf(
				"%w: pruned digest must be %d bytes, got %d",
				ErrInvalidNode,
				HashSize,
				len(tmp.Digest),
			)
		}
		var p Pruned
		copy(p.Digest[:], tmp.Digest)
		t.Root = p
	default:
		return fmt.Errorf("%w: unknown node type %d", ErrInvalidNode, id)
	}
	return nil
}

func (t Tree) MarshalCBOR() ([]byte, error) {
	var tmp any
	switch v := t.Root.(type) {
	case Empty:
		tmp = emptyNode{Type: uint(NodeTypeEmpty)}
	case Fork:
		tmp = forkNode{
			Type:  uint(NodeTypeFork),
			Left:  Tree{Root: v.Left},
			Right: Tree{Root: v.Right},
		}
	case Labeled:
		tmp = labeledNode{
			Type:  uint(NodeTypeLabeled),
			Label: v.Label,
			Child: Tree{Root: v.Child},
		}
	case Leaf:
		tmp = leafNode{Type: uint(NodeTypeLeaf), Value: v.Value}
	case Pruned:
		tmp = prunedNode{Type: uint(NodeTypePruned), Digest: v.Digest[:]}
	case nil:
		return nil, errors.New("cannot encode nil hash tree node")
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidNode, t.Root)
	}
	return cbor.Encode(tmp)
}
