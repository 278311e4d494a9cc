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

// Package hashtree implements the certified state hash tree: its node types,
// canonical root hash reconstruction and path lookup
package hashtree

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

const HashSize = sha256.Size

// NodeType identifies a hash tree node variant. The values match the CBOR encoding
type NodeType uint8

const (
	NodeTypeEmpty   NodeType = 0
	NodeTypeFork    NodeType = 1
	NodeTypeLabeled NodeType = 2
	NodeTypeLeaf    NodeType = 3
	NodeTypePruned  NodeType = 4
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeEmpty:
		return "Empty"
	case NodeTypeFork:
		return "Fork"
	case NodeTypeLabeled:
		return "Labeled"
	case NodeTypeLeaf:
		return "Leaf"
	case NodeTypePruned:
		return "Pruned"
	default:
		return fmt.Sprintf("NodeType(%d)", uint8(t))
	}
}

// Domain separators for each node type
const (
	domainEmpty   = "ic-hashtree-empty"
	domainFork    = "ic-hashtree-fork"
	domainLabeled = "ic-hashtree-labeled"
	domainLeaf    = "ic-hashtree-leaf"
)

var ErrInvalidNode = errors.New("invalid hash tree node")

// Digest is a SHA-256 hash of a (sub)tree
type Digest [HashSize]byte

func (d Digest) Bytes() []byte {
	return d[:]
}

// Node is one of Empty, Fork, Labeled, Leaf or Pruned
type Node interface {
	Type() NodeType
	isNode()
}

type Empty struct{}

type Fork struct {
	Left  Node
	Right Node
}

type Labeled struct {
	Label []byte
	Child Node
}

type Leaf struct {
	Value []byte
}

// Pruned stands in for an elided subtree and carries only its digest
type Pruned struct {
	Digest Digest
}

func (Empty) Type() NodeType   { return NodeTypeEmpty }
func (Fork) Type() NodeType    { return NodeTypeFork }
func (Labeled) Type() NodeType { return NodeTypeLabeled }
func (Leaf) Type() NodeType    { return NodeTypeLeaf }
func (Pruned) Type() NodeType  { return NodeTypePruned }

func (Empty) isNode()   {}
func (Fork) isNode()    {}
func (Labeled) isNode() {}
func (Leaf) isNode()    {}
func (Pruned) isNode()  {}

// DomainSep returns the tag prefixed with its length as a single byte. Tags longer than 255 bytes panic
func DomainSep(tag string) []byte {
	var b cryptobyte.Builder
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(tag))
	})
	return b.BytesOrPanic()
}

// Reconstruct computes the root hash of a tree
func Reconstruct(n Node) (Digest, error) {
	var ret Digest
	h := sha256.New()
	switch v := n.(type) {
	case Empty:
		h.Write(DomainSep(domainEmpty))
	case Leaf:
		h.Write(DomainSep(domainLeaf))
		h.Write(v.Value)
	case Labeled:
		child, err := Reconstruct(v.Child)
		if err != nil {
			return ret, err
		}
		h.Write(DomainSep(domainLabeled))
		h.Write(v.Label)
		h.Write(child[:])
	case Fork:
		left, err := Reconstruct(v.Left)
		if err != nil {
			return ret, err
		}
		right, err := Reconstruct(v.Right)
		if err != nil {
			return ret, err
		}
		h.Write(DomainSep(domainFork))
		h.Write(left[:])
		h.Write(right[:])
	case Pruned:
		return v.Digest, nil
	default:
		return ret, fmt.Errorf("%w: %T", ErrInvalidNode, n)
	}
	copy(ret[:], h.Sum(nil))
	return ret, nil
}

// FlattenForks returns the non-fork nodes reachable through nested forks, left to right. Empty nodes are dropped
func FlattenForks(n Node) []Node {
	return flattenForks(n, nil)
}

func flattenForks(n Node, ret []Node) []Node {
	switch v := n.(type) {
	case Empty:
		return ret
	case Fork:
		ret = flattenForks(v.Left, ret)
		return flattenForks(v.Right, ret)
	default:
		return append(ret, n)
	}
}
