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

package test

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"time"

	"github.com/blinklabs-io/icverify/bls"
	"github.com/blinklabs-io/icverify/cbor"
	"github.com/blinklabs-io/icverify/certificate"
	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/principal"
	"github.com/blinklabs-io/icverify/utils"
)

// Signer holds a BLS keypair used to sign certificates
type Signer struct {
	secretKey []byte
	publicKey []byte
}

// NewSigner derives a deterministic BLS keypair from a seed
func NewSigner(seed string) *Signer {
	sum := sha256.Sum256([]byte(seed))
	sk, pk, err := bls.KeyGen(sum[:])
	if err != nil {
		panic(err.Error())
	}
	return &Signer{secretKey: sk, publicKey: pk}
}

// PublicKey returns the raw 96-byte public key
func (s *Signer) PublicKey() []byte {
	return s.publicKey
}

// DER returns the DER-encoded public key, as used for root and subnet keys
func (s *Signer) DER() []byte {
	return must(bls.PublicKeyToDER(s.publicKey))
}

// SignTree signs the root hash of a tree the way certificates are signed
func (s *Signer) SignTree(tree hashtree.Node) []byte {
	root := must(hashtree.Reconstruct(tree))
	msg := append(hashtree.DomainSep("ic-state-root"), root[:]...)
	return must(bls.Sign(s.secretKey, msg))
}

// Certificate builds the encoded certificate for a tree signed by signer
func Certificate(signer *Signer, tree hashtree.Node, delegation *certificate.Delegation) []byte {
	env := &certificate.Envelope{
		Tree:       hashtree.Tree{Root: tree},
		Signature:  signer.SignTree(tree),
		Delegation: delegation,
	}
	return must(env.Encode())
}

// Label builds a labeled node
func Label(label string, child hashtree.Node) hashtree.Node {
	return hashtree.Labeled{Label: []byte(label), Child: child}
}

// Leaf builds a leaf node
func Leaf(value []byte) hashtree.Node {
	return hashtree.Leaf{Value: value}
}

// Forks joins nodes into a left-leaning chain of forks
func Forks(nodes ...hashtree.Node) hashtree.Node {
	if len(nodes) == 0 {
		return hashtree.Empty{}
	}
	ret := nodes[0]
	for _, n := range nodes[1:] {
		ret = hashtree.Fork{Left: ret, Right: n}
	}
	return ret
}

// TimeNode builds the "time" subtree
func TimeNode(t time.Time) hashtree.Node {
	return Label("time", Leaf(utils.EncodeTime(t)))
}

// CanisterId builds an opaque canister id from its index, as canister ids are allocated
func CanisterId(index uint64) principal.Principal {
	ret := make(principal.Principal, 10)
	for i := 7; i >= 0; i-- {
		ret[i] = byte(index)
		index >>= 8
	}
	ret[8] = 0x01
	ret[9] = 0x01
	return ret
}

// Node is a replica node with an Ed25519 signing key
type Node struct {
	Id         principal.Principal
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// NewNode derives a deterministic node key from a seed
func NewNode(seed string) *Node {
	sum := sha256.Sum256([]byte(seed))
	priv := ed25519.NewKeyFromSeed(sum[:])
	pub := priv.Public().(ed25519.PublicKey)
	n := &Node{
		PublicKey:  pub,
		PrivateKey: priv,
	}
	n.Id = principal.SelfAuthenticating(n.DER())
	return n
}

// DER returns the 44-byte DER encoding of the node public key
func (n *Node) DER() []byte {
	return must(x509.MarshalPKIXPublicKey(n.PublicKey))
}

// Sign signs a payload with the node key
func (n *Node) Sign(payload []byte) []byte {
	return ed25519.Sign(n.PrivateKey, payload)
}

// Subnet describes a subnet as advertised in the state tree
type Subnet struct {
	Id     principal.Principal
	Signer *Signer
	Ranges []certificate.CanisterRange
	Nodes  []*Node
	// NodeKeyOverride replaces the DER key of the node with the given id text
	NodeKeyOverride map[string][]byte
}

// NewSubnet builds a subnet with a BLS key and nodes derived from seed, hosting the given canister id range
func NewSubnet(seed string, low, high principal.Principal, nodeCount int) *Subnet {
	s := &Subnet{
		Signer: NewSigner(seed),
		Ranges: []certificate.CanisterRange{{Low: low, High: high}},
	}
	s.Id = principal.SelfAuthenticating(s.Signer.DER())
	for i := range nodeCount {
		s.Nodes = append(s.Nodes, NewNode(seed+"/node/"+string(rune('a'+i))))
	}
	return s
}

// Tree builds the "subnet" subtree containing this subnet's ranges, public key and nodes
func (s *Subnet) Tree() hashtree.Node {
	nodes := make([]hashtree.Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		key := n.DER()
		if override, ok := s.NodeKeyOverride[n.Id.String()]; ok {
			key = override
		}
		nodes = append(
			nodes,
			hashtree.Labeled{
				Label: n.Id,
				Child: Label("public_key", Leaf(key)),
			},
		)
	}
	children := []hashtree.Node{
		Label("canister_ranges", Leaf(must(cbor.Encode(s.Ranges)))),
		Label("public_key", Leaf(s.Signer.DER())),
	}
	if len(nodes) > 0 {
		children = append(children, Label("node", Forks(nodes...)))
	}
	return Label(
		"subnet",
		hashtree.Labeled{Label: s.Id, Child: Forks(children...)},
	)
}

// Delegation builds a delegation for this subnet, certified by root at certTime
func (s *Subnet) Delegation(root *Signer, certTime time.Time) *certificate.Delegation {
	tree := Forks(s.Tree(), TimeNode(certTime))
	return &certificate.Delegation{
		SubnetId:    s.Id,
		Certificate: Certificate(root, tree, nil),
	}
}
