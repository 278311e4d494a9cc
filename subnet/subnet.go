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

// Package subnet harvests the node public keys of the subnet hosting a
// canister from a state certificate, and caches them per canister
package subnet

import (
	"bytes"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/blinklabs-io/icverify/certificate"
	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/principal"
)

const (
	// NodeKeyDERSize is the length of a DER-encoded Ed25519 node public key
	NodeKeyDERSize = 44

	// NNSSubnetText is the id of the NNS subnet, used when neither a delegation nor a root key is available
	NNSSubnetText = "tdb26-jop6k-aogll-7ltgs-eruif-6kk7m-qpktf-gdiqx-mxtrf-vb5e6-eqe"
)

// DER header of an Ed25519 SubjectPublicKeyInfo
var ed25519DERPrefix = []byte{
	0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00,
}

// NodeKeys holds the DER-encoded public key of every node in a subnet, keyed by node id text
type NodeKeys struct {
	SubnetId string
	NodeKeys map[string][]byte
}

// Get returns the DER-encoded key for a node
func (n *NodeKeys) Get(nodeId string) ([]byte, bool) {
	if n == nil {
		return nil, false
	}
	key, ok := n.NodeKeys[nodeId]
	return key, ok
}

// FetchNodeKeys extracts the node keys of the subnet hosting canisterId from
// certificate bytes that have already been verified. The subnet is taken from
// the delegation, or derived from the root key when there is none
func FetchNodeKeys(
	certBytes []byte,
	canisterId principal.Principal,
	rootKey []byte,
) (*NodeKeys, error) {
	env, err := certificate.Decode(certBytes)
	if err != nil {
		return nil, err
	}
	var subnetId principal.Principal
	switch {
	case env.Delegation != nil && len(env.Delegation.SubnetId) > 0:
		subnetId = env.Delegation.SubnetId
	case len(rootKey) > 0:
		subnetId = principal.SelfAuthenticating(rootKey)
	default:
		subnetId = principal.SelfAuthenticating(principal.MustFromText(NNSSubnetText))
	}
	tree := env.Tree.Root
	if err := certificate.RequireCanisterInRanges(canisterId, subnetId, tree); err != nil {
		return nil, err
	}
	nodePath := hashtree.StringPath("subnet").Append(subnetId, []byte("node"))
	res := hashtree.LookupPath(nodePath, tree)
	if res.Status != hashtree.LookupSubtree {
		return nil, certificate.VerificationError{
			Kind:    certificate.ErrDecode,
			Message: fmt.Sprintf("no node list at %s", nodePath),
		}
	}
	ret := &NodeKeys{
		SubnetId: subnetId.String(),
		NodeKeys: make(map[string][]byte),
	}
	for _, n := range hashtree.FlattenForks(res.Tree) {
		labeled, ok := n.(hashtree.Labeled)
		if !ok {
			continue
		}
		nodeId := principal.Principal(labeled.Label).String()
		keyLookup := hashtree.LookupPath(hashtree.StringPath("public_key"), labeled.Child)
		if !keyLookup.Found() {
			return nil, nodeKeyError(nodeId, "missing public key")
		}
		if err := validateNodeKey(keyLookup.Value); err != nil {
			return nil, nodeKeyError(nodeId, err.Error())
		}
		ret.NodeKeys[nodeId] = keyLookup.Value
	}
	return ret, nil
}

func nodeKeyError(nodeId string, reason string) error {
	return certificate.VerificationError{
		Kind:    certificate.ErrDecode,
		Message: fmt.Sprintf("invalid public key for node %s: %s", nodeId, reason),
	}
}

func validateNodeKey(der []byte) error {
	if len(der) != NodeKeyDERSize {
		return fmt.Errorf("expected %d bytes, got %d", NodeKeyDERSize, len(der))
	}
	if !bytes.HasPrefix(der, ed25519DERPrefix) {
		return errors.New("not an Ed25519 key")
	}
	raw := der[len(ed25519DERPrefix):]
	p, err := new(edwards25519.Point).SetBytes(raw)
	if err != nil {
		return fmt.Errorf("not a valid curve point: %w", err)
	}
	// SetBytes accepts y coordinates that are not reduced modulo p
	if !bytes.Equal(p.Bytes(), raw) {
		return errors.New("non-canonical point encoding")
	}
	return nil
}
