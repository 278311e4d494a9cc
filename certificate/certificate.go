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

// Package certificate verifies certified state: it decodes certificates,
// reconstructs their root hash, follows subnet delegations, checks freshness
// and verifies the BLS signature against the root key
package certificate

import (
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/icverify/bls"
	"github.com/blinklabs-io/icverify/cbor"
	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/principal"
	"github.com/blinklabs-io/icverify/utils"
)

const domainStateRoot = "ic-state-root"

// Envelope is a decoded but unverified certificate
type Envelope struct {
	Tree       hashtree.Tree `cbor:"tree"`
	Signature  []byte        `cbor:"signature"`
	Delegation *Delegation   `cbor:"delegation,omitempty"`
}

// Delegation authorizes a subnet key through a certificate signed by the root key
type Delegation struct {
	SubnetId    []byte `cbor:"subnet_id"`
	Certificate []byte `cbor:"certificate"`
}

// Decode parses certificate bytes without verifying anything
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := cbor.DecodeFull(data, &env); err != nil {
		return nil, newError(ErrDecode, err, "could not decode certificate")
	}
	if env.Tree.Root == nil {
		return nil, newError(ErrDecode, nil, "certificate has no tree")
	}
	if env.Delegation != nil && len(env.Delegation.Certificate) == 0 {
		return nil, newError(ErrDecode, nil, "delegation has no certificate")
	}
	return &env, nil
}

// Encode produces the self-described CBOR encoding of the envelope
func (e *Envelope) Encode() ([]byte, error) {
	return cbor.EncodeSelfDescribed(e)
}

// Certificate is a verified certificate. It can only be obtained from Create
type Certificate struct {
	envelope *Envelope
	rootHash hashtree.Digest
	time     time.Time
}

// Create decodes and fully verifies a certificate
func Create(data []byte, cfg Config) (*Certificate, error) {
	return create(data, cfg, 0)
}

func create(data []byte, cfg Config, depth int) (*Certificate, error) {
	env, err := Decode(data)
	if err != nil {
		return nil, err
	}
	rootHash, err := hashtree.Reconstruct(env.Tree.Root)
	if err != nil {
		return nil, newError(ErrDecode, err, "could not reconstruct root hash")
	}
	derKey, err := delegationKey(env.Delegation, cfg, depth)
	if err != nil {
		return nil, err
	}
	publicKey, err := bls.PublicKeyFromDER(derKey)
	if err != nil {
		return nil, newError(ErrDecode, err, "bad signing key")
	}
	cert := &Certificate{
		envelope: env,
		rootHash: rootHash,
	}
	timeLookup := cert.Lookup(hashtree.StringPath("time"))
	if !timeLookup.Found() {
		return nil, newError(ErrDecode, nil, "certificate does not contain a time")
	}
	cert.time, err = utils.DecodeTime(timeLookup.Value)
	if err != nil {
		return nil, newError(ErrDecode, err, "could not decode certificate time")
	}
	if err := checkFreshness(cert.time, cfg); err != nil {
		return nil, err
	}
	msg := append(hashtree.DomainSep(domainStateRoot), rootHash[:]...)
	err = verifySignature(cfg.blsVerifier(), publicKey, env.Signature, msg)
	if err != nil {
		return nil, newError(ErrSignature, err, "invalid certificate signature")
	}
	return cert, nil
}

func checkFreshness(certTime time.Time, cfg Config) error {
	now := cfg.now()
	if maxAge := cfg.maxAge(); maxAge != NoMaxAge {
		earliest := now.Add(-maxAge)
		if certTime.Before(earliest) {
			return newError(
				ErrFreshness,
				FreshnessError{Boundary: earliest, Observed: certTime},
				"certificate is signed more than %s in the past",
				maxAge,
			)
		}
	}
	latest := now.Add(MaxClockSkew)
	if certTime.After(latest) {
		return newError(
			ErrFreshness,
			FreshnessError{Boundary: latest, Observed: certTime, Future: true},
			"certificate is signed more than %s in the future",
			MaxClockSkew,
		)
	}
	return nil
}

// verifySignature treats a panicking verifier as a failed verification
func verifySignature(v BlsVerifier, publicKey, signature, msg []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("verifier panic: %v", r)
		}
	}()
	return v.VerifyBls(publicKey, signature, msg)
}

// delegationKey returns the DER-encoded key that must have signed the certificate
func delegationKey(d *Delegation, cfg Config, depth int) ([]byte, error) {
	if d == nil {
		if len(cfg.RootKey) == 0 {
			return nil, newError(ErrDecode, nil, "no root key configured")
		}
		return cfg.RootKey, nil
	}
	if depth >= cfg.maxDelegationDepth() {
		return nil, newError(
			ErrDecode,
			nil,
			"delegation chain deeper than %d",
			cfg.maxDelegationDepth(),
		)
	}
	subnetId := principal.Principal(d.SubnetId)
	delegationCfg := cfg
	// Delegations are long-lived and covered by the outer certificate's time
	delegationCfg.MaxAge = NoMaxAge
	cert, err := create(d.Certificate, delegationCfg, depth+1)
	if err != nil {
		var verr VerificationError
		if errors.As(err, &verr) {
			verr.Message = fmt.Sprintf(
				"delegation for subnet %s: %s",
				subnetId,
				verr.Message,
			)
			return nil, verr
		}
		return nil, err
	}
	err = RequireCanisterInRanges(cfg.CanisterId, d.SubnetId, cert.Tree())
	if err != nil {
		return nil, err
	}
	keyLookup := cert.Lookup(
		hashtree.StringPath("subnet").Append(d.SubnetId, []byte("public_key")),
	)
	if !keyLookup.Found() {
		return nil, newError(
			ErrDecode,
			nil,
			"could not find public key for subnet %s",
			subnetId,
		)
	}
	return keyLookup.Value, nil
}

// Lookup resolves a path within the certificate tree
func (c *Certificate) Lookup(path hashtree.Path) hashtree.LookupResult {
	return hashtree.LookupPath(path, c.envelope.Tree.Root)
}

// LookupLabel resolves a single label below the root
func (c *Certificate) LookupLabel(label []byte) hashtree.LookupResult {
	return c.Lookup(hashtree.Path{label})
}

// Time returns the certified time
func (c *Certificate) Time() time.Time {
	return c.time
}

// RootHash returns the reconstructed root hash that was signed
func (c *Certificate) RootHash() hashtree.Digest {
	return c.rootHash
}

// Tree returns the certificate's hash tree
func (c *Certificate) Tree() hashtree.Node {
	return c.envelope.Tree.Root
}

// Delegation returns the certificate's delegation, or nil when it was signed by the root key
func (c *Certificate) Delegation() *Delegation {
	return c.envelope.Delegation
}
