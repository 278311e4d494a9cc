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

package certificate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/icverify/certificate"
	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/internal/test"
	"github.com/blinklabs-io/icverify/principal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

func rootSigner() *test.Signer {
	return test.NewSigner("root")
}

func testConfig(root *test.Signer, canisterId principal.Principal) certificate.Config {
	return certificate.Config{
		RootKey:    root.DER(),
		CanisterId: canisterId,
		Clock:      fixedClock,
	}
}

func simpleTree(certTime time.Time) hashtree.Node {
	return test.Forks(
		test.Label("canister", test.Label("module_hash", test.Leaf([]byte{0xab, 0xcd}))),
		test.TimeNode(certTime),
	)
}

func TestCreateRootSigned(t *testing.T) {
	root := rootSigner()
	tree := simpleTree(testNow)
	data := test.Certificate(root, tree, nil)
	cert, err := certificate.Create(data, testConfig(root, test.CanisterId(1)))
	require.NoError(t, err)
	assert.True(t, testNow.Equal(cert.Time()))
	expectedRoot, err := hashtree.Reconstruct(tree)
	require.NoError(t, err)
	assert.Equal(t, expectedRoot, cert.RootHash())
	assert.Nil(t, cert.Delegation())

	res := cert.Lookup(hashtree.StringPath("canister", "module_hash"))
	require.True(t, res.Found())
	assert.Equal(t, []byte{0xab, 0xcd}, res.Value)
	assert.Equal(t, hashtree.LookupSubtree, cert.LookupLabel([]byte("canister")).Status)
	assert.Equal(t, hashtree.LookupAbsent, cert.LookupLabel([]byte("missing")).Status)
}

func TestCreateFreshness(t *testing.T) {
	root := rootSigner()
	cfg := testConfig(root, test.CanisterId(1))
	testDefs := []struct {
		name   string
		offset time.Duration
		fresh  bool
	}{
		{name: "6 minutes old", offset: -6 * time.Minute, fresh: false},
		{name: "4 minutes old", offset: -4 * time.Minute, fresh: true},
		{name: "exactly max age", offset: -5 * time.Minute, fresh: true},
		{name: "4 minutes ahead", offset: 4 * time.Minute, fresh: true},
		{name: "6 minutes ahead", offset: 6 * time.Minute, fresh: false},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			certTime := testNow.Add(testDef.offset)
			data := test.Certificate(root, simpleTree(certTime), nil)
			_, err := certificate.Create(data, cfg)
			if testDef.fresh {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, certificate.ErrFreshness)
			assert.True(t, certificate.IsVerificationError(err))
			var ferr certificate.FreshnessError
			require.True(t, errors.As(err, &ferr))
			assert.True(t, certTime.Equal(ferr.Observed))
			assert.Equal(t, testDef.offset > 0, ferr.Future)
		})
	}
}

func TestCreateCustomMaxAge(t *testing.T) {
	root := rootSigner()
	cfg := testConfig(root, test.CanisterId(1))
	data := test.Certificate(root, simpleTree(testNow.Add(-30*time.Minute)), nil)
	_, err := certificate.Create(data, cfg)
	assert.ErrorIs(t, err, certificate.ErrFreshness)
	cfg.MaxAge = time.Hour
	_, err = certificate.Create(data, cfg)
	assert.NoError(t, err)
	cfg.MaxAge = certificate.NoMaxAge
	_, err = certificate.Create(data, cfg)
	assert.NoError(t, err)
}

func TestCreateTampered(t *testing.T) {
	root := rootSigner()
	original := test.Forks(
		test.Label("value", test.Leaf([]byte{0x01, 0x02, 0x03})),
		test.TimeNode(testNow),
	)
	tampered := test.Forks(
		test.Label("value", test.Leaf([]byte{0x01, 0x02, 0x04})),
		test.TimeNode(testNow),
	)
	env := &certificate.Envelope{
		Tree:      hashtree.Tree{Root: tampered},
		Signature: root.SignTree(original),
	}
	data, err := env.Encode()
	require.NoError(t, err)
	_, err = certificate.Create(data, testConfig(root, test.CanisterId(1)))
	assert.ErrorIs(t, err, certificate.ErrSignature)
	assert.NotErrorIs(t, err, certificate.ErrDecode)
}

func TestCreateWrongRootKey(t *testing.T) {
	data := test.Certificate(rootSigner(), simpleTree(testNow), nil)
	_, err := certificate.Create(
		data,
		testConfig(test.NewSigner("not root"), test.CanisterId(1)),
	)
	assert.ErrorIs(t, err, certificate.ErrSignature)
}

func TestCreateDecodeErrors(t *testing.T) {
	root := rootSigner()
	cfg := testConfig(root, test.CanisterId(1))

	_, err := certificate.Create([]byte{0x01, 0x02}, cfg)
	assert.ErrorIs(t, err, certificate.ErrDecode)

	// No time leaf
	noTime := test.Certificate(root, test.Label("a", test.Leaf(nil)), nil)
	_, err = certificate.Create(noTime, cfg)
	assert.ErrorIs(t, err, certificate.ErrDecode)

	// Root key of the wrong length
	badKeyCfg := cfg
	badKeyCfg.RootKey = root.DER()[1:]
	_, err = certificate.Create(test.Certificate(root, simpleTree(testNow), nil), badKeyCfg)
	assert.ErrorIs(t, err, certificate.ErrDecode)

	// Unknown tree node type
	_, err = certificate.Create(
		test.DecodeHexString("d9d9f7a2647472656582054161697369676e617475726541ab"),
		cfg,
	)
	assert.ErrorIs(t, err, certificate.ErrDecode)
}

func TestCreateBlsVerifierOverride(t *testing.T) {
	root := rootSigner()
	tree := simpleTree(testNow)
	env := &certificate.Envelope{
		Tree:      hashtree.Tree{Root: tree},
		Signature: []byte("not a real signature"),
	}
	data, err := env.Encode()
	require.NoError(t, err)

	cfg := testConfig(root, test.CanisterId(1))
	var gotKey []byte
	cfg.BlsVerifier = certificate.BlsVerifierFunc(
		func(publicKey, signature, msg []byte) error {
			gotKey = publicKey
			return nil
		},
	)
	_, err = certificate.Create(data, cfg)
	require.NoError(t, err)
	assert.Equal(t, root.PublicKey(), gotKey)

	cfg.BlsVerifier = certificate.BlsVerifierFunc(
		func(publicKey, signature, msg []byte) error {
			panic("boom")
		},
	)
	_, err = certificate.Create(data, cfg)
	assert.ErrorIs(t, err, certificate.ErrSignature)
}

func TestCreateDelegation(t *testing.T) {
	root := rootSigner()
	subnet := test.NewSubnet("subnet", test.CanisterId(0), test.CanisterId(100), 0)
	// Delegations are long-lived, so an old delegation certificate is fine
	delegation := subnet.Delegation(root, testNow.Add(-24*time.Hour))
	data := test.Certificate(subnet.Signer, simpleTree(testNow), delegation)

	cert, err := certificate.Create(data, testConfig(root, test.CanisterId(50)))
	require.NoError(t, err)
	require.NotNil(t, cert.Delegation())
	assert.Equal(t, []byte(subnet.Id), cert.Delegation().SubnetId)

	// Signed by the root key instead of the delegated subnet key
	wrongSigner := test.Certificate(root, simpleTree(testNow), delegation)
	_, err = certificate.Create(wrongSigner, testConfig(root, test.CanisterId(50)))
	assert.ErrorIs(t, err, certificate.ErrSignature)
}

func TestCreateDelegationOutOfRange(t *testing.T) {
	root := rootSigner()
	subnet := test.NewSubnet("subnet", test.CanisterId(0), test.CanisterId(100), 0)
	delegation := subnet.Delegation(root, testNow)
	data := test.Certificate(subnet.Signer, simpleTree(testNow), delegation)

	_, err := certificate.Create(data, testConfig(root, test.CanisterId(101)))
	assert.ErrorIs(t, err, certificate.ErrScope)
	assert.NotErrorIs(t, err, certificate.ErrSignature)
}

func TestCreateDelegationMissingRanges(t *testing.T) {
	root := rootSigner()
	subnet := test.NewSubnet("subnet", test.CanisterId(0), test.CanisterId(100), 0)
	// Delegation certificate advertising a different subnet id
	other := test.NewSubnet("other", test.CanisterId(0), test.CanisterId(100), 0)
	delegation := &certificate.Delegation{
		SubnetId: subnet.Id,
		Certificate: test.Certificate(
			root,
			test.Forks(other.Tree(), test.TimeNode(testNow)),
			nil,
		),
	}
	data := test.Certificate(subnet.Signer, simpleTree(testNow), delegation)
	_, err := certificate.Create(data, testConfig(root, test.CanisterId(1)))
	assert.ErrorIs(t, err, certificate.ErrScope)
}

func TestCreateDelegationFuture(t *testing.T) {
	root := rootSigner()
	subnet := test.NewSubnet("subnet", test.CanisterId(0), test.CanisterId(100), 0)
	delegation := subnet.Delegation(root, testNow.Add(time.Hour))
	data := test.Certificate(subnet.Signer, simpleTree(testNow), delegation)
	_, err := certificate.Create(data, testConfig(root, test.CanisterId(1)))
	assert.ErrorIs(t, err, certificate.ErrFreshness)
}

func TestCreateDelegationDepth(t *testing.T) {
	root := rootSigner()
	outer := test.NewSubnet("outer", test.CanisterId(0), test.CanisterId(100), 0)
	inner := test.NewSubnet("inner", test.CanisterId(0), test.CanisterId(100), 0)
	// root -> inner -> outer -> certificate
	innerDelegation := inner.Delegation(root, testNow)
	outerDelegation := &certificate.Delegation{
		SubnetId: outer.Id,
		Certificate: test.Certificate(
			inner.Signer,
			test.Forks(outer.Tree(), test.TimeNode(testNow)),
			innerDelegation,
		),
	}
	data := test.Certificate(outer.Signer, simpleTree(testNow), outerDelegation)

	cfg := testConfig(root, test.CanisterId(1))
	_, err := certificate.Create(data, cfg)
	require.NoError(t, err)

	cfg.MaxDelegationDepth = 1
	_, err = certificate.Create(data, cfg)
	assert.ErrorIs(t, err, certificate.ErrDecode)
}

func TestCheckCanisterRanges(t *testing.T) {
	low := test.CanisterId(10)
	high := test.CanisterId(20)
	subnet := test.NewSubnet("subnet", low, high, 0)
	subnet.Ranges = append(
		subnet.Ranges,
		certificate.CanisterRange{Low: test.CanisterId(30), High: test.CanisterId(30)},
	)
	tree := subnet.Tree()
	testDefs := []struct {
		name    string
		id      principal.Principal
		inRange bool
	}{
		{name: "low boundary", id: low, inRange: true},
		{name: "high boundary", id: high, inRange: true},
		{name: "inside", id: test.CanisterId(15), inRange: true},
		{name: "below", id: test.CanisterId(9), inRange: false},
		{name: "above", id: test.CanisterId(21), inRange: false},
		{name: "single id range", id: test.CanisterId(30), inRange: true},
		{name: "between ranges", id: test.CanisterId(25), inRange: false},
		// A prefix of the low bound sorts before it
		{name: "shorter prefix", id: low[:9], inRange: false},
		// Extending the low bound sorts after it
		{name: "longer extension", id: append(principal.Principal{}, append(low, 0x00)...), inRange: true},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			inRange, err := certificate.CheckCanisterRanges(testDef.id, subnet.Id, tree)
			require.NoError(t, err)
			assert.Equal(t, testDef.inRange, inRange)
		})
	}

	_, err := certificate.CheckCanisterRanges(low, []byte("unknown subnet"), tree)
	assert.ErrorIs(t, err, certificate.ErrScope)

	ranges, err := certificate.CanisterRanges(subnet.Id, tree)
	require.NoError(t, err)
	assert.Len(t, ranges, 2)
}

func TestCheckCanisterRangesMalformed(t *testing.T) {
	subnetId := []byte{0x01}
	tree := test.Label(
		"subnet",
		hashtree.Labeled{
			Label: subnetId,
			Child: test.Label("canister_ranges", test.Leaf([]byte{0xff})),
		},
	)
	_, err := certificate.CheckCanisterRanges(test.CanisterId(1), subnetId, tree)
	assert.ErrorIs(t, err, certificate.ErrDecode)
}

func BenchmarkCreate(b *testing.B) {
	root := rootSigner()
	data := test.Certificate(root, simpleTree(testNow), nil)
	cfg := testConfig(root, test.CanisterId(1))
	b.ReportAllocs()
	for b.Loop() {
		if _, err := certificate.Create(data, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
