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

package status_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/icverify/cbor"
	"github.com/blinklabs-io/icverify/certificate"
	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/internal/test"
	"github.com/blinklabs-io/icverify/principal"
	"github.com/blinklabs-io/icverify/status"
	"github.com/blinklabs-io/icverify/subnet"
	"github.com/blinklabs-io/icverify/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	root       *test.Signer
	subnet     *test.Subnet
	canisterId principal.Principal
	controller principal.Principal
	certBytes  []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		root:       test.NewSigner("root"),
		subnet:     test.NewSubnet("subnet", test.CanisterId(0), test.CanisterId(100), 2),
		canisterId: test.CanisterId(5),
		controller: principal.SelfAuthenticating([]byte("controller key")),
	}
	controllers, err := cbor.EncodeSelfDescribed([]principal.Principal{f.controller})
	require.NoError(t, err)
	canisterTree := test.Label(
		"canister",
		hashtree.Labeled{
			Label: f.canisterId,
			Child: test.Forks(
				test.Label("controllers", test.Leaf(controllers)),
				test.Label("module_hash", test.Leaf([]byte{0xde, 0xad, 0xbe, 0xef})),
				test.Label("metadata", test.Forks(
					test.Label("candid:service", test.Leaf([]byte("service : {}"))),
					test.Label("counter", test.Leaf(utils.EncodeLeb128(300))),
				)),
			),
		},
	)
	tree := test.Forks(canisterTree, f.subnet.Tree(), test.TimeNode(testNow))
	f.certBytes = test.Certificate(f.subnet.Signer, tree, f.subnet.Delegation(f.root, testNow))
	return f
}

func (f *fixture) config() certificate.Config {
	return certificate.Config{
		RootKey:    f.root.DER(),
		CanisterId: f.canisterId,
		Clock:      func() time.Time { return testNow },
	}
}

func (f *fixture) reader() status.StateReader {
	return status.StateReaderFunc(
		func(ctx context.Context, canisterId principal.Principal, paths []hashtree.Path) ([]byte, error) {
			return f.certBytes, nil
		},
	)
}

func TestRequestWellKnownPaths(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	result, err := status.Request(
		context.Background(),
		f.reader(),
		f.config(),
		nil,
		status.PathTime,
		status.PathControllers,
		status.PathModuleHash,
		status.PathCandid,
		status.PathSubnet,
		// Duplicates are read once
		status.PathTime,
	)
	require.NoError(t, err)
	assert.Len(t, result, 5)

	certTime, ok := result["time"].(time.Time)
	require.True(t, ok)
	assert.True(t, testNow.Equal(certTime))

	controllers, ok := result["controllers"].([]principal.Principal)
	require.True(t, ok)
	require.Len(t, controllers, 1)
	assert.True(t, f.controller.Equal(controllers[0]))

	assert.Equal(t, "deadbeef", result["module_hash"])
	assert.Equal(t, "service : {}", result["candid"])

	keys, ok := result["subnet"].(*subnet.NodeKeys)
	require.True(t, ok)
	assert.Equal(t, f.subnet.Id.String(), keys.SubnetId)
	assert.Len(t, keys.NodeKeys, 2)
}

func TestRequestCustomPaths(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	canisterPath := hashtree.Path{[]byte("canister"), f.canisterId}
	result, err := status.Request(
		context.Background(),
		f.reader(),
		f.config(),
		nil,
		status.MetadataPath("counter", "counter", status.DecodeLeb128),
		status.MetadataPath("counter_raw", "counter", status.DecodeRaw),
		status.MetadataPath("candid_utf8", "candid:service", status.DecodeUtf8),
		status.CustomPath(
			"module_hex",
			canisterPath.Append([]byte("module_hash")),
			status.DecodeHex,
		),
		status.CustomPath(
			"controllers_cbor",
			canisterPath.Append([]byte("controllers")),
			status.DecodeCbor,
		),
		status.MetadataPath("missing", "no_such_section", status.DecodeRaw),
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), result["counter"])
	assert.Equal(t, utils.EncodeLeb128(300), result["counter_raw"])
	assert.Equal(t, "service : {}", result["candid_utf8"])
	assert.Equal(t, "deadbeef", result["module_hex"])
	assert.Equal(t, []any{[]byte(f.controller)}, result["controllers_cbor"])
	value, ok := result["missing"]
	assert.True(t, ok)
	assert.Nil(t, value)
}

func TestRequestReaderFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	readErr := errors.New("connection refused")
	reader := status.StateReaderFunc(
		func(ctx context.Context, canisterId principal.Principal, paths []hashtree.Path) ([]byte, error) {
			if string(paths[0][0]) == "time" {
				return nil, readErr
			}
			return f.certBytes, nil
		},
	)
	result, err := status.Request(
		context.Background(),
		reader,
		f.config(),
		nil,
		status.PathTime,
		status.PathModuleHash,
	)
	require.NoError(t, err)
	assert.Nil(t, result["time"])
	assert.Equal(t, "deadbeef", result["module_hash"])
}

func TestRequestVerificationFailureAborts(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	cfg := f.config()
	cfg.RootKey = test.NewSigner("impostor").DER()
	_, err := status.Request(
		context.Background(),
		f.reader(),
		cfg,
		nil,
		status.PathTime,
		status.PathModuleHash,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, certificate.ErrSignature)
}

func TestRequestOutOfRangeCanister(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	cfg := f.config()
	cfg.CanisterId = test.CanisterId(500)
	_, err := status.Request(context.Background(), f.reader(), cfg, nil, status.PathTime)
	assert.ErrorIs(t, err, certificate.ErrScope)
}

func TestRequestNoReader(t *testing.T) {
	_, err := status.Request(context.Background(), nil, certificate.Config{}, nil, status.PathTime)
	assert.Error(t, err)
}

func TestEncodePath(t *testing.T) {
	canisterId := test.CanisterId(1)
	testDefs := []struct {
		path     status.Path
		expected hashtree.Path
	}{
		{path: status.PathTime, expected: hashtree.StringPath("time")},
		{path: status.PathSubnet, expected: hashtree.StringPath("subnet")},
		{
			path:     status.PathControllers,
			expected: hashtree.Path{[]byte("canister"), canisterId, []byte("controllers")},
		},
		{
			path:     status.PathModuleHash,
			expected: hashtree.Path{[]byte("canister"), canisterId, []byte("module_hash")},
		},
		{
			path: status.PathCandid,
			expected: hashtree.Path{
				[]byte("canister"),
				canisterId,
				[]byte("metadata"),
				[]byte("candid:service"),
			},
		},
		{
			path: status.MetadataPath("x", "git_commit", status.DecodeUtf8),
			expected: hashtree.Path{
				[]byte("canister"),
				canisterId,
				[]byte("metadata"),
				[]byte("git_commit"),
			},
		},
		{
			path:     status.CustomPath("x", hashtree.StringPath("a", "b"), status.DecodeRaw),
			expected: hashtree.StringPath("a", "b"),
		},
	}
	for _, testDef := range testDefs {
		encoded, err := status.EncodePath(testDef.path, canisterId)
		require.NoError(t, err)
		assert.Equal(t, testDef.expected, encoded)
	}
	_, err := status.EncodePath(status.CustomPath("x", nil, status.DecodeRaw), canisterId)
	assert.Error(t, err)
}
