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

package cbor_test

import (
	"testing"

	"github.com/blinklabs-io/icverify/cbor"
	"github.com/blinklabs-io/icverify/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	testDefs := []struct {
		name      string
		cborHex   string
		expected  any
		bytesRead int
	}{
		{
			name:      "list of numbers",
			cborHex:   "83010203",
			expected:  []any{uint64(1), uint64(2), uint64(3)},
			bytesRead: 4,
		},
		{
			name:      "first of two items",
			cborHex:   "81018102",
			expected:  []any{uint64(1)},
			bytesRead: 2,
		},
		{
			name:      "self-described",
			cborHex:   "d9d9f7820141ab",
			expected:  []any{uint64(1), []byte{0xab}},
			bytesRead: 7,
		},
		{
			name:      "leaf node",
			cborHex:   "8203420102",
			expected:  []any{uint64(3), []byte{0x01, 0x02}},
			bytesRead: 5,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			var dest any
			n, err := cbor.Decode(test.DecodeHexString(testDef.cborHex), &dest)
			require.NoError(t, err)
			assert.Equal(t, testDef.bytesRead, n)
			assert.Equal(t, testDef.expected, dest)
		})
	}
}

func TestDecodeFull(t *testing.T) {
	data := test.DecodeHexString("81018102")
	var dest any
	assert.ErrorContains(t, cbor.DecodeFull(data, &dest), "trailing data")
	assert.NoError(t, cbor.DecodeFull(data[:2], &dest))

	// {"a": 1, "a": 2}
	var m map[string]uint64
	assert.Error(t, cbor.DecodeFull(test.DecodeHexString("a2616101616102"), &m))
}

func TestListLength(t *testing.T) {
	lengths := map[string]int{
		"80":           0,
		"8101":         1,
		"83040506":     3,
		"d9d9f7820103": 2,
		// 26 items need a one byte length argument
		"981a000102030405060708090a0b0c0d0e0f101112131415161718181819": 26,
	}
	for cborHex, expected := range lengths {
		n, err := cbor.ListLength(test.DecodeHexString(cborHex))
		require.NoError(t, err, cborHex)
		assert.Equal(t, expected, n, cborHex)
	}
	_, err := cbor.ListLength(nil)
	assert.Error(t, err)
}

func TestDecodeIdFromList(t *testing.T) {
	ids := map[string]int{
		// [3, h'01']
		"82034101": 3,
		// Self-described [1, [0], [0]]
		"d9d9f7830181008100": 1,
		// [100]
		"811864": 100,
		// [2, ...] with a non-minimal list header
		"98020241ff": 2,
	}
	for cborHex, expected := range ids {
		id, err := cbor.DecodeIdFromList(test.DecodeHexString(cborHex))
		require.NoError(t, err, cborHex)
		assert.Equal(t, expected, id, cborHex)
	}
	for _, cborHex := range []string{"80", "8141ab"} {
		_, err := cbor.DecodeIdFromList(test.DecodeHexString(cborHex))
		assert.Error(t, err, cborHex)
	}
}
