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

package utils_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/icverify/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeb128(t *testing.T) {
	testDefs := []struct {
		value   uint64
		encoded []byte
	}{
		{value: 0, encoded: []byte{0x00}},
		{value: 127, encoded: []byte{0x7f}},
		{value: 128, encoded: []byte{0x80, 0x01}},
		{value: 624485, encoded: []byte{0xe5, 0x8e, 0x26}},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.encoded, utils.EncodeLeb128(testDef.value))
		decoded, err := utils.DecodeLeb128(testDef.encoded)
		require.NoError(t, err)
		assert.Equal(t, testDef.value, decoded)
	}
}

func TestLeb128Errors(t *testing.T) {
	for _, data := range [][]byte{
		{},
		{0x80},
		{0x01, 0x02},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
	} {
		_, err := utils.DecodeLeb128(data)
		assert.Error(t, err, "expected error for %x", data)
	}
}

func TestTime(t *testing.T) {
	now := time.Unix(1700000000, 123456789)
	decoded, err := utils.DecodeTime(utils.EncodeTime(now))
	require.NoError(t, err)
	assert.True(t, now.Equal(decoded))
}
