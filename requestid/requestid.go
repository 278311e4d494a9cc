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

// Package requestid implements the representation-independent hash of
// structured values, which identifies requests and covers signed query responses
package requestid

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"

	"github.com/blinklabs-io/icverify/principal"
	"github.com/blinklabs-io/icverify/utils"
)

// RequestId is the hash of a request or response map
type RequestId [sha256.Size]byte

func (r RequestId) Bytes() []byte {
	return r[:]
}

var ErrUnsupportedValue = errors.New("unsupported value type for hashing")

// HashOfMap hashes a map by hashing each key and value, sorting the
// concatenated pairs and hashing the result. Nil values are left out
func HashOfMap(m map[string]any) (RequestId, error) {
	var ret RequestId
	entries := make([][]byte, 0, len(m))
	for key, value := range m {
		if value == nil {
			continue
		}
		valueHash, err := HashValue(value)
		if err != nil {
			return ret, fmt.Errorf("field %q: %w", key, err)
		}
		keyHash := sha256.Sum256([]byte(key))
		entry := make([]byte, 0, len(keyHash)+len(valueHash))
		entry = append(entry, keyHash[:]...)
		entry = append(entry, valueHash...)
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, bytes.Compare)
	h := sha256.New()
	for _, entry := range entries {
		h.Write(entry)
	}
	copy(ret[:], h.Sum(nil))
	return ret, nil
}

// HashValue hashes a single value
func HashValue(value any) ([]byte, error) {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case principal.Principal:
		data = v
	case RequestId:
		data = v[:]
	case uint64:
		data = utils.EncodeLeb128(v)
	case uint32:
		data = utils.EncodeLeb128(uint64(v))
	case uint:
		data = utils.EncodeLeb128(uint64(v))
	case int:
		if v < 0 {
			return nil, fmt.Errorf("%w: negative integer %d", ErrUnsupportedValue, v)
		}
		data = utils.EncodeLeb128(uint64(v))
	case int64:
		if v < 0 {
			return nil, fmt.Errorf("%w: negative integer %d", ErrUnsupportedValue, v)
		}
		data = utils.EncodeLeb128(uint64(v))
	case []any:
		return hashArray(len(v), func(i int) any { return v[i] })
	case [][]byte:
		return hashArray(len(v), func(i int) any { return v[i] })
	case map[string]any:
		ret, err := HashOfMap(v)
		if err != nil {
			return nil, err
		}
		return ret[:], nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}

func hashArray(length int, item func(int) any) ([]byte, error) {
	h := sha256.New()
	for i := range length {
		itemHash, err := HashValue(item(i))
		if err != nil {
			return nil, err
		}
		h.Write(itemHash)
	}
	return h.Sum(nil), nil
}
