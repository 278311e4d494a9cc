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

package cbor

import (
	"bytes"
	"sync"

	_cbor "github.com/fxamacker/cbor/v2"
)

var (
	cachedEncMode     _cbor.EncMode
	cachedEncModeErr  error
	cachedEncModeOnce sync.Once
)

func getEncMode() (_cbor.EncMode, error) {
	cachedEncModeOnce.Do(func() {
		opts := _cbor.EncOptions{
			// Make sure that maps have ordered keys
			Sort: _cbor.SortCoreDeterministic,
			// Empty leaf values must encode as empty byte strings, not null
			NilContainers: _cbor.NilContainerAsEmpty,
		}
		cachedEncMode, cachedEncModeErr = opts.EncMode()
	})
	return cachedEncMode, cachedEncModeErr
}

func Encode(data any) ([]byte, error) {
	em, err := getEncMode()
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(nil)
	enc := em.NewEncoder(buf)
	err = enc.Encode(data)
	return buf.Bytes(), err
}

// EncodeSelfDescribed encodes data and prefixes the result with the self-described CBOR tag,
// which is how the replica frames certificates
func EncodeSelfDescribed(data any) ([]byte, error) {
	cborData, err := Encode(data)
	if err != nil {
		return nil, err
	}
	return AddSelfDescribeTag(cborData), nil
}
