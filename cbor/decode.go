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
	"errors"
	"fmt"
	"sync"

	_cbor "github.com/fxamacker/cbor/v2"
)

var (
	cachedDecMode     _cbor.DecMode
	cachedDecModeErr  error
	cachedDecModeOnce sync.Once
)

// getDecMode returns the shared DecMode, built on first use
func getDecMode() (_cbor.DecMode, error) {
	cachedDecModeOnce.Do(func() {
		decOptions := _cbor.DecOptions{
			// Hash trees nest one level per fork, so allow more than the default 32
			MaxNestedLevels: 256,
			// Duplicate map keys would make the certificate envelope ambiguous
			DupMapKey: _cbor.DupMapKeyEnforcedAPF,
		}
		cachedDecMode, cachedDecModeErr = decOptions.DecMode()
	})
	return cachedDecMode, cachedDecModeErr
}

// Decode decodes the CBOR data into dest and returns the number of bytes read.
// A leading self-described CBOR tag is skipped and counted as read
func Decode(dataBytes []byte, dest any) (int, error) {
	decMode, err := getDecMode()
	if err != nil {
		return 0, err
	}
	if decMode == nil {
		return 0, errors.New("CBOR decoder mode not initialized")
	}
	stripped := StripSelfDescribeTag(dataBytes)
	offset := len(dataBytes) - len(stripped)
	dec := decMode.NewDecoder(bytes.NewReader(stripped))
	err = dec.Decode(dest)
	return offset + dec.NumBytesRead(), err
}

// DecodeFull is like Decode, but fails when there is trailing data after the first item
func DecodeFull(dataBytes []byte, dest any) error {
	n, err := Decode(dataBytes, dest)
	if err != nil {
		return err
	}
	if n != len(dataBytes) {
		return fmt.Errorf(
			"unexpected trailing data: decoded %d of %d bytes",
			n,
			len(dataBytes),
		)
	}
	return nil
}

// Determine the length of a CBOR list
func ListLength(cborData []byte) (int, error) {
	cborData = StripSelfDescribeTag(cborData)
	if len(cborData) == 0 {
		return 0, errors.New("empty CBOR data")
	}
	// If the list length is <= the max simple uint, then we can extract the length
	// value straight from the byte slice (with a little math)
	if cborData[0] >= CborTypeArray &&
		cborData[0] <= (CborTypeArray+CborMaxUintSimple) {
		return int(cborData[0]) - int(CborTypeArray), nil
	}
	// If we couldn't use the shortcut above, actually decode the list
	var tmp []RawMessage
	if _, err := Decode(cborData, &tmp); err != nil {
		return 0, err
	}
	return len(tmp), nil
}

// DecodeIdFromList returns the first item of a CBOR list, which is used as a type discriminator
func DecodeIdFromList(cborData []byte) (int, error) {
	cborData = StripSelfDescribeTag(cborData)
	listLen, err := ListLength(cborData)
	if err != nil {
		return 0, err
	}
	if listLen == 0 {
		return 0, errors.New("cannot return first item from empty list")
	}
	// Small lists with a small first item can be read straight from the byte slice
	if cborData[0] <= CborTypeArray+CborMaxUintSimple && len(cborData) > 1 {
		if cborData[1] <= CborMaxUintSimple {
			return int(cborData[1]), nil
		}
	}
	var tmp []RawMessage
	if _, err := Decode(cborData, &tmp); err != nil {
		return 0, err
	}
	var id uint64
	if _, err := Decode(tmp[0], &id); err != nil {
		return 0, fmt.Errorf("first list item is not an unsigned integer: %w", err)
	}
	if id > uint64(^uint32(0)) {
		return 0, fmt.Errorf("list discriminator out of range: %d", id)
	}
	return int(id), nil
}
