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

// Package utils provides random utility functions
package utils

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// DecodeLeb128 decodes an unsigned LEB128 value that must occupy the whole input
func DecodeLeb128(data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, errors.New("leb128: empty input")
	}
	val, n := binary.Uvarint(data)
	if n == 0 {
		return 0, errors.New("leb128: truncated input")
	}
	if n < 0 {
		return 0, errors.New("leb128: value overflows uint64")
	}
	if n != len(data) {
		return 0, fmt.Errorf("leb128: %d trailing bytes", len(data)-n)
	}
	return val, nil
}

// EncodeLeb128 encodes an unsigned value as LEB128
func EncodeLeb128(val uint64) []byte {
	return binary.AppendUvarint(nil, val)
}

// DecodeTime decodes a LEB128 nanosecond timestamp as found in the "time" leaf of a certificate
func DecodeTime(data []byte) (time.Time, error) {
	nanos, err := DecodeLeb128(data)
	if err != nil {
		return time.Time{}, err
	}
	if nanos > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("timestamp out of range: %d", nanos)
	}
	return time.Unix(0, int64(nanos)), nil
}

// EncodeTime encodes a time as a LEB128 nanosecond timestamp
func EncodeTime(t time.Time) []byte {
	// #nosec G115 -- timestamps before the Unix epoch are not representable
	return EncodeLeb128(uint64(t.UnixNano()))
}
