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
)

const (
	// Self-described CBOR (RFC 8949 section 3.4.6)
	CborTagSelfDescribe = 55799
)

// selfDescribePrefix is the encoded form of tag 55799 that prefixes
// certificates and most other replica responses
var selfDescribePrefix = []byte{0xd9, 0xd9, 0xf7}

// HasSelfDescribeTag reports whether the data starts with the self-described CBOR tag
func HasSelfDescribeTag(data []byte) bool {
	return bytes.HasPrefix(data, selfDescribePrefix)
}

// StripSelfDescribeTag removes a leading self-described CBOR tag, if present.
// The returned slice shares memory with the input
func StripSelfDescribeTag(data []byte) []byte {
	if HasSelfDescribeTag(data) {
		return data[len(selfDescribePrefix):]
	}
	return data
}

// AddSelfDescribeTag returns a copy of data prefixed with the self-described CBOR tag
func AddSelfDescribeTag(data []byte) []byte {
	if HasSelfDescribeTag(data) {
		return bytes.Clone(data)
	}
	ret := make([]byte, 0, len(selfDescribePrefix)+len(data))
	ret = append(ret, selfDescribePrefix...)
	return append(ret, data...)
}
