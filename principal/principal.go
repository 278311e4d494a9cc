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

// Package principal implements Internet Computer principal identifiers and their textual encoding
package principal

import (
	"bytes"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

const (
	// MaxLength is the maximum length of a principal in bytes
	MaxLength = 29

	typeOpaque             = 0x01
	typeSelfAuthenticating = 0x02
	typeAnonymous          = 0x04

	textGroupSize = 5
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is the raw byte form of an IC principal
type Principal []byte

// Anonymous returns the anonymous principal (2vxsx-fae)
func Anonymous() Principal {
	return Principal{typeAnonymous}
}

// Management returns the management canister principal (aaaaa-aa)
func Management() Principal {
	return Principal{}
}

// SelfAuthenticating derives the principal for a DER-encoded public key
func SelfAuthenticating(derPublicKey []byte) Principal {
	sum := sha256.Sum224(derPublicKey)
	ret := make(Principal, 0, len(sum)+1)
	ret = append(ret, sum[:]...)
	return append(ret, typeSelfAuthenticating)
}

// FromText parses the textual form of a principal. The checksum is validated and the input must be in canonical form
func FromText(text string) (Principal, error) {
	ungrouped := strings.ReplaceAll(strings.ToUpper(text), "-", "")
	raw, err := encoding.DecodeString(ungrouped)
	if err != nil {
		return nil, fmt.Errorf("invalid principal %q: %w", text, err)
	}
	if len(raw) < crc32.Size {
		return nil, fmt.Errorf("invalid principal %q: too short", text)
	}
	p := Principal(raw[crc32.Size:])
	if len(p) > MaxLength {
		return nil, fmt.Errorf("invalid principal %q: too long", text)
	}
	if binary.BigEndian.Uint32(raw[:crc32.Size]) != crc32.ChecksumIEEE(p) {
		return nil, fmt.Errorf("invalid principal %q: checksum mismatch", text)
	}
	if p.String() != text {
		return nil, fmt.Errorf("principal %q is not in canonical form", text)
	}
	return p, nil
}

// MustFromText is like FromText but panics on error. It is intended for constants
func MustFromText(text string) Principal {
	p, err := FromText(text)
	if err != nil {
		panic(err.Error())
	}
	return p
}

// FromBytes copies raw principal bytes, enforcing the maximum length
func FromBytes(data []byte) (Principal, error) {
	if len(data) > MaxLength {
		return nil, errors.New("principal too long")
	}
	return bytes.Clone(data), nil
}

// String returns the canonical textual form
func (p Principal) String() string {
	buf := make([]byte, crc32.Size, crc32.Size+len(p))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(p))
	buf = append(buf, p...)
	encoded := strings.ToLower(encoding.EncodeToString(buf))
	var sb strings.Builder
	for i := 0; i < len(encoded); i += textGroupSize {
		if i > 0 {
			sb.WriteByte('-')
		}
		end := min(i+textGroupSize, len(encoded))
		sb.WriteString(encoded[i:end])
	}
	return sb.String()
}

// Bytes returns the raw principal bytes
func (p Principal) Bytes() []byte {
	return p
}

// Equal reports whether two principals are identical
func (p Principal) Equal(other Principal) bool {
	return bytes.Equal(p, other)
}

// Compare orders principals by their raw bytes. A shorter principal sorts before any longer principal it prefixes
func (p Principal) Compare(other Principal) int {
	return bytes.Compare(p, other)
}

// IsAnonymous reports whether this is the anonymous principal
func (p Principal) IsAnonymous() bool {
	return len(p) == 1 && p[0] == typeAnonymous
}

// IsSelfAuthenticating reports whether the principal was derived from a public key
func (p Principal) IsSelfAuthenticating() bool {
	return len(p) == sha256.Size224+1 && p[len(p)-1] == typeSelfAuthenticating
}

// IsOpaque reports whether the principal is an opaque id, such as a canister id
func (p Principal) IsOpaque() bool {
	return len(p) > 0 && p[len(p)-1] == typeOpaque
}

// MarshalText implements encoding.TextMarshaler
func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Principal) UnmarshalText(text []byte) error {
	tmp, err := FromText(string(text))
	if err != nil {
		return err
	}
	*p = tmp
	return nil
}
