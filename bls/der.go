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

package bls

import (
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	// 1.3.6.1.4.1.44668.5.3.1.2.1
	oidBls12381 = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 44668, 5, 3, 1, 2, 1}
	// 1.3.6.1.4.1.44668.5.3.2.1
	oidBls12381G2 = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 44668, 5, 3, 2, 1}
)

// DerPrefixSize is the length of the fixed header in front of a DER-encoded public key
const DerPrefixSize = 37

// DerPublicKeySize is the total length of a DER-encoded public key
const DerPublicKeySize = DerPrefixSize + PublicKeySize

// PublicKeyToDER wraps a raw public key in its SubjectPublicKeyInfo structure
func PublicKeyToDER(publicKey []byte) ([]byte, error) {
	if len(publicKey) != PublicKeySize {
		return nil, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidPublicKey,
			PublicKeySize,
			len(publicKey),
		)
	}
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidBls12381)
			b.AddASN1ObjectIdentifier(oidBls12381G2)
		})
		b.AddASN1BitString(publicKey)
	})
	return b.Bytes()
}

// PublicKeyFromDER extracts the raw public key from its DER encoding. Only the
// exact 133-byte encoding with the BLS12-381 G2 algorithm identifiers is accepted
func PublicKeyFromDER(der []byte) ([]byte, error) {
	if len(der) != DerPublicKeySize {
		return nil, fmt.Errorf(
			"%w: DER-encoded key must be %d bytes long, got %d",
			ErrInvalidPublicKey,
			DerPublicKeySize,
			len(der),
		)
	}
	input := cryptobyte.String(der)
	var spki, algo cryptobyte.String
	var oidAlgo, oidCurve asn1.ObjectIdentifier
	var key asn1.BitString
	if !input.ReadASN1(&spki, cbasn1.SEQUENCE) || !input.Empty() ||
		!spki.ReadASN1(&algo, cbasn1.SEQUENCE) ||
		!algo.ReadASN1ObjectIdentifier(&oidAlgo) ||
		!algo.ReadASN1ObjectIdentifier(&oidCurve) || !algo.Empty() ||
		!spki.ReadASN1BitString(&key) || !spki.Empty() {
		return nil, fmt.Errorf("%w: malformed DER encoding", ErrInvalidPublicKey)
	}
	if !oidAlgo.Equal(oidBls12381) || !oidCurve.Equal(oidBls12381G2) {
		return nil, fmt.Errorf(
			"%w: unexpected algorithm %s/%s",
			ErrInvalidPublicKey,
			oidAlgo,
			oidCurve,
		)
	}
	if key.BitLength != PublicKeySize*8 {
		return nil, fmt.Errorf("%w: unexpected key length", ErrInvalidPublicKey)
	}
	ret := make([]byte, PublicKeySize)
	copy(ret, key.Bytes)
	return ret, nil
}
