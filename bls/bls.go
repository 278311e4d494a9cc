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

// Package bls implements the BLS12-381 signature scheme used to sign
// certified state, in the "minimal signature size" variant: signatures are
// compressed G1 points (48 bytes) and public keys are compressed G2 points
// (96 bytes).
//
// Messages are hashed to G1 with the RFC 9380 hash_to_curve suite
// BLS12381G1_XMD:SHA-256_SSWU_RO_ using the NUL ciphersuite tag. A signature
// s over message m is valid for public key pk when
//
//	e(s, g2) == e(H(m), pk)
//
// which is evaluated as a single pairing product check.
//
// Key generation and signing are provided for building test fixtures. They
// are not hardened against side channels.
//
// # References
//
//   - draft-irtf-cfrg-bls-signature-05: https://datatracker.ietf.org/doc/html/draft-irtf-cfrg-bls-signature-05
//   - RFC 9380 (hashing to elliptic curves): https://datatracker.ietf.org/doc/html/rfc9380
package bls

import (
	"errors"
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

const (
	// PublicKeySize is the size of a compressed public key in bytes
	PublicKeySize = 96

	// SignatureSize is the size of a compressed signature in bytes
	SignatureSize = 48

	// SecretKeySize is the size of a secret key scalar in bytes
	SecretKeySize = fr.Bytes

	// DomainSeparationTag is the hash_to_curve ciphersuite tag
	DomainSeparationTag = "BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_NUL_"
)

var (
	ErrInvalidPublicKey = errors.New("invalid BLS public key")
	ErrInvalidSignature = errors.New("invalid BLS signature")
	ErrVerifyFailed     = errors.New("BLS signature verification failed")
)

// Verify checks a signature over msg against a raw 96-byte public key
func Verify(publicKey []byte, signature []byte, msg []byte) error {
	if len(publicKey) != PublicKeySize {
		return fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidPublicKey,
			PublicKeySize,
			len(publicKey),
		)
	}
	if len(signature) != SignatureSize {
		return fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidSignature,
			SignatureSize,
			len(signature),
		)
	}
	var pk bls12381.G2Affine
	if _, err := pk.SetBytes(publicKey); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	if pk.IsInfinity() {
		return fmt.Errorf("%w: point at infinity", ErrInvalidPublicKey)
	}
	var sig bls12381.G1Affine
	if _, err := sig.SetBytes(signature); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	hm, err := bls12381.HashToG1(msg, []byte(DomainSeparationTag))
	if err != nil {
		return err
	}
	var negHm bls12381.G1Affine
	negHm.Neg(&hm)
	_, _, _, g2 := bls12381.Generators()
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{sig, negHm},
		[]bls12381.G2Affine{g2, pk},
	)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVerifyFailed
	}
	return nil
}

// KeyGen derives a keypair from a seed. The seed is reduced modulo the group order
func KeyGen(seed []byte) (secretKey []byte, publicKey []byte, err error) {
	if len(seed) == 0 {
		return nil, nil, errors.New("empty BLS seed")
	}
	var s fr.Element
	s.SetBytes(seed)
	if s.IsZero() {
		return nil, nil, errors.New("BLS seed reduces to zero")
	}
	var sBig big.Int
	s.BigInt(&sBig)
	_, _, _, g2 := bls12381.Generators()
	var pk bls12381.G2Affine
	pk.ScalarMultiplication(&g2, &sBig)
	skBytes := s.Bytes()
	pkBytes := pk.Bytes()
	return skBytes[:], pkBytes[:], nil
}

// Sign produces a signature over msg with a secret key from KeyGen
func Sign(secretKey []byte, msg []byte) ([]byte, error) {
	if len(secretKey) != SecretKeySize {
		return nil, fmt.Errorf(
			"invalid BLS secret key: expected %d bytes, got %d",
			SecretKeySize,
			len(secretKey),
		)
	}
	var s fr.Element
	if err := s.SetBytesCanonical(secretKey); err != nil {
		return nil, fmt.Errorf("invalid BLS secret key: %w", err)
	}
	var sBig big.Int
	s.BigInt(&sBig)
	hm, err := bls12381.HashToG1(msg, []byte(DomainSeparationTag))
	if err != nil {
		return nil, err
	}
	var sig bls12381.G1Affine
	sig.ScalarMultiplication(&hm, &sBig)
	sigBytes := sig.Bytes()
	return sigBytes[:], nil
}
