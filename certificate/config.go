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

package certificate

import (
	"time"

	"github.com/blinklabs-io/icverify/bls"
	"github.com/blinklabs-io/icverify/principal"
)

const (
	// DefaultMaxAge is how far in the past a certificate time may be
	DefaultMaxAge = 5 * time.Minute

	// MaxClockSkew is how far in the future a certificate time may be. It does not depend on MaxAge
	MaxClockSkew = 5 * time.Minute

	// DefaultMaxDelegationDepth is the number of nested delegations accepted below the outer certificate
	DefaultMaxDelegationDepth = 2
)

// NoMaxAge disables the lower freshness bound. It is used for delegation certificates
const NoMaxAge time.Duration = -1

// BlsVerifier verifies a certificate signature against a raw 96-byte BLS public key
type BlsVerifier interface {
	VerifyBls(publicKey []byte, signature []byte, msg []byte) error
}

// BlsVerifierFunc adapts a function to the BlsVerifier interface
type BlsVerifierFunc func(publicKey []byte, signature []byte, msg []byte) error

func (f BlsVerifierFunc) VerifyBls(publicKey []byte, signature []byte, msg []byte) error {
	return f(publicKey, signature, msg)
}

// DefaultBlsVerifier uses the bls package
var DefaultBlsVerifier BlsVerifier = BlsVerifierFunc(bls.Verify)

// Config controls certificate verification
type Config struct {
	// RootKey is the DER-encoded root public key
	RootKey []byte
	// CanisterId is the canister the certificate is expected to speak for
	CanisterId principal.Principal
	// MaxAge is the oldest accepted certificate time relative to now. Zero means DefaultMaxAge
	MaxAge time.Duration
	// Clock returns the current time. Defaults to time.Now
	Clock func() time.Time
	// BlsVerifier overrides signature verification
	BlsVerifier BlsVerifier
	// MaxDelegationDepth limits nested delegations. Zero means DefaultMaxDelegationDepth
	MaxDelegationDepth int
}

func (c Config) maxAge() time.Duration {
	if c.MaxAge == 0 {
		return DefaultMaxAge
	}
	return c.MaxAge
}

func (c Config) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

func (c Config) blsVerifier() BlsVerifier {
	if c.BlsVerifier == nil {
		return DefaultBlsVerifier
	}
	return c.BlsVerifier
}

func (c Config) maxDelegationDepth() int {
	if c.MaxDelegationDepth <= 0 {
		return DefaultMaxDelegationDepth
	}
	return c.MaxDelegationDepth
}
