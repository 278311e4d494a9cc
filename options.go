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

package icverify

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/icverify/certificate"
	"github.com/blinklabs-io/icverify/query"
)

// AgentOptionFunc is a type that represents functions that modify the Agent config
type AgentOptionFunc func(*Agent)

// WithStateReader specifies the transport used for read_state requests
func WithStateReader(reader StateReader) AgentOptionFunc {
	return func(a *Agent) {
		a.reader = reader
	}
}

// WithRootKey specifies the DER-encoded root public key
func WithRootKey(rootKey []byte) AgentOptionFunc {
	return func(a *Agent) {
		a.rootKey = rootKey
	}
}

// WithNetwork specifies the network, which provides the root key
func WithNetwork(network Network) AgentOptionFunc {
	return func(a *Agent) {
		a.rootKey = network.RootKey()
	}
}

// WithLogger specifies the logger. The default is slog.Default()
func WithLogger(logger *slog.Logger) AgentOptionFunc {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithClock specifies the local time source used for freshness checks and cache expiry
func WithClock(clock func() time.Time) AgentOptionFunc {
	return func(a *Agent) {
		a.clock = clock
	}
}

// WithMaxAge specifies how old a certificate may be. The default is 5 minutes
func WithMaxAge(maxAge time.Duration) AgentOptionFunc {
	return func(a *Agent) {
		a.maxAge = maxAge
	}
}

// WithBlsVerifier overrides certificate signature verification
func WithBlsVerifier(verifier certificate.BlsVerifier) AgentOptionFunc {
	return func(a *Agent) {
		a.blsVerifier = verifier
	}
}

// WithNodeSignatureVerifier overrides query node signature verification
func WithNodeSignatureVerifier(verifier query.NodeSignatureVerifier) AgentOptionFunc {
	return func(a *Agent) {
		a.nodeVerifier = verifier
	}
}

// WithNodeKeyTTL specifies how long subnet node keys are cached. The default is 5 minutes
func WithNodeKeyTTL(ttl time.Duration) AgentOptionFunc {
	return func(a *Agent) {
		a.nodeKeyTTL = ttl
	}
}

// WithVerifyQuerySignatures specifies whether query responses must carry valid node signatures. This is enabled by default
func WithVerifyQuerySignatures(verify bool) AgentOptionFunc {
	return func(a *Agent) {
		a.verifyQuerySignatures = verify
	}
}

// WithMaxTimeOffset limits the offset SyncTime accepts between replica and local time. Zero means no limit
func WithMaxTimeOffset(maxOffset time.Duration) AgentOptionFunc {
	return func(a *Agent) {
		a.maxTimeOffset = maxOffset
	}
}
