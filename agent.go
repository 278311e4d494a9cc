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

// Package icverify verifies state returned by the Internet Computer. An Agent
// holds the root of trust and a transport, verifies certificates and their
// delegations, and checks the node signatures on query responses against
// subnet node keys that it caches
package icverify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blinklabs-io/icverify/certificate"
	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/principal"
	"github.com/blinklabs-io/icverify/query"
	"github.com/blinklabs-io/icverify/requestid"
	"github.com/blinklabs-io/icverify/status"
	"github.com/blinklabs-io/icverify/subnet"
	"github.com/blinklabs-io/icverify/utils"
)

// StateReader issues read_state requests on behalf of the agent
type StateReader = status.StateReader

// StateReaderFunc adapts a function to the StateReader interface
type StateReaderFunc = status.StateReaderFunc

// QueryFunc performs a query call and returns the replica's response
type QueryFunc func(ctx context.Context) (*query.Response, error)

// Canister used for time sync when none is given (the ICP ledger)
const defaultSyncCanisterText = "ryjl3-tyaaa-aaaaa-aaaba-cai"

type Agent struct {
	reader                StateReader
	rootKey               []byte
	logger                *slog.Logger
	clock                 func() time.Time
	maxAge                time.Duration
	blsVerifier           certificate.BlsVerifier
	nodeVerifier          query.NodeSignatureVerifier
	nodeKeyTTL            time.Duration
	verifyQuerySignatures bool
	maxTimeOffset         time.Duration
	nodeKeys              *subnet.Cache
	// Replica time minus local time, in nanoseconds
	timeOffset atomic.Int64
}

// NewAgent returns a new Agent object with the specified options. A root key is required
func NewAgent(opts ...AgentOptionFunc) (*Agent, error) {
	a := &Agent{
		clock:                 time.Now,
		nodeKeyTTL:            subnet.DefaultCacheTTL,
		verifyQuerySignatures: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if len(a.rootKey) == 0 {
		return nil, errors.New("no root key configured")
	}
	if a.nodeVerifier == nil {
		a.nodeVerifier = query.Ed25519Verifier{}
	}
	a.nodeKeys = subnet.NewCache(
		subnet.WithTTL(a.nodeKeyTTL),
		subnet.WithClock(a.clock),
		subnet.WithLogger(a.logger),
	)
	return a, nil
}

// RootKey returns the DER-encoded root key
func (a *Agent) RootKey() []byte {
	return a.rootKey
}

// NodeKeyCache returns the cache of subnet node keys shared by all query verifications
func (a *Agent) NodeKeyCache() *subnet.Cache {
	return a.nodeKeys
}

// Now returns the local time adjusted by the offset learned from SyncTime
func (a *Agent) Now() time.Time {
	return a.clock().Add(time.Duration(a.timeOffset.Load()))
}

// TimeOffset returns the offset learned from SyncTime
func (a *Agent) TimeOffset() time.Duration {
	return time.Duration(a.timeOffset.Load())
}

func (a *Agent) certificateConfig(canisterId principal.Principal) certificate.Config {
	return certificate.Config{
		RootKey:     a.rootKey,
		CanisterId:  canisterId,
		MaxAge:      a.maxAge,
		Clock:       a.Now,
		BlsVerifier: a.blsVerifier,
	}
}

func (a *Agent) readState(
	ctx context.Context,
	canisterId principal.Principal,
	paths []hashtree.Path,
) ([]byte, error) {
	if a.reader == nil {
		return nil, errors.New("no state reader configured")
	}
	certBytes, err := a.reader.ReadState(ctx, canisterId, paths)
	if err != nil {
		return nil, fmt.Errorf("read_state for canister %s: %w", canisterId, err)
	}
	// Bytes delivered after the caller gave up are discarded
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return certBytes, nil
}

// ReadCertificate reads the given paths and returns the verified certificate
func (a *Agent) ReadCertificate(
	ctx context.Context,
	canisterId principal.Principal,
	paths []hashtree.Path,
) (*certificate.Certificate, error) {
	certBytes, err := a.readState(ctx, canisterId, paths)
	if err != nil {
		return nil, err
	}
	return certificate.Create(certBytes, a.certificateConfig(canisterId))
}

// FetchSubnetKeys reads and verifies the node keys of the subnet hosting the
// canister, and replaces the cache entry for it
func (a *Agent) FetchSubnetKeys(
	ctx context.Context,
	canisterId principal.Principal,
) (*subnet.NodeKeys, error) {
	keys, err := a.fetchSubnetKeys(ctx, canisterId)
	if err != nil {
		return nil, err
	}
	a.nodeKeys.Set(canisterId.String(), keys)
	return keys, nil
}

func (a *Agent) fetchSubnetKeys(
	ctx context.Context,
	canisterId principal.Principal,
) (*subnet.NodeKeys, error) {
	certBytes, err := a.readState(ctx, canisterId, []hashtree.Path{hashtree.StringPath("subnet")})
	if err != nil {
		return nil, err
	}
	if _, err := certificate.Create(certBytes, a.certificateConfig(canisterId)); err != nil {
		return nil, err
	}
	return subnet.FetchNodeKeys(certBytes, canisterId, a.rootKey)
}

// subnetKeys returns cached node keys for the canister, fetching them on a miss
func (a *Agent) subnetKeys(
	ctx context.Context,
	canisterId principal.Principal,
) (*subnet.NodeKeys, error) {
	return a.nodeKeys.GetOrFetch(
		ctx,
		canisterId.String(),
		func(ctx context.Context) (*subnet.NodeKeys, error) {
			return a.fetchSubnetKeys(ctx, canisterId)
		},
	)
}

// VerifyQueryResponse checks the node signatures on a query response. When
// verification fails, the cached node keys for the canister are dropped and
// verification is retried once with freshly fetched keys
func (a *Agent) VerifyQueryResponse(
	ctx context.Context,
	canisterId principal.Principal,
	requestId requestid.RequestId,
	resp *query.Response,
) error {
	if !a.verifyQuerySignatures {
		return nil
	}
	keys, err := a.subnetKeys(ctx, canisterId)
	if err != nil {
		return err
	}
	return a.verifyWithRetry(ctx, canisterId, requestId, resp, keys)
}

func (a *Agent) verifyWithRetry(
	ctx context.Context,
	canisterId principal.Principal,
	requestId requestid.RequestId,
	resp *query.Response,
	keys *subnet.NodeKeys,
) error {
	err := query.Verify(resp, requestId, keys, a.nodeVerifier)
	if err == nil {
		return nil
	}
	cacheKey := canisterId.String()
	a.nodeKeys.Delete(cacheKey)
	a.logger.Warn(
		"query signature verification failed, refetching subnet node keys",
		"canister_id", cacheKey,
		"error", err,
	)
	keys, fetchErr := a.FetchSubnetKeys(ctx, canisterId)
	if fetchErr != nil {
		return errors.Join(err, fetchErr)
	}
	if err := query.Verify(resp, requestId, keys, a.nodeVerifier); err != nil {
		a.nodeKeys.Delete(cacheKey)
		return err
	}
	return nil
}

// VerifiedQuery runs a query and fetches the subnet node keys in parallel,
// then verifies the response signatures
func (a *Agent) VerifiedQuery(
	ctx context.Context,
	canisterId principal.Principal,
	requestId requestid.RequestId,
	queryFn QueryFunc,
) (*query.Response, error) {
	if !a.verifyQuerySignatures {
		return queryFn(ctx)
	}
	var resp *query.Response
	var keys *subnet.NodeKeys
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resp, err = queryFn(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		keys, err = a.subnetKeys(gctx, canisterId)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := a.verifyWithRetry(ctx, canisterId, requestId, resp, keys); err != nil {
		return nil, err
	}
	return resp, nil
}

// CanisterStatus reads the given facts about a canister. See status.Request
func (a *Agent) CanisterStatus(
	ctx context.Context,
	canisterId principal.Principal,
	paths ...status.Path,
) (status.Result, error) {
	if a.reader == nil {
		return nil, errors.New("no state reader configured")
	}
	return status.Request(
		ctx,
		a.reader,
		a.certificateConfig(canisterId),
		a.logger,
		paths...,
	)
}

// SyncTime reads the certified time through the given canister (the ICP ledger
// when empty) and stores the difference from the local clock. The certificate
// signature is verified, but its time is not checked against the local clock,
// since that clock is what is being corrected
func (a *Agent) SyncTime(ctx context.Context, canisterId principal.Principal) error {
	if len(canisterId) == 0 {
		canisterId = principal.MustFromText(defaultSyncCanisterText)
	}
	timePath := hashtree.StringPath("time")
	certBytes, err := a.readState(ctx, canisterId, []hashtree.Path{timePath})
	if err != nil {
		return err
	}
	env, err := certificate.Decode(certBytes)
	if err != nil {
		return err
	}
	timeLookup := hashtree.LookupPath(timePath, env.Tree.Root)
	if !timeLookup.Found() {
		return certificate.VerificationError{
			Kind:    certificate.ErrDecode,
			Message: "certificate does not contain a time",
		}
	}
	replicaTime, err := utils.DecodeTime(timeLookup.Value)
	if err != nil {
		return err
	}
	// Freshness is checked against the certified time itself, so a replayed
	// old time certificate still verifies. maxTimeOffset bounds how far such
	// a certificate can move the clock
	cfg := a.certificateConfig(canisterId)
	cfg.Clock = func() time.Time { return replicaTime }
	if _, err := certificate.Create(certBytes, cfg); err != nil {
		return err
	}
	offset := replicaTime.Sub(a.clock())
	if a.maxTimeOffset > 0 && (offset > a.maxTimeOffset || offset < -a.maxTimeOffset) {
		return fmt.Errorf(
			"replica time %s is %s away from the local clock, more than the allowed %s",
			replicaTime.UTC().Format(time.RFC3339Nano),
			offset,
			a.maxTimeOffset,
		)
	}
	a.timeOffset.Store(int64(offset))
	a.logger.Info(
		"synced time with replica",
		"replica_time", replicaTime.UTC().Format(time.RFC3339Nano),
		"offset", offset.String(),
	)
	return nil
}
