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

package status

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/blinklabs-io/icverify/cbor"
	"github.com/blinklabs-io/icverify/certificate"
	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/principal"
	"github.com/blinklabs-io/icverify/subnet"
	"github.com/blinklabs-io/icverify/utils"
)

var errNotFound = errors.New("path not found in certificate")

// Result maps each requested path key to its decoded value. Paths that could not be read map to nil
type Result map[string]any

// Request reads each path with its own read_state call, in parallel, and
// verifies every returned certificate with cfg. A certificate that fails
// verification aborts the whole request. Any other failure is logged and
// leaves a nil entry for that path
func Request(
	ctx context.Context,
	reader StateReader,
	cfg certificate.Config,
	logger *slog.Logger,
	paths ...Path,
) (Result, error) {
	if reader == nil {
		return nil, errors.New("no state reader configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	canisterId := cfg.CanisterId
	unique := make([]Path, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p.Key] {
			continue
		}
		seen[p.Key] = true
		unique = append(unique, p)
	}
	var mu sync.Mutex
	result := make(Result, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range unique {
		g.Go(func() error {
			value, err := readPath(gctx, reader, cfg, p)
			if err != nil {
				if certificate.IsVerificationError(err) {
					return fmt.Errorf("canister status %s: %w", p.Key, err)
				}
				logger.Warn(
					"expected to find result for path, but instead found nothing",
					"path", p.Key,
					"canister_id", canisterId.String(),
					"error", err,
				)
				value = nil
			}
			mu.Lock()
			result[p.Key] = value
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func readPath(ctx context.Context, reader StateReader, cfg certificate.Config, p Path) (any, error) {
	encoded, err := EncodePath(p, cfg.CanisterId)
	if err != nil {
		return nil, err
	}
	certBytes, err := reader.ReadState(ctx, cfg.CanisterId, []hashtree.Path{encoded})
	if err != nil {
		return nil, err
	}
	cert, err := certificate.Create(certBytes, cfg)
	if err != nil {
		return nil, err
	}
	if p.kind == kindSubnet {
		return subnet.FetchNodeKeys(certBytes, cfg.CanisterId, cfg.RootKey)
	}
	res := cert.Lookup(encoded)
	if !res.Found() {
		return nil, fmt.Errorf("%w: %s", errNotFound, encoded)
	}
	return decodeValue(p, res.Value)
}

func decodeValue(p Path, data []byte) (any, error) {
	switch p.kind {
	case kindTime:
		return utils.DecodeTime(data)
	case kindControllers:
		return DecodeControllers(data)
	case kindModuleHash:
		return hex.EncodeToString(data), nil
	case kindCandid:
		return decodeUtf8(data)
	}
	switch p.decode {
	case DecodeRaw, "":
		return data, nil
	case DecodeLeb128:
		return utils.DecodeLeb128(data)
	case DecodeCbor:
		var ret any
		if err := cbor.DecodeFull(data, &ret); err != nil {
			return nil, err
		}
		return ret, nil
	case DecodeHex:
		return hex.EncodeToString(data), nil
	case DecodeUtf8:
		return decodeUtf8(data)
	default:
		return nil, fmt.Errorf("unknown decode strategy %q", p.decode)
	}
}

func decodeUtf8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("value is not valid UTF-8")
	}
	return string(data), nil
}

// DecodeControllers decodes the CBOR list of controller principals
func DecodeControllers(data []byte) ([]principal.Principal, error) {
	var ret []principal.Principal
	if err := cbor.DecodeFull(data, &ret); err != nil {
		return nil, fmt.Errorf("could not decode controllers: %w", err)
	}
	return ret, nil
}
