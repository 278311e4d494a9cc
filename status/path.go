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

// Package status reads verified facts about a canister from certified state:
// time, controllers, module hash, subnet node keys, candid interface and
// arbitrary metadata or custom paths
package status

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/principal"
)

// StateReader issues a read_state request and returns the raw certificate bytes
type StateReader interface {
	ReadState(ctx context.Context, canisterId principal.Principal, paths []hashtree.Path) ([]byte, error)
}

// StateReaderFunc adapts a function to the StateReader interface
type StateReaderFunc func(ctx context.Context, canisterId principal.Principal, paths []hashtree.Path) ([]byte, error)

func (f StateReaderFunc) ReadState(
	ctx context.Context,
	canisterId principal.Principal,
	paths []hashtree.Path,
) ([]byte, error) {
	return f(ctx, canisterId, paths)
}

// DecodeStrategy selects how the value of a custom path is decoded
type DecodeStrategy string

const (
	DecodeRaw    DecodeStrategy = "raw"
	DecodeLeb128 DecodeStrategy = "leb128"
	DecodeCbor   DecodeStrategy = "cbor"
	DecodeHex    DecodeStrategy = "hex"
	DecodeUtf8   DecodeStrategy = "utf-8"
)

type pathKind uint8

const (
	kindCustom pathKind = iota
	kindTime
	kindControllers
	kindModuleHash
	kindSubnet
	kindCandid
	kindMetadata
)

// Path is a fact to read. Results are keyed by Key
type Path struct {
	Key      string
	kind     pathKind
	labels   hashtree.Path
	metadata []byte
	decode   DecodeStrategy
}

// Well-known paths
var (
	PathTime        = Path{Key: "time", kind: kindTime}
	PathControllers = Path{Key: "controllers", kind: kindControllers}
	PathModuleHash  = Path{Key: "module_hash", kind: kindModuleHash}
	PathSubnet      = Path{Key: "subnet", kind: kindSubnet}
	PathCandid      = Path{Key: "candid", kind: kindCandid}
)

// MetadataPath reads the named canister metadata section
func MetadataPath(key string, name string, decode DecodeStrategy) Path {
	return Path{
		Key:      key,
		kind:     kindMetadata,
		metadata: []byte(name),
		decode:   decode,
	}
}

// CustomPath reads an arbitrary path in the state tree
func CustomPath(key string, labels hashtree.Path, decode DecodeStrategy) Path {
	return Path{
		Key:    key,
		kind:   kindCustom,
		labels: labels,
		decode: decode,
	}
}

// EncodePath returns the state tree path read for p
func EncodePath(p Path, canisterId principal.Principal) (hashtree.Path, error) {
	canister := func(labels ...string) hashtree.Path {
		ret := hashtree.Path{[]byte("canister"), canisterId}
		return ret.Append(hashtree.StringPath(labels...)...)
	}
	switch p.kind {
	case kindTime:
		return hashtree.StringPath("time"), nil
	case kindControllers:
		return canister("controllers"), nil
	case kindModuleHash:
		return canister("module_hash"), nil
	case kindSubnet:
		return hashtree.StringPath("subnet"), nil
	case kindCandid:
		return canister("metadata", "candid:service"), nil
	case kindMetadata:
		return canister("metadata").Append(p.metadata), nil
	case kindCustom:
		if len(p.labels) == 0 {
			return nil, fmt.Errorf("custom path %q has no labels", p.Key)
		}
		return p.labels, nil
	default:
		return nil, fmt.Errorf("unknown path kind for %q", p.Key)
	}
}
