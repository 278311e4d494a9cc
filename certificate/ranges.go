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
	"slices"

	"github.com/blinklabs-io/icverify/cbor"
	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/principal"
)

// CanisterRange is an inclusive range of canister ids
type CanisterRange struct {
	cbor.StructAsArray
	Low  principal.Principal
	High principal.Principal
}

// Contains reports whether low <= id <= high
func (r CanisterRange) Contains(id principal.Principal) bool {
	return r.Low.Compare(id) <= 0 && r.High.Compare(id) >= 0
}

// CanisterRanges returns the ranges advertised for a subnet in the tree. A missing entry is a scope error
func CanisterRanges(subnetId []byte, tree hashtree.Node) ([]CanisterRange, error) {
	path := hashtree.StringPath("subnet").Append(subnetId, []byte("canister_ranges"))
	res := hashtree.LookupPath(path, tree)
	if !res.Found() {
		return nil, newError(
			ErrScope,
			nil,
			"could not find canister ranges for subnet %s",
			principal.Principal(subnetId),
		)
	}
	var ranges []CanisterRange
	if err := cbor.DecodeFull(res.Value, &ranges); err != nil {
		return nil, newError(ErrDecode, err, "could not decode canister ranges at %s", path)
	}
	return ranges, nil
}

// CheckCanisterRanges reports whether the canister falls within one of the subnet's ranges in the tree
func CheckCanisterRanges(
	canisterId principal.Principal,
	subnetId []byte,
	tree hashtree.Node,
) (bool, error) {
	ranges, err := CanisterRanges(subnetId, tree)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(
		ranges,
		func(r CanisterRange) bool { return r.Contains(canisterId) },
	), nil
}

// RequireCanisterInRanges is like CheckCanisterRanges, but returns a scope error when the canister is out of range
func RequireCanisterInRanges(
	canisterId principal.Principal,
	subnetId []byte,
	tree hashtree.Node,
) error {
	inRange, err := CheckCanisterRanges(canisterId, subnetId, tree)
	if err != nil {
		return err
	}
	if !inRange {
		return newError(
			ErrScope,
			nil,
			"canister %s not in range of delegations for subnet %s",
			canisterId,
			principal.Principal(subnetId),
		)
	}
	return nil
}
