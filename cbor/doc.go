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

// Package cbor provides CBOR encoding/decoding utilities for replica responses.
//
// This package wraps github.com/fxamacker/cbor/v2. Decoder and encoder modes
// are built once and shared.
//
// Certificates, read_state responses and several certified leaves (canister
// ranges, controllers) are self-described CBOR: they start with tag 55799
// (bytes d9 d9 f7). Decode skips that tag transparently, so callers can hand
// raw response bodies straight to it.
//
// When decoding into an `any`, byte strings become []byte, text strings
// become string, unsigned integers become uint64, arrays become []any and
// maps become map[any]any. The status package relies on this mapping
// for CBOR-encoded custom paths.
package cbor
