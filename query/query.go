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

// Package query verifies the node signatures attached to query responses
package query

import (
	"crypto/ed25519"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/blinklabs-io/icverify/cbor"
	"github.com/blinklabs-io/icverify/certificate"
	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/principal"
	"github.com/blinklabs-io/icverify/requestid"
	"github.com/blinklabs-io/icverify/subnet"
)

const (
	StatusReplied  = "replied"
	StatusRejected = "rejected"

	domainResponse = "ic-response"
)

// Response is a query response as returned by a replica
type Response struct {
	Status        string          `cbor:"status"`
	Reply         *Reply          `cbor:"reply,omitempty"`
	RejectCode    uint64          `cbor:"reject_code,omitempty"`
	RejectMessage string          `cbor:"reject_message,omitempty"`
	ErrorCode     string          `cbor:"error_code,omitempty"`
	Signatures    []NodeSignature `cbor:"signatures,omitempty"`
}

type Reply struct {
	Arg []byte `cbor:"arg"`
}

// NodeSignature is a signature by a single replica node over a response
type NodeSignature struct {
	Timestamp uint64 `cbor:"timestamp"`
	Signature []byte `cbor:"signature"`
	Identity  []byte `cbor:"identity"`
}

// DecodeResponse parses a CBOR-encoded query response
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := cbor.DecodeFull(data, &resp); err != nil {
		return nil, fmt.Errorf("could not decode query response: %w", err)
	}
	return &resp, nil
}

// Encode produces the self-described CBOR encoding of the response
func (r *Response) Encode() ([]byte, error) {
	return cbor.EncodeSelfDescribed(r)
}

// Hash computes the hash covered by a node signature made at timestamp
func (r *Response) Hash(requestId requestid.RequestId, timestamp uint64) (requestid.RequestId, error) {
	var fields map[string]any
	switch r.Status {
	case StatusReplied:
		if r.Reply == nil {
			return requestid.RequestId{}, errors.New("replied query response has no reply")
		}
		fields = map[string]any{
			"status":     r.Status,
			"reply":      map[string]any{"arg": r.Reply.Arg},
			"timestamp":  timestamp,
			"request_id": requestId,
		}
	case StatusRejected:
		fields = map[string]any{
			"status":         r.Status,
			"reject_code":    r.RejectCode,
			"reject_message": r.RejectMessage,
			"timestamp":      timestamp,
			"request_id":     requestId,
		}
		if r.ErrorCode != "" {
			fields["error_code"] = r.ErrorCode
		}
	default:
		return requestid.RequestId{}, fmt.Errorf("unknown status: %q", r.Status)
	}
	return requestid.HashOfMap(fields)
}

// SignedPayload returns the bytes a node signs for this response at timestamp
func (r *Response) SignedPayload(requestId requestid.RequestId, timestamp uint64) ([]byte, error) {
	hash, err := r.Hash(requestId, timestamp)
	if err != nil {
		return nil, err
	}
	return append(hashtree.DomainSep(domainResponse), hash[:]...), nil
}

// NodeSignatureVerifier verifies a node signature against a DER-encoded node key
type NodeSignatureVerifier interface {
	VerifyNodeSignature(derPublicKey []byte, signature []byte, payload []byte) error
}

// Ed25519Verifier verifies node signatures with Ed25519
type Ed25519Verifier struct{}

func (Ed25519Verifier) VerifyNodeSignature(derPublicKey []byte, signature []byte, payload []byte) error {
	pub, err := x509.ParsePKIXPublicKey(derPublicKey)
	if err != nil {
		return fmt.Errorf("could not parse node key: %w", err)
	}
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("node key is %T, not Ed25519", pub)
	}
	if !ed25519.Verify(edPub, payload, signature) {
		return errors.New("invalid Ed25519 signature")
	}
	return nil
}

func signatureError(err error, format string, args ...any) error {
	return certificate.VerificationError{
		Kind:    certificate.ErrSignature,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// Verify checks the node signatures of a response against the subnet's node
// keys. It succeeds on the first valid signature. A signature from a node
// without a known key is fatal
func Verify(
	resp *Response,
	requestId requestid.RequestId,
	keys *subnet.NodeKeys,
	verifier NodeSignatureVerifier,
) error {
	if verifier == nil {
		verifier = Ed25519Verifier{}
	}
	if resp == nil {
		return signatureError(nil, "no query response")
	}
	if keys == nil {
		return signatureError(nil, "no node keys available for signed query")
	}
	if len(resp.Signatures) == 0 {
		return signatureError(nil, "query response carries no node signatures")
	}
	var lastErr error
	var lastNodeId string
	for _, sig := range resp.Signatures {
		nodeId := principal.Principal(sig.Identity).String()
		payload, err := resp.SignedPayload(requestId, sig.Timestamp)
		if err != nil {
			return signatureError(err, "could not build signed payload")
		}
		key, ok := keys.Get(nodeId)
		if !ok {
			return signatureError(
				nil,
				"no matching node key found for replica %s in subnet %s",
				nodeId,
				keys.SubnetId,
			)
		}
		err = verifier.VerifyNodeSignature(key, sig.Signature, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		lastNodeId = nodeId
	}
	return signatureError(lastErr, "invalid signature from replica %s signed query", lastNodeId)
}
