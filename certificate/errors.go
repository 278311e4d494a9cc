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
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for each class of verification failure, for use with errors.Is
var (
	ErrDecode    = errors.New("malformed certificate")
	ErrFreshness = errors.New("certificate time outside accepted window")
	ErrScope     = errors.New("canister not in delegated subnet ranges")
	ErrSignature = errors.New("signature verification failed")
)

// VerificationError is returned for every failed certificate verification.
// Kind is one of ErrDecode, ErrFreshness, ErrScope or ErrSignature
type VerificationError struct {
	Kind    error
	Message string
	Err     error
}

func (e VerificationError) Error() string {
	msg := "certificate verification failed: " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e VerificationError) Unwrap() error { return e.Err }

func (e VerificationError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func newError(kind error, err error, format string, args ...any) error {
	return VerificationError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// FreshnessError reports a certificate time outside the accepted window.
// Boundary is the limit that was crossed and Observed is the certificate time
type FreshnessError struct {
	Boundary time.Time
	Observed time.Time
	Future   bool
}

func (e FreshnessError) Error() string {
	if e.Future {
		return fmt.Sprintf(
			"certificate time %s is after the latest accepted time %s",
			e.Observed.UTC().Format(time.RFC3339Nano),
			e.Boundary.UTC().Format(time.RFC3339Nano),
		)
	}
	return fmt.Sprintf(
		"certificate time %s is before the earliest accepted time %s",
		e.Observed.UTC().Format(time.RFC3339Nano),
		e.Boundary.UTC().Format(time.RFC3339Nano),
	)
}

func (FreshnessError) Is(target error) bool {
	return target == ErrFreshness
}

// IsVerificationError reports whether err is a certificate verification failure,
// as opposed to a transport or other generic error
func IsVerificationError(err error) bool {
	var verr VerificationError
	return errors.As(err, &verr)
}
