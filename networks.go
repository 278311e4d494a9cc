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
	"encoding/hex"
)

// Network definitions
var (
	NetworkMainnet = Network{
		Name:       "mainnet",
		RootKeyHex: "308182301d060d2b0601040182dc7c0503010201060c2b0601040182dc7c05030201036100814c0e6ec71fab583b08bd81373c255c3c371b2e84863c98a4f1e08b74235d14fb5d9c0cd546d9685f913a0c0b2cc5341583bf4b4392e467db96d65b9bb4cb717112f8472e0d5a4d14505ffd7484b01291091c5f87b98883463f98091a0baaae",
		Host:       "https://icp-api.io",
	}

	NetworkInvalid = Network{
		Name: "invalid",
	} // NetworkInvalid is used as a return value for lookup functions when a network isn't found
)

// List of valid networks for use in lookup functions
var networks = []Network{
	NetworkMainnet,
}

// NetworkByName returns a predefined network by name
func NetworkByName(name string) Network {
	for _, network := range networks {
		if network.Name == name {
			return network
		}
	}
	return NetworkInvalid
}

// Network represents an Internet Computer deployment and its root of trust
type Network struct {
	Name       string
	RootKeyHex string // DER-encoded BLS root public key
	Host       string
}

// RootKey returns the decoded DER root key, or nil for an invalid network
func (n Network) RootKey() []byte {
	if n.RootKeyHex == "" {
		return nil
	}
	ret, err := hex.DecodeString(n.RootKeyHex)
	if err != nil {
		return nil
	}
	return ret
}

func (n Network) String() string {
	return n.Name
}
