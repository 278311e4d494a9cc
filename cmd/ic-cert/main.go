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

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var errArgs = errors.New("wrong number of arguments")

func newApp() *cli.App {
	return &cli.App{
		Name:  "ic-cert",
		Usage: "verify and inspect Internet Computer certificates",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "hex",
				Usage: "input is hex encoded instead of raw CBOR",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "verify",
				Usage:     "verifies a certificate against a root key",
				ArgsUsage: "[path]",
				Action:    handleVerify,
				Flags:     verifyFlags(),
			},
			{
				Name:      "dump",
				Usage:     "prints the structure of a certificate without verifying it",
				ArgsUsage: "[path]",
				Action:    handleDump,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "cbor",
						Usage: "print the raw CBOR structure instead of the hash tree",
					},
				},
			},
			{
				Name:      "lookup",
				Usage:     "verifies a certificate and prints the value at a path",
				ArgsUsage: "<path> <label>...",
				Action:    handleLookup,
				Flags: append(
					verifyFlags(),
					&cli.StringFlag{
						Name:  "decode",
						Usage: "value decoding: hex, utf-8, leb128, time or cbor",
						Value: "hex",
					},
				),
			},
			{
				Name:      "node-keys",
				Usage:     "verifies a subnet certificate and lists its node keys",
				ArgsUsage: "[path]",
				Action:    handleNodeKeys,
				Flags:     verifyFlags(),
			},
		},
		Before: setupLogging,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		if !errors.Is(err, errArgs) {
			fmt.Printf("error: %v\n", err.Error())
		}
		os.Exit(1)
	}
}
