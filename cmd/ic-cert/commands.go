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
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/blinklabs-io/icverify"
	"github.com/blinklabs-io/icverify/cbor"
	"github.com/blinklabs-io/icverify/certificate"
	"github.com/blinklabs-io/icverify/hashtree"
	"github.com/blinklabs-io/icverify/principal"
	"github.com/blinklabs-io/icverify/subnet"
	"github.com/blinklabs-io/icverify/utils"
	"github.com/urfave/cli/v2"
)

func verifyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "network",
			Usage: "network whose root key is trusted",
			Value: icverify.NetworkMainnet.Name,
		},
		&cli.StringFlag{
			Name:  "root-key",
			Usage: "hex DER root key, overrides --network",
		},
		&cli.StringFlag{
			Name:     "canister-id",
			Aliases:  []string{"c"},
			Usage:    "canister the certificate must be valid for",
			Required: true,
		},
		&cli.DurationFlag{
			Name:  "max-age",
			Usage: "maximum certificate age, negative to disable",
			Value: certificate.DefaultMaxAge,
		},
		&cli.TimestampFlag{
			Name:   "now",
			Usage:  "verify as of this time instead of the local clock",
			Layout: time.RFC3339,
		},
	}
}

func setupLogging(cc *cli.Context) error {
	level := slog.LevelInfo
	if cc.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(
		slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	)
	return nil
}

// readInput reads the certificate from the first argument, or stdin when none is given
func readInput(cc *cli.Context) ([]byte, error) {
	var r io.Reader = os.Stdin
	if cc.Args().Len() > 0 {
		f, err := os.Open(cc.Args().Get(0))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if cc.Bool("hex") {
		return hex.DecodeString(strings.TrimSpace(string(buf)))
	}
	return buf, nil
}

func verifyConfig(cc *cli.Context) (certificate.Config, error) {
	var cfg certificate.Config
	if keyHex := cc.String("root-key"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return cfg, fmt.Errorf("parsing root key: %w", err)
		}
		cfg.RootKey = key
	} else {
		network := icverify.NetworkByName(cc.String("network"))
		if network == icverify.NetworkInvalid {
			return cfg, fmt.Errorf("invalid network specified: %s", cc.String("network"))
		}
		cfg.RootKey = network.RootKey()
	}
	canisterId, err := principal.FromText(cc.String("canister-id"))
	if err != nil {
		return cfg, fmt.Errorf("parsing canister id: %w", err)
	}
	cfg.CanisterId = canisterId
	cfg.MaxAge = cc.Duration("max-age")
	if cfg.MaxAge < 0 {
		cfg.MaxAge = certificate.NoMaxAge
	}
	if now := cc.Timestamp("now"); now != nil {
		fixed := *now
		cfg.Clock = func() time.Time { return fixed }
	}
	return cfg, nil
}

func verifyInput(cc *cli.Context) (*certificate.Certificate, []byte, certificate.Config, error) {
	cfg, err := verifyConfig(cc)
	if err != nil {
		return nil, nil, cfg, err
	}
	data, err := readInput(cc)
	if err != nil {
		return nil, nil, cfg, err
	}
	cert, err := certificate.Create(data, cfg)
	if err != nil {
		return nil, nil, cfg, err
	}
	return cert, data, cfg, nil
}

func handleVerify(cc *cli.Context) error {
	cert, _, _, err := verifyInput(cc)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 1, 1, 1, ' ', 0)
	fmt.Fprintf(w, "status\tvalid\n")
	fmt.Fprintf(w, "time\t%s\n", cert.Time().UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(w, "root_hash\t%x\n", cert.RootHash())
	if d := cert.Delegation(); d != nil {
		fmt.Fprintf(w, "delegation_subnet\t%s\n", principal.Principal(d.SubnetId))
	}
	return w.Flush()
}

func handleDump(cc *cli.Context) error {
	data, err := readInput(cc)
	if err != nil {
		return err
	}
	if cc.Bool("cbor") {
		var tmp any
		if err := cbor.DecodeFull(data, &tmp); err != nil {
			return err
		}
		fmt.Print(cbor.DumpCborStructure(tmp, ""))
		return nil
	}
	env, err := certificate.Decode(data)
	if err != nil {
		return err
	}
	for depth := 0; env != nil; depth++ {
		rootHash, err := hashtree.Reconstruct(env.Tree.Root)
		if err != nil {
			return err
		}
		indent := strings.Repeat("  ", depth)
		fmt.Printf("%sroot_hash: %x\n", indent, rootHash)
		fmt.Printf("%ssignature: %x\n", indent, env.Signature)
		for _, line := range strings.Split(strings.TrimRight(hashtree.Format(env.Tree.Root), "\n"), "\n") {
			fmt.Printf("%s%s\n", indent, line)
		}
		if env.Delegation == nil {
			break
		}
		fmt.Printf("%sdelegation from subnet %s:\n", indent, principal.Principal(env.Delegation.SubnetId))
		env, err = certificate.Decode(env.Delegation.Certificate)
		if err != nil {
			return err
		}
	}
	return nil
}

// parseLabel accepts "hex:<bytes>", "principal:<text>" or a plain UTF-8 label
func parseLabel(arg string) ([]byte, error) {
	switch {
	case strings.HasPrefix(arg, "hex:"):
		return hex.DecodeString(strings.TrimPrefix(arg, "hex:"))
	case strings.HasPrefix(arg, "principal:"):
		p, err := principal.FromText(strings.TrimPrefix(arg, "principal:"))
		if err != nil {
			return nil, err
		}
		return p.Bytes(), nil
	default:
		return []byte(arg), nil
	}
}

func handleLookup(cc *cli.Context) error {
	if cc.Args().Len() < 2 {
		_ = cli.ShowSubcommandHelp(cc)
		return errArgs
	}
	path := make(hashtree.Path, 0, cc.Args().Len()-1)
	for _, arg := range cc.Args().Tail() {
		label, err := parseLabel(arg)
		if err != nil {
			return fmt.Errorf("parsing label %q: %w", arg, err)
		}
		path = append(path, label)
	}
	cert, _, _, err := verifyInput(cc)
	if err != nil {
		return err
	}
	res := cert.Lookup(path)
	switch res.Status {
	case hashtree.LookupAbsent:
		return fmt.Errorf("path %s is absent", path)
	case hashtree.LookupSubtree:
		fmt.Print(hashtree.Format(res.Tree))
		return nil
	}
	switch cc.String("decode") {
	case "hex":
		fmt.Printf("%x\n", res.Value)
	case "utf-8":
		fmt.Println(string(res.Value))
	case "leb128":
		v, err := utils.DecodeLeb128(res.Value)
		if err != nil {
			return err
		}
		fmt.Println(v)
	case "time":
		t, err := utils.DecodeTime(res.Value)
		if err != nil {
			return err
		}
		fmt.Println(t.UTC().Format(time.RFC3339Nano))
	case "cbor":
		var tmp any
		if err := cbor.DecodeFull(res.Value, &tmp); err != nil {
			return err
		}
		fmt.Print(cbor.DumpCborStructure(tmp, ""))
	default:
		return errors.New("unknown decoding: " + cc.String("decode"))
	}
	return nil
}

func handleNodeKeys(cc *cli.Context) error {
	_, data, cfg, err := verifyInput(cc)
	if err != nil {
		return err
	}
	keys, err := subnet.FetchNodeKeys(data, cfg.CanisterId, cfg.RootKey)
	if err != nil {
		return err
	}
	fmt.Printf("subnet %s\n", keys.SubnetId)
	w := tabwriter.NewWriter(os.Stdout, 1, 1, 1, ' ', 0)
	for _, nodeId := range slices.Sorted(maps.Keys(keys.NodeKeys)) {
		fmt.Fprintf(w, "%s\t%x\n", nodeId, keys.NodeKeys[nodeId])
	}
	return w.Flush()
}
