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

package cbor

import (
	"bytes"
	"fmt"
	"sort"
)

// Byte strings up to this length are dumped as hex instead of a length summary
const dumpMaxHexBytes = 32

// DumpCborStructure generates an indented string representing an arbitrary data structure for debugging purposes
func DumpCborStructure(data any, prefix string) string {
	var ret bytes.Buffer
	switch v := data.(type) {
	case int, uint, int16, uint16, int32, uint32, int64, uint64:
		return fmt.Sprintf("%s0x%x (%d),\n", prefix, v, v)
	case []uint8:
		if len(v) <= dumpMaxHexBytes {
			return fmt.Sprintf("%sh'%x',\n", prefix, v)
		}
		return fmt.Sprintf("%s<bytes> (length %d),\n", prefix, len(v))
	case Tag:
		ret.WriteString(fmt.Sprintf("%stag(%d)\n", prefix, v.Number))
		ret.WriteString(DumpCborStructure(v.Content, "  "+prefix))
	case []any:
		ret.WriteString(prefix + "[\n")
		inner := nestedPrefix(prefix)
		for _, val := range v {
			ret.WriteString(DumpCborStructure(val, inner))
		}
		ret.WriteString(prefix + "],\n")
	case map[any]any:
		ret.WriteString(prefix + "{\n")
		inner := nestedPrefix(prefix)
		// Entries are sorted so output is stable between runs
		entries := make([]string, 0, len(v))
		for key, val := range v {
			entries = append(
				entries,
				fmt.Sprintf("%s%#v =>\n", inner, key)+
					DumpCborStructure(val, "  "+inner),
			)
		}
		sort.Strings(entries)
		for _, entry := range entries {
			ret.WriteString(entry)
		}
		ret.WriteString(prefix + "}\n")
	default:
		return fmt.Sprintf("%s%#v,\n", prefix, v)
	}
	return ret.String()
}

// nestedPrefix indents one level. A non-space prefix only marks the top level
// and is not repeated on nested lines
func nestedPrefix(prefix string) string {
	if len(prefix) > 1 && prefix[0] != ' ' {
		prefix = ""
	}
	return "  " + prefix
}
