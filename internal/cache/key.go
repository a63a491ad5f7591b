// Copyright 2025 UMH Systems GmbH
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

package cache

import (
	"bytes"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/united-manufacturing-hub/service-scaffold/internal"
)

// hashThreshold is the argument suffix length above which keys are hashed
// when hashing is enabled.
const hashThreshold = 64

// Args are the arguments of a cached call.
type Args struct {
	Positional []any
	Named      map[string]any
}

// Key derives the canonical cache key
//
//	<prefix>:<scope>:<operation>[:<positional-json>][:<named-json>]
//
// Positional arguments are encoded as a JSON array, named arguments as a
// JSON object with sorted keys and nil values removed. An empty prefix is
// omitted.
func Key(prefix, scope, operation string, args Args) (string, error) {
	parts := make([]string, 0, 5)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, scope, operation)

	suffix, err := argsSuffix(args)
	if err != nil {
		return "", err
	}
	parts = append(parts, suffix...)
	return strings.Join(parts, ":"), nil
}

func argsSuffix(args Args) ([]string, error) {
	var out []string
	if len(args.Positional) > 0 {
		b, err := json.Marshal(args.Positional)
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}

	names := make([]string, 0, len(args.Named))
	for k, v := range args.Named {
		if v != nil {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return out, nil
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(args.Named[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return append(out, buf.String()), nil
}

// hashedKey replaces a long argument suffix with its xxh3 digest.
func hashedKey(prefix, scope, operation string, args Args) (string, error) {
	full, err := Key(prefix, scope, operation, args)
	if err != nil {
		return "", err
	}
	base, err := Key(prefix, scope, operation, Args{})
	if err != nil {
		return "", err
	}
	if len(full)-len(base) <= hashThreshold {
		return full, nil
	}
	return base + ":#" + internal.AsXXHashHex([]byte(full[len(base):])), nil
}
