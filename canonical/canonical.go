// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.
//
// The ai4all-network coordinator is free software: you can redistribute it
// and/or modify it under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The ai4all-network coordinator is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ai4all-network coordinator. If not, see
// <http://www.gnu.org/licenses/>.

// Package canonical implements the deterministic, language-portable
// serialisation every hash in this repository is built over: object
// keys sorted recursively, Maps as sorted [k,v] pairs, Sets as sorted
// values, time.Time as RFC3339 (ISO-8601), *big.Int as decimal
// strings, arrays order-preserving, Omitted fields dropped and nil
// rendered as null.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"sort"
	"time"
)

// Set models the source language's Set<T>: a collection whose canonical
// form is its sorted, deduplicated string values. Used wherever the
// spec calls out "Set -> sorted values" (e.g. the per-day canary id
// set, a locked roster).
type Set []string

// Map models the source language's Map<K,V>: canonicalised as sorted
// [k,v] pairs by stringified key, not as a JSON object (so key order
// never depends on string content of the value).
type Map map[string]interface{}

// omittedValue is a sentinel marking a struct field that should be
// dropped entirely from the canonical form, modeling the source
// language's "undefined" (distinct from an explicit null/nil).
type omittedValue struct{}

// Omitted is the value optional fields should be set to when absent;
// Marshal drops any map key holding it.
var Omitted = omittedValue{}

// Marshal renders v into its canonical byte form. v must be built from
// map[string]interface{}, []interface{}, Map, Set, string, bool, nil,
// float64/int family, *big.Int or time.Time; any other value is handed
// to encoding/json as it is.
func Marshal(v interface{}) ([]byte, error) {
	norm := normalize(v)
	return json.Marshal(norm)
}

// Hash returns SHA-256 of the canonical encoding of v.
func Hash(v interface{}) ([32]byte, error) {
	b, err := Marshal(v)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// HashHex is Hash rendered as a lowercase hex string, the form every
// hash field in this repository is stored as.
func HashHex(v interface{}) (string, error) {
	h, err := Hash(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}

// SHA256Hex hashes raw bytes directly (used for leaf/node hashing in
// merkle and for hashing pre-serialised strings), bypassing the
// canonical-value normalisation above.
func SHA256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// normalize walks v and produces a tree of only the JSON-stable types
// (map[string]interface{} with sorted keys implicit in encoding/json,
// []interface{}, string, bool, float64, nil) that encoding/json will
// render deterministically. encoding/json already sorts map keys when
// marshaling a map, which gives us "object keys sorted recursively" for
// free once every exotic type is reduced to a plain map/slice/scalar.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case Set:
		sorted := append([]string(nil), t...)
		sort.Strings(sorted)
		out := make([]interface{}, 0, len(sorted))
		for i, s := range sorted {
			if i > 0 && s == sorted[i-1] {
				continue
			}
			out = append(out, s)
		}
		return out
	case Map:
		return normalizeMapToPairs(t)
	case omittedValue:
		return omittedValue{}
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if _, isOmitted := val.(omittedValue); isOmitted {
				continue
			}
			out[k] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case *big.Int:
		if t == nil {
			return nil
		}
		return t.String()
	case big.Int:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// normalizeMapToPairs renders a Map as a canonical array of [key, value]
// pairs sorted ascending by key, per spec §4.6 ("Map -> sorted [k,v]
// pairs by stringified key").
func normalizeMapToPairs(m Map) []interface{} {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		out = append(out, []interface{}{k, normalize(m[k])})
	}
	return out
}
