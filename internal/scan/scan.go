// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package scan finds {{name}} placeholder tokens in template text. Scanning a
// structured value serializes it first, so nested occurrences are found
// without walking the tree; a string value that merely looks like a token is
// an accepted false positive of that approach.
package scan

import (
	"fmt"
	"regexp"
	"sort"

	json "github.com/goccy/go-json"
)

var tokenRE = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Scan returns the distinct variable names present as {{name}} tokens in
// text, sorted for determinism. Unmatched braces are not tokens and are
// ignored; empty input yields an empty result. Scan is pure and idempotent.
func Scan(text string) []string {
	seen := make(map[string]struct{})
	var names []string

	for _, m := range tokenRE.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// ScanStructured serializes v and scans the serialized form.
func ScanStructured(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize value for scanning: %w", err)
	}

	return Scan(string(b)), nil
}

// Token renders name as a template token.
func Token(name string) string {
	return "{{" + name + "}}"
}

// Substitute replaces each known token occurrence in text with its value in a
// single pass. A substituted value that itself contains a token is emitted
// literally and never re-expanded. Tokens with no entry in values are left in
// place.
func Substitute(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}

	return tokenRE.ReplaceAllStringFunc(text, func(tok string) string {
		name := tok[2 : len(tok)-2]
		if v, ok := values[name]; ok {
			return v
		}
		return tok
	})
}
