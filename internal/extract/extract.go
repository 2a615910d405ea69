// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package extract navigates decoded JSON values with dotted/bracket path
// expressions: an optional leading $ or $., dot-separated segments of the
// form name, name[idx] or [idx]. This is deliberately not a general JSONPath
// engine - no wildcards, no filters, no recursive descent - and is used only
// for reading API responses, never for writing.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Error reports that a path expression did not match the value's shape or
// was itself malformed. It is always returned as a value, never raised.
type Error struct {
	Path   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction failed for path %q: %s", e.Path, e.Reason)
}

var segmentRE = regexp.MustCompile(`^([^.\[\]]*)((?:\[\d+\])*)$`)
var indexRE = regexp.MustCompile(`\[(\d+)\]`)

// Extract returns the node path addresses within value. An empty or
// root-only path returns value unchanged. A missing member or an index into
// a non-array yields an *Error.
func Extract(value gjson.Result, path string) (gjson.Result, error) {
	rest := strings.TrimPrefix(path, "$")
	rest = strings.TrimPrefix(rest, ".")
	if rest == "" {
		return value, nil
	}

	cur := value
	for _, segment := range strings.Split(rest, ".") {
		m := segmentRE.FindStringSubmatch(segment)
		if m == nil || segment == "" {
			return gjson.Result{}, &Error{Path: path, Reason: fmt.Sprintf("malformed segment %q", segment)}
		}

		name, brackets := m[1], m[2]

		if name != "" {
			if !cur.IsObject() {
				return gjson.Result{}, &Error{Path: path, Reason: fmt.Sprintf("member %q accessed on a non-object", name)}
			}
			next, ok := cur.Map()[name]
			if !ok {
				return gjson.Result{}, &Error{Path: path, Reason: fmt.Sprintf("member %q not found", name)}
			}
			cur = next
		}

		for _, im := range indexRE.FindAllStringSubmatch(brackets, -1) {
			idx, err := strconv.Atoi(im[1])
			if err != nil {
				return gjson.Result{}, &Error{Path: path, Reason: fmt.Sprintf("malformed index in segment %q", segment)}
			}
			if !cur.IsArray() {
				return gjson.Result{}, &Error{Path: path, Reason: fmt.Sprintf("index %d applied to a non-array", idx)}
			}
			arr := cur.Array()
			if idx >= len(arr) {
				return gjson.Result{}, &Error{Path: path, Reason: fmt.Sprintf("index %d out of range (len %d)", idx, len(arr))}
			}
			cur = arr[idx]
		}
	}

	return cur, nil
}

// ExtractBytes parses doc and extracts path from it.
func ExtractBytes(doc []byte, path string) (gjson.Result, error) {
	if !gjson.ValidBytes(doc) {
		return gjson.Result{}, &Error{Path: path, Reason: "response is not valid JSON"}
	}
	return Extract(gjson.ParseBytes(doc), path)
}
