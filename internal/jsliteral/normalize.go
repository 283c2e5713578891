// Package jsliteral turns JavaScript object and array literals, as found in
// inline <script> blocks, into strict JSON.
package jsliteral

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformed is returned when a normalized literal still is not valid JSON.
var ErrMalformed = errors.New("malformed javascript literal")

var (
	// A bare key is a run of word characters directly followed by a colon
	// at the start of the fragment or after '{', ',' or whitespace. Keys that
	// are already quoted are preceded by '"' and never match.
	bareKey = regexp.MustCompile(`(^|[{,\s])(\w+):`)

	// Standalone null followed by ',' or '}'.
	nullValue = regexp.MustCompile(`\bnull([,}])`)
)

// Normalize rewrites a JavaScript literal fragment into JSON text. The steps
// run in order and each assumes the previous ones already ran:
//
//  1. tabs become single spaces
//  2. single quotes become double quotes
//  3. bare keys are quoted
//  4. null values followed by ',' or '}' become 0
//
// The last step is lossy: a missing numeric value reads as zero.
func Normalize(fragment string) string {
	s := strings.ReplaceAll(fragment, "\t", " ")
	s = strings.ReplaceAll(s, "'", `"`)
	s = bareKey.ReplaceAllString(s, `$1"$2":`)
	s = nullValue.ReplaceAllString(s, `0$1`)
	return s
}

// Decode normalizes fragment and unmarshals the result into v.
func Decode(fragment string, v any) error {
	if err := json.Unmarshal([]byte(Normalize(fragment)), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
