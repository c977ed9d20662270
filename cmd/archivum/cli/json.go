// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"reflect"
)

// JSONOutput is an embeddable struct that adds the --json flag (via
// struct-tag processing in [BindFlags]) to a command's parameter
// struct. Embedded through [GlobalFlags] on every command, so every
// subcommand shares the same flag name and help text.
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"output as JSON"`
}

// MarshalIndent renders value as indented JSON, normalizing any nil
// slice fields to empty slices first so serialization produces []
// instead of null. Commands call this through archout.Context.Raw
// rather than writing to os.Stdout directly, so --json output still
// respects the log-file mirroring rules C9 defines for every other
// output path.
func MarshalIndent(value any) ([]byte, error) {
	return json.MarshalIndent(normalizeNilSlice(value), "", "  ")
}

// normalizeNilSlice returns an empty slice of the same type if value
// is a nil slice, so that JSON serialization produces [] instead of
// null. Returns value unchanged for all other types.
func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
