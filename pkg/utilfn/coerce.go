// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package utilfn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Values crossing the method channel arrive dynamically typed: JSON gives
// float64 / []any / map[string]any, in-process callers pass native Go types.
// These helpers accept both and report whether the value had a usable shape.

// ToInt truncates floating point values toward zero
func ToInt(val any) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		if v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		if v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	}
	return 0, false
}

// floatToInt rejects values whose integer part does not fit in an int
func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f >= math.MaxInt+1 || f < math.MinInt {
		return 0, false
	}
	return int(f), true
}

func ToString(val any) (string, bool) {
	s, ok := val.(string)
	return s, ok
}

func ToBool(val any) (bool, bool) {
	b, ok := val.(bool)
	return b, ok
}

// ToList converts any slice or array value to []any
func ToList(val any) ([]any, bool) {
	if val == nil {
		return nil, false
	}
	if l, ok := val.([]any); ok {
		return l, true
	}
	if _, isBytes := val.([]byte); isBytes {
		return nil, false
	}
	rval := reflect.ValueOf(val)
	if rval.Kind() != reflect.Slice && rval.Kind() != reflect.Array {
		return nil, false
	}
	rtn := make([]any, rval.Len())
	for i := 0; i < rval.Len(); i++ {
		rtn[i] = rval.Index(i).Interface()
	}
	return rtn, true
}

func ToIntSlice(val any) ([]int, bool) {
	if ints, ok := val.([]int); ok {
		return ints, true
	}
	list, ok := ToList(val)
	if !ok {
		return nil, false
	}
	rtn := make([]int, len(list))
	for i, elem := range list {
		n, ok := ToInt(elem)
		if !ok {
			return nil, false
		}
		rtn[i] = n
	}
	return rtn, true
}

// ToBytes accepts raw bytes, a base64 (std encoding) string, or a list of byte values
func ToBytes(val any) ([]byte, bool) {
	switch v := val.(type) {
	case []byte:
		return v, true
	case string:
		barr, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, false
		}
		return barr, true
	}
	ints, ok := ToIntSlice(val)
	if !ok {
		return nil, false
	}
	rtn := make([]byte, len(ints))
	for i, n := range ints {
		if n < 0 || n > 255 {
			return nil, false
		}
		rtn[i] = byte(n)
	}
	return rtn, true
}

// ToStringMap flattens header-like maps. List values are joined with ", ".
func ToStringMap(val any) (map[string]string, bool) {
	switch v := val.(type) {
	case map[string]string:
		return v, true
	case map[string]any:
		rtn := make(map[string]string, len(v))
		for key, elem := range v {
			rtn[key] = stringifyValue(elem)
		}
		return rtn, true
	}
	return nil, false
}

func stringifyValue(val any) string {
	if val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	if list, ok := ToList(val); ok {
		parts := make([]string, len(list))
		for i, elem := range list {
			parts[i] = stringifyValue(elem)
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(val)
}
